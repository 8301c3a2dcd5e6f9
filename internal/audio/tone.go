package audio

import (
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// tone streams a ToneSpec. Frequency and gain move exponentially from their
// start to their end values over the tone's duration.
type tone struct {
	spec     ToneSpec
	rate     beep.SampleRate
	total    int
	position int
	phase    float64
}

func newTone(spec ToneSpec, rate beep.SampleRate) *tone {
	return &tone{
		spec:  spec,
		rate:  rate,
		total: rate.N(spec.Duration),
	}
}

// ramp interpolates exponentially; both ends must be positive.
func ramp(from, to, t float64) float64 {
	if from == to {
		return from
	}
	return from * math.Pow(to/from, t)
}

func (o *tone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.total {
			return i, i > 0
		}

		t := float64(o.position) / float64(o.total)
		freq := ramp(o.spec.FreqStart, o.spec.FreqEnd, t)
		gain := ramp(o.spec.GainStart, o.spec.GainEnd, t)

		var val float64
		switch o.spec.Wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		}
		val *= gain

		samples[i][0] = val
		samples[i][1] = val

		o.phase += freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *tone) Err() error { return nil }

// math.Log2(0) is -Inf, so zero volume is expressed as Silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}
