package audio

import (
	"fmt"
	"time"
)

// CueKind names one of the feedback tones.
type CueKind string

const (
	CueSuccess CueKind = "success"
	CueLoss    CueKind = "loss"
)

func ParseCueKind(s string) (CueKind, error) {
	switch CueKind(s) {
	case CueSuccess, CueLoss:
		return CueKind(s), nil
	}
	return "", fmt.Errorf("unknown cue %q", s)
}

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
)

// ToneSpec describes a single oscillator with exponential frequency and gain ramps.
type ToneSpec struct {
	Wave      WaveType
	FreqStart float64
	FreqEnd   float64
	GainStart float64
	GainEnd   float64
	Duration  time.Duration
}

// Spec returns the tone for a cue: a short bright sine for a safe tile and a
// falling square-wave buzz for a mine.
func Spec(kind CueKind) (ToneSpec, error) {
	switch kind {
	case CueSuccess:
		return ToneSpec{
			Wave:      WaveSine,
			FreqStart: 660,
			FreqEnd:   660,
			GainStart: 0.1,
			GainEnd:   0.01,
			Duration:  300 * time.Millisecond,
		}, nil
	case CueLoss:
		return ToneSpec{
			Wave:      WaveSquare,
			FreqStart: 220,
			FreqEnd:   55,
			GainStart: 0.2,
			GainEnd:   0.01,
			Duration:  time.Second,
		}, nil
	}
	return ToneSpec{}, fmt.Errorf("unknown cue %q", kind)
}
