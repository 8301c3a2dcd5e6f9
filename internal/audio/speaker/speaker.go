// Package speaker plays cues on the local sound device.
package speaker

import (
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	device "github.com/gopxl/beep/speaker"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/game"
)

// Feedback implements game.Feedback. Without a working device every cue
// goes to the fallback.
type Feedback struct {
	synth    *audio.Synthesizer
	fallback func()
	play     func(...beep.Streamer)
	close    func()

	ready atomic.Bool
	muted atomic.Bool
}

// New initialises the sound device. An init failure is not fatal: the
// returned feedback runs in fallback mode and err reports why.
func New(synth *audio.Synthesizer, fallback func()) (*Feedback, error) {
	sf := newFeedback(synth, fallback, device.Play, device.Close)
	rate := synth.SampleRate()
	if err := device.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return sf, err
	}
	sf.ready.Store(true)
	return sf, nil
}

var _ game.Feedback = (*Feedback)(nil)

func newFeedback(synth *audio.Synthesizer, fallback func(), play func(...beep.Streamer), closeFn func()) *Feedback {
	if fallback == nil {
		fallback = func() {}
	}
	return &Feedback{
		synth:    synth,
		fallback: fallback,
		play:     play,
		close:    closeFn,
	}
}

func (sf *Feedback) PlaySuccessCue() { sf.playCue(audio.CueSuccess) }
func (sf *Feedback) PlayLossCue()    { sf.playCue(audio.CueLoss) }

func (sf *Feedback) playCue(kind audio.CueKind) {
	if sf.muted.Load() {
		return
	}
	if !sf.ready.Load() {
		sf.fallback()
		return
	}
	streamer, err := sf.synth.Streamer(kind)
	if err != nil {
		return
	}
	sf.play(streamer)
}

// ToggleMute flips the mute flag and returns the new state.
func (sf *Feedback) ToggleMute() bool {
	for {
		old := sf.muted.Load()
		if sf.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (sf *Feedback) SetMuted(muted bool) { sf.muted.Store(muted) }
func (sf *Feedback) IsMuted() bool       { return sf.muted.Load() }

// Enabled reports whether cues reach a real sound device.
func (sf *Feedback) Enabled() bool { return sf.ready.Load() }

func (sf *Feedback) Close() {
	if sf.ready.CompareAndSwap(true, false) && sf.close != nil {
		sf.close()
	}
}
