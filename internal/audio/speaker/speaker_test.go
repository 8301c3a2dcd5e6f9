package speaker

import (
	"testing"

	"github.com/gopxl/beep"

	"mine-game-backend/internal/audio"
)

func TestFeedback(t *testing.T) {
	synth := audio.NewSynthesizer(audio.Config{SampleRate: 8000, Volume: 1})
	played := 0
	bells := 0
	sf := newFeedback(synth, func() { bells++ }, func(...beep.Streamer) { played++ }, nil)

	sf.PlaySuccessCue()
	if bells != 1 || played != 0 {
		t.Errorf("without a device cues should fall back: bells=%d played=%d", bells, played)
	}

	sf.ready.Store(true)
	sf.PlaySuccessCue()
	sf.PlayLossCue()
	if played != 2 {
		t.Errorf("expected 2 played cues, got %d", played)
	}

	if !sf.ToggleMute() {
		t.Fatal("expected mute on")
	}
	sf.PlayLossCue()
	if played != 2 || bells != 1 {
		t.Error("muted feedback must not play")
	}
	if sf.ToggleMute() {
		t.Error("expected mute off")
	}
}
