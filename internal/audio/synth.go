package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

const DefaultSampleRate = 44100

type Config struct {
	SampleRate int
	Volume     float64 // 0.0-1.0
}

func DefaultConfig() Config {
	return Config{SampleRate: DefaultSampleRate, Volume: 1.0}
}

// Synthesizer renders cues and caches their WAV encodings.
type Synthesizer struct {
	cfg Config

	mu    sync.RWMutex
	cache map[CueKind][]byte
}

func NewSynthesizer(cfg Config) *Synthesizer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Volume < 0 {
		cfg.Volume = 0
	} else if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	return &Synthesizer{
		cfg:   cfg,
		cache: make(map[CueKind][]byte),
	}
}

func (s *Synthesizer) SampleRate() beep.SampleRate {
	return beep.SampleRate(s.cfg.SampleRate)
}

// Format is 16-bit mono at the configured rate.
func (s *Synthesizer) Format() beep.Format {
	return beep.Format{
		SampleRate:  s.SampleRate(),
		NumChannels: 1,
		Precision:   2,
	}
}

// Streamer returns a fresh stream of the cue at master volume.
func (s *Synthesizer) Streamer(kind CueKind) (beep.Streamer, error) {
	spec, err := Spec(kind)
	if err != nil {
		return nil, err
	}
	return newVolume(newTone(spec, s.SampleRate()), s.cfg.Volume), nil
}

// WAV returns the cue encoded as a WAV file, rendering it on first use.
func (s *Synthesizer) WAV(kind CueKind) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.cache[kind]
	s.mu.RUnlock()
	if ok {
		return data, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data, ok := s.cache[kind]; ok {
		return data, nil
	}

	streamer, err := s.Streamer(kind)
	if err != nil {
		return nil, err
	}

	var buf memFile
	if err := wav.Encode(&buf, streamer, s.Format()); err != nil {
		return nil, fmt.Errorf("encode %s cue: %w", kind, err)
	}

	s.cache[kind] = buf.data
	return buf.data, nil
}

// Preload renders every cue so the first request does not pay for synthesis.
func (s *Synthesizer) Preload() error {
	for _, kind := range []CueKind{CueSuccess, CueLoss} {
		if _, err := s.WAV(kind); err != nil {
			return err
		}
	}
	return nil
}

// memFile is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes once the stream is drained.
type memFile struct {
	data []byte
	pos  int
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.pos + len(p)
	if end > len(f.data) {
		if end > cap(f.data) {
			grown := make([]byte, end, 2*end)
			copy(grown, f.data)
			f.data = grown
		} else {
			f.data = f.data[:end]
		}
	}
	copy(f.data[f.pos:end], p)
	f.pos = end
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(f.pos) + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, errors.New("memFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memFile: negative position")
	}
	f.pos = int(abs)
	return abs, nil
}
