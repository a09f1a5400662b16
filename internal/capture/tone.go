// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"time"

	"micscope/pkg/utils"
)

// ToneConfig configures a synthetic sine source.
type ToneConfig struct {
	SampleRate int
	Window     time.Duration
	Frequency  float64 // Hz.
	Amplitude  float64 // Fraction of full scale, (0, 1].
	Realtime   bool
}

// ToneSource produces a phase-continuous sine on both channels. It stands
// in for a microphone when no input hardware is available.
type ToneSource struct {
	cfg    ToneConfig
	frames int
	offset int64 // Sample index of the next window.
	out    []byte
	next   time.Time
	closed bool
}

var _ Source = (*ToneSource)(nil)

// NewTone validates cfg and returns a tone source.
func NewTone(cfg ToneConfig) (*ToneSource, error) {
	frames := Frames(cfg.SampleRate, cfg.Window)
	if frames <= 0 {
		return nil, fmt.Errorf("capture window of %v at %d Hz holds no frames", cfg.Window, cfg.SampleRate)
	}
	if cfg.Frequency < 0 || cfg.Frequency > float64(cfg.SampleRate)/2 {
		return nil, fmt.Errorf("tone frequency %.1f Hz outside [0, %d] Hz", cfg.Frequency, cfg.SampleRate/2)
	}
	if cfg.Amplitude <= 0 || cfg.Amplitude > 1 {
		return nil, fmt.Errorf("tone amplitude %.3f outside (0, 1]", cfg.Amplitude)
	}

	return &ToneSource{
		cfg:    cfg,
		frames: frames,
		out:    make([]byte, frames*DefaultChannels*DefaultSampleSize),
	}, nil
}

func (t *ToneSource) Read(timeout time.Duration) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}

	if t.cfg.Realtime {
		now := time.Now()
		if t.next.IsZero() {
			t.next = now
		}
		if wait := t.next.Sub(now); wait > timeout {
			time.Sleep(timeout)
			return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
		} else if wait > 0 {
			time.Sleep(wait)
		}
		t.next = t.next.Add(t.cfg.Window)
	}

	samples := utils.GenerateSineWaveAt(t.frames, float64(t.cfg.SampleRate), t.cfg.Frequency, t.cfg.Amplitude, t.offset)
	t.offset += int64(t.frames)

	for i, s := range samples {
		putFrame(t.out[i*DefaultChannels*DefaultSampleSize:], s, s)
	}
	return t.out, nil
}

func (t *ToneSource) Close() error {
	t.closed = true
	return nil
}
