// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "micscope/internal/log"
)

// pollInterval is how often a pending read checks for buffered audio.
const pollInterval = 2 * time.Millisecond

// blockingStream is the subset of *portaudio.Stream used for blocking reads.
type blockingStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	AvailableToRead() (int, error)
}

// paOpenStream opens a blocking input stream that reads into buf.
var paOpenStream = func(params portaudio.StreamParameters, buf []int32) (blockingStream, error) {
	return portaudio.OpenStream(params, buf)
}

// PortAudioConfig selects and configures the live input device.
type PortAudioConfig struct {
	DeviceID   int
	SampleRate int
	Window     time.Duration
	LowLatency bool
}

// PortAudioSource captures stereo 24-bit audio from a host input device.
type PortAudioSource struct {
	stream  blockingStream
	samples []int32 // Interleaved L/R, filled by the stream.
	frames  int
	out     []byte
	closed  bool
}

var _ Source = (*PortAudioSource)(nil)

// OpenPortAudio opens and starts a blocking input stream. s must be live.
func (s *Session) OpenPortAudio(cfg PortAudioConfig) (*PortAudioSource, error) {
	frames := Frames(cfg.SampleRate, cfg.Window)
	if frames <= 0 {
		return nil, fmt.Errorf("capture window of %v at %d Hz holds no frames", cfg.Window, cfg.SampleRate)
	}

	device, err := inputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: DefaultChannels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: frames,
		SampleRate:      float64(cfg.SampleRate),
	}

	samples := make([]int32, frames*DefaultChannels)
	stream, err := paOpenStream(params, samples)
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %w", ErrDevice, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start input: %w", ErrDevice, err)
	}

	applog.Infof("Capture: %s at %d Hz, %d frames per read, latency %v",
		device.Name, cfg.SampleRate, frames, latency)

	return &PortAudioSource{
		stream:  stream,
		samples: samples,
		frames:  frames,
		out:     make([]byte, len(samples)*DefaultSampleSize),
	}, nil
}

// Read waits until a whole window is buffered or timeout elapses, then
// returns it. PortAudio delivers full 32-bit words; they are shifted down to
// the 24-bit range.
func (p *PortAudioSource) Read(timeout time.Duration) ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(timeout)
	for {
		available, err := p.stream.AvailableToRead()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDevice, err)
		}
		if available >= p.frames {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w after %v (%d of %d frames)", ErrTimeout, timeout, available, p.frames)
		}
		time.Sleep(min(pollInterval, time.Until(deadline)))
	}

	if err := p.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return nil, fmt.Errorf("%w: %w", ErrDevice, err)
		}
		applog.Debug("Capture: input overflowed, samples were dropped")
	}

	for i, s := range p.samples {
		binary.LittleEndian.PutUint32(p.out[i*DefaultSampleSize:], uint32(s>>8))
	}
	return p.out, nil
}

// Close stops and closes the stream. The session stays initialized.
func (p *PortAudioSource) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.stream.Stop(); err != nil {
		p.stream.Close()
		return fmt.Errorf("%w: stop input: %w", ErrDevice, err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("%w: close input: %w", ErrDevice, err)
	}
	return nil
}
