// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"

	"micscope/internal/pcm"
)

type fakeStream struct {
	buf       []int32
	available int
	readErr   error
	started   bool
	stopped   bool
	closed    bool
	reads     int
}

func (f *fakeStream) Start() error { f.started = true; return nil }
func (f *fakeStream) Stop() error  { f.stopped = true; return nil }
func (f *fakeStream) Close() error { f.closed = true; return nil }

func (f *fakeStream) AvailableToRead() (int, error) { return f.available, nil }

func (f *fakeStream) Read() error {
	f.reads++
	for i := range f.buf {
		// Full-range 32-bit words, as PortAudio delivers them.
		f.buf[i] = int32(i) << 8
	}
	f.buf[0] = -1 << 31
	return f.readErr
}

func openFake(t *testing.T, cfg PortAudioConfig) (*PortAudioSource, *fakeStream, *portaudio.StreamParameters) {
	t.Helper()
	fakePortAudio(t, fakeDevices, nil)

	stream := &fakeStream{}
	var params portaudio.StreamParameters
	orig := paOpenStream
	t.Cleanup(func() { paOpenStream = orig })
	paOpenStream = func(p portaudio.StreamParameters, buf []int32) (blockingStream, error) {
		params = p
		stream.buf = buf
		return stream, nil
	}

	session, _ := Initialize()
	src, err := session.OpenPortAudio(cfg)
	if err != nil {
		t.Fatalf("OpenPortAudio() error = %v", err)
	}
	return src, stream, &params
}

func TestPortAudioSourceStreamParameters(t *testing.T) {
	_, stream, params := openFake(t, PortAudioConfig{
		DeviceID:   DefaultDeviceID,
		SampleRate: 48000,
		Window:     100 * time.Millisecond,
		LowLatency: true,
	})

	if !stream.started {
		t.Error("stream was not started")
	}
	if params.FramesPerBuffer != 4800 || params.SampleRate != 48000 {
		t.Errorf("frames/rate = %d/%.0f", params.FramesPerBuffer, params.SampleRate)
	}
	if params.Input.Channels != 2 || params.Output.Channels != 0 {
		t.Errorf("channels in/out = %d/%d", params.Input.Channels, params.Output.Channels)
	}
	if params.Input.Latency != 2*time.Millisecond {
		t.Errorf("latency = %v, want low input latency", params.Input.Latency)
	}
	if len(stream.buf) != 9600 {
		t.Errorf("stream buffer holds %d samples, want 9600", len(stream.buf))
	}
}

func TestPortAudioSourceRead(t *testing.T) {
	src, stream, _ := openFake(t, PortAudioConfig{DeviceID: 1, SampleRate: 8000, Window: 10 * time.Millisecond})
	stream.available = 80

	buf, err := src.Read(time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(buf) != BufferSize(8000, DefaultSampleSize, DefaultChannels, 10*time.Millisecond) {
		t.Fatalf("len(buf) = %d", len(buf))
	}

	left, right, err := pcm.Demux(buf)
	if err != nil {
		t.Fatal(err)
	}
	if left[0] != pcm.MinSample {
		t.Errorf("most negative word scaled to %d, want %d", left[0], pcm.MinSample)
	}
	if right[0] != 1 || left[1] != 2 || right[39] != 79 {
		t.Errorf("interleave/scale mismatch: right[0]=%d left[1]=%d right[39]=%d", right[0], left[1], right[39])
	}
}

func TestPortAudioSourceTimeout(t *testing.T) {
	src, stream, _ := openFake(t, PortAudioConfig{DeviceID: 1, SampleRate: 8000, Window: 10 * time.Millisecond})
	stream.available = 79

	start := time.Now()
	_, err := src.Read(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("timed out after %v, before the deadline", elapsed)
	}
	if stream.reads != 0 {
		t.Error("read a partial window")
	}
}

func TestPortAudioSourceOverflowTolerated(t *testing.T) {
	src, stream, _ := openFake(t, PortAudioConfig{DeviceID: 1, SampleRate: 8000, Window: 10 * time.Millisecond})
	stream.available = 80
	stream.readErr = portaudio.InputOverflowed

	if _, err := src.Read(time.Second); err != nil {
		t.Errorf("overflow should not fail the read: %v", err)
	}

	stream.readErr = errors.New("device unplugged")
	if _, err := src.Read(time.Second); !errors.Is(err, ErrDevice) {
		t.Errorf("Read() error = %v, want ErrDevice", err)
	}
}

func TestPortAudioSourceClose(t *testing.T) {
	src, stream, _ := openFake(t, PortAudioConfig{DeviceID: 1, SampleRate: 8000, Window: 10 * time.Millisecond})

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if !stream.stopped || !stream.closed {
		t.Error("stream not stopped and closed")
	}
	if _, err := src.Read(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestOpenPortAudioErrors(t *testing.T) {
	fakePortAudio(t, fakeDevices, nil)
	session, _ := Initialize()

	if _, err := session.OpenPortAudio(PortAudioConfig{DeviceID: 1, SampleRate: 48000}); err == nil {
		t.Error("expected an error for a zero window")
	}
	if _, err := session.OpenPortAudio(PortAudioConfig{DeviceID: 0, SampleRate: 48000, Window: time.Second}); !errors.Is(err, ErrDevice) {
		t.Errorf("output-only device: %v, want ErrDevice", err)
	}

	orig := paOpenStream
	defer func() { paOpenStream = orig }()
	paOpenStream = func(portaudio.StreamParameters, []int32) (blockingStream, error) {
		return nil, errors.New("format not supported")
	}
	if _, err := session.OpenPortAudio(PortAudioConfig{DeviceID: 1, SampleRate: 48000, Window: time.Second}); !errors.Is(err, ErrDevice) {
		t.Errorf("open failure: %v, want ErrDevice", err)
	}
}
