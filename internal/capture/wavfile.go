// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "micscope/internal/log"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag of the fmt chunk.
const wavFormatPCM = 1

// WavConfig configures a WAV replay source.
type WavConfig struct {
	Path       string
	Window     time.Duration
	Loop       bool // Rewind at end of file instead of returning io.EOF.
	Realtime   bool // Pace reads to the file's sample rate.
	SampleRate int  // Expected rate; a mismatch is logged, not fatal.
}

// WavSource replays a PCM WAV file as if it were a live input. Mono files
// are duplicated to both channels, extra channels are dropped and samples
// are rescaled to 24 bits.
type WavSource struct {
	path     string
	file     *os.File
	decoder  *wav.Decoder
	buf      *audio.IntBuffer
	out      []byte
	channels int
	bitDepth int
	rate     int
	window   time.Duration
	loop     bool
	realtime bool
	next     time.Time // Earliest time the next window may be delivered.
	closed   bool
}

var _ Source = (*WavSource)(nil)

// OpenWav opens path and validates its header.
func OpenWav(cfg WavConfig) (*WavSource, error) {
	file, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrDevice, cfg.Path)
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s has no PCM data: %w", ErrDevice, cfg.Path, err)
	}

	// go-audio hands back IEEE float and compressed payloads as raw integers.
	if decoder.WavAudioFormat != wavFormatPCM {
		file.Close()
		return nil, fmt.Errorf("%w: %s is not integer PCM (format tag %#x)",
			ErrDevice, cfg.Path, decoder.WavAudioFormat)
	}

	format := decoder.Format()
	rate := format.SampleRate
	channels := format.NumChannels
	bitDepth := int(decoder.BitDepth)
	if channels < 1 || rate <= 0 || bitDepth < 8 || bitDepth > 32 {
		file.Close()
		return nil, fmt.Errorf("%w: %s has unsupported format (%d ch, %d Hz, %d bit)",
			ErrDevice, cfg.Path, channels, rate, bitDepth)
	}

	if cfg.SampleRate > 0 && cfg.SampleRate != rate {
		applog.Warnf("Capture: %s is %d Hz, expected %d Hz", cfg.Path, rate, cfg.SampleRate)
	}

	frames := Frames(rate, cfg.Window)
	if frames <= 0 {
		file.Close()
		return nil, fmt.Errorf("capture window of %v at %d Hz holds no frames", cfg.Window, rate)
	}

	applog.Infof("Capture: replaying %s (%d ch, %d Hz, %d bit, loop=%t, realtime=%t)",
		cfg.Path, channels, rate, bitDepth, cfg.Loop, cfg.Realtime)

	return &WavSource{
		path:    cfg.Path,
		file:    file,
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format:         format,
			Data:           make([]int, frames*channels),
			SourceBitDepth: bitDepth,
		},
		out:      make([]byte, frames*DefaultChannels*DefaultSampleSize),
		channels: channels,
		bitDepth: bitDepth,
		rate:     rate,
		window:   cfg.Window,
		loop:     cfg.Loop,
		realtime: cfg.Realtime,
	}, nil
}

// SampleRate returns the file's sample rate.
func (w *WavSource) SampleRate() int {
	return w.rate
}

// Read returns the next window of the file. The final window of a file may
// be short. Without looping, reads past the end return an error wrapping
// io.EOF.
func (w *WavSource) Read(timeout time.Duration) ([]byte, error) {
	if w.closed {
		return nil, ErrClosed
	}

	if w.realtime {
		if err := w.pace(timeout); err != nil {
			return nil, err
		}
	}

	n, err := w.fill()
	if err != nil {
		return nil, err
	}
	if n == 0 && w.loop {
		if err := w.decoder.Rewind(); err != nil {
			return nil, fmt.Errorf("%w: rewinding %s: %w", ErrDevice, w.path, err)
		}
		applog.Debugf("Capture: %s rewound", w.path)
		if n, err = w.fill(); err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("capture: end of %s: %w", w.path, io.EOF)
	}

	frames := n / w.channels
	for i := range frames {
		frame := w.buf.Data[i*w.channels : (i+1)*w.channels]
		left := w.scale(frame[0])
		right := left
		if w.channels > 1 {
			right = w.scale(frame[1])
		}
		putFrame(w.out[i*DefaultChannels*DefaultSampleSize:], left, right)
	}
	return w.out[:frames*DefaultChannels*DefaultSampleSize], nil
}

// fill decodes up to one window and returns the number of samples read.
func (w *WavSource) fill() (int, error) {
	w.buf.Data = w.buf.Data[:cap(w.buf.Data)]
	n, err := w.decoder.PCMBuffer(w.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w: decoding %s: %w", ErrDevice, w.path, err)
	}
	// Drop a trailing partial frame.
	return n - n%w.channels, nil
}

// pace blocks until the next window is due. If it is not due within
// timeout, ErrTimeout is returned and the window stays pending.
func (w *WavSource) pace(timeout time.Duration) error {
	now := time.Now()
	if w.next.IsZero() {
		w.next = now
	}

	wait := w.next.Sub(now)
	if wait > timeout {
		time.Sleep(timeout)
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	w.next = w.next.Add(w.window)
	return nil
}

// scale converts a sample of the file's bit depth to the 24-bit range.
// 8-bit WAV data is unsigned.
func (w *WavSource) scale(s int) int32 {
	if w.bitDepth == 8 {
		s -= 128
	}
	switch shift := 24 - w.bitDepth; {
	case shift > 0:
		return int32(s << shift)
	case shift < 0:
		return int32(s >> -shift)
	default:
		return int32(s)
	}
}

// Close releases the file.
func (w *WavSource) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
