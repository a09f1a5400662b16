// SPDX-License-Identifier: MIT
/*
Package capture provides the audio sources the display loop reads from.

Every Source hands out raw stereo buffers in the wire format understood by
package pcm: little-endian 32-bit words carrying 24-bit samples, left then
right. Three sources exist: a live PortAudio input, a WAV file replay and a
synthetic tone.
*/
package capture

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	DefaultDeviceID   = -1                     // System default input device.
	DefaultSampleRate = 48000                  // Hz.
	DefaultWindow     = 100 * time.Millisecond // Audio captured per read.
	DefaultTimeout    = time.Second            // Bound on a single read.
	DefaultChannels   = 2
	DefaultSampleSize = 4 // Bytes per sample word.
)

var (
	ErrTimeout = errors.New("capture: read timed out")
	ErrDevice  = errors.New("capture: device failure")
	ErrClosed  = errors.New("capture: source is closed")
)

// Source delivers one capture window per Read. Read blocks for at most
// timeout and returns a buffer of at most BufferSize bytes. The buffer is
// only valid until the next Read.
type Source interface {
	Read(timeout time.Duration) ([]byte, error)
	Close() error
}

// BufferSize returns the number of bytes in one capture window.
func BufferSize(sampleRate, bytesPerSample, channels int, window time.Duration) int {
	return Frames(sampleRate, window) * bytesPerSample * channels
}

// Frames returns the number of sample frames in window at sampleRate.
func Frames(sampleRate int, window time.Duration) int {
	if sampleRate <= 0 || window <= 0 {
		return 0
	}
	return int(int64(sampleRate) * int64(window) / int64(time.Second))
}

// putFrame encodes one stereo frame at the start of dst.
func putFrame(dst []byte, left, right int32) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(left))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(right))
}
