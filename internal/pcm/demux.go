// SPDX-License-Identifier: MIT
/*
Package pcm turns raw capture buffers into per-channel sample sequences.

A capture buffer is a run of stereo frames. Each frame is 8 bytes: the left
sample in bytes [0,4) and the right sample in bytes [4,8), both little-endian
signed 32-bit words carrying a 24-bit fixed-point value.
*/
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	BytesPerSample = 4                         // One 32-bit word per channel sample.
	Channels       = 2                         // Left and right.
	FrameSize      = BytesPerSample * Channels // Bytes per stereo frame.
	FullScale      = float32(1<<23) - 1        // Largest magnitude of a 24-bit signed sample.
	MaxSample      = int32(1<<23) - 1          // FullScale as an integer.
	MinSample      = -int32(1 << 23)           // Most negative 24-bit sample.
)

// ErrMalformedBuffer is returned when a buffer is not a whole number of frames.
var ErrMalformedBuffer = errors.New("pcm: buffer length is not a multiple of the frame size")

// Demux splits an interleaved stereo buffer into its left and right channels.
// A buffer whose length is not a multiple of FrameSize is rejected with
// ErrMalformedBuffer and no samples are returned.
func Demux(raw []byte) (left, right []int32, err error) {
	if len(raw)%FrameSize != 0 {
		return nil, nil, fmt.Errorf("%w: got %d bytes", ErrMalformedBuffer, len(raw))
	}

	frames := len(raw) / FrameSize
	left = make([]int32, frames)
	right = make([]int32, frames)
	if err := DemuxInto(left, right, raw); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// DemuxInto is the allocation-free form of Demux. left and right must each
// hold exactly len(raw)/FrameSize samples.
func DemuxInto(left, right []int32, raw []byte) error {
	if len(raw)%FrameSize != 0 {
		return fmt.Errorf("%w: got %d bytes", ErrMalformedBuffer, len(raw))
	}
	frames := len(raw) / FrameSize
	if len(left) != frames || len(right) != frames {
		return fmt.Errorf("pcm: channel buffers hold %d/%d samples, need %d", len(left), len(right), frames)
	}

	for i := range frames {
		frame := raw[i*FrameSize : (i+1)*FrameSize]
		left[i] = int32(binary.LittleEndian.Uint32(frame[0:4]))
		right[i] = int32(binary.LittleEndian.Uint32(frame[4:8]))
	}
	return nil
}

// Interleave packs two channels back into the capture wire format. It is the
// inverse of Demux.
func Interleave(left, right []int32) ([]byte, error) {
	if len(left) != len(right) {
		return nil, fmt.Errorf("pcm: channel length mismatch (%d != %d)", len(left), len(right))
	}

	raw := make([]byte, len(left)*FrameSize)
	for i := range left {
		frame := raw[i*FrameSize : (i+1)*FrameSize]
		binary.LittleEndian.PutUint32(frame[0:4], uint32(left[i]))
		binary.LittleEndian.PutUint32(frame[4:8], uint32(right[i]))
	}
	return raw, nil
}
