// SPDX-License-Identifier: MIT
package config

import "time"

// Capture sources.
const (
	SourcePortAudio = "portaudio" // Live host input device.
	SourceWav       = "wav"       // Replay of a WAV file.
	SourceTone      = "tone"      // Synthetic sine.
)

// Display outputs.
const (
	OutputTerminal = "terminal" // Braille rendition on stdout.
	OutputNone     = "none"     // Headless, frames are drawn but not shown.
)

// Defaults for the display loop. The 48 kHz / 100 ms capture window yields
// 4800 frames, 38,400 bytes per read.
const (
	DefaultLogLevel       = "info"
	DefaultSource         = SourcePortAudio
	DefaultDeviceID       = MinDeviceID // System default input device.
	DefaultSampleRate     = 48000
	DefaultWindow         = 100 * time.Millisecond
	DefaultCaptureTimeout = time.Second
	DefaultLowLatency     = false
	DefaultToneFrequency  = 1000.0
	DefaultToneAmplitude  = 0.8
	DefaultBackend        = "gonum"
	DefaultFFTWindow      = "none"
	DefaultOutput         = OutputTerminal
	DefaultUnicode        = true

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxWindow     = 2 * time.Second
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Source:         DefaultSource,
			InputDevice:    DefaultDeviceID,
			SampleRate:     DefaultSampleRate,
			Window:         DefaultWindow,
			CaptureTimeout: DefaultCaptureTimeout,
			LowLatency:     DefaultLowLatency,
			WavLoop:        true,
			Realtime:       true,
			ToneFrequency:  DefaultToneFrequency,
			ToneAmplitude:  DefaultToneAmplitude,
		},
		Analysis: AnalysisConfig{
			Backend: DefaultBackend,
			Window:  DefaultFFTWindow,
		},
		Display: DisplayConfig{
			Output:  DefaultOutput,
			Unicode: DefaultUnicode,
		},
	}
}
