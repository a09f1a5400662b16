// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"micscope/internal/analysis"
	applog "micscope/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool           `yaml:"debug"`     // Force debug logging regardless of log_level.
	LogLevel string         `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio    AudioConfig    `yaml:"audio"`     // Capture settings.
	Analysis AnalysisConfig `yaml:"analysis"`  // Spectrum analysis settings.
	Display  DisplayConfig  `yaml:"display"`   // Output surface settings.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	Source         string        `yaml:"source"`          // "portaudio", "wav" or "tone".
	InputDevice    int           `yaml:"input_device"`    // PortAudio device index for audio input (-1 for default).
	SampleRate     int           `yaml:"sample_rate"`     // Sample rate in Hz (e.g., 44100, 48000).
	Window         time.Duration `yaml:"window"`          // Audio captured per loop iteration.
	CaptureTimeout time.Duration `yaml:"capture_timeout"` // Upper bound on a single capture read.
	LowLatency     bool          `yaml:"low_latency"`     // Request low latency settings from PortAudio device.
	WavFile        string        `yaml:"wav_file"`        // Input file for the wav source.
	WavLoop        bool          `yaml:"wav_loop"`        // Restart the file at its end.
	Realtime       bool          `yaml:"realtime"`        // Pace wav and tone reads to the sample rate.
	ToneFrequency  float64       `yaml:"tone_frequency"`  // Frequency of the tone source in Hz.
	ToneAmplitude  float64       `yaml:"tone_amplitude"`  // Amplitude of the tone source, fraction of full scale.
}

// AnalysisConfig holds settings for the spectral analyzer.
type AnalysisConfig struct {
	Backend         string `yaml:"backend"`             // "gonum" or "bluestein".
	Window          string `yaml:"window"`              // Window function name (e.g., "none", "hann").
	PadToPowerOfTwo bool   `yaml:"pad_to_power_of_two"` // Zero-pad frames to the next power of two.
}

// DisplayConfig holds settings for the output surface.
type DisplayConfig struct {
	Output  string `yaml:"output"`  // "terminal" or "none".
	Unicode bool   `yaml:"unicode"` // Braille cells instead of ASCII.
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"micscope.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every field and reports the first problem found.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	a := c.Audio
	switch a.Source {
	case SourcePortAudio:
		if a.InputDevice < MinDeviceID {
			return fmt.Errorf("%w: audio.input_device %d is below %d", ErrInvalidConfig, a.InputDevice, MinDeviceID)
		}
	case SourceWav:
		if a.WavFile == "" {
			return fmt.Errorf("%w: audio.wav_file must be set for the wav source", ErrInvalidConfig)
		}
	case SourceTone:
		if a.ToneFrequency < 0 || a.ToneFrequency > float64(a.SampleRate)/2 {
			return fmt.Errorf("%w: audio.tone_frequency %.1f Hz outside [0, %d] Hz",
				ErrInvalidConfig, a.ToneFrequency, a.SampleRate/2)
		}
		if a.ToneAmplitude <= 0 || a.ToneAmplitude > 1 {
			return fmt.Errorf("%w: audio.tone_amplitude %.3f outside (0, 1]", ErrInvalidConfig, a.ToneAmplitude)
		}
	default:
		return fmt.Errorf("%w: unknown audio.source %q (want %s, %s or %s)",
			ErrInvalidConfig, a.Source, SourcePortAudio, SourceWav, SourceTone)
	}

	// The wav source uses the file's own rate.
	if a.Source != SourceWav && (a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate) {
		return fmt.Errorf("%w: audio.sample_rate %d outside [%d, %d]",
			ErrInvalidConfig, a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.Window <= 0 || a.Window > MaxWindow {
		return fmt.Errorf("%w: audio.window %v outside (0, %v]", ErrInvalidConfig, a.Window, MaxWindow)
	}
	if a.CaptureTimeout <= 0 {
		return fmt.Errorf("%w: audio.capture_timeout must be positive", ErrInvalidConfig)
	}

	if _, err := analysis.ParseBackend(c.Analysis.Backend); err != nil {
		return fmt.Errorf("%w: analysis.backend: %w", ErrInvalidConfig, err)
	}
	if _, err := analysis.ParseWindowFunc(c.Analysis.Window); err != nil {
		return fmt.Errorf("%w: analysis.window: %w", ErrInvalidConfig, err)
	}

	switch c.Display.Output {
	case OutputTerminal, OutputNone:
	default:
		return fmt.Errorf("%w: unknown display.output %q (want %s or %s)",
			ErrInvalidConfig, c.Display.Output, OutputTerminal, OutputNone)
	}

	return nil
}

// EffectiveLogLevel returns the level to log at; Debug wins over LogLevel.
func (c *Config) EffectiveLogLevel() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides replaces settings with ENV_* variables when present.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.TrimSpace(val)
		applog.Infof("Config: overriding log_level from env: %s", c.LogLevel)
	}

	// ENV_AUDIO_{...}
	// These are specific to capture.

	// ENV_AUDIO_SOURCE
	if val, ok := os.LookupEnv("ENV_AUDIO_SOURCE"); ok {
		c.Audio.Source = strings.ToLower(strings.TrimSpace(val))
		applog.Infof("Config: overriding audio.source from env: %s", c.Audio.Source)
	}
	// ENV_AUDIO_DEVICE
	if val, ok := os.LookupEnv("ENV_AUDIO_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
			applog.Infof("Config: overriding audio.input_device from env: %d", id)
		}
	}
	// ENV_WAV_FILE
	if val, ok := os.LookupEnv("ENV_WAV_FILE"); ok {
		c.Audio.WavFile = val
		applog.Infof("Config: overriding audio.wav_file from env: %s", val)
	}

	// ENV_DISPLAY_OUTPUT
	if val, ok := os.LookupEnv("ENV_DISPLAY_OUTPUT"); ok {
		c.Display.Output = strings.ToLower(strings.TrimSpace(val))
		applog.Infof("Config: overriding display.output from env: %s", c.Display.Output)
	}
}
