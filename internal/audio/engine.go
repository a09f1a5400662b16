// SPDX-License-Identifier: MIT
/*
Package audio runs the capture and display loop.

Each iteration captures one window of stereo PCM, keeps the left channel,
transforms it and draws the dominant frequency with a bar graph of the low
bins. The loop is single-threaded: the blocking capture read is its only
suspension point and the display surface is owned exclusively by the Engine.

Failure handling per iteration:
  - capture errors are shown as an "Audio Error" status screen and the loop
    carries on with the next read;
  - empty or malformed buffers are skipped without touching the display;
  - display errors are fatal and stop the loop.
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"micscope/internal/analysis"
	"micscope/internal/capture"
	"micscope/internal/display"
	applog "micscope/internal/log"
	"micscope/internal/pcm"
	"micscope/internal/render"
)

// Status messages shown on the display.
const (
	MsgHello          = "Hello"
	MsgConfiguring    = "Configuring capture ..."
	MsgCaptureEnabled = "Capture enabled"
	MsgAudioError     = "Audio Error"
)

// ErrDisplayFailure wraps every error returned by the display surface.
var ErrDisplayFailure = errors.New("audio: display failure")

// State is the position of the Engine within one iteration.
type State int

const (
	StateCapturing State = iota
	StateDemuxing
	StateAnalyzing
	StateRendering
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateDemuxing:
		return "demuxing"
	case StateAnalyzing:
		return "analyzing"
	case StateRendering:
		return "rendering"
	case StateReporting:
		return "reporting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts iteration outcomes.
type Stats struct {
	Iterations uint64 // Iterations started.
	Rendered   uint64 // Spectrum frames flushed.
	Reported   uint64 // Capture errors shown.
	Skipped    uint64 // Empty or malformed buffers.
}

// Engine owns one capture source and one display surface and drives the
// loop between them. It is not safe for concurrent use.
type Engine struct {
	source   capture.Source
	surface  display.Surface
	analyzer *analysis.SpectralAnalyzer
	layout   render.Layout
	timeout  time.Duration

	state     State
	stats     Stats
	exhausted bool // Source reported end of stream.

	// Per-iteration buffers, resized when the window length changes.
	left    []int32
	right   []int32
	samples []float32
	heights []int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCaptureTimeout bounds each capture read.
func WithCaptureTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLayout replaces the default bar graph geometry.
func WithLayout(l render.Layout) Option {
	return func(e *Engine) { e.layout = l }
}

// NewEngine creates an engine in the Capturing state. The capture timeout
// defaults to capture.DefaultTimeout and the layout to render.DefaultLayout.
func NewEngine(source capture.Source, surface display.Surface, analyzer *analysis.SpectralAnalyzer, opts ...Option) (*Engine, error) {
	if source == nil || surface == nil || analyzer == nil {
		return nil, errors.New("engine needs a source, a surface and an analyzer")
	}

	e := &Engine{
		source:   source,
		surface:  surface,
		analyzer: analyzer,
		layout:   render.DefaultLayout,
		timeout:  capture.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.timeout <= 0 {
		return nil, fmt.Errorf("capture timeout must be positive, got %v", e.timeout)
	}
	if e.layout.Bands <= 0 || e.layout.MaxHeight <= 0 {
		return nil, fmt.Errorf("invalid layout: %d bands, max height %d", e.layout.Bands, e.layout.MaxHeight)
	}

	e.heights = make([]int, e.layout.Bands)
	return e, nil
}

// Announce shows a status message. Surface errors are wrapped with
// ErrDisplayFailure.
func Announce(s display.Surface, text string) error {
	applog.Debugf("Engine: status %q", text)
	if err := render.Status(s, text); err != nil {
		return fmt.Errorf("%w: %w", ErrDisplayFailure, err)
	}
	return nil
}

// Step runs a single iteration. Only display failures are returned.
func (e *Engine) Step() error {
	e.stats.Iterations++

	e.state = StateCapturing
	raw, err := e.source.Read(e.timeout)
	if err != nil {
		return e.report(err)
	}

	if len(raw) == 0 {
		e.stats.Skipped++
		applog.Debug("Engine: empty capture buffer")
		return nil
	}

	e.state = StateDemuxing
	e.resize(len(raw) / pcm.FrameSize)
	if err := pcm.DemuxInto(e.left, e.right, raw); err != nil {
		e.stats.Skipped++
		applog.Debugf("Engine: skipping buffer: %v", err)
		e.state = StateCapturing
		return nil
	}

	e.state = StateAnalyzing
	pcm.NormalizeInto(e.samples, e.left)
	result := e.analyzer.Analyze(e.samples)

	e.state = StateRendering
	e.layout.HeightsInto(e.heights, result.Spectrum)
	if err := render.Frame(e.surface, e.layout, result.DominantFrequency, e.heights); err != nil {
		return fmt.Errorf("%w: %w", ErrDisplayFailure, err)
	}
	e.stats.Rendered++

	e.state = StateCapturing
	return nil
}

// report shows a capture failure and returns to capturing.
func (e *Engine) report(captureErr error) error {
	e.state = StateReporting
	e.stats.Reported++

	if errors.Is(captureErr, io.EOF) {
		e.exhausted = true
		applog.Infof("Engine: %v", captureErr)
	} else {
		applog.Warnf("Engine: capture failed: %v", captureErr)
	}

	if err := Announce(e.surface, MsgAudioError); err != nil {
		return err
	}
	e.state = StateCapturing
	return nil
}

// Run iterates until ctx is done, a display failure occurs, the source is
// exhausted or maxIterations have run. maxIterations == 0 means no bound.
func (e *Engine) Run(ctx context.Context, maxIterations uint64) error {
	applog.Infof("Engine: running at %.0f Hz (timeout %v, %d bands, %d guard bins)",
		e.analyzer.SampleRate(), e.timeout, e.layout.Bands, e.analyzer.GuardBins())

	for n := uint64(0); maxIterations == 0 || n < maxIterations; n++ {
		select {
		case <-ctx.Done():
			applog.Infof("Engine: stopping after %d iterations", e.stats.Iterations)
			return ctx.Err()
		default:
		}

		if err := e.Step(); err != nil {
			applog.Errorf("Engine: %v", err)
			return err
		}

		if e.exhausted {
			applog.Infof("Engine: source exhausted after %d iterations", e.stats.Iterations)
			return nil
		}
	}

	return nil
}

// resize makes the channel and sample buffers hold frames entries.
func (e *Engine) resize(frames int) {
	if cap(e.left) < frames {
		e.left = make([]int32, frames)
		e.right = make([]int32, frames)
		e.samples = make([]float32, frames)
	}
	e.left = e.left[:frames]
	e.right = e.right[:frames]
	e.samples = e.samples[:frames]
}

// State returns the state the last Step finished in.
func (e *Engine) State() State { return e.state }

// Iterations returns the number of completed Steps.
func (e *Engine) Iterations() uint64 { return e.stats.Iterations }

// Stats returns the loop counters.
func (e *Engine) Stats() Stats { return e.stats }
