// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"micscope/internal/analysis"
	"micscope/internal/capture"
	"micscope/internal/display"
	applog "micscope/internal/log"
	"micscope/internal/pcm"
	"micscope/pkg/utils"
)

const testSampleRate = 48000

type read struct {
	buf []byte
	err error
}

// scriptedSource replays a fixed sequence of reads, then repeats the last.
type scriptedSource struct {
	reads       []read
	n           int
	lastTimeout time.Duration
}

func (s *scriptedSource) Read(timeout time.Duration) ([]byte, error) {
	s.lastTimeout = timeout
	r := s.reads[min(s.n, len(s.reads)-1)]
	s.n++
	return r.buf, r.err
}

func (s *scriptedSource) Close() error { return nil }

// stereoBuffer interleaves a left channel with a silent right channel.
func stereoBuffer(t *testing.T, left []int32) []byte {
	t.Helper()
	raw, err := pcm.Interleave(left, make([]int32, len(left)))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func newTestEngine(t *testing.T, src capture.Source, surface display.Surface, opts ...Option) *Engine {
	t.Helper()
	analyzer, err := analysis.NewSpectralAnalyzer(testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := NewEngine(src, surface, analyzer, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestEngineEndToEnd1kHz(t *testing.T) {
	// 200 frames = 1600 bytes, full-scale 1 kHz on the left channel.
	left := utils.GenerateSineWave(200, testSampleRate, 1000)
	raw := stereoBuffer(t, left)
	if len(raw) != 1600 {
		t.Fatalf("test buffer is %d bytes", len(raw))
	}

	rec := &display.Recorder{}
	engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, rec)

	if err := engine.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	texts := rec.Texts()
	if len(texts) != 1 {
		t.Fatalf("DrawText calls = %v, want one readout", texts)
	}
	var hz float64
	if _, err := fmt.Sscanf(texts[0], "Freq: %f Hz", &hz); err != nil {
		t.Fatalf("unexpected readout %q: %v", texts[0], err)
	}
	if tolerance := float64(testSampleRate) / 200; math.Abs(hz-1000) > tolerance {
		t.Errorf("dominant frequency = %.0f Hz, want 1000 +/- %.0f Hz", hz, tolerance)
	}
	if rec.Count(display.OpDrawLine) != 64 || rec.Count(display.OpFlush) != 1 {
		t.Errorf("lines/flushes = %d/%d, want 64/1", rec.Count(display.OpDrawLine), rec.Count(display.OpFlush))
	}
	if engine.State() != StateCapturing {
		t.Errorf("state after a frame = %v, want capturing", engine.State())
	}
	if s := engine.Stats(); s.Rendered != 1 || s.Iterations != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestEngineUsesLeftChannelOnly(t *testing.T) {
	// 2 kHz left, 6 kHz right: only the left tone may be reported.
	left := utils.GenerateSineWave(4800, testSampleRate, 2000)
	right := utils.GenerateSineWave(4800, testSampleRate, 6000)
	raw, err := pcm.Interleave(left, right)
	if err != nil {
		t.Fatal(err)
	}

	rec := &display.Recorder{}
	engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, rec)
	if err := engine.Step(); err != nil {
		t.Fatal(err)
	}
	if texts := rec.Texts(); len(texts) != 1 || texts[0] != "Freq: 2000 Hz" {
		t.Errorf("readout = %v, want Freq: 2000 Hz", texts)
	}
}

func TestEngineSkipsEmptyAndMalformedBuffers(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"one byte short", make([]byte, 1599)},
		{"partial frame", make([]byte, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &display.Recorder{}
			engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: tt.buf}}}, rec)

			if err := engine.Run(context.Background(), 3); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(rec.Calls) != 0 {
				t.Errorf("display touched %d times, want 0", len(rec.Calls))
			}
			if s := engine.Stats(); s.Skipped != 3 || s.Iterations != 3 || s.Reported != 0 {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}

func TestEngineReportsCaptureErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", fmt.Errorf("%w after 1s", capture.ErrTimeout)},
		{"device", fmt.Errorf("%w: unplugged", capture.ErrDevice)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &display.Recorder{}
			engine := newTestEngine(t, &scriptedSource{reads: []read{{err: tt.err}}}, rec)

			if err := engine.Step(); err != nil {
				t.Fatalf("capture errors must not stop the loop: %v", err)
			}
			if n := rec.Count(display.OpDrawText); n != 1 {
				t.Fatalf("DrawText called %d times, want 1", n)
			}
			if got := rec.Texts()[0]; got != MsgAudioError {
				t.Errorf("status = %q, want %q", got, MsgAudioError)
			}
			if engine.State() != StateCapturing {
				t.Errorf("state = %v, want capturing", engine.State())
			}
		})
	}
}

func TestEngineRecoversAfterCaptureError(t *testing.T) {
	raw := stereoBuffer(t, utils.GenerateSineWave(4800, testSampleRate, 440))
	src := &scriptedSource{reads: []read{
		{err: capture.ErrTimeout},
		{buf: raw},
	}}
	rec := &display.Recorder{}
	engine := newTestEngine(t, src, rec)

	if err := engine.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	texts := rec.Texts()
	if len(texts) != 2 || texts[0] != MsgAudioError || texts[1] != "Freq: 440 Hz" {
		t.Errorf("texts = %v", texts)
	}
	if s := engine.Stats(); s.Reported != 1 || s.Rendered != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestEngineDisplayFailureIsFatal(t *testing.T) {
	raw := stereoBuffer(t, utils.GenerateSineWave(4800, testSampleRate, 440))
	boom := errors.New("i2c nack")

	tests := []struct {
		name   string
		read   read
		failOn display.Op
	}{
		{"frame flush", read{buf: raw}, display.OpFlush},
		{"frame text", read{buf: raw}, display.OpDrawText},
		{"status screen", read{err: capture.ErrTimeout}, display.OpClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &display.Recorder{FailOn: map[display.Op]error{tt.failOn: boom}}
			engine := newTestEngine(t, &scriptedSource{reads: []read{tt.read}}, rec)

			err := engine.Run(context.Background(), 10)
			if !errors.Is(err, ErrDisplayFailure) || !errors.Is(err, boom) {
				t.Fatalf("Run() error = %v, want display failure wrapping %v", err, boom)
			}
			if engine.Iterations() != 1 {
				t.Errorf("ran %d iterations after a fatal error, want 1", engine.Iterations())
			}
		})
	}
}

func TestEngineRunBounds(t *testing.T) {
	raw := stereoBuffer(t, make([]int32, 100))

	t.Run("iteration bound", func(t *testing.T) {
		engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, &display.Recorder{})
		if err := engine.Run(context.Background(), 5); err != nil {
			t.Fatal(err)
		}
		if engine.Iterations() != 5 {
			t.Errorf("Iterations() = %d, want 5", engine.Iterations())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, &display.Recorder{})
		if err := engine.Run(ctx, 0); !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
		if engine.Iterations() != 0 {
			t.Errorf("Iterations() = %d, want 0", engine.Iterations())
		}
	})

	t.Run("unbounded until exhausted", func(t *testing.T) {
		src := &scriptedSource{reads: []read{
			{buf: raw}, {buf: raw}, {buf: raw},
			{err: fmt.Errorf("capture: end of input.wav: %w", io.EOF)},
		}}
		rec := &display.Recorder{}
		engine := newTestEngine(t, src, rec)
		if err := engine.Run(context.Background(), 0); err != nil {
			t.Fatal(err)
		}
		if engine.Iterations() != 4 {
			t.Errorf("Iterations() = %d, want 4", engine.Iterations())
		}
		if texts := rec.Texts(); texts[len(texts)-1] != MsgAudioError {
			t.Errorf("end of input not reported: %v", texts)
		}
	})
}

func TestEngineRunLogsAnalysisSettings(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(zapcore.AddSync(&buf))
	defer applog.SetOutput(zapcore.Lock(os.Stderr))

	raw := stereoBuffer(t, make([]int32, 100))
	engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, &display.Recorder{})
	if err := engine.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("running at %d Hz (timeout 1s, 64 bands, %d guard bins)", testSampleRate, analysis.DefaultGuardBins)
	if out := buf.String(); !strings.Contains(out, want) {
		t.Errorf("log output lacks %q:\n%s", want, out)
	}
}

func TestEngineCaptureTimeoutOption(t *testing.T) {
	src := &scriptedSource{reads: []read{{buf: nil}}}
	engine := newTestEngine(t, src, &display.Recorder{}, WithCaptureTimeout(250*time.Millisecond))
	_ = engine.Step()

	if src.lastTimeout != 250*time.Millisecond {
		t.Errorf("read timeout = %v, want 250ms", src.lastTimeout)
	}

	analyzer, _ := analysis.NewSpectralAnalyzer(testSampleRate)
	if _, err := NewEngine(src, &display.Recorder{}, analyzer, WithCaptureTimeout(0)); err == nil {
		t.Error("expected an error for a zero timeout")
	}
	if _, err := NewEngine(nil, &display.Recorder{}, analyzer); err == nil {
		t.Error("expected an error for a missing source")
	}
}

func TestAnnounce(t *testing.T) {
	rec := &display.Recorder{}
	for _, msg := range []string{MsgHello, MsgConfiguring, MsgCaptureEnabled} {
		if err := Announce(rec, msg); err != nil {
			t.Fatal(err)
		}
	}
	texts := rec.Texts()
	if len(texts) != 3 || texts[0] != "Hello" || texts[2] != "Capture enabled" {
		t.Errorf("texts = %v", texts)
	}

	boom := errors.New("bus error")
	rec = &display.Recorder{FailOn: map[display.Op]error{display.OpFlush: boom}}
	if err := Announce(rec, MsgHello); !errors.Is(err, ErrDisplayFailure) {
		t.Errorf("Announce() error = %v, want ErrDisplayFailure", err)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateCapturing: "capturing",
		StateDemuxing:  "demuxing",
		StateAnalyzing: "analyzing",
		StateRendering: "rendering",
		StateReporting: "reporting",
		State(42):      "state(42)",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestEngineStepNoAllocsHotPath(t *testing.T) {
	raw := stereoBuffer(t, utils.GenerateSineWave(4800, testSampleRate, 1000))
	engine := newTestEngine(t, &scriptedSource{reads: []read{{buf: raw}}}, discardSurface{})
	_ = engine.Step() // Warm up buffers and transform plans.

	allocs := testing.AllocsPerRun(20, func() {
		_ = engine.Step()
	})
	// Only the readout label is built per frame.
	if allocs > 3 {
		t.Errorf("Expected at most 3 allocations per Step, got %.1f", allocs)
	}
}

func BenchmarkEngineStep(b *testing.B) {
	left := utils.GenerateSineWave(4800, testSampleRate, 1000)
	raw, _ := pcm.Interleave(left, left)
	analyzer, _ := analysis.NewSpectralAnalyzer(testSampleRate)
	engine, _ := NewEngine(&scriptedSource{reads: []read{{buf: raw}}}, discardSurface{}, analyzer)

	for b.Loop() {
		_ = engine.Step()
	}
}

// discardSurface accepts and drops every draw call.
type discardSurface struct{}

func (discardSurface) Clear(display.Color) error { return nil }

func (discardSurface) DrawText(display.Point, string, display.TextStyle) error { return nil }

func (discardSurface) DrawLine(display.Point, display.Point, display.LineStyle) error { return nil }

func (discardSurface) Flush() error { return nil }
