// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"micscope/cmd"
	"micscope/internal/analysis"
	"micscope/internal/audio"
	"micscope/internal/capture"
	"micscope/internal/config"
	"micscope/internal/display"
	applog "micscope/internal/log"
	"micscope/internal/tui"
	"micscope/pkg/build"
)

// main is the entry point for the spectrum display.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Bring up the display and the capture source
//
// 2. Loop Phase (Hot Path):
//   - Capture, analyse and render until interrupted
//
// 3. Shutdown Phase (Cold Path):
//   - Close the capture source and PortAudio
//   - Blank the display
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags; keep the placeholders.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	// One thread for the capture loop, one for terminal I/O and signals.
	runtime.GOMAXPROCS(2)

	options, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if options.Command == cmd.CommandNone {
		return
	}

	applog.SetLevel(options.Config.EffectiveLogLevel())
	defer applog.Sync()

	// Handle one-off commands (e.g., device listing) that don't require
	// the display loop to be running
	if options.Command != cmd.CommandRun {
		if err := executeCommand(options.Command); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(options.Config, options.Iterations); err != nil {
		applog.Errorf("%v", err)
		applog.Sync()
		os.Exit(1)
	}
}

// run drives the display loop until it is interrupted, the iteration bound
// is reached or the source runs dry.
func run(cfg *config.Config, iterations uint64) error {
	surface := openSurface(cfg.Display)
	defer func() {
		if err := surface.Close(); err != nil {
			applog.Warnf("Display: close failed: %v", err)
		}
	}()

	for _, msg := range []string{audio.MsgHello, audio.MsgConfiguring} {
		if err := audio.Announce(surface, msg); err != nil {
			return err
		}
	}

	source, sampleRate, release, err := openSource(cfg.Audio)
	if err != nil {
		if reportErr := audio.Announce(surface, audio.MsgAudioError); reportErr != nil {
			applog.Warnf("Display: %v", reportErr)
		}
		return err
	}
	defer release()

	analyzer, err := newAnalyzer(cfg.Analysis, sampleRate)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(source, surface, analyzer,
		audio.WithCaptureTimeout(cfg.Audio.CaptureTimeout))
	if err != nil {
		return err
	}

	if err := audio.Announce(surface, audio.MsgCaptureEnabled); err != nil {
		return err
	}

	// ==================== LOOP PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = engine.Run(ctx, iterations)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	stats := engine.Stats()
	applog.Infof("Engine: stopped after %d iterations (%d rendered, %d reported, %d skipped)",
		stats.Iterations, stats.Rendered, stats.Reported, stats.Skipped)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openSurface creates the framebuffer and, for the terminal output, wires
// its flushes to stdout.
func openSurface(cfg config.DisplayConfig) *display.Framebuffer {
	if cfg.Output == config.OutputNone {
		return display.NewFramebuffer(nil)
	}
	quietLogs(cfg)
	term := display.NewTerminal(os.Stdout, cfg.Unicode)
	return display.NewFramebuffer(term.Render)
}

// quietLogs keeps info and debug lines off the terminal the display redraws.
// Logs share the TTY with the braille frame, so only warnings get through.
func quietLogs(cfg config.DisplayConfig) {
	if cfg.Output != config.OutputTerminal {
		return
	}
	if prev := applog.RaiseLevel(applog.LevelWarn); prev < applog.LevelWarn {
		applog.Warnf("Display: terminal output active, %s logs suppressed (use --display none to see them)", prev)
	}
}

// openSource opens the configured capture source. It returns the rate the
// source delivers and a release function that closes everything opened.
func openSource(cfg config.AudioConfig) (capture.Source, int, func(), error) {
	switch cfg.Source {
	case config.SourceWav:
		src, err := capture.OpenWav(capture.WavConfig{
			Path:       cfg.WavFile,
			Window:     cfg.Window,
			Loop:       cfg.WavLoop,
			Realtime:   cfg.Realtime,
			SampleRate: cfg.SampleRate,
		})
		if err != nil {
			return nil, 0, nil, err
		}
		applog.Infof("Capture: replaying %s at %d Hz", cfg.WavFile, src.SampleRate())
		return src, src.SampleRate(), closer(src), nil

	case config.SourceTone:
		src, err := capture.NewTone(capture.ToneConfig{
			SampleRate: cfg.SampleRate,
			Window:     cfg.Window,
			Frequency:  cfg.ToneFrequency,
			Amplitude:  cfg.ToneAmplitude,
			Realtime:   cfg.Realtime,
		})
		if err != nil {
			return nil, 0, nil, err
		}
		applog.Infof("Capture: %.1f Hz tone at %d Hz", cfg.ToneFrequency, cfg.SampleRate)
		return src, cfg.SampleRate, closer(src), nil

	default:
		session, err := capture.Initialize()
		if err != nil {
			return nil, 0, nil, err
		}
		src, err := session.OpenPortAudio(capture.PortAudioConfig{
			DeviceID:   cfg.InputDevice,
			SampleRate: cfg.SampleRate,
			Window:     cfg.Window,
			LowLatency: cfg.LowLatency,
		})
		if err != nil {
			session.Terminate()
			return nil, 0, nil, err
		}
		release := func() {
			closer(src)()
			if err := session.Terminate(); err != nil {
				applog.Warnf("Capture: %v", err)
			}
		}
		return src, cfg.SampleRate, release, nil
	}
}

func closer(src capture.Source) func() {
	return func() {
		if err := src.Close(); err != nil {
			applog.Warnf("Capture: close failed: %v", err)
		}
	}
}

func newAnalyzer(cfg config.AnalysisConfig, sampleRate int) (*analysis.SpectralAnalyzer, error) {
	// Both names were checked by config.Validate.
	backend, _ := analysis.ParseBackend(cfg.Backend)
	window, _ := analysis.ParseWindowFunc(cfg.Window)

	return analysis.NewSpectralAnalyzer(float64(sampleRate),
		analysis.WithBackend(backend),
		analysis.WithWindow(window),
		analysis.WithPowerOfTwoPadding(cfg.PadToPowerOfTwo),
	)
}

// executeCommand handles one-off commands that don't require the display
// loop to be running, such as listing available audio devices.
func executeCommand(command string) error {
	session, err := capture.Initialize()
	if err != nil {
		return err
	}
	defer session.Terminate()

	switch command {
	case cmd.CommandList:
		return session.ListDevices(os.Stdout)

	case cmd.CommandDevices:
		selection, err := tui.StartDeviceListUI(session.HostDevices)
		if err != nil {
			return fmt.Errorf("device browser failed: %w", err)
		}
		if selection == nil {
			return nil
		}
		fmt.Printf("Selected %s\n\n  %s --device %d --sample-rate %d\n",
			selection.DeviceName, build.GetBuildFlags().Name, selection.DeviceID, selection.SampleRate)
		return nil
	}

	return fmt.Errorf("unknown command %q", command)
}
