// SPDX-License-Identifier: MIT
package cmd

import (
	"micscope/internal/config"
	"micscope/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandNone    = ""        // Help or version was printed.
	CommandRun     = "run"     // Run the display loop.
	CommandList    = "list"    // Print the capture devices.
	CommandDevices = "devices" // Open the device browser.
)

// Options is the outcome of argument parsing: the resolved configuration
// plus the command to execute.
type Options struct {
	Config     *config.Config
	Command    string
	Iterations uint64 // 0 runs until interrupted.
}

// flagValues holds the raw flag values. A flag only overrides the loaded
// configuration when it was set explicitly.
type flagValues struct {
	configPath string
	source     string
	device     int
	sampleRate int
	lowLatency bool
	wavFile    string
	noLoop     bool
	tone       float64
	backend    string
	window     string
	pad        bool
	output     string
	ascii      bool
	logLevel   string
	verbose    bool
}

// ParseArgs parses args (without the program name) and returns the options
// to run with.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{Command: CommandNone}
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			options.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	}
	rootCmd.AddCommand(listCmd)

	// Devices command
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse audio devices and pick a capture configuration",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandDevices
		},
	}
	rootCmd.AddCommand(devicesCmd)

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML configuration file (default ./config.yaml if present)")

	// Capture Configuration
	pf.StringVarP(&flags.source, "source", "S", config.DefaultSource,
		"Capture source: portaudio, wav or tone")
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&flags.wavFile, "wav", "w", "",
		"Replay a WAV file instead of a live device (implies --source wav)")
	pf.BoolVar(&flags.noLoop, "no-loop", false,
		"Stop at the end of the WAV file instead of rewinding")
	pf.Float64VarP(&flags.tone, "tone", "t", config.DefaultToneFrequency,
		"Capture a synthetic sine of this frequency in Hz (implies --source tone)")

	// Analysis Configuration
	pf.StringVar(&flags.backend, "backend", config.DefaultBackend,
		"FFT backend: gonum or bluestein")
	pf.StringVar(&flags.window, "window", config.DefaultFFTWindow,
		"Analysis window: none, hann, hamming, blackman, ...")
	pf.BoolVar(&flags.pad, "pad", false,
		"Zero-pad each capture window to the next power of two")

	// Display Configuration
	pf.StringVarP(&flags.output, "display", "o", config.DefaultOutput,
		"Display output: terminal or none")
	pf.BoolVar(&flags.ascii, "ascii", false,
		"Draw the terminal display with ASCII instead of braille")
	rootCmd.Flags().Uint64VarP(&options.Iterations, "iterations", "n", 0,
		"Stop after this many loop iterations (0 runs until interrupted)")

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI. A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// resolveConfig loads the configuration file and applies every flag that
// was set on the command line on top of it.
func resolveConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed

	if set("source") {
		cfg.Audio.Source = flags.source
	}
	if set("device") {
		cfg.Audio.InputDevice = flags.device
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = flags.sampleRate
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = flags.lowLatency
	}
	if set("wav") {
		cfg.Audio.WavFile = flags.wavFile
		if !set("source") {
			cfg.Audio.Source = config.SourceWav
		}
	}
	if set("no-loop") {
		cfg.Audio.WavLoop = !flags.noLoop
	}
	if set("tone") {
		cfg.Audio.ToneFrequency = flags.tone
		if !set("source") {
			cfg.Audio.Source = config.SourceTone
		}
	}
	if set("backend") {
		cfg.Analysis.Backend = flags.backend
	}
	if set("window") {
		cfg.Analysis.Window = flags.window
	}
	if set("pad") {
		cfg.Analysis.PadToPowerOfTwo = flags.pad
	}
	if set("display") {
		cfg.Display.Output = flags.output
	}
	if set("ascii") {
		cfg.Display.Unicode = !flags.ascii
	}
	if set("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if flags.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
