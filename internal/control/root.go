// Package control wires the CLI: flag parsing, config resolution, and
// the pipeline run itself.
package control

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rivol/llm-transcribe/internal/config"
	"github.com/rivol/llm-transcribe/internal/logging"

	"github.com/sirupsen/logrus"
)

// NewRootCmd builds the root command. The root itself is the transcribe
// operation; doctor and show-config hang off it as subcommands.
func NewRootCmd(version string) *cobra.Command {
	var opts runOptions

	root := &cobra.Command{
		Use:   "llm-transcribe <audio-file>",
		Short: "Transcribe long recordings through an LLM backend",
		Long: `llm-transcribe splits a long WAV recording into overlapping windows,
sends each window to an LLM transcription backend together with the tail
of the previous window's transcript, and merges the per-window results
into one speaker-labeled transcript with absolute timestamps.

Credentials come from the environment (or a .env file in the working
directory): LLMT_API_KEY, and optionally LLMT_BASE_URL for a different
OpenAI-compatible endpoint.`,
		Example: `  llm-transcribe meeting.wav
  llm-transcribe meeting.wav -o notes/meeting.txt --export txt,vtt,json
  llm-transcribe interview.wav --context "Podcast with Jane Doe about urban farming"
  llm-transcribe call.wav --chunk-duration 8 --overlap 1 --strict
  llm-transcribe --test
  llm-transcribe doctor`,
		Args:                  cobra.MaximumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.testOnly {
				return runTest(cmd, &opts)
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one audio file argument")
			}
			opts.inputPath = args[0]
			return runTranscribe(cmd, &opts)
		},
	}

	root.Version = version
	root.SetVersionTemplate("llm-transcribe v{{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/llm-transcribe/config.toml")
	opts.cfgPath = cfgPath

	root.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output transcript path (default: input with .txt extension)")
	root.Flags().StringVarP(&opts.model, "model", "m", "", "Backend model identifier")
	root.Flags().StringVar(&opts.hint, "context", "", "Free-text background about the recording, folded into the prompt")
	root.Flags().IntVar(&opts.chunkMinutes, "chunk-duration", 0, "Window length in minutes")
	root.Flags().IntVar(&opts.overlapMinutes, "overlap", -1, "Window overlap in minutes")
	root.Flags().StringSliceVar(&opts.exports, "export", []string{"txt"}, "Export formats: txt, vtt, json, report")
	root.Flags().BoolVar(&opts.strict, "strict", false, "Fail a window on any malformed backend output line")
	root.Flags().BoolVar(&opts.testOnly, "test", false, "Check backend connectivity and exit")
	root.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite existing output files without asking")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(newDoctorCmd(cfgPath))
	root.AddCommand(newShowConfigCmd(cfgPath))

	return root
}

// loadConfig resolves config from file, env, and flags, in that order of
// increasing precedence, and builds the logger.
func loadConfig(opts *runOptions) (*config.Config, *logrus.Logger, error) {
	// Credentials and env overrides may live in a local .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*opts.cfgPath)
	if err != nil {
		return nil, nil, err
	}

	if opts.model != "" {
		cfg.Transcribe.Model = opts.model
	}
	if opts.chunkMinutes > 0 {
		cfg.Transcribe.ChunkMinutes = opts.chunkMinutes
	}
	if opts.overlapMinutes >= 0 {
		cfg.Transcribe.OverlapMinutes = opts.overlapMinutes
	}
	if opts.strict {
		cfg.Transcribe.Strict = true
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Stdout = true
	}

	if err := cfg.IsValid(); err != nil {
		return nil, nil, err
	}
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, nil, err
	}

	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
