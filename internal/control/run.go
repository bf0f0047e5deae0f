package control

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rivol/llm-transcribe/internal/audio"
	"github.com/rivol/llm-transcribe/internal/engine"
	"github.com/rivol/llm-transcribe/internal/llm"
	"github.com/rivol/llm-transcribe/internal/output"
)

type runOptions struct {
	cfgPath *string

	inputPath      string
	outputPath     string
	model          string
	hint           string
	chunkMinutes   int
	overlapMinutes int
	exports        []string
	strict         bool
	testOnly       bool
	yes            bool
	verbose        bool
}

// runTest checks backend connectivity and exits.
func runTest(cmd *cobra.Command, opts *runOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	creds, err := llm.CredentialsFromEnv()
	if err != nil {
		return err
	}
	if creds.APIKey == "" {
		return fmt.Errorf("LLMT_API_KEY is not set")
	}

	client := llm.NewClient(creds, cfg.Transcribe.Model, cfg.RequestTimeout(), logger)
	if err := client.TestConnection(cmd.Context()); err != nil {
		return fmt.Errorf("backend check failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backend ok: %s (%s)\n", creds.BaseURL, client.Model())
	return nil
}

// runTranscribe is the main pipeline: load audio, run the engine, export.
func runTranscribe(cmd *cobra.Command, opts *runOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	creds, err := llm.CredentialsFromEnv()
	if err != nil {
		return err
	}
	if creds.APIKey == "" {
		return fmt.Errorf("LLMT_API_KEY is not set (see llm-transcribe doctor)")
	}

	outPath := opts.outputPath
	if outPath == "" {
		outPath = strings.TrimSuffix(opts.inputPath, filepath.Ext(opts.inputPath)) + ".txt"
	}
	if !opts.yes {
		ok, err := confirmOverwrite(cmd, outPath)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("aborted: %s exists", outPath)
		}
	}

	src, err := audio.Load(opts.inputPath)
	if err != nil {
		return err
	}
	logger.WithFields(map[string]any{
		"file":        src.Path(),
		"duration":    src.Duration().Round(0).String(),
		"sample_rate": src.SampleRate(),
		"channels":    src.Channels(),
	}).Info("loaded audio")

	client := llm.NewClient(creds, cfg.Transcribe.Model, cfg.RequestTimeout(), logger)
	eng := engine.New(client, engine.Options{
		WindowLength:   cfg.ChunkDuration(),
		Overlap:        cfg.OverlapDuration(),
		ContextWindow:  cfg.OverlapDuration(),
		Hint:           opts.hint,
		Strict:         cfg.Transcribe.Strict,
		MaxAttempts:    cfg.Backend.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
		RequestTimeout: cfg.RequestTimeout(),
	}, logger)

	result, runErr := eng.Run(cmd.Context(), src)
	if runErr != nil && (result == nil || len(result.Results) == 0) {
		return runErr
	}

	sum := output.Summary{
		JobID:          result.Stats.JobID,
		InputFile:      opts.inputPath,
		OutputFile:     outPath,
		Model:          client.Model(),
		AudioDuration:  result.Stats.AudioDuration,
		Windows:        result.Stats.Windows,
		Attempts:       result.Stats.Attempts,
		ProcessingTime: result.Stats.Elapsed,
	}

	if runErr != nil {
		// Keep what we have: the completed windows still merge into a
		// usable partial transcript.
		partial := outPath + ".partial"
		if werr := output.Export([]string{output.FormatText}, partial, sum, result.Lines); werr != nil {
			logger.WithError(werr).Error("failed to write partial transcript")
		} else {
			logger.WithField("file", partial).Warn("wrote partial transcript")
		}
		return runErr
	}

	if err := output.Export(opts.exports, outPath, sum, result.Lines); err != nil {
		return err
	}

	logger.WithFields(map[string]any{
		"job_id":  sum.JobID,
		"windows": sum.Windows,
		"lines":   len(result.Lines),
		"elapsed": sum.ProcessingTime.Round(0).String(),
	}).Info("transcription complete")

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d lines, %d windows)\n", outPath, len(result.Lines), sum.Windows)
	return nil
}

// confirmOverwrite asks before clobbering an existing output file.
// Returns true when the file does not exist or the user agrees.
func confirmOverwrite(cmd *cobra.Command, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s exists, overwrite? [y/N] ", path)
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
