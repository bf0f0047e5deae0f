// Package doctor runs environment diagnostics: config, credentials, and
// backend reachability.
package doctor

import (
	"context"
	"os"
	"time"

	"github.com/rivol/llm-transcribe/internal/config"
	"github.com/rivol/llm-transcribe/internal/llm"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks. The connectivity check sends a minimal
// request to the configured backend, so it needs network access.
func Run(ctx context.Context, cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkDir("state dir", cfg.Paths.StateDir),
		checkConfig(cfg),
	}

	creds, err := llm.CredentialsFromEnv()
	if err != nil || creds.APIKey == "" {
		results = append(results, Result{
			Name:   "credentials",
			Pass:   false,
			Detail: "LLMT_API_KEY not set",
		})
		return results
	}
	results = append(results, Result{Name: "credentials", Pass: true, Detail: "LLMT_API_KEY set"})
	results = append(results, checkBackend(ctx, cfg, creds))
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkDir(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	info, err := os.Stat(os.ExpandEnv(path))
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if !info.IsDir() {
		return Result{Name: label, Pass: false, Detail: "not a directory"}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkConfig(cfg *config.Config) Result {
	if err := cfg.IsValid(); err != nil {
		return Result{Name: "config", Pass: false, Detail: err.Error()}
	}
	return Result{Name: "config", Pass: true, Detail: "valid"}
}

func checkBackend(ctx context.Context, cfg *config.Config, creds llm.Credentials) Result {
	client := llm.NewClient(creds, cfg.Transcribe.Model, 30*time.Second, nil)
	if err := client.TestConnection(ctx); err != nil {
		return Result{Name: "backend", Pass: false, Detail: err.Error()}
	}
	return Result{Name: "backend", Pass: true, Detail: creds.BaseURL}
}
