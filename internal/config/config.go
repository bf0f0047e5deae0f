package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rivol/llm-transcribe/internal/chunk"
)

const (
	defaultChunkMinutes   = 10
	defaultOverlapMinutes = 1
	defaultMaxAttempts    = 3
	defaultTimeoutSec     = 120
	defaultStateDirLinux  = ".local/state/llm-transcribe"
	defaultConfigDir      = ".config/llm-transcribe"
)

// Config holds user configuration loaded from TOML. Backend credentials
// (API key, endpoint) are deliberately not part of the file; they come
// from the environment.
type Config struct {
	Transcribe struct {
		Model          string `toml:"model"`
		ChunkMinutes   int    `toml:"chunk_minutes"`
		OverlapMinutes int    `toml:"overlap_minutes"`
		Strict         bool   `toml:"strict"`
	} `toml:"transcribe"`

	Backend struct {
		TimeoutSec        int     `toml:"timeout_sec"`
		MaxAttempts       int     `toml:"max_attempts"`
		InitialBackoffSec float64 `toml:"initial_backoff_sec"`
		MaxBackoffSec     float64 `toml:"max_backoff_sec"`
	} `toml:"backend"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "llm-transcribe")
	}

	cfg := &Config{}

	cfg.Transcribe.Model = "gemini-2.5-flash"
	cfg.Transcribe.ChunkMinutes = defaultChunkMinutes
	cfg.Transcribe.OverlapMinutes = defaultOverlapMinutes

	cfg.Backend.TimeoutSec = defaultTimeoutSec
	cfg.Backend.MaxAttempts = defaultMaxAttempts
	cfg.Backend.InitialBackoffSec = 2
	cfg.Backend.MaxBackoffSec = 30

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = false

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "llm-transcribe.log")

	return cfg, nil
}

// Load loads config from file, applying defaults. A missing file is
// created from the defaults so the user has a template to edit.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// IsValid reports whether the configuration can drive a run.
func (cfg *Config) IsValid() error {
	if cfg.Transcribe.ChunkMinutes <= 0 {
		return fmt.Errorf("transcribe.chunk_minutes must be positive")
	}
	if cfg.Transcribe.OverlapMinutes < 0 {
		return fmt.Errorf("transcribe.overlap_minutes must be non-negative")
	}
	if cfg.Transcribe.OverlapMinutes >= cfg.Transcribe.ChunkMinutes {
		return fmt.Errorf("transcribe.overlap_minutes must be shorter than transcribe.chunk_minutes")
	}
	if cfg.ChunkDuration() > chunk.MaxWindowLength {
		return fmt.Errorf("transcribe.chunk_minutes exceeds the model limit of %v", chunk.MaxWindowLength)
	}
	if cfg.Backend.MaxAttempts < 1 {
		return fmt.Errorf("backend.max_attempts must be at least 1")
	}
	if cfg.Backend.TimeoutSec <= 0 {
		return fmt.Errorf("backend.timeout_sec must be positive")
	}
	return nil
}

// ChunkDuration returns the configured window length.
func (cfg *Config) ChunkDuration() time.Duration {
	return time.Duration(cfg.Transcribe.ChunkMinutes) * time.Minute
}

// OverlapDuration returns the configured window overlap.
func (cfg *Config) OverlapDuration() time.Duration {
	return time.Duration(cfg.Transcribe.OverlapMinutes) * time.Minute
}

// RequestTimeout returns the per-call backend timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.Backend.TimeoutSec) * time.Second
}

// InitialBackoff returns the first retry delay.
func (cfg *Config) InitialBackoff() time.Duration {
	return time.Duration(cfg.Backend.InitialBackoffSec * float64(time.Second))
}

// MaxBackoff returns the retry delay cap.
func (cfg *Config) MaxBackoff() time.Duration {
	return time.Duration(cfg.Backend.MaxBackoffSec * float64(time.Second))
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLMT_MODEL"); v != "" {
		cfg.Transcribe.Model = v
	}
	if v := os.Getenv("LLMT_CHUNK_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transcribe.ChunkMinutes = n
		}
	}
	if v := os.Getenv("LLMT_OVERLAP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transcribe.OverlapMinutes = n
		}
	}
	if v := os.Getenv("LLMT_STRICT"); v != "" {
		cfg.Transcribe.Strict = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("LLMT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LLMT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LLMT_LOG_STDOUT"); v != "" {
		cfg.Logging.Stdout = v != "0" && strings.ToLower(v) != "false"
	}
}
