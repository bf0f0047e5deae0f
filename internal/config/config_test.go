package config

import (
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}

	t.Setenv("LLMT_MODEL", "gemini-2.5-pro")
	t.Setenv("LLMT_CHUNK_MINUTES", "8")
	t.Setenv("LLMT_OVERLAP_MINUTES", "2")
	t.Setenv("LLMT_STRICT", "1")
	t.Setenv("LLMT_LOG_LEVEL", "debug")
	t.Setenv("LLMT_LOG_FORMAT", "json")

	applyEnvOverrides(cfg)

	if cfg.Transcribe.Model != "gemini-2.5-pro" {
		t.Fatalf("model override failed: %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.ChunkMinutes != 8 || cfg.Transcribe.OverlapMinutes != 2 {
		t.Fatalf("chunk overrides failed: %+v", cfg.Transcribe)
	}
	if !cfg.Transcribe.Strict {
		t.Fatalf("strict should be enabled via env")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Transcribe.Model = "test-model"
	cfg.Transcribe.ChunkMinutes = 7

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Transcribe.Model != "test-model" || loaded.Transcribe.ChunkMinutes != 7 {
		t.Fatalf("expected transcribe settings to persist, got %+v", loaded.Transcribe)
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path not recorded: %q", loaded.Paths.ConfigPath)
	}
}

func TestLoadWritesTemplate(t *testing.T) {
	path := t.TempDir() + "/nested/config.toml"

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transcribe.ChunkMinutes != defaultChunkMinutes {
		t.Fatalf("expected defaults, got %+v", cfg.Transcribe)
	}

	// The template must now exist and load cleanly.
	if _, err := Load(path); err != nil {
		t.Fatalf("reload template: %v", err)
	}
}

func TestIsValid(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if err := cfg.IsValid(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	bad := *cfg
	bad.Transcribe.OverlapMinutes = bad.Transcribe.ChunkMinutes
	if err := bad.IsValid(); err == nil {
		t.Fatalf("overlap >= chunk should be invalid")
	}

	bad = *cfg
	bad.Transcribe.ChunkMinutes = 0
	if err := bad.IsValid(); err == nil {
		t.Fatalf("zero chunk duration should be invalid")
	}

	bad = *cfg
	bad.Transcribe.ChunkMinutes = 12
	if err := bad.IsValid(); err == nil {
		t.Fatalf("chunk beyond the model limit should be invalid")
	}

	bad = *cfg
	bad.Backend.MaxAttempts = 0
	if err := bad.IsValid(); err == nil {
		t.Fatalf("zero attempts should be invalid")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.ChunkDuration() != 10*time.Minute {
		t.Fatalf("chunk duration: %v", cfg.ChunkDuration())
	}
	if cfg.OverlapDuration() != time.Minute {
		t.Fatalf("overlap duration: %v", cfg.OverlapDuration())
	}
	if cfg.InitialBackoff() != 2*time.Second {
		t.Fatalf("initial backoff: %v", cfg.InitialBackoff())
	}
}
