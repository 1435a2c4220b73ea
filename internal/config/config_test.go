package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxIterations != 3 {
		t.Errorf("expected default maxIterations=3, got %d", cfg.Execution.MaxIterations)
	}
	if cfg.Execution.MaxConcurrency != 3 {
		t.Errorf("expected default maxConcurrency=3, got %d", cfg.Execution.MaxConcurrency)
	}
	if cfg.Learning.Mode != LearningDisabled {
		t.Errorf("expected default learning mode disabled, got %s", cfg.Learning.Mode)
	}
	if !cfg.TUI.CacheEnabled {
		t.Errorf("expected cache enabled by default")
	}
}

func TestLoadReadsOrchestrarcFile(t *testing.T) {
	dir := t.TempDir()
	body := `{"execution": {"parallel": true, "maxConcurrency": 5}, "git": {"autoCommit": true}}`
	if err := os.WriteFile(filepath.Join(dir, ".orchestrarc.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Execution.Parallel {
		t.Errorf("expected parallel=true from file")
	}
	if cfg.Execution.MaxConcurrency != 5 {
		t.Errorf("expected maxConcurrency=5 from file, got %d", cfg.Execution.MaxConcurrency)
	}
	if !cfg.Git.AutoCommit {
		t.Errorf("expected autoCommit=true from file")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	body := `{"execution": {"maxConcurrency": 5}}`
	if err := os.WriteFile(filepath.Join(dir, ".orchestrarc.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("ORCHESTRA_EXECUTION_MAXCONCURRENCY", "7")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxConcurrency != 7 {
		t.Errorf("expected env override to win, got %d", cfg.Execution.MaxConcurrency)
	}
}

func TestLoadCallSiteOverrideWinsOverEverything(t *testing.T) {
	dir := t.TempDir()
	body := `{"execution": {"maxIterations": 2}}`
	if err := os.WriteFile(filepath.Join(dir, ".orchestrarc.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("ORCHESTRA_EXECUTION_MAXITERATIONS", "5")

	cfg, err := Load(dir, WithMaxIterations(4))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxIterations != 4 {
		t.Errorf("expected call-site override 4, got %d", cfg.Execution.MaxIterations)
	}
}

func TestLoadClampsMaxIterationsToHardCap(t *testing.T) {
	cfg, err := Load(t.TempDir(), WithMaxIterations(99))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxIterations != 10 {
		t.Errorf("expected clamp to hard cap 10, got %d", cfg.Execution.MaxIterations)
	}
}

func TestValidateRejectsUnknownLearningMode(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Learning.Mode = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown learning mode")
	}
}

func TestToPhaseConfigConcurrencyRespectsParallelFlag(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Execution.Parallel = false
	if got := cfg.ToPhaseConfig().Concurrency; got != 1 {
		t.Errorf("expected concurrency 1 when parallel disabled, got %d", got)
	}
	cfg.Execution.Parallel = true
	cfg.Execution.MaxConcurrency = 6
	if got := cfg.ToPhaseConfig().Concurrency; got != 6 {
		t.Errorf("expected concurrency 6 when parallel enabled, got %d", got)
	}
}
