// Package config implements the Config Resolver (spec.md §4.11): merged
// defaults -> .orchestrarc.json -> environment -> call-site overrides.
// Adapted from andymwolf-agentium/internal/config/config.go's
// viper.Unmarshal-backed Load/applyDefaults/Validate shape, generalized
// from Agentium's project/GitHub/cloud-VM settings to the
// execution/test/git/tui/learning key table spec.md §4.11 names, and from
// package-global viper (fine for a one-shot CLI process) to an
// instance-owned viper.New() so Load is safely callable more than once in
// the same process.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/andywolf/orchestra/internal/orchestrator"
	"github.com/andywolf/orchestra/internal/validate"
)

// ExecutionConfig is the `execution.*` key group.
type ExecutionConfig struct {
	Parallel       bool `mapstructure:"parallel"`
	MaxConcurrency int  `mapstructure:"maxConcurrency"`
	MaxIterations  int  `mapstructure:"maxIterations"`
	TimeoutMs      int  `mapstructure:"timeout"`
	Pipeline       bool `mapstructure:"pipeline"`

	// SkipAudit backs `start --no-audit` (spec.md §6). It is a one-shot
	// call-site flag, not a persisted config.*/env key, so it is excluded
	// from file/env binding.
	SkipAudit bool `mapstructure:"-"`
}

// TestConfig is the `test.*` key group.
type TestConfig struct {
	Command            []string `mapstructure:"command"`
	RunAfterGeneration bool     `mapstructure:"runAfterGeneration"`
}

// GitConfig is the `git.*` key group.
type GitConfig struct {
	AutoCommit            bool   `mapstructure:"autoCommit"`
	CommitMessageTemplate string `mapstructure:"commitMessageTemplate"`
}

// TUIConfig is the `tui.*` key group (spec.md keeps the teacher's "tui"
// naming for these keys even though no interactive terminal UI survived
// into this module — see DESIGN.md).
type TUIConfig struct {
	MaxRecoveryAttempts    int  `mapstructure:"maxRecoveryAttempts"`
	RecoveryTimeoutMinutes int  `mapstructure:"recoveryTimeoutMinutes"`
	AutoRevertOnFailure    bool `mapstructure:"autoRevertOnFailure"`
	CacheEnabled           bool `mapstructure:"cacheEnabled"`
}

// LearningMode is the `learning.mode` enum.
type LearningMode string

const (
	LearningDisabled   LearningMode = "disabled"
	LearningShadow     LearningMode = "shadow"
	LearningABTest     LearningMode = "ab_test"
	LearningProduction LearningMode = "production"
)

// LearningConfig is the `learning.*` key group.
type LearningConfig struct {
	Mode LearningMode `mapstructure:"mode"`
}

// Config is the fully resolved configuration surface (spec.md §4.11).
type Config struct {
	Execution ExecutionConfig `mapstructure:"execution"`
	Test      TestConfig      `mapstructure:"test"`
	Git       GitConfig       `mapstructure:"git"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Learning  LearningConfig  `mapstructure:"learning"`
}

// Option applies a call-site override, the highest-precedence layer in
// spec.md §4.11's merge order.
type Option func(*Config)

// WithMaxIterations overrides execution.maxIterations (`start
// --max-iterations N`).
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.Execution.MaxIterations = n }
}

// WithParallel overrides execution.parallel (`start --parallel`).
func WithParallel(parallel bool) Option {
	return func(c *Config) { c.Execution.Parallel = parallel }
}

// WithPipeline overrides execution.pipeline (the `pipeline` command).
func WithPipeline(pipeline bool) Option {
	return func(c *Config) { c.Execution.Pipeline = pipeline }
}

// WithSkipAudit backs `start --no-audit` (spec.md §6).
func WithSkipAudit(skip bool) Option {
	return func(c *Config) { c.Execution.SkipAudit = skip }
}

func defaults() Config {
	return Config{
		Execution: ExecutionConfig{
			Parallel:       false,
			MaxConcurrency: 3,
			MaxIterations:  3,
			TimeoutMs:      int((10 * time.Minute).Milliseconds()),
			Pipeline:       false,
		},
		TUI: TUIConfig{
			MaxRecoveryAttempts:    3,
			RecoveryTimeoutMinutes: 10,
			AutoRevertOnFailure:    false,
			CacheEnabled:           true,
		},
		Learning: LearningConfig{Mode: LearningDisabled},
	}
}

// Load resolves Config for workDir: hard-coded defaults ->
// workDir/.orchestrarc.json -> ORCHESTRA_-prefixed environment variables ->
// opts, in that order (spec.md §4.11's merge order).
func Load(workDir string, opts ...Option) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigName(".orchestrarc")
	v.AddConfigPath(workDir)
	v.SetEnvPrefix("ORCHESTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := defaults()
	for key, val := range flatten(cfg) {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	// LEARNING_MODE is named explicitly in spec.md §6's environment
	// variable list, unprefixed, distinct from the ORCHESTRA_LEARNING_MODE
	// AutomaticEnv would otherwise look for.
	if override := os.Getenv("LEARNING_MODE"); override != "" {
		v.Set("learning.mode", override)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	clamp(&cfg)
	return &cfg, nil
}

// clamp enforces the hard caps spec.md names regardless of source layer.
func clamp(cfg *Config) {
	if cfg.Execution.MaxIterations > 10 {
		cfg.Execution.MaxIterations = 10
	}
	if cfg.Execution.MaxIterations < 1 {
		cfg.Execution.MaxIterations = 1
	}
	if cfg.Execution.MaxConcurrency < 1 {
		cfg.Execution.MaxConcurrency = 1
	}
}

// Validate checks the resolved Config for internally inconsistent values.
func (c *Config) Validate() error {
	switch c.Learning.Mode {
	case LearningDisabled, LearningShadow, LearningABTest, LearningProduction:
	default:
		return fmt.Errorf("invalid learning.mode: %s (must be disabled, shadow, ab_test, or production)", c.Learning.Mode)
	}
	if c.Execution.MaxConcurrency < 1 {
		return fmt.Errorf("execution.maxConcurrency must be >= 1")
	}
	if c.Execution.MaxIterations < 1 || c.Execution.MaxIterations > 10 {
		return fmt.Errorf("execution.maxIterations must be between 1 and 10")
	}
	return nil
}

// flatten turns a Config's defaults into viper dotted-key defaults, so a
// zero-value struct field from an absent file/env layer still resolves to
// the hard-coded default rather than Go's zero value.
func flatten(cfg Config) map[string]any {
	return map[string]any{
		"execution.parallel":         cfg.Execution.Parallel,
		"execution.maxConcurrency":   cfg.Execution.MaxConcurrency,
		"execution.maxIterations":    cfg.Execution.MaxIterations,
		"execution.timeout":          cfg.Execution.TimeoutMs,
		"execution.pipeline":         cfg.Execution.Pipeline,
		"test.runAfterGeneration":    cfg.Test.RunAfterGeneration,
		"git.autoCommit":             cfg.Git.AutoCommit,
		"git.commitMessageTemplate":  cfg.Git.CommitMessageTemplate,
		"tui.maxRecoveryAttempts":    cfg.TUI.MaxRecoveryAttempts,
		"tui.recoveryTimeoutMinutes": cfg.TUI.RecoveryTimeoutMinutes,
		"tui.autoRevertOnFailure":    cfg.TUI.AutoRevertOnFailure,
		"tui.cacheEnabled":           cfg.TUI.CacheEnabled,
		"learning.mode":              string(cfg.Learning.Mode),
	}
}

// DefaultConfigPath returns the path Load reads from for workDir.
func DefaultConfigPath(workDir string) string {
	return filepath.Join(workDir, ".orchestrarc.json")
}

// ToPhaseConfig adapts the resolved Config into the Phase Orchestrator's
// own Config type, keeping the two packages from needing to agree on a
// shared schema beyond this one conversion point.
func (c Config) ToPhaseConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxIterations:       c.Execution.MaxIterations,
		MaxRecoveryAttempts: c.TUI.MaxRecoveryAttempts,
		AutoRevertOnFailure: c.TUI.AutoRevertOnFailure,
		Pipeline:            c.Execution.Pipeline,
		Concurrency:         concurrencyFor(c),
		AdapterDeadline:     time.Duration(c.Execution.TimeoutMs) * time.Millisecond,
		ConsultDeadline:     5 * time.Minute,
		SoftWallClock:       30 * time.Minute,
		TestGate:            c.Test.buildGate(),
		SkipAudit:           c.Execution.SkipAudit,
	}
}

// buildGate returns the orchestrator.Config.TestGate closure for
// test.runAfterGeneration, or nil if that key is unset (no gating).
func (t TestConfig) buildGate() func(ctx context.Context, workDir string) (bool, error) {
	if !t.RunAfterGeneration {
		return nil
	}
	command := t.Command
	return func(ctx context.Context, workDir string) (bool, error) {
		cmd := command
		if len(cmd) == 0 {
			fw := validate.DetectTestFramework(workDir)
			if fw == nil {
				return true, nil // no detected/configured framework: nothing to gate on
			}
			cmd = fw.Command
		}
		result, err := validate.RunTests(ctx, workDir, cmd, 10*time.Minute)
		if err != nil {
			return false, fmt.Errorf("run tests: %w", err)
		}
		return result.Success, nil
	}
}

func concurrencyFor(c Config) int {
	if !c.Execution.Parallel {
		return 1
	}
	return c.Execution.MaxConcurrency
}
