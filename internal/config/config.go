// Package config loads cadre's configuration: viper-backed defaults, an
// optional YAML config file, and CADRE_* environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cadre configuration.
type Config struct {
	Completion CompletionConfig `mapstructure:"completion"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Synthesis  SynthesisConfig  `mapstructure:"synthesis"`
	Insight    InsightConfig    `mapstructure:"insight"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Paths      PathsConfig      `mapstructure:"paths"`
}

// CompletionConfig controls the completion-service backend.
type CompletionConfig struct {
	// Command is the CLI binary to shell out to (default: "claude")
	Command string `mapstructure:"command"`
	// Model is the model identifier passed to the backend, empty for the
	// backend's default
	Model string `mapstructure:"model"`
	// MaxTokens caps the response length per call, 0 = backend default
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature per call
	Temperature float64 `mapstructure:"temperature"`
	// SkipPermissions passes the backend's permission-bypass flag
	SkipPermissions bool `mapstructure:"skip_permissions"`
}

// AgentConfig controls per-agent lifecycle behavior.
type AgentConfig struct {
	// PlanConfirmCeilingMinutes bounds the wait for plan confirmation
	// before auto-proceeding (default: 20)
	PlanConfirmCeilingMinutes int `mapstructure:"plan_confirm_ceiling_minutes"`
	// ApprovalCeilingSeconds bounds the wait for approval answers before
	// proceeding with empty answers (default: 60)
	ApprovalCeilingSeconds int `mapstructure:"approval_ceiling_seconds"`
}

// SynthesisConfig controls the cross-agent synthesis orchestrator.
type SynthesisConfig struct {
	// DebounceSeconds is the quiet period between the arming deliverable
	// and the synthesis pass (default: 2)
	DebounceSeconds int `mapstructure:"debounce_seconds"`
}

// InsightConfig controls the shared insight ledger.
type InsightConfig struct {
	// SimilarityThreshold is the Jaccard index at or above which a
	// candidate finding is dropped as a near-duplicate (default: 0.7)
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// LoggingConfig controls engagement logging behavior.
type LoggingConfig struct {
	// Enabled controls whether file logging is on (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where cadre stores data.
type PathsConfig struct {
	// LogDir is the directory for engagement logs. Empty defaults to
	// ".cadre/logs" relative to the working directory. Supports ~ for
	// home directory expansion.
	LogDir string `mapstructure:"log_dir"`
}

// ResolveLogDir returns the resolved log directory path. A leading ~ is
// expanded to the home directory; relative paths are resolved against
// baseDir.
func (p *PathsConfig) ResolveLogDir(baseDir string) string {
	if p.LogDir == "" {
		return filepath.Join(baseDir, ".cadre", "logs")
	}

	path := p.LogDir
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// PlanConfirmCeiling returns the plan confirmation ceiling as a Duration.
func (a *AgentConfig) PlanConfirmCeiling() time.Duration {
	return time.Duration(a.PlanConfirmCeilingMinutes) * time.Minute
}

// ApprovalCeiling returns the approval ceiling as a Duration.
func (a *AgentConfig) ApprovalCeiling() time.Duration {
	return time.Duration(a.ApprovalCeilingSeconds) * time.Second
}

// Debounce returns the synthesis debounce as a Duration.
func (s *SynthesisConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceSeconds) * time.Second
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			Command:         "claude",
			Model:           "",
			MaxTokens:       0,
			Temperature:     0,
			SkipPermissions: false,
		},
		Agent: AgentConfig{
			PlanConfirmCeilingMinutes: 20,
			ApprovalCeilingSeconds:    60,
		},
		Synthesis: SynthesisConfig{
			DebounceSeconds: 2,
		},
		Insight: InsightConfig{
			SimilarityThreshold: 0.7,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			LogDir: "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("completion.command", defaults.Completion.Command)
	viper.SetDefault("completion.model", defaults.Completion.Model)
	viper.SetDefault("completion.max_tokens", defaults.Completion.MaxTokens)
	viper.SetDefault("completion.temperature", defaults.Completion.Temperature)
	viper.SetDefault("completion.skip_permissions", defaults.Completion.SkipPermissions)

	viper.SetDefault("agent.plan_confirm_ceiling_minutes", defaults.Agent.PlanConfirmCeilingMinutes)
	viper.SetDefault("agent.approval_ceiling_seconds", defaults.Agent.ApprovalCeilingSeconds)

	viper.SetDefault("synthesis.debounce_seconds", defaults.Synthesis.DebounceSeconds)

	viper.SetDefault("insight.similarity_threshold", defaults.Insight.SimilarityThreshold)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("paths.log_dir", defaults.Paths.LogDir)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cadre")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadre"
	}
	return filepath.Join(home, ".config", "cadre")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
