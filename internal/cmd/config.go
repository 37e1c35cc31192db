package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cadrehq/cadre/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify cadre configuration",
	Long: `View or modify cadre configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  cadre config set completion.command claude
  cadre config set insight.similarity_threshold 0.8
  cadre config set agent.approval_ceiling_seconds 120

Valid keys:
  completion.command                  - Completion backend binary
  completion.model                    - Model identifier
  completion.max_tokens               - Response token cap per call
  completion.temperature              - Sampling temperature
  agent.plan_confirm_ceiling_minutes  - Plan confirmation timeout
  agent.approval_ceiling_seconds      - Approval timeout
  synthesis.debounce_seconds          - Synthesis debounce
  insight.similarity_threshold        - Duplicate-insight threshold
  logging.level                       - Log level (debug/info/warn/error)
  paths.log_dir                       - Engagement log directory`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/cadre/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	cmd.Println("Current configuration:")
	cmd.Println()

	if viper.ConfigFileUsed() != "" {
		cmd.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		cmd.Printf("Config file: (none - using defaults)\n")
	}
	cmd.Println()

	cmd.Println("completion:")
	cmd.Printf("  command: %s\n", cfg.Completion.Command)
	cmd.Printf("  model: %s\n", cfg.Completion.Model)
	cmd.Printf("  max_tokens: %d\n", cfg.Completion.MaxTokens)
	cmd.Printf("  temperature: %g\n", cfg.Completion.Temperature)
	cmd.Printf("  skip_permissions: %v\n", cfg.Completion.SkipPermissions)

	cmd.Println("agent:")
	cmd.Printf("  plan_confirm_ceiling_minutes: %d\n", cfg.Agent.PlanConfirmCeilingMinutes)
	cmd.Printf("  approval_ceiling_seconds: %d\n", cfg.Agent.ApprovalCeilingSeconds)

	cmd.Println("synthesis:")
	cmd.Printf("  debounce_seconds: %d\n", cfg.Synthesis.DebounceSeconds)

	cmd.Println("insight:")
	cmd.Printf("  similarity_threshold: %g\n", cfg.Insight.SimilarityThreshold)

	cmd.Println("logging:")
	cmd.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	cmd.Printf("  level: %s\n", cfg.Logging.Level)

	cmd.Println("paths:")
	cmd.Printf("  log_dir: %s\n", cfg.Paths.LogDir)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	if !isValidConfigKey(key) {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	viper.Set(key, coerceValue(value))

	// Validate the resulting config before writing anything.
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	path := config.ConfigFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Set %s = %s in %s\n", key, value, path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	config.SetDefaults()
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Created %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cmd.Println(config.ConfigFile())
	return nil
}

// validConfigKeys are the keys settable via `cadre config set`.
var validConfigKeys = []string{
	"completion.command",
	"completion.model",
	"completion.max_tokens",
	"completion.temperature",
	"completion.skip_permissions",
	"agent.plan_confirm_ceiling_minutes",
	"agent.approval_ceiling_seconds",
	"synthesis.debounce_seconds",
	"insight.similarity_threshold",
	"logging.enabled",
	"logging.level",
	"paths.log_dir",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// coerceValue converts string flag input into the type viper expects for
// numeric and boolean keys.
func coerceValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil && (value == "true" || value == "false") {
		return b
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return strings.TrimSpace(value)
}
