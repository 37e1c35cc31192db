package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cadrehq/cadre/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cadre",
	Short: "Concurrent research-agent orchestrator",
	Long: `Cadre runs a team of independent research agents against a set of
objectives. Each agent plans, waits for approval, executes its plan step
by step, and reports insights into a shared deduplicated ledger; once two
or more agents finish, their deliverables are synthesized into one
executive summary with a contradiction scan.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/cadre/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/cadre")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CADRE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CADRE_INSIGHT_SIMILARITY_THRESHOLD for insight.similarity_threshold
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
