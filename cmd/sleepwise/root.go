package main

import (
	"fmt"

	"sleepwise/internal/config"

	"github.com/spf13/cobra"
)

// version 由 -ldflags "-X main.version=..." 注入
var version = "dev"

var (
	configPath string
	envFile    string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sleepwise",
	Short: "Sleep-quality insights backend",
	Long: `sleepwise serves the profile and sleep-insight API used by the mobile app.

COMMANDS:

  serve     Run the HTTP API
  migrate   Create or roll back the users / insights tables
  check     Probe the store, prediction service, Supabase and Redis
  replay    Persist scored submissions left in the journal
  mcp       Run the MCP server for one user over stdio

CONFIGURATION:

  Settings come from defaults, then the YAML file given by --config, then
  environment variables. A .env file is loaded first when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file (ignored when missing)")
}
