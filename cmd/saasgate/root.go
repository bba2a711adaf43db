package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/saasgate/bootstrap"
	"github.com/artpar/saasgate/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "saasgate",
	Short: "Settings, auth callbacks and extension points for SaaS front ends",
	Long: `saasgate serves per-user and per-organization settings whose schema is
assembled from feature modules, routes auth provider callbacks and renders
pages through client-side extension points.

Quick start:
  saasgate validate          # Check the configuration
  saasgate serve             # Start the server

Settings:
  saasgate settings schema   # Show every declared setting
  saasgate settings get theme --user u1`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "saasgate.yaml", "config file path")
}

// openApp loads the configuration and builds the application without
// serving. Logs go to stderr so command output stays clean.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Level = "warn"
	return bootstrap.New(cfg, bootstrap.Options{Version: version, Output: cmd.ErrOrStderr()})
}
