package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/saasgate/adapters/sqlite"
	"github.com/artpar/saasgate/config"
	"github.com/artpar/saasgate/features/fragments"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the saasgate configuration file.

Checks:
  - YAML syntax is valid
  - Callback patterns, locale and logging options are valid
  - Settings fragment files parse and declare valid fields
  - Database is writable (optional)

Examples:
  saasgate validate
  saasgate validate --config /etc/saasgate/config.yaml --check-database`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)

	loaded, err := fragments.Load(cfg.Settings.FragmentFiles)
	if err != nil {
		fmt.Fprintf(out, "  %s Settings fragments valid\n", crossMark)
		return fmt.Errorf("fragment error: %w", err)
	}
	fmt.Fprintf(out, "  %s Settings fragments: %d\n", checkMark, len(loaded))

	fmt.Fprintf(out, "  %s Database: %s (%s)\n", checkMark, cfg.Database.DSN, cfg.Database.Driver)
	fmt.Fprintf(out, "  %s Callback routes: %d\n", checkMark, len(cfg.Auth.CallbackRoutes))
	fmt.Fprintf(out, "  %s Languages: %v (default %s)\n", checkMark, cfg.Locale.Languages, cfg.Locale.Default)
	fmt.Fprintf(out, "  %s Hot-reloadable: %s\n", checkMark, strings.Join(config.ReloadableFields(), ", "))
	if cfg.Settings.EncryptionKey == "" {
		fmt.Fprintf(out, "  %s Sensitive settings are stored unsealed\n", crossMark)
	}

	if validateCheckDatabase && cfg.Database.Driver == "sqlite" {
		if err := checkDatabaseWritable(cmd, cfg.Database.DSN); err != nil {
			fmt.Fprintf(out, "  %s Database writable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database writable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkDatabaseWritable(cmd *cobra.Command, dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate(cmd.Context())
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
