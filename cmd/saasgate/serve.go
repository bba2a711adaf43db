package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/saasgate/bootstrap"
	"github.com/artpar/saasgate/config"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the saasgate HTTP server.

The server will:
  - Load configuration from saasgate.yaml (or --config)
  - Or load configuration from SAASGATE_* environment variables
  - Open the settings database and apply migrations
  - Serve the settings API, auth callbacks and pages
  - Reload fragments, callback routes and the log level on change or SIGHUP

Environment variables (for container deployments):
  SAASGATE_DATABASE_DSN     - Database path (default: saasgate.db)
  SAASGATE_SERVER_PORT      - Server port (default: 8080)
  SAASGATE_SETTINGS_KEY     - Key sealing sensitive settings
  SAASGATE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  saasgate serve
  saasgate serve --config /etc/saasgate/config.yaml
  saasgate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var (
		cfg    *config.Config
		holder *config.Holder
		err    error
	)
	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		holder, err = config.NewHolder(cfgFile, zerolog.New(os.Stderr).With().Timestamp().Logger())
		if err != nil {
			return err
		}
		cfg = holder.Get()
	} else {
		cfg, err = config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if !hasConfigFile {
			fmt.Fprintln(cmd.ErrOrStderr(), "Running with environment variables (no config file)")
		}
	}

	app, err := bootstrap.New(cfg, bootstrap.Options{Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	defer app.Close()

	if holder != nil {
		if err := app.Watch(holder); err != nil {
			app.Logger.Warn().Err(err).Msg("config watching disabled")
		}
	}

	// Run blocks until SIGINT/SIGTERM
	return app.Run(cmd.Context())
}
