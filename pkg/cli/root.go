// Package cli implements the kodon command-line interface.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/config"
	"github.com/pletcher/kodon/pkg/db"
	"github.com/pletcher/kodon/pkg/logging"
)

var (
	// Persistent flags
	dbPathFlag    string
	configPath    string
	logLevelFlag  string
	logFormatFlag string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kodon",
	Short: "Kodon - canonically citable text storage",
	Long: `Kodon stores classical texts as canonically citable corpora.

Document files carry a citation hierarchy, markup elements, and word
tokens; every node is addressable by CTS URN. Ingested corpora live in
a single SQLite database that the read commands query.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config resolution for commands that don't need it
		switch cmd.Name() {
		case "version", "completion", "help":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags override file values
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPathFlag
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevelFlag
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormatFlag
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	defer func() {
		if logger != nil {
			logger.Sync()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: console or json")
}

// openStore opens the configured database, creating the schema when
// missing.
func openStore() (*sql.DB, error) {
	return db.Open(cfg.DBPath)
}
