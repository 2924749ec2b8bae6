package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"finance/internal/cli"
	"finance/internal/config"
	"finance/internal/log"
)

// app is filled by the root command before any subcommand runs.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var dbPath, logLevel string

	root := &cobra.Command{
		Use:   "financectl",
		Short: "Administer the finance ledger",
		Long: `financectl runs ledger maintenance from the command line: schema
migrations, batch imports of bank exports, period summaries and API tokens.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()
			if dbPath != "" {
				cfg.SQLiteDBPath = dbPath
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			lc := log.DefaultConfig()
			lc.Level = log.ParseLevel(cfg.LogLevel)
			lc.Format = cfg.LogFormat
			lc.Component = log.ComponentCLI
			lc.Output = cmd.ErrOrStderr()
			a.cfg = cfg
			a.logger = log.New(lc)
			log.SetDefault(a.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd(a))
	root.AddCommand(importCmd(a))
	root.AddCommand(summaryCmd(a))
	root.AddCommand(tokenCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
