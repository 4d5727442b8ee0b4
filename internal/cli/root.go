// Package cli implements the cosched command-line tool: run a program
// file to completion, serve a live scheduler over HTTP for inspection,
// or replay a previously recorded trace session.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/cosched/internal/config"
	"github.com/me/cosched/internal/logging"
)

var (
	cfg config.Config

	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the cosched CLI. Flag
// defaults come from config.Default(), the same
// defaults-struct-plus-flag-override pattern the host tooling uses
// throughout; subcommands read cfg's other fields (Addr, TraceDB) as
// their own flag defaults.
func NewRootCmd() *cobra.Command {
	cfg = config.Default()

	root := &cobra.Command{
		Use:   "cosched",
		Short: "cosched — a cooperative task scheduler toolkit",
		Long:  "cosched runs, serves, and traces single-threaded cooperative task scheduler programs.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newTraceCmd(),
	)

	return root
}
