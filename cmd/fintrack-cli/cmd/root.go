// Package cmd provides the fintrack-cli commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// app holds what every subcommand shares. The backend is opened lazily by
// the root command and closed by Execute whatever the outcome.
type app struct {
	owner string
	debug bool

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	logger  *log.Logger
	backend *backend.BackendResult
	svc     *cli.Services
}

// Execute runs the command line against os.Args.
func Execute() error {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack-cli",
		Short: "Manage a fintrack ledger from the terminal",
		Long: `fintrack-cli works directly on the configured fintrack store.

It supports:
- Listing and creating accounts
- Importing bank CSV exports, with an optional dry run
- Income, expense and category summaries
- Budget reports and debt balances
- JSON backups and CSV exports

Example:
  fintrack-cli --owner alice import statement.csv
  fintrack-cli --owner alice summary --from 2024-01-01 --to 2024-01-31`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	root.PersistentFlags().StringVar(&a.owner, "owner", os.Getenv("FINTRACK_OWNER"), "ledger owner (default $FINTRACK_OWNER)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.accountsCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.summaryCmd(),
		a.budgetsCmd(),
		a.debtsCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = log.NewText(a.stderr, level, log.ComponentApp)

	if err := a.session().Validate(); err != nil {
		return fmt.Errorf("--owner is required: %w", err)
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	a.backend, err = backend.NewFactory(a.logger).CreateBackend(cmd.Context(), backendCfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}

	a.svc, err = cli.NewServices(cfg, a.backend, a.logger)
	return err
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	return a.backend.Cleanup()
}

func (a *app) session() core.Session {
	return core.Session{Owner: a.owner}
}
