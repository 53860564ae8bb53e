package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/clock"
	"github.com/roach88/keywarden/internal/config"
	"github.com/roach88/keywarden/internal/engine"
)

// RootOptions holds global flags and shared state for all commands.
type RootOptions struct {
	Verbose bool

	// Cfg is populated by the root PersistentPreRunE before any
	// subcommand runs.
	Cfg *config.Config

	// Clock supplies timestamps for sync, snapshots, and changelog
	// entries. Nil means the system clock.
	Clock clock.Clock

	// Tokens generates the per-run correlation token. Nil means UUIDv7.
	Tokens engine.TokenGenerator
}

func (o *RootOptions) now() time.Time {
	if o.Clock != nil {
		return o.Clock.Now()
	}
	return time.Now()
}

func (o *RootOptions) clock() clock.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return clock.SystemClock{}
}

// NewRootCommand creates the root command for the keywarden CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "keywarden",
		Short: "keywarden - classroom API key reconciliation",
		Long: `Reconcile remote OpenRouter API keys against a local student roster.

The remote key listing is the source of truth for which keys exist.
keywarden matches keys to students by the student id embedded in each
key's name, diffs actual entitlements against declared targets, applies
the difference one call at a time, and keeps an append-only audit trail.

Quick start:
  1. keywarden init-db     initialize the audit database
  2. keywarden check       view current state
  3. keywarden provision   create keys from the roster
  4. keywarden update      apply limit changes

Remote-touching commands require OPENROUTER_PROVISIONING_KEY in the
environment.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Cfg = cfg

			level := cfg.Log.SlogLevel()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})
			slog.SetDefault(slog.New(handler))

			tokens := opts.Tokens
			if tokens == nil {
				tokens = engine.UUIDv7Generator{}
			}
			slog.Info("run started", "run", tokens.Generate(), "command", cmd.Name())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewInitDBCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewProvisionCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRefreshLimitsCommand(opts))
	cmd.AddCommand(NewExportKeysCommand(opts))

	return cmd
}
