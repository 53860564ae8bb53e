package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/limits"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Limits   string
	Roster   string
	Database string
	DryRun   bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Push limits file targets to OpenRouter",
		Long: `Apply the target columns of the limits file to OpenRouter.

Only keys whose target differs from their actual state are touched.
Changes apply one at a time in email order, each recorded in the
changelog before the next starts. A failure halts the batch; changes
already applied stay applied, and re-running the command picks up where
it stopped.

Edit target_limit and target_disabled in the limits file first, then run
update. Run refresh-limits to create or refresh the file.

Example:
  keywarden update --dry-run
  keywarden update`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Limits, "limits", "", "path to the limits CSV (default from config)")
	cmd.Flags().StringVar(&opts.Roster, "roster", "", "path to the roster CSV (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit database (default from config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would change without changing anything")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	limitsPath := fallback(opts.Limits, opts.Cfg.Files.Limits)
	if _, err := os.Stat(limitsPath); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("limits file %s not found (run refresh-limits first)", limitsPath))
	}

	st, err := openStore(opts.Cfg, opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rosterPath := fallback(opts.Roster, opts.Cfg.Files.Roster)
	p, err := fetchAndMatch(ctx, opts.RootOptions, rosterPath, out)
	if err != nil {
		return err
	}

	entries, err := limits.Load(limitsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read limits file", err)
	}

	changes, skipped := engine.ComputeChanges(p.Matched, limits.Targets(entries))
	for _, email := range skipped {
		fmt.Fprintf(out, "Warning: %s in limits file but not found in OpenRouter - skipping\n", email)
	}

	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes needed - targets match actuals")
		return writeLimitsAndSnapshot(opts.RootOptions, p.Matched, limitsPath, out)
	}

	fmt.Fprintf(out, "\nPlanned changes (%d):\n", len(changes))
	for _, change := range changes {
		fmt.Fprintf(out, "  %s\n", change.Describe())
	}

	if opts.DryRun {
		fmt.Fprintln(out, "\n--dry-run specified, no changes applied")
		return nil
	}

	applier := engine.NewApplier(p.Client, st,
		engine.WithPacer(engine.NewIntervalPacer(opts.Cfg.Pacing.Interval)),
		engine.WithClock(opts.clock()),
	)

	fmt.Fprintln(out, "\nApplying changes...")
	applied, err := applier.Apply(ctx, changes)
	if err != nil {
		fmt.Fprintf(out, "\nUpdate halted after %d changes. Changes applied so far have been preserved.\n", applied)
		return WrapExitError(ExitFailure, "update failed", err)
	}

	if _, _, err := refreshAfterApply(ctx, opts.RootOptions, st, p, limitsPath, out); err != nil {
		return err
	}
	fmt.Fprintf(out, "Update complete! Applied %d changes\n", applied)
	return nil
}
