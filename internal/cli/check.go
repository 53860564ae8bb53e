package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/export"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Roster   string
	Database string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile remote keys against the roster",
		Long: `Fetch every key from OpenRouter, match keys to roster students by the
student ID embedded in the key name, and report the result.

Matched keys are synced into the audit database and written to a
timestamped snapshot file. Orphaned keys (no roster match) are reported
but never touched. Nothing on OpenRouter is modified.

Example:
  keywarden check
  keywarden check --roster ./roster.csv --db ./keys.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Roster, "roster", "", "path to the roster CSV (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit database (default from config)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

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

	if len(p.Roster) > 0 {
		fmt.Fprintf(out, "Found %d students in roster\n", len(p.Roster))
	} else {
		fmt.Fprintf(out, "No roster file found at %s or file is empty\n", rosterPath)
	}

	reportOrphans(out, p.Orphans)

	if err := syncMatched(ctx, st, p.Matched, opts.RootOptions); err != nil {
		return err
	}

	name, err := export.Snapshot(p.Matched, opts.Cfg.Files.SnapshotPrefix, opts.now())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write snapshot", err)
	}
	fmt.Fprintf(out, "\nExported snapshot to %s\n", name)

	fmt.Fprintf(out, "\nSummary:\n")
	fmt.Fprintf(out, "  Total keys in OpenRouter: %d\n", len(p.Remote))
	fmt.Fprintf(out, "  Matched to roster: %d\n", len(p.Matched))
	fmt.Fprintf(out, "  Orphaned (not in roster): %d\n", len(p.Orphans))

	if len(p.Matched) > 0 {
		fmt.Fprintln(out)
		printKeyTable(out, p.Matched, opts.Cfg.Files.PlaceholderDomain)
	}
	return nil
}
