package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/limits"
)

// RefreshLimitsOptions holds flags for the refresh-limits command.
type RefreshLimitsOptions struct {
	*RootOptions
	Limits string
	Roster string
}

// NewRefreshLimitsCommand creates the refresh-limits command.
func NewRefreshLimitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RefreshLimitsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "refresh-limits",
		Short: "Rewrite the limits file from live remote state",
		Long: `Rebuild the limits file from the current OpenRouter state.

Actual columns always reflect what OpenRouter reports right now. Target
columns an operator has set are preserved; students without targets
adopt the actuals as their starting targets. Students no longer matched
to the roster drop out of the file.

Nothing on OpenRouter is modified; run update to push targets.

Example:
  keywarden refresh-limits
  keywarden refresh-limits --limits ./limits.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefreshLimits(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Limits, "limits", "", "path to the limits CSV (default from config)")
	cmd.Flags().StringVar(&opts.Roster, "roster", "", "path to the roster CSV (default from config)")

	return cmd
}

func runRefreshLimits(opts *RefreshLimitsOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	rosterPath := fallback(opts.Roster, opts.Cfg.Files.Roster)
	p, err := fetchAndMatch(ctx, opts.RootOptions, rosterPath, out)
	if err != nil {
		return err
	}
	if len(p.Roster) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("roster %s is empty or missing", rosterPath))
	}

	limitsPath := fallback(opts.Limits, opts.Cfg.Files.Limits)
	existing, err := limits.Load(limitsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read limits file", err)
	}

	refreshed := limits.Refresh(p.Matched, existing)
	if err := limits.Save(refreshed, limitsPath); err != nil {
		return WrapExitError(ExitFailure, "failed to write limits file", err)
	}

	fmt.Fprintf(out, "\nRefreshed %s:\n", limitsPath)
	fmt.Fprintf(out, "  Total keys in OpenRouter: %d\n", len(p.Remote))
	fmt.Fprintf(out, "  Matched to roster: %d\n", len(refreshed))

	var mismatches []string
	for _, e := range refreshed {
		if e.TargetLimit != nil && !e.TargetLimit.Equal(e.ActualLimit) {
			mismatches = append(mismatches,
				fmt.Sprintf("  %s: limit target=%s actual=%s", e.Email, dollars(*e.TargetLimit), dollars(e.ActualLimit)))
		}
		if e.TargetDisabled != nil && *e.TargetDisabled != e.ActualDisabled {
			mismatches = append(mismatches,
				fmt.Sprintf("  %s: disabled target=%t actual=%t", e.Email, *e.TargetDisabled, e.ActualDisabled))
		}
	}

	if len(mismatches) > 0 {
		fmt.Fprintf(out, "\nMismatches between target and actual:\n")
		for _, m := range mismatches {
			fmt.Fprintln(out, m)
		}
		fmt.Fprintln(out, "\nRun 'update' to apply target values to OpenRouter")
	} else {
		fmt.Fprintln(out, "\nAll targets match actuals")
	}
	return nil
}
