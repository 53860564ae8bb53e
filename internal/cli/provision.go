package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/export"
	"github.com/roach88/keywarden/internal/keys"
)

// ProvisionOptions holds flags for the provision command.
type ProvisionOptions struct {
	*RootOptions
	Roster   string
	Database string
	Limit    float64
	DryRun   bool
}

// NewProvisionCommand creates the provision command.
func NewProvisionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProvisionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create keys for roster students who have none",
		Long: `Create an API key for every roster student without one.

Keys are created one at a time in email order, each recorded in the
changelog before the next create starts. A failure halts the batch; keys
already created are kept and their secrets written out, and re-running
the command picks up where it stopped.

Each student's limit comes from the roster budget column unless --limit
overrides it. Students whose email still carries the placeholder domain
are skipped.

Example:
  keywarden provision --dry-run
  keywarden provision --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Roster, "roster", "", "path to the roster CSV (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the audit database (default from config)")
	cmd.Flags().Float64Var(&opts.Limit, "limit", 0, "dollar limit for every new key, overriding roster budgets")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be created without creating anything")

	return cmd
}

func runProvision(opts *ProvisionOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	var override *keys.Limit
	if cmd.Flags().Changed("limit") {
		l := keys.LimitOf(opts.Limit)
		override = &l
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
	if len(p.Roster) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("roster %s is empty or missing", rosterPath))
	}
	fmt.Fprintf(out, "Found %d students in roster\n", len(p.Roster))

	plan, err := engine.PlanProvision(p.Matched, p.Roster, opts.Cfg.Files.PlaceholderDomain, override, opts.now())
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot plan provisioning", err)
	}

	if len(plan.Placeholder) > 0 {
		fmt.Fprintf(out, "\nWarning: %d entries with placeholder emails - skipping:\n", len(plan.Placeholder))
		for _, email := range plan.Placeholder {
			fmt.Fprintf(out, "  - %s\n", email)
		}
	}

	limitsPath := opts.Cfg.Files.Limits
	if len(plan.Create) == 0 {
		fmt.Fprintln(out, "\nAll students in roster already have keys")
		return writeLimitsAndSnapshot(opts.RootOptions, p.Matched, limitsPath, out)
	}

	fmt.Fprintf(out, "\nReady to provision %d new keys:\n", len(plan.Create))
	for _, c := range plan.Create {
		line := fmt.Sprintf("  %s (%s) -> %s (limit: %s", c.Email, c.Student.DisplayName(), c.Name, dollars(c.Limit))
		if c.Cadence != "" {
			line += fmt.Sprintf(", resets %s", c.Cadence)
		}
		fmt.Fprintln(out, line+")")
	}

	if opts.DryRun {
		fmt.Fprintln(out, "\n--dry-run specified, no keys created")
		return nil
	}

	applier := engine.NewApplier(p.Client, st,
		engine.WithPacer(engine.NewIntervalPacer(opts.Cfg.Pacing.Interval)),
		engine.WithClock(opts.clock()),
	)

	fmt.Fprintln(out, "\nCreating keys...")
	created, err := applier.Provision(ctx, plan.Create)
	if err != nil {
		fmt.Fprintln(out, "\nProvisioning halted. Keys created so far have been preserved.")
		if len(created) > 0 {
			fmt.Fprintf(out, "Successfully created %d keys before failure\n", len(created))
			saveDistribution(opts, plan.Create[:len(created)], created, out)
		}
		return WrapExitError(ExitFailure, "provisioning failed", err)
	}

	fmt.Fprintf(out, "\nSuccessfully created %d keys!\n", len(created))
	saveDistribution(opts, plan.Create, created, out)

	_, total, err := refreshAfterApply(ctx, opts.RootOptions, st, p, limitsPath, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total active keys: %d\n", total)
	return nil
}

// saveDistribution writes the key distribution file for the candidates
// whose keys were actually created. Secrets exist only in memory until
// this write lands, so a failure here is reported loudly but never
// masks the provisioning outcome.
func saveDistribution(opts *ProvisionOptions, candidates []engine.Candidate, created []keys.ProvisionedKey, out io.Writer) {
	issued := make([]export.Issued, len(created))
	for i, pk := range created {
		issued[i] = export.Issued{Candidate: candidates[i], Key: pk}
	}

	name, err := export.Distribution(issued, opts.Cfg.Files.ExportPrefix, opts.now())
	if err != nil {
		slog.Error("failed to save api keys file", "error", err)
		fmt.Fprintln(out, "WARNING: could not write the api keys file. The new secrets cannot be recovered; disable these keys and provision again.")
		return
	}
	fmt.Fprintf(out, "API keys saved to: %s\n", name)
	fmt.Fprintln(out, "This file contains secrets - handle with care!")
}
