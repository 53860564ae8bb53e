package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
	"github.com/roach88/keywarden/internal/store"
)

// Candidate is one student who needs a key, with everything the create
// call will send.
type Candidate struct {
	Email   string
	Student roster.Student
	Name    string
	Limit   keys.Limit
	Cadence keys.Cadence
}

// ProvisionPlan is the outcome of deciding who gets a new key.
type ProvisionPlan struct {
	// Create lists candidates in email order.
	Create []Candidate

	// Placeholder lists roster emails skipped because they still carry
	// the placeholder domain, sorted.
	Placeholder []string
}

// PlanProvision decides which roster students need a key: everyone not in
// the matched set, except entries whose email still contains the
// placeholder domain (those are incomplete roster rows, skipped with a
// warning by the caller).
//
// Each candidate's limit comes from the override when non-nil, else the
// student's roster budget. A candidate with neither is an error before
// any key is created: provisioning never silently mints unlimited keys.
// Key names encode the given day.
func PlanProvision(matched []Match, ros roster.Roster, placeholderDomain string, override *keys.Limit, day time.Time) (ProvisionPlan, error) {
	provisioned := make(map[string]bool, len(matched))
	for _, m := range matched {
		provisioned[m.Email] = true
	}

	emails := make([]string, 0, len(ros))
	for email := range ros {
		emails = append(emails, email)
	}
	slices.Sort(emails)

	var plan ProvisionPlan
	for _, email := range emails {
		if provisioned[email] {
			continue
		}
		if placeholderDomain != "" && strings.Contains(email, placeholderDomain) {
			plan.Placeholder = append(plan.Placeholder, email)
			continue
		}

		st := ros[email]
		limit := st.Budget
		if override != nil {
			limit = *override
		}
		if !limit.IsSet() {
			return ProvisionPlan{}, fmt.Errorf("no budget for %s and no --limit override", email)
		}

		plan.Create = append(plan.Create, Candidate{
			Email:   email,
			Student: st,
			Name:    keys.FormatName(st.DisplayName(), st.MQID, day),
			Limit:   limit,
			Cadence: st.Cadence,
		})
	}

	return plan, nil
}

// Provision creates keys one at a time, in plan order, pacing between
// calls. Each created key is recorded in the changelog before the next
// create starts, so a halted batch keeps the full history of what it
// made.
//
// On the first failure Provision stops and returns a *ProvisionError
// alongside the keys created so far; those keys and their secrets are
// real and must still reach the operator.
func (a *Applier) Provision(ctx context.Context, candidates []Candidate) ([]keys.ProvisionedKey, error) {
	var created []keys.ProvisionedKey

	for i, c := range candidates {
		if i > 0 {
			if err := a.pacer.Pace(ctx); err != nil {
				return created, &ProvisionError{Candidate: c, Created: len(created), Err: err}
			}
		}

		pk, err := a.remote.Create(ctx, c.Name, c.Limit, c.Cadence)
		if err != nil {
			return created, &ProvisionError{Candidate: c, Created: len(created), Err: err}
		}
		created = append(created, pk)

		entry := store.ChangelogEntry{
			KeyHash:   pk.Key.Hash,
			Action:    store.ActionProvisioned,
			NewValue:  fmt.Sprintf("limit=%s,reset=%s", c.Limit, c.Cadence.OrNever()),
			ChangedAt: a.clock.Now(),
		}
		if err := a.store.AppendChangelog(ctx, entry); err != nil {
			return created, &ProvisionError{
				Candidate: c,
				Created:   len(created),
				Err:       fmt.Errorf("key created remotely but not recorded: %w", err),
			}
		}

		slog.Info("provisioned key",
			"key", c.Name,
			"email", c.Email,
			"limit", c.Limit.String(),
			"reset", c.Cadence.OrNever(),
		)
	}

	return created, nil
}
