package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/keywarden/internal/clock"
	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/limits"
	"github.com/roach88/keywarden/internal/roster"
	"github.com/roach88/keywarden/internal/store"
	"github.com/roach88/keywarden/internal/testutil"
)

// Harness drives one scenario through the real reconciliation paths.
type Harness struct {
	store    *store.Store
	remote   FakeRemote
	roster   roster.Roster
	targets  map[string]engine.Target
	override *keys.Limit
	domain   string
	clock    *clock.FakeClock
	day      time.Time
}

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh in-memory database and its own fake
// account. Ops share both, so later ops see what earlier ops did. An op
// that halts records the halt and lets the scenario continue; only
// infrastructure failures (store, scenario conversion) abort the run.
func Run(scenario *Scenario) (*Result, error) {
	day, err := scenario.day()
	if err != nil {
		return nil, err
	}

	st, _, err := store.Create(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	account := testutil.NewAccount(scenario.remoteKeys()...)
	account.FailCall(scenario.FailCall)

	h := &Harness{
		store:    st,
		remote:   FakeRemote{Account: account},
		roster:   scenario.roster(),
		targets:  scenario.targets(),
		override: scenario.overrideLimit(),
		domain:   scenario.placeholderDomain(),
		clock:    clock.NewFakeClock(day),
		day:      day,
	}

	ctx := context.Background()
	result := NewResult()

	for _, op := range scenario.Ops {
		result.Section(op)

		var err error
		switch op {
		case OpCheck:
			err = h.runCheck(ctx, result)
		case OpProvision:
			err = h.runProvision(ctx, result)
		case OpUpdate:
			err = h.runUpdate(ctx, result)
		case OpRefreshLimits:
			err = h.runRefreshLimits(ctx, result)
		}
		if err != nil {
			return nil, fmt.Errorf("op %s: %w", op, err)
		}
	}

	for _, violation := range CheckPrinciples(ctx, st, account) {
		result.AddError(violation)
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Account: account}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// applier builds the engine applier every mutating op shares: no pacing
// delay, frozen clock.
func (h *Harness) applier() *engine.Applier {
	return engine.NewApplier(h.remote, h.store,
		engine.WithPacer(engine.NopPacer{}),
		engine.WithClock(h.clock),
	)
}

// match lists the account and partitions it against the roster.
func (h *Harness) match(ctx context.Context) (remote []keys.RemoteKey, matched []engine.Match, orphans []engine.Orphan, err error) {
	remote, err = h.remote.List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	matched, orphans = engine.MatchKeys(remote, h.roster)
	return remote, matched, orphans, nil
}

// sync mirrors the matched set into the store and records the transcript
// line.
func (h *Harness) sync(ctx context.Context, matched []engine.Match, result *Result) error {
	pairs := make([]store.StudentKey, 0, len(matched))
	for _, m := range matched {
		pairs = append(pairs, store.StudentKey{Student: m.Student, Key: m.Key})
	}
	if err := h.store.SyncState(ctx, pairs, h.clock.Now()); err != nil {
		return err
	}
	result.Linef("sync %d keys", len(matched))
	return nil
}

func (h *Harness) runCheck(ctx context.Context, result *Result) error {
	remote, matched, orphans, err := h.match(ctx)
	if err != nil {
		return err
	}

	result.Linef("keys %d matched %d orphaned %d", len(remote), len(matched), len(orphans))
	for _, m := range byEmail(matched) {
		result.Linef("  match %s <- %s limit=%s usage=%s %s",
			m.Email, m.Key.Name, m.Key.Limit, usage(m.Key.Usage), stateWord(m.Key.Disabled))
	}
	for _, o := range orphans {
		result.Linef("  orphan %s", o.Key.Name)
	}

	return h.sync(ctx, matched, result)
}

func (h *Harness) runProvision(ctx context.Context, result *Result) error {
	_, matched, _, err := h.match(ctx)
	if err != nil {
		return err
	}

	plan, err := engine.PlanProvision(matched, h.roster, h.domain, h.override, h.day)
	if err != nil {
		return err
	}

	result.Linef("plan create %d skip %d", len(plan.Create), len(plan.Placeholder))
	for _, email := range plan.Placeholder {
		result.Linef("  skip %s", email)
	}
	for _, c := range plan.Create {
		result.Linef("  create %s for %s limit=%s reset=%s", c.Name, c.Email, c.Limit, c.Cadence.OrNever())
	}
	if len(plan.Create) == 0 {
		result.Linef("nothing to provision")
		return nil
	}

	created, provErr := h.applier().Provision(ctx, plan.Create)
	if provErr != nil {
		result.Linef("halt: %v", provErr)
	}
	result.Linef("created %d", len(created))
	for _, pk := range created {
		result.Linef("  %s secret=%s", pk.Key.Name, pk.Secret)
	}
	if provErr != nil {
		return nil
	}

	_, matched, _, err = h.match(ctx)
	if err != nil {
		return err
	}
	return h.sync(ctx, matched, result)
}

func (h *Harness) runUpdate(ctx context.Context, result *Result) error {
	_, matched, _, err := h.match(ctx)
	if err != nil {
		return err
	}

	changes, skipped := engine.ComputeChanges(matched, h.targets)
	for _, email := range skipped {
		result.Linef("  skip %s", email)
	}
	if len(changes) == 0 {
		result.Linef("no changes needed")
		return h.sync(ctx, matched, result)
	}

	result.Linef("changes %d", len(changes))
	for _, c := range changes {
		result.Linef("  %s", c.Describe())
	}

	applied, applyErr := h.applier().Apply(ctx, changes)
	if applyErr != nil {
		result.Linef("halt: %v", applyErr)
		result.Linef("applied %d", applied)
		return nil
	}
	result.Linef("applied %d", applied)

	_, matched, _, err = h.match(ctx)
	if err != nil {
		return err
	}
	return h.sync(ctx, matched, result)
}

func (h *Harness) runRefreshLimits(ctx context.Context, result *Result) error {
	_, matched, _, err := h.match(ctx)
	if err != nil {
		return err
	}

	existing := make(map[string]limits.Entry, len(h.targets))
	for email, target := range h.targets {
		existing[email] = limits.Entry{
			Email:          email,
			TargetLimit:    target.Limit,
			TargetDisabled: target.Disabled,
		}
	}

	entries := limits.Refresh(matched, existing)
	result.Linef("entries %d", len(entries))
	for _, e := range entries {
		result.Linef("  %s target(limit=%s,disabled=%s) actual(limit=%s,disabled=%s)",
			e.Email,
			limitOrDash(e.TargetLimit), boolOrDash(e.TargetDisabled),
			e.ActualLimit, strconv.FormatBool(e.ActualDisabled))
	}
	return nil
}

// byEmail returns the matches sorted by email without disturbing the
// caller's slice.
func byEmail(matched []engine.Match) []engine.Match {
	rows := slices.Clone(matched)
	slices.SortFunc(rows, func(a, b engine.Match) int {
		return strings.Compare(a.Email, b.Email)
	})
	return rows
}

func usage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stateWord(disabled bool) string {
	if disabled {
		return "disabled"
	}
	return "enabled"
}

func limitOrDash(l *keys.Limit) string {
	if l == nil {
		return "-"
	}
	return l.String()
}

func boolOrDash(b *bool) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatBool(*b)
}
