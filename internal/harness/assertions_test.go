package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
	"github.com/roach88/keywarden/internal/testutil"
)

// assertionFixture builds a store holding a provisioned-then-tuned history
// for one key and an account whose final state matches it.
func assertionFixture(t *testing.T) *AssertionContext {
	t.Helper()
	ctx := context.Background()

	st, _, err := store.Create(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	history := []store.ChangelogEntry{
		{KeyHash: "hash-a", Action: store.ActionProvisioned, NewValue: "limit=3,reset=weekly", ChangedAt: at},
		{KeyHash: "hash-a", Action: store.ActionUpdateLimit, OldValue: "3", NewValue: "10", ChangedAt: at.Add(time.Minute)},
		{KeyHash: "hash-a", Action: store.ActionUpdateDisabled, OldValue: "false", NewValue: "true", ChangedAt: at.Add(2 * time.Minute)},
	}
	for _, e := range history {
		require.NoError(t, st.AppendChangelog(ctx, e))
	}

	account := testutil.NewAccount(
		keys.RemoteKey{
			Hash:     "hash-a",
			Name:     "20260301_Chaeyeon Kim_60853425",
			Limit:    keys.LimitOf(10),
			Disabled: true,
		},
		keys.RemoteKey{
			Hash:  "hash-b",
			Name:  "20260301_Dasol Kim_60853379",
			Limit: keys.Unlimited(),
		},
	)

	return &AssertionContext{Ctx: ctx, Store: st, Account: account}
}

func TestEvaluateAssertionsAllPass(t *testing.T) {
	actx := assertionFixture(t)
	disabled := true
	limit := 10.0

	failures := EvaluateAssertions([]Assertion{
		{Type: AssertChangelogContains, Action: store.ActionProvisioned},
		{Type: AssertChangelogContains, Action: store.ActionUpdateLimit, KeyName: "20260301_Chaeyeon Kim_60853425"},
		{Type: AssertChangelogOrder, Actions: []string{store.ActionProvisioned, store.ActionUpdateLimit, store.ActionUpdateDisabled}},
		{Type: AssertChangelogCount, Action: store.ActionProvisioned, Count: 1},
		{Type: AssertRemoteState, Name: "20260301_Chaeyeon Kim_60853425", Limit: &limit, Disabled: &disabled},
		{Type: AssertRemoteState, Name: "20260301_Dasol Kim_60853379", Unlimited: true},
	}, actx)

	assert.Empty(t, failures)
}

func TestEvaluateAssertionsCollectsAllFailures(t *testing.T) {
	actx := assertionFixture(t)

	failures := EvaluateAssertions([]Assertion{
		{Type: AssertChangelogCount, Action: store.ActionProvisioned, Count: 5},
		{Type: AssertRemoteState, Name: "no such key"},
	}, actx)

	// Both failures report, the first does not mask the second.
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "found 1 times")
	assert.Contains(t, failures[1], "not found")
}

func TestAssertChangelogContainsMissingAction(t *testing.T) {
	actx := assertionFixture(t)

	failures := EvaluateAssertions([]Assertion{
		{Type: AssertChangelogContains, Action: "deleted"},
	}, actx)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "Assertion failed: changelog_contains")
	assert.Contains(t, failures[0], "entry with action deleted")
	assert.Contains(t, failures[0], "not found in changelog")
}

func TestAssertChangelogContainsWrongKey(t *testing.T) {
	actx := assertionFixture(t)

	// The update_limit entry exists, but for Chaeyeon's key, not Dasol's.
	failures := EvaluateAssertions([]Assertion{
		{Type: AssertChangelogContains, Action: store.ActionUpdateLimit, KeyName: "20260301_Dasol Kim_60853379"},
	}, actx)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "for key 20260301_Dasol Kim_60853379")
}

func TestAssertChangelogOrderFailures(t *testing.T) {
	actx := assertionFixture(t)

	t.Run("missing action", func(t *testing.T) {
		failures := EvaluateAssertions([]Assertion{
			{Type: AssertChangelogOrder, Actions: []string{store.ActionProvisioned, "deleted"}},
		}, actx)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "missing action: deleted")
	})

	t.Run("wrong order", func(t *testing.T) {
		failures := EvaluateAssertions([]Assertion{
			{Type: AssertChangelogOrder, Actions: []string{store.ActionUpdateDisabled, store.ActionProvisioned}},
		}, actx)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "should be before")
	})
}

func TestAssertRemoteStateMismatches(t *testing.T) {
	actx := assertionFixture(t)

	t.Run("wrong limit", func(t *testing.T) {
		limit := 25.0
		failures := EvaluateAssertions([]Assertion{
			{Type: AssertRemoteState, Name: "20260301_Chaeyeon Kim_60853425", Limit: &limit},
		}, actx)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "limit 25")
		assert.Contains(t, failures[0], "Actual: 10")
	})

	t.Run("expected unlimited", func(t *testing.T) {
		failures := EvaluateAssertions([]Assertion{
			{Type: AssertRemoteState, Name: "20260301_Chaeyeon Kim_60853425", Unlimited: true},
		}, actx)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "unlimited")
		assert.Contains(t, failures[0], "Actual: 10")
	})

	t.Run("wrong disabled", func(t *testing.T) {
		enabled := false
		failures := EvaluateAssertions([]Assertion{
			{Type: AssertRemoteState, Name: "20260301_Chaeyeon Kim_60853425", Disabled: &enabled},
		}, actx)
		require.Len(t, failures, 1)
		assert.Contains(t, failures[0], "disabled=false")
		assert.Contains(t, failures[0], "Actual: true")
	})
}

func TestAssertionErrorRendersChangelog(t *testing.T) {
	actx := assertionFixture(t)

	failures := EvaluateAssertions([]Assertion{
		{Type: AssertChangelogCount, Action: "deleted", Count: 1},
	}, actx)

	// The failure message replays the full trail so the scenario author
	// sees what actually happened without reopening the database.
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "Changelog:")
	assert.Contains(t, failures[0], "[1] provisioned hash-a limit=3,reset=weekly")
	assert.Contains(t, failures[0], "[2] update_limit hash-a 10")
	assert.Contains(t, failures[0], "[3] update_disabled hash-a true")
}
