package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
	"github.com/roach88/keywarden/internal/testutil"
)

// CheckPrinciples verifies the guarantees every scenario must uphold no
// matter what its own assertions say:
//
//  1. Every remote mutation has exactly one changelog entry: nothing the
//     account journaled went unrecorded, and nothing was recorded that
//     never happened.
//  2. Every changelog entry names a key the account actually held at
//     some point. The audit trail never invents keys.
//  3. The newest changelog claim per key and action agrees with the
//     account's current state, and every provisioned key still exists.
//     A halted batch must leave the trail telling the truth about what
//     it did apply.
//
// Violations come back as messages; an empty slice means all held.
func CheckPrinciples(ctx context.Context, st *store.Store, account *testutil.Account) []string {
	entries, err := st.Changelog(ctx)
	if err != nil {
		return []string{fmt.Sprintf("principle check: read changelog: %v", err)}
	}

	var violations []string
	violations = append(violations, checkMutationCounts(entries, account)...)
	violations = append(violations, checkKnownHashes(entries, account)...)
	violations = append(violations, checkFinalClaims(entries, account)...)
	return violations
}

// journalKind maps an account journal line to the changelog action it
// must be paired with.
func journalKind(line string) string {
	switch {
	case strings.HasPrefix(line, "create "):
		return store.ActionProvisioned
	case strings.HasPrefix(line, "limit "):
		return store.ActionUpdateLimit
	case strings.HasPrefix(line, "disabled "):
		return store.ActionUpdateDisabled
	}
	return ""
}

func checkMutationCounts(entries []store.ChangelogEntry, account *testutil.Account) []string {
	journaled := make(map[string]int)
	for _, line := range account.Journal() {
		journaled[journalKind(line)]++
	}
	recorded := make(map[string]int)
	for _, e := range entries {
		recorded[e.Action]++
	}

	var violations []string
	for _, action := range []string{store.ActionProvisioned, store.ActionUpdateLimit, store.ActionUpdateDisabled} {
		if journaled[action] != recorded[action] {
			violations = append(violations, fmt.Sprintf(
				"principle violated: %d remote mutations of kind %s but %d changelog entries",
				journaled[action], action, recorded[action]))
		}
	}
	return violations
}

func checkKnownHashes(entries []store.ChangelogEntry, account *testutil.Account) []string {
	var violations []string
	for _, e := range entries {
		if !account.Knew(e.KeyHash) {
			violations = append(violations, fmt.Sprintf(
				"principle violated: changelog entry %s references key hash %s the account never held",
				e.Action, e.KeyHash))
		}
	}
	return violations
}

func checkFinalClaims(entries []store.ChangelogEntry, account *testutil.Account) []string {
	byHash := make(map[string]keys.RemoteKey)
	for _, k := range account.List() {
		byHash[k.Hash] = k
	}

	// Last claim wins: walk in order, keep the newest per (hash, action).
	final := make(map[[2]string]string)
	for _, e := range entries {
		final[[2]string{e.KeyHash, e.Action}] = e.NewValue
	}

	var violations []string
	for key, value := range final {
		hash, action := key[0], key[1]
		current, exists := byHash[hash]

		if !exists {
			violations = append(violations, fmt.Sprintf(
				"principle violated: changelog records %s for key hash %s which no longer exists remotely",
				action, hash))
			continue
		}

		switch action {
		case store.ActionUpdateLimit:
			if value != current.Limit.String() {
				violations = append(violations, fmt.Sprintf(
					"principle violated: newest limit claim for %s is %s but the account reports %s",
					hash, value, current.Limit))
			}
		case store.ActionUpdateDisabled:
			actual := fmt.Sprintf("%t", current.Disabled)
			if value != actual {
				violations = append(violations, fmt.Sprintf(
					"principle violated: newest disabled claim for %s is %s but the account reports %s",
					hash, value, actual))
			}
		}
	}
	return violations
}
