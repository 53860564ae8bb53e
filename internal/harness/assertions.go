package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
	"github.com/roach88/keywarden/internal/testutil"
)

// AssertionContext carries what assertions evaluate against: the audit
// store and the fake account in their final state.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Account *testutil.Account
}

// AssertionError is returned when an assertion fails. It carries the
// full changelog so the failure message shows what actually happened.
type AssertionError struct {
	Type      string
	Expected  string
	Actual    string
	Changelog []store.ChangelogEntry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nChangelog:\n")
	for i, entry := range e.Changelog {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", i+1, entry.Action, entry.KeyHash, entry.NewValue)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and collects the failures as
// messages. All assertions run even after one fails, so a broken
// scenario reports everything wrong at once.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	entries, err := actx.Store.Changelog(actx.Ctx)
	if err != nil {
		return []string{fmt.Sprintf("failed to read changelog: %v", err)}
	}

	names := nameByHash(actx.Account)

	var failures []string
	for _, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertChangelogContains:
			err = assertChangelogContains(entries, names, assertion)
		case AssertChangelogOrder:
			err = assertChangelogOrder(entries, assertion)
		case AssertChangelogCount:
			err = assertChangelogCount(entries, assertion)
		case AssertRemoteState:
			err = assertRemoteState(actx.Account, entries, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// nameByHash maps every current remote hash to its key name, so
// changelog entries can be matched by the name a scenario author knows.
func nameByHash(account *testutil.Account) map[string]string {
	names := make(map[string]string)
	for _, k := range account.List() {
		names[k.Hash] = k.Name
	}
	return names
}

// assertChangelogContains checks an entry with the action exists,
// narrowed to one key when key_name is set.
func assertChangelogContains(entries []store.ChangelogEntry, names map[string]string, assertion Assertion) error {
	for _, entry := range entries {
		if entry.Action != assertion.Action {
			continue
		}
		if assertion.KeyName == "" || names[entry.KeyHash] == assertion.KeyName {
			return nil
		}
	}

	expected := fmt.Sprintf("entry with action %s", assertion.Action)
	if assertion.KeyName != "" {
		expected += fmt.Sprintf(" for key %s", assertion.KeyName)
	}
	return &AssertionError{
		Type:      AssertChangelogContains,
		Expected:  expected,
		Actual:    "not found in changelog",
		Changelog: entries,
	}
}

// assertChangelogOrder checks actions appear in the given order. Entries
// between them are allowed.
func assertChangelogOrder(entries []store.ChangelogEntry, assertion Assertion) error {
	positions := make(map[string]int)
	for i, entry := range entries {
		for _, action := range assertion.Actions {
			if entry.Action == action && positions[action] == 0 {
				positions[action] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:      AssertChangelogOrder,
				Expected:  fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:    fmt.Sprintf("missing action: %s", action),
				Changelog: entries,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertChangelogOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Changelog: entries,
			}
		}
	}

	return nil
}

// assertChangelogCount checks the action appears exactly count times.
func assertChangelogCount(entries []store.ChangelogEntry, assertion Assertion) error {
	count := 0
	for _, entry := range entries {
		if entry.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:      AssertChangelogCount,
			Expected:  fmt.Sprintf("action %s exactly %d times", assertion.Action, assertion.Count),
			Actual:    fmt.Sprintf("found %d times", count),
			Changelog: entries,
		}
	}
	return nil
}

// assertRemoteState checks the named key's final limit and disabled
// state in the account.
func assertRemoteState(account *testutil.Account, entries []store.ChangelogEntry, assertion Assertion) error {
	key, ok := account.Key(assertion.Name)
	if !ok {
		return &AssertionError{
			Type:      AssertRemoteState,
			Expected:  fmt.Sprintf("key %s present in the account", assertion.Name),
			Actual:    "not found",
			Changelog: entries,
		}
	}

	if assertion.Limit != nil {
		want := keys.LimitOf(*assertion.Limit)
		if !key.Limit.Equal(want) {
			return &AssertionError{
				Type:      AssertRemoteState,
				Expected:  fmt.Sprintf("key %s limit %s", assertion.Name, want),
				Actual:    key.Limit.String(),
				Changelog: entries,
			}
		}
	}
	if assertion.Unlimited && key.Limit.IsSet() {
		return &AssertionError{
			Type:      AssertRemoteState,
			Expected:  fmt.Sprintf("key %s unlimited", assertion.Name),
			Actual:    key.Limit.String(),
			Changelog: entries,
		}
	}
	if assertion.Disabled != nil && key.Disabled != *assertion.Disabled {
		return &AssertionError{
			Type:      AssertRemoteState,
			Expected:  fmt.Sprintf("key %s disabled=%s", assertion.Name, strconv.FormatBool(*assertion.Disabled)),
			Actual:    strconv.FormatBool(key.Disabled),
			Changelog: entries,
		}
	}

	return nil
}
