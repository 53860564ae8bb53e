package limits

import (
	"slices"
	"strings"

	"github.com/roach88/keywarden/internal/engine"
)

// Refresh rebuilds the target file contents from the current matched set,
// sorted by email. Targets an operator has set are preserved; everything
// else adopts the live actual value, so an untouched column tracks remote
// state instead of drifting.
//
// Entries for emails no longer in the matched set are dropped: the file
// describes intent for keys that exist.
func Refresh(matched []engine.Match, existing map[string]Entry) []Entry {
	entries := make([]Entry, 0, len(matched))

	for _, m := range matched {
		e := Entry{
			Email:          m.Email,
			Name:           m.Student.DisplayName(),
			MQID:           m.Student.MQID,
			ActualLimit:    m.Key.Limit,
			ActualDisabled: m.Key.Disabled,
			KeyName:        m.Key.Name,
			Hash:           m.Key.Hash,
		}

		if old, ok := existing[m.Email]; ok && old.TargetLimit != nil {
			e.TargetLimit = old.TargetLimit
		} else {
			actual := m.Key.Limit
			e.TargetLimit = &actual
		}

		if old, ok := existing[m.Email]; ok && old.TargetDisabled != nil {
			e.TargetDisabled = old.TargetDisabled
		} else {
			actual := m.Key.Disabled
			e.TargetDisabled = &actual
		}

		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Email, b.Email)
	})

	return entries
}

// Targets projects loaded entries into the diff engine's target form.
func Targets(entries map[string]Entry) map[string]engine.Target {
	targets := make(map[string]engine.Target, len(entries))
	for email, e := range entries {
		targets[email] = engine.Target{
			Limit:    e.TargetLimit,
			Disabled: e.TargetDisabled,
		}
	}
	return targets
}
