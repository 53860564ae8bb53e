package engine

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/keywarden/internal/keys"
)

// Target is the declared desired state for one student's key. Nil fields
// were never set by an operator and resolve to the current actual value,
// which is what makes a freshly generated target file diff to nothing.
type Target struct {
	Limit    *keys.Limit
	Disabled *bool
}

// ChangeKind says which key field a change touches.
type ChangeKind string

const (
	ChangeLimit    ChangeKind = "limit"
	ChangeDisabled ChangeKind = "disabled"
)

// Change is one atomic remote mutation: flip a single field of a single
// key from its observed old value to the target's new value. Limit fields
// are meaningful only when Kind is ChangeLimit, the disabled pair only
// when Kind is ChangeDisabled.
type Change struct {
	Email   string
	KeyHash string
	KeyName string
	Kind    ChangeKind

	OldLimit keys.Limit
	NewLimit keys.Limit

	OldDisabled bool
	NewDisabled bool
}

// OldValue renders the before state for the changelog.
func (c Change) OldValue() string {
	if c.Kind == ChangeLimit {
		return c.OldLimit.String()
	}
	return strconv.FormatBool(c.OldDisabled)
}

// NewValue renders the after state for the changelog.
func (c Change) NewValue() string {
	if c.Kind == ChangeLimit {
		return c.NewLimit.String()
	}
	return strconv.FormatBool(c.NewDisabled)
}

// Describe renders the change for operator display.
func (c Change) Describe() string {
	if c.Kind == ChangeLimit {
		return fmt.Sprintf("%s: limit %s -> %s", c.KeyName, money(c.OldLimit), money(c.NewLimit))
	}
	return fmt.Sprintf("%s: %s -> %s", c.KeyName, onOff(c.OldDisabled), onOff(c.NewDisabled))
}

func money(l keys.Limit) string {
	if amount, ok := l.Amount(); ok {
		return "$" + strconv.FormatFloat(amount, 'f', -1, 64)
	}
	return "unlimited"
}

func onOff(disabled bool) string {
	if disabled {
		return "disabled"
	}
	return "enabled"
}

// ComputeChanges diffs each matched key's actual state against its
// target, in matched order, emitting at most one limit change and one
// disabled change per key (limit first). Target emails with no matched
// key come back in skipped, sorted, for the caller to warn about; they
// never abort the run.
//
// Limit comparison is exact: unlimited is a distinguished value that
// equals no amount, including zero.
func ComputeChanges(matched []Match, targets map[string]Target) (changes []Change, skipped []string) {
	seen := make(map[string]bool, len(matched))

	for _, m := range matched {
		seen[m.Email] = true
		target := targets[m.Email]

		targetLimit := m.Key.Limit
		if target.Limit != nil {
			targetLimit = *target.Limit
		}
		if !targetLimit.Equal(m.Key.Limit) {
			changes = append(changes, Change{
				Email:    m.Email,
				KeyHash:  m.Key.Hash,
				KeyName:  m.Key.Name,
				Kind:     ChangeLimit,
				OldLimit: m.Key.Limit,
				NewLimit: targetLimit,
			})
		}

		targetDisabled := m.Key.Disabled
		if target.Disabled != nil {
			targetDisabled = *target.Disabled
		}
		if targetDisabled != m.Key.Disabled {
			changes = append(changes, Change{
				Email:       m.Email,
				KeyHash:     m.Key.Hash,
				KeyName:     m.Key.Name,
				Kind:        ChangeDisabled,
				OldDisabled: m.Key.Disabled,
				NewDisabled: targetDisabled,
			})
		}
	}

	for email := range targets {
		if !seen[email] {
			skipped = append(skipped, email)
		}
	}
	slices.Sort(skipped)

	return changes, skipped
}
