package keys

import (
	"fmt"
	"strings"
)

// Cadence is the interval at which the remote service resets a key's
// accumulated spend against its limit. The zero value means the limit
// never resets.
type Cadence string

const (
	CadenceNone    Cadence = ""
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// CadenceError reports a reset cadence outside the accepted set.
type CadenceError struct {
	Value string
}

func (e *CadenceError) Error() string {
	return fmt.Sprintf("invalid limit_reset %q (must be one of: daily, monthly, weekly)", e.Value)
}

// ParseCadence reads a cadence case-insensitively, returning the canonical
// lower-case form. The empty string is the none cadence.
func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CadenceNone, CadenceDaily, CadenceWeekly, CadenceMonthly:
		return c, nil
	}
	return CadenceNone, &CadenceError{Value: s}
}

func (c Cadence) String() string {
	return string(c)
}

// OrNever renders the cadence for audit records, where the none value is
// spelled out as "never".
func (c Cadence) OrNever() string {
	if c == CadenceNone {
		return "never"
	}
	return string(c)
}
