package keys

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Limit is an optional credit ceiling in account currency units.
//
// The zero value is the unset state: on a remote key it means the key is
// unlimited, on a roster row it means no budget was declared. Zero dollars
// is a concrete amount, distinct from unset. The two must never collapse
// into each other, because "limit of 0" disables spending while "no limit"
// allows all of it.
type Limit struct {
	amount float64
	set    bool
}

// LimitOf returns a concrete limit of the given amount.
func LimitOf(amount float64) Limit {
	return Limit{amount: amount, set: true}
}

// Unlimited returns the unset limit.
func Unlimited() Limit {
	return Limit{}
}

// IsSet reports whether the limit holds a concrete amount.
func (l Limit) IsSet() bool {
	return l.set
}

// Amount returns the concrete amount and whether one is set.
func (l Limit) Amount() (float64, bool) {
	return l.amount, l.set
}

// Equal reports whether two limits agree. Unset never equals a concrete
// amount, including zero.
func (l Limit) Equal(other Limit) bool {
	if l.set != other.set {
		return false
	}
	return !l.set || l.amount == other.amount
}

// String renders the limit the way the entitlement files spell it:
// "unlimited" when unset, otherwise the bare decimal amount.
func (l Limit) String() string {
	if !l.set {
		return "unlimited"
	}
	return strconv.FormatFloat(l.amount, 'f', -1, 64)
}

// ParseLimit reads the file form produced by String. The empty string and
// "unlimited" both parse as unset.
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "unlimited" {
		return Limit{}, nil
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Limit{}, fmt.Errorf("invalid limit %q", s)
	}
	return LimitOf(amount), nil
}

// MarshalJSON encodes a concrete amount as a number and unset as null,
// matching the remote API's limit field.
func (l Limit) MarshalJSON() ([]byte, error) {
	if !l.set {
		return []byte("null"), nil
	}
	return json.Marshal(l.amount)
}

// UnmarshalJSON accepts a JSON number or null.
func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Limit{}
		return nil
	}
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("limit: %w", err)
	}
	*l = LimitOf(amount)
	return nil
}
