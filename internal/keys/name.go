package keys

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Key names encode a student identity as "YYYYMMDD_First Last_MQID".
// The date records when the key was provisioned; the trailing identifier
// is what matching keys back to the roster relies on.
var (
	nameWithID   = regexp.MustCompile(`^(\d{8})_(.+)_(\w+)$`)
	nameDateOnly = regexp.MustCompile(`^(\d{8})_(.+)$`)
)

// ParsedName holds the identity components recovered from a key name.
// Empty fields mean the component was absent from the name.
type ParsedName struct {
	Date string // YYYYMMDD provisioning date
	Name string // display name, or the whole input when nothing parsed
	MQID string // student identifier
}

// ParseName decodes a key name, falling back in strict order: the full
// date_name_id form first, then date_name with no identifier, then the
// whole input as a bare name. The fallback order decides whether a key
// can be matched to the roster at all, so it must not change.
func ParseName(name string) ParsedName {
	if m := nameWithID.FindStringSubmatch(name); m != nil {
		return ParsedName{Date: m[1], Name: m[2], MQID: m[3]}
	}
	if m := nameDateOnly.FindStringSubmatch(name); m != nil {
		return ParsedName{Date: m[1], Name: m[2]}
	}
	return ParsedName{Name: name}
}

// FormatName encodes a student identity into a remote key name for the
// given provisioning day. Display names are NFC normalized so composed
// and decomposed input produce identical label bytes.
func FormatName(displayName, mqID string, day time.Time) string {
	return fmt.Sprintf("%s_%s_%s", day.Format("20060102"), norm.NFC.String(displayName), mqID)
}
