// Package export serializes reconciled and stored key state into the
// timestamped files operators hand around: point-in-time snapshots of the
// matched set, distribution files carrying freshly issued secrets, and
// csv/json dumps of the audit store's key mirror.
//
// Writers are pure formatting over already-fetched state; nothing here
// talks to the remote service or mutates the store.
package export

import (
	"fmt"
	"time"
)

// stampLayout pins filename timestamps to second granularity. Two exports
// within the same second collide; that is accepted.
const stampLayout = "20060102_150405"

// Filename derives a timestamped output name so successive exports never
// overwrite each other. The prefix may carry a directory component.
func Filename(prefix string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format(stampLayout), ext)
}
