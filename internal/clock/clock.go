// Package clock abstracts wall-clock time so snapshot names, audit
// timestamps, and provisioning dates are injectable in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
