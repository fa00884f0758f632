package util

import "time"

// Clock returns the current time. Repositories accept one so tests can pin timestamps.
type Clock func() time.Time

// NowUTC is the production Clock.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ClockOrDefault returns c, or NowUTC when c is nil.
func ClockOrDefault(c Clock) Clock {
	if c == nil {
		return NowUTC
	}
	return c
}
