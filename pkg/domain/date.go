package domain

import "time"

// DateOnly truncates a timestamp to calendar-date precision in UTC. Donation
// and sponsorship dates carry no time component; comparisons must go through
// this so "today" boundaries behave the same regardless of wall-clock time.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateAfter reports whether a falls on a later calendar date than b.
func DateAfter(a, b time.Time) bool {
	return DateOnly(a).After(DateOnly(b))
}
