package timeutil

import "time"

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect. Touching boundaries do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// HoursUntil returns the number of hours from now until t. Negative if t is
// in the past.
func HoursUntil(now, t time.Time) float64 {
	return t.Sub(now).Hours()
}

// WithinWindow reports whether t falls in [start, end].
func WithinWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// AddHours shifts t forward by the given number of hours.
func AddHours(t time.Time, hours int) time.Time {
	return t.Add(time.Duration(hours) * time.Hour)
}

// IsPast reports whether t is strictly before now.
func IsPast(now, t time.Time) bool {
	return t.Before(now)
}
