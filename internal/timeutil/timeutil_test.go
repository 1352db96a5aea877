package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"partial overlap", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"contained", at(10, 0), at(12, 0), at(10, 30), at(11, 0), true},
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"touching boundary", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"touching boundary reversed", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))
			// Overlap is symmetric
			assert.Equal(t, tt.want, Overlaps(tt.s2, tt.e2, tt.s1, tt.e1))
		})
	}
}

func TestHoursUntil(t *testing.T) {
	now := at(10, 0)
	assert.InDelta(t, 3.0, HoursUntil(now, at(13, 0)), 1e-9)
	assert.InDelta(t, 0.5, HoursUntil(now, at(10, 30)), 1e-9)
	assert.InDelta(t, -2.0, HoursUntil(now, at(8, 0)), 1e-9)
}

func TestWithinWindow(t *testing.T) {
	start, end := at(10, 0), at(12, 0)
	assert.True(t, WithinWindow(at(10, 0), start, end))
	assert.True(t, WithinWindow(at(11, 0), start, end))
	assert.True(t, WithinWindow(at(12, 0), start, end))
	assert.False(t, WithinWindow(at(12, 1), start, end))
	assert.False(t, WithinWindow(at(9, 59), start, end))
}

func TestAddHours(t *testing.T) {
	assert.Equal(t, at(12, 0), AddHours(at(10, 0), 2))
}

func TestIsPast(t *testing.T) {
	now := at(10, 0)
	assert.True(t, IsPast(now, at(9, 59)))
	assert.False(t, IsPast(now, at(10, 0)))
	assert.False(t, IsPast(now, at(10, 1)))
}
