package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateAddDaysRollover(t *testing.T) {
	tests := []struct {
		name string
		in   Date
		n    int
		want Date
	}{
		{"month end", Date{2025, time.January, 31}, 1, Date{2025, time.February, 1}},
		{"year end", Date{2024, time.December, 31}, 1, Date{2025, time.January, 1}},
		{"leap day", Date{2024, time.February, 28}, 1, Date{2024, time.February, 29}},
		{"non leap", Date{2025, time.February, 28}, 1, Date{2025, time.March, 1}},
		{"backwards over year", Date{2025, time.January, 3}, -7, Date{2024, time.December, 27}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.AddDays(tt.n))
		})
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{2025, time.January, 6}
	assert.True(t, a.Before(Date{2025, time.January, 7}))
	assert.True(t, a.Before(Date{2025, time.February, 1}))
	assert.True(t, a.Before(Date{2026, time.January, 1}))
	assert.False(t, a.Before(a))
	assert.False(t, a.Before(Date{2024, time.December, 31}))
}

func TestEventStartEnd(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	start := time.Date(2025, time.January, 6, 9, 0, 0, 0, loc)
	end := time.Date(2025, time.January, 6, 9, 30, 0, 0, loc)

	ev := NewEvent("Standup", start, end)

	assert.Equal(t, Date{2025, time.January, 6}, ev.StartDate)
	assert.Equal(t, Clock{9, 0}, ev.StartTime)
	assert.True(t, ev.Start(loc).Equal(start))
	assert.True(t, ev.End(loc).Equal(end))
	assert.Equal(t, "2025-01-06", ev.StartDate.String())
	assert.Equal(t, "09:30", ev.EndTime.String())
}
