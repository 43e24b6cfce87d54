// Package daterange resolves day offsets relative to "now" into concrete
// calendar dates.
package daterange

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"orgcal/internal/model"
)

// Resolver turns day offsets into dates. The zero value uses time.Now.
type Resolver struct {
	// Now returns the current local time. Tests pin it.
	Now func() time.Time
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns today's local date shifted by offsetDays days.
func (r Resolver) Resolve(offsetDays int) model.Date {
	return resolveFrom(r.now(), offsetDays)
}

// Range resolves both bounds from a single clock reading.
func (r Resolver) Range(startOffset, endOffset int) (start, end model.Date) {
	now := r.now()
	return resolveFrom(now, startOffset), resolveFrom(now, endOffset)
}

func resolveFrom(now time.Time, offsetDays int) model.Date {
	// AddDate normalizes day overflow across months, years and leap days.
	return model.DateOf(now.AddDate(0, 0, offsetDays))
}

// MaxOffsetDays bounds day offsets, so a compact date like 20250106 is
// rejected instead of read as an offset.
const MaxOffsetDays = 36500

// ParseDate accepts an absolute date ("2025-01-06"), a signed day offset
// ("-7", "+30", "0") or "today".
func (r Resolver) ParseDate(s string) (model.Date, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return model.Date{}, fmt.Errorf("daterange: empty date")
	case "today":
		return r.Resolve(0), nil
	case "tomorrow":
		return r.Resolve(1), nil
	case "yesterday":
		return r.Resolve(-1), nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n > MaxOffsetDays || n < -MaxOffsetDays {
			return model.Date{}, fmt.Errorf("daterange: offset %q is out of range (max %d days); write dates as YYYY-MM-DD", s, MaxOffsetDays)
		}
		return r.Resolve(n), nil
	}

	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return model.Date{}, fmt.Errorf("daterange: invalid date %q: want YYYY-MM-DD or a day offset", s)
	}
	return model.DateOf(t), nil
}
