// Package orgfmt renders events as org-mode outline entries.
package orgfmt

import (
	"strings"
	"time"

	"orgcal/internal/model"
)

const (
	// HeadingMarker is repeated once per outline level.
	HeadingMarker = "*"

	// EntryLevel is the level events are rendered at under a calendar heading.
	EntryLevel = 2

	timestampLayout = "2006-01-02 Mon 15:04"
)

// Formatter renders entries in a fixed display location.
type Formatter struct {
	// Location used to combine event dates and times. Nil means time.Local.
	Location *time.Location
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// Heading returns "<marker x level> <title>". Levels below 1 render as 1.
func Heading(level int, title string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat(HeadingMarker, level) + " " + title
}

// Timestamp formats t as an active org timestamp, e.g. <2025-01-06 Mon 09:00>.
func Timestamp(t time.Time) string {
	return "<" + t.Format(timestampLayout) + ">"
}

// FormatEntry renders one event:
//
//	** Standup
//	<2025-01-06 Mon 09:00>-<2025-01-06 Mon 09:30>
func (f Formatter) FormatEntry(ev model.Event, level int) string {
	loc := f.loc()

	var b strings.Builder
	b.WriteString(Heading(level, ev.Title))
	b.WriteString("\n")
	b.WriteString(Timestamp(ev.Start(loc)))
	b.WriteString("-")
	b.WriteString(Timestamp(ev.End(loc)))
	b.WriteString("\n")
	return b.String()
}

// FormatCalendar renders a level-1 heading with the calendar name followed
// by its events at EntryLevel, separated by blank lines.
func (f Formatter) FormatCalendar(ce model.CalendarEvents) string {
	entries := make([]string, 0, len(ce.Events))
	for _, ev := range ce.Events {
		entries = append(entries, f.FormatEntry(ev, EntryLevel))
	}
	return Heading(1, ce.Calendar.Name) + "\n" + strings.Join(entries, "\n")
}

// Aggregate joins the per-calendar sections, in input order, into one
// document.
func (f Formatter) Aggregate(cals []model.CalendarEvents) string {
	sections := make([]string, 0, len(cals))
	for _, ce := range cals {
		sections = append(sections, f.FormatCalendar(ce))
	}
	return strings.Join(sections, "\n\n")
}
