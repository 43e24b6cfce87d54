package model

import (
	"fmt"
	"time"
)

// Calendar is a provider-side calendar. ID is opaque to everything except
// the provider that produced it.
type Calendar struct {
	ID   string
	Name string
}

// Date is a calendar date without a time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date part of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// In returns midnight of d in loc. A nil loc means time.Local.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays shifts d by n days, normalizing month and year rollover.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Event is a single calendar event as handed over by a provider. Start and
// end are kept as separate (date, time) pairs, the shape the macOS calendar
// sources report them in.
type Event struct {
	Title     string
	StartDate Date
	StartTime Clock
	EndDate   Date
	EndTime   Clock
}

// NewEvent builds an Event from absolute instants, taking the date and
// clock parts in each instant's own location.
func NewEvent(title string, start, end time.Time) Event {
	return Event{
		Title:     title,
		StartDate: DateOf(start),
		StartTime: ClockOf(start),
		EndDate:   DateOf(end),
		EndTime:   ClockOf(end),
	}
}

// Start combines StartDate and StartTime into an instant in loc.
func (e Event) Start(loc *time.Location) time.Time {
	return combine(e.StartDate, e.StartTime, loc)
}

// End combines EndDate and EndTime into an instant in loc.
func (e Event) End(loc *time.Location) time.Time {
	return combine(e.EndDate, e.EndTime, loc)
}

func combine(d Date, c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// CalendarEvents pairs a calendar with the events fetched for it.
type CalendarEvents struct {
	Calendar Calendar
	Events   []Event
}
