// Package provider defines the contract orgcal consumes from a calendar
// data source, plus helpers shared by the implementations in its
// subpackages.
package provider

import (
	"context"
	"errors"

	"orgcal/internal/model"
)

// ErrUnavailable is returned by Connect when the data source cannot be used
// on this machine (no osascript, no calendar store, ...).
var ErrUnavailable = errors.New("calendar provider unavailable")

// Provider is a read-only calendar source.
type Provider interface {
	// Name identifies the provider in logs and config ("applescript", ...).
	Name() string

	// Connect performs one-time initialization. Calling it again must be a
	// no-op.
	Connect(ctx context.Context) error

	// Calendars returns the calendars whose display name is exactly one of
	// names. Unknown names are simply absent from the result.
	Calendars(ctx context.Context, names []string) ([]model.Calendar, error)

	// Events returns the events of calendar id whose start falls on a date
	// within [start, end].
	Events(ctx context.Context, id string, start, end model.Date) ([]model.Event, error)
}

// NameSet builds a lookup set from names.
func NameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// FilterByName keeps the calendars whose Name is in names, preserving the
// order of cals.
func FilterByName(cals []model.Calendar, names []string) []model.Calendar {
	want := NameSet(names)
	out := make([]model.Calendar, 0, len(names))
	for _, c := range cals {
		if _, ok := want[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// InRange reports whether the event starts on a date within [start, end].
func InRange(ev model.Event, start, end model.Date) bool {
	return !ev.StartDate.Before(start) && !end.Before(ev.StartDate)
}
