// Package providertest contains an in-memory provider.Provider for tests.
package providertest

import (
	"context"

	"orgcal/internal/model"
	"orgcal/internal/provider"
)

// Fake serves a fixed set of calendars and events and counts calls.
type Fake struct {
	Cals []model.Calendar
	ByID map[string][]model.Event

	ConnectErr   error
	CalendarsErr error
	EventsErr    map[string]error

	ConnectCalls int
	EventCalls   []string
}

var _ provider.Provider = (*Fake)(nil)

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Connect(context.Context) error {
	f.ConnectCalls++
	return f.ConnectErr
}

func (f *Fake) Calendars(_ context.Context, names []string) ([]model.Calendar, error) {
	if f.CalendarsErr != nil {
		return nil, f.CalendarsErr
	}
	return provider.FilterByName(f.Cals, names), nil
}

func (f *Fake) Events(_ context.Context, id string, _, _ model.Date) ([]model.Event, error) {
	f.EventCalls = append(f.EventCalls, id)
	if err := f.EventsErr[id]; err != nil {
		return nil, err
	}
	evs := f.ByID[id]
	out := make([]model.Event, len(evs))
	copy(out, evs)
	return out, nil
}
