package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/provider"
)

// ErrCalendarNotFound is returned under MissingFail when a requested
// calendar name matches no provider calendar.
var ErrCalendarNotFound = errors.New("calendar not found")

// MissingPolicy decides what happens to a requested name with no match.
type MissingPolicy string

const (
	MissingSkip MissingPolicy = "skip"
	MissingFail MissingPolicy = "fail"
)

// Fetcher resolves calendar names and pulls their events from a provider,
// one calendar at a time.
type Fetcher struct {
	provider provider.Provider
	policy   MissingPolicy
	ready    bool
}

// New creates a Fetcher. An empty policy means MissingSkip.
func New(p provider.Provider, policy MissingPolicy) *Fetcher {
	if policy == "" {
		policy = MissingSkip
	}
	return &Fetcher{provider: p, policy: policy}
}

// EnsureReady connects the provider the first time it is called. Later
// calls return nil without touching the provider. A failed connect is
// retried on the next call.
func (f *Fetcher) EnsureReady(ctx context.Context) error {
	if f.ready {
		return nil
	}
	appLog.Debug("connecting calendar provider", "provider", f.provider.Name())
	if err := f.provider.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s provider: %w", f.provider.Name(), err)
	}
	f.ready = true
	return nil
}

// Fetch returns, for each requested name that resolves, the calendar and
// its events starting within [start, end]. Sections follow the order of
// names. Any provider error aborts the fetch.
func (f *Fetcher) Fetch(ctx context.Context, names []string, start, end model.Date) ([]model.CalendarEvents, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return nil, nil
	}

	if err := f.EnsureReady(ctx); err != nil {
		return nil, err
	}

	cals, err := f.provider.Calendars(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve calendars: %w", err)
	}

	byName := make(map[string][]model.Calendar, len(cals))
	for _, c := range cals {
		byName[c.Name] = append(byName[c.Name], c)
	}

	out := make([]model.CalendarEvents, 0, len(names))
	for _, name := range names {
		matches := byName[name]
		if len(matches) == 0 {
			if f.policy == MissingFail {
				return nil, fmt.Errorf("%w: %q", ErrCalendarNotFound, name)
			}
			appLog.Warn("calendar not found, skipping", "calendar", name, "provider", f.provider.Name())
			continue
		}

		for _, cal := range matches {
			events, err := f.provider.Events(ctx, cal.ID, start, end)
			if err != nil {
				return nil, fmt.Errorf("fetch events for %q: %w", cal.Name, err)
			}
			events = filterAndSort(events, start, end)
			appLog.Debug("fetched calendar", "calendar", cal.Name, "id", cal.ID, "event_count", len(events))
			out = append(out, model.CalendarEvents{Calendar: cal, Events: events})
		}
	}

	return out, nil
}

// Resolve returns the provider calendars matching names, without fetching
// events. The missing-name policy does not apply.
func (f *Fetcher) Resolve(ctx context.Context, names []string) ([]model.Calendar, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return nil, nil
	}
	if err := f.EnsureReady(ctx); err != nil {
		return nil, err
	}
	cals, err := f.provider.Calendars(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve calendars: %w", err)
	}
	return cals, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// filterAndSort drops events outside the range and orders the rest by start,
// then title, then end. Providers do not promise a stable order.
func filterAndSort(events []model.Event, start, end model.Date) []model.Event {
	kept := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if provider.InRange(ev, start, end) {
			kept = append(kept, ev)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		as, bs := a.Start(nil), b.Start(nil)
		if !as.Equal(bs) {
			return as.Before(bs)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.End(nil).Before(b.End(nil))
	})
	return kept
}
