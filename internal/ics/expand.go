package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart is inclusive, RangeEnd exclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of a single recurring event.
	// If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	AllDay   bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// RangeFor returns an ExpandConfig covering whole days start..end in loc.
func RangeFor(start, end model.Date, loc *time.Location) ExpandConfig {
	if loc == nil {
		loc = time.Local
	}
	return ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start.In(loc),
		RangeEnd:        end.AddDays(1).In(loc),
	}
}

// ExpandOccurrences expands parsed events into the occurrences that start
// within [RangeStart, RangeEnd). It handles:
//
//   - single non-recurring events
//   - RRULE-based recurrence
//   - EXDATE exception removal
//   - RECURRENCE-ID overrides
//
// Occurrences are converted into cfg.DisplayLocation and returned sorted by
// start, then UID.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	uids := make([]string, 0)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	all := make([]Occurrence, 0)

	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			all = append(all, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("expand: truncated occurrences for UID due to cap",
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return all[i].UID < all[j].UID
	})

	result.Occurrences = all
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	start, end := ev.Start, ev.End

	if o, ok := findOverrideForStart(overrides, start); ok {
		start, end = o.Start, o.End
		ev = o
	}

	if !startsWithin(start, cfg) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	out := make([]Occurrence, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)

	for _, occStart := range occTimes {
		start := occStart
		end := occStart.Add(dur)
		baseEv := ev

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			start, end = o.Start, o.End
			baseEv = o
		}

		if !startsWithin(start, cfg) {
			continue
		}
		out = append(out, makeOccurrence(baseEv, start, end, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID is the same
// instant as baseStart.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func startsWithin(start time.Time, cfg ExpandConfig) bool {
	return !start.Before(cfg.RangeStart) && start.Before(cfg.RangeEnd)
}

func makeOccurrence(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) Occurrence {
	if ev.AllDay {
		// All-day dates are wall dates, not instants; keep them unshifted.
		return Occurrence{
			SourceID: ev.Source.ID,
			UID:      ev.UID,
			Summary:  ev.Summary,
			AllDay:   true,
			Start:    time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc),
			End:      time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, displayLoc),
		}
	}
	return Occurrence{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		Start:    start.In(displayLoc),
		End:      end.In(displayLoc),
	}
}

// ToModelEvents converts occurrences into provider events.
func ToModelEvents(occs []Occurrence) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		out = append(out, model.NewEvent(o.Summary, o.Start, o.End))
	}
	return out
}

// Events is the parse → expand → convert pipeline used by providers that
// read raw ICS data for a single calendar.
func Events(src Source, bodies [][]byte, start, end model.Date, loc *time.Location) ([]model.Event, error) {
	parsed := make([]ParsedEvent, 0)
	for _, body := range bodies {
		evs, err := ParseICS(src, body)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, evs...)
	}

	res, err := ExpandOccurrences(parsed, RangeFor(start, end, loc))
	if err != nil {
		return nil, err
	}
	return ToModelEvents(res.Occurrences), nil
}
