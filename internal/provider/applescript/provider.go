// Package applescript reads calendars from Calendar.app by running
// AppleScript through osascript.
//
// Script output uses the ASCII record separator (RS, 0x1e) between records
// and the unit separator (US, 0x1f) between fields, so titles may contain
// tabs and newlines. Calendar.app does not expand recurring events over
// AppleScript; only the stored instance of a recurring series is reported.
package applescript

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/provider"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// Provider talks to Calendar.app.
type Provider struct {
	runner    Runner
	connected bool

	// source is the zone Calendar.app reports wall clock in (the Mac's
	// system zone); display is the zone events are returned in.
	source  *time.Location
	display *time.Location
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider that uses the real osascript binary and returns
// events in loc. Nil loc means time.Local.
func New(loc *time.Location) *Provider {
	return NewWithRunner(ExecRunner{}, loc)
}

// NewWithRunner creates a Provider with a custom Runner (tests).
func NewWithRunner(r Runner, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{runner: r, source: time.Local, display: loc}
}

func (p *Provider) converts() bool {
	return p.source.String() != p.display.String()
}

func (p *Provider) Name() string { return "applescript" }

// Connect checks that osascript exists and launches Calendar.app without
// bringing it to the front.
func (p *Provider) Connect(ctx context.Context) error {
	if p.connected {
		return nil
	}
	if lp, ok := p.runner.(interface{ LookPath() error }); ok {
		if err := lp.LookPath(); err != nil {
			return fmt.Errorf("%w: osascript not found: %v", provider.ErrUnavailable, err)
		}
	}
	if _, err := p.runner.RunScript(ctx, `tell application "Calendar" to launch`); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	p.connected = true
	appLog.Debug("calendar app ready", "provider", p.Name())
	return nil
}

func (p *Provider) Calendars(ctx context.Context, names []string) ([]model.Calendar, error) {
	if len(names) == 0 {
		return nil, nil
	}

	out, err := p.runner.RunScript(ctx, calendarsScript(names))
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	cals := make([]model.Calendar, 0)
	for _, rec := range records(out) {
		fields := strings.SplitN(rec, fieldSep, 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("list calendars: malformed record %q", rec)
		}
		cals = append(cals, model.Calendar{ID: fields[0], Name: fields[1]})
	}

	// The script already filters, but Calendar.app compares names
	// case-insensitively; keep exact matches only.
	return provider.FilterByName(cals, names), nil
}

func (p *Provider) Events(ctx context.Context, id string, start, end model.Date) ([]model.Event, error) {
	// The script compares in the source zone. When it differs from the
	// display zone, a day of slack on each side covers any offset; the
	// fetcher trims to the exact range afterwards.
	from, until := start, end.AddDays(1)
	if p.converts() {
		from, until = from.AddDays(-1), until.AddDays(1)
	}

	out, err := p.runner.RunScript(ctx, eventsScript(id, from, until))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]model.Event, 0)
	for _, rec := range records(out) {
		ev, err := parseEventRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		if p.converts() {
			ev = model.NewEvent(ev.Title, ev.Start(p.source).In(p.display), ev.End(p.source).In(p.display))
		}
		events = append(events, ev)
	}
	return events, nil
}

func records(out string) []string {
	parts := strings.Split(out, recordSep)
	recs := make([]string, 0, len(parts))
	for _, r := range parts {
		r = strings.TrimPrefix(r, "\n")
		if strings.TrimSpace(r) == "" {
			continue
		}
		recs = append(recs, r)
	}
	return recs
}

// parseEventRecord parses "title US Y-M-D H:M US Y-M-D H:M".
func parseEventRecord(rec string) (model.Event, error) {
	fields := strings.Split(rec, fieldSep)
	if len(fields) != 3 {
		return model.Event{}, fmt.Errorf("malformed event record %q", rec)
	}

	sd, st, err := parseStamp(fields[1])
	if err != nil {
		return model.Event{}, err
	}
	ed, et, err := parseStamp(fields[2])
	if err != nil {
		return model.Event{}, err
	}

	return model.Event{
		Title:     fields[0],
		StartDate: sd,
		StartTime: st,
		EndDate:   ed,
		EndTime:   et,
	}, nil
}

// parseStamp parses the "Y-M-D H:M" stamps produced by the stamp handler.
func parseStamp(s string) (model.Date, model.Clock, error) {
	datePart, timePart, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return model.Date{}, model.Clock{}, fmt.Errorf("malformed timestamp %q", s)
	}

	d, err := ints(datePart, "-", 3)
	if err != nil {
		return model.Date{}, model.Clock{}, fmt.Errorf("malformed date in %q: %w", s, err)
	}
	c, err := ints(timePart, ":", 2)
	if err != nil {
		return model.Date{}, model.Clock{}, fmt.Errorf("malformed time in %q: %w", s, err)
	}

	if d[1] < 1 || d[1] > 12 || d[2] < 1 || d[2] > 31 || c[0] > 23 || c[1] > 59 {
		return model.Date{}, model.Clock{}, fmt.Errorf("timestamp out of range %q", s)
	}

	return model.Date{Year: d[0], Month: monthOf(d[1]), Day: d[2]},
		model.Clock{Hour: c[0], Minute: c[1]},
		nil
}

func ints(s, sep string, n int) ([]int, error) {
	parts := strings.Split(s, sep)
	if len(parts) != n {
		return nil, fmt.Errorf("want %d fields, got %d", n, len(parts))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("negative value %d", v)
		}
		out[i] = v
	}
	return out, nil
}
