// Package caldav reads calendars from a CalDAV server, typically the iCloud
// account behind macOS Calendar.
package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/provider"
)

// ICloudEndpoint is the CalDAV entry point for iCloud accounts.
const ICloudEndpoint = "https://caldav.icloud.com/"

// Client is the subset of *caldav.Client the provider uses.
type Client interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]caldav.Calendar, error)
	QueryCalendar(ctx context.Context, calendar string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
}

// Options configure a CalDAV provider.
type Options struct {
	Endpoint string
	Username string
	// Password should be an app-specific password for iCloud.
	Password string
	Location *time.Location
}

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	username  string
	password  string
	transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("User-Agent", "orgcal/1.0")
	return t.transport.RoundTrip(req)
}

// Provider lists calendars and events over CalDAV.
type Provider struct {
	opts   Options
	client Client
	cals   []model.Calendar
	ready  bool
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider that dials opts.Endpoint on Connect.
func New(opts Options) *Provider {
	if opts.Endpoint == "" {
		opts.Endpoint = ICloudEndpoint
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Provider{opts: opts}
}

// NewWithClient creates a provider around an existing client (tests).
func NewWithClient(c Client, loc *time.Location) *Provider {
	p := New(Options{Location: loc})
	p.client = c
	return p
}

func (p *Provider) Name() string { return "caldav" }

// Connect discovers the calendar home set and lists its calendars once.
func (p *Provider) Connect(ctx context.Context) error {
	if p.ready {
		return nil
	}

	if p.client == nil {
		if p.opts.Username == "" || p.opts.Password == "" {
			return fmt.Errorf("%w: caldav username and password are required", provider.ErrUnavailable)
		}
		httpClient := &http.Client{
			Timeout: 30 * time.Second,
			Transport: &basicAuthTransport{
				username:  p.opts.Username,
				password:  p.opts.Password,
				transport: http.DefaultTransport,
			},
		}
		c, err := caldav.NewClient(httpClient, p.opts.Endpoint)
		if err != nil {
			return fmt.Errorf("create caldav client: %w", err)
		}
		p.client = c
	}

	principal, err := p.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := p.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return fmt.Errorf("find calendar home set: %w", err)
	}
	found, err := p.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return fmt.Errorf("find calendars: %w", err)
	}

	cals := make([]model.Calendar, 0, len(found))
	for _, c := range found {
		if !supportsEvents(c) {
			continue
		}
		cals = append(cals, model.Calendar{ID: c.Path, Name: c.Name})
	}

	p.cals = cals
	p.ready = true
	appLog.Debug("caldav calendars discovered", "endpoint", p.opts.Endpoint, "calendar_count", len(cals))
	return nil
}

// supportsEvents filters out reminder-only (VTODO) collections.
func supportsEvents(c caldav.Calendar) bool {
	if len(c.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range c.SupportedComponentSet {
		if strings.EqualFold(comp, ical.CompEvent) {
			return true
		}
	}
	return false
}

func (p *Provider) Calendars(_ context.Context, names []string) ([]model.Calendar, error) {
	return provider.FilterByName(p.cals, names), nil
}

func (p *Provider) Events(ctx context.Context, id string, start, end model.Date) ([]model.Event, error) {
	if p.client == nil {
		return nil, fmt.Errorf("caldav provider not connected")
	}

	rng := ics.RangeFor(start, end, p.opts.Location)
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: rng.RangeStart.UTC(),
				End:   rng.RangeEnd.UTC(),
			}},
		},
	}

	objects, err := p.client.QueryCalendar(ctx, id, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	bodies := make([][]byte, 0, len(objects))
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		var buf bytes.Buffer
		if err := ical.NewEncoder(&buf).Encode(obj.Data); err != nil {
			return nil, fmt.Errorf("encode %s: %w", obj.Path, err)
		}
		bodies = append(bodies, buf.Bytes())
	}

	return ics.Events(ics.Source{ID: id}, bodies, start, end, p.opts.Location)
}
