// Package icsfeed serves ICS subscription URLs (webcal:// links, published
// iCloud calendars, ...) as named calendars.
package icsfeed

import (
	"context"
	"fmt"
	"time"

	"orgcal/internal/ics"
	"orgcal/internal/model"
	"orgcal/internal/provider"
)

// Feed is one subscription.
type Feed struct {
	Name string
	URL  string
}

// Provider fetches each feed on demand.
type Provider struct {
	feeds    []Feed
	fetcher  *ics.Fetcher
	location *time.Location
}

var _ provider.Provider = (*Provider)(nil)

// New creates a provider over feeds. fetcher may be shared; loc nil means
// time.Local.
func New(feeds []Feed, fetcher *ics.Fetcher, loc *time.Location) *Provider {
	if fetcher == nil {
		fetcher = ics.NewFetcher("", nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Provider{feeds: feeds, fetcher: fetcher, location: loc}
}

func (p *Provider) Name() string { return "ics" }

// Connect validates the feed list; there is no session to open.
func (p *Provider) Connect(context.Context) error {
	seen := make(map[string]struct{}, len(p.feeds))
	for _, f := range p.feeds {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("ics feed needs both name and url (name=%q)", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate ics feed name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func (p *Provider) Calendars(_ context.Context, names []string) ([]model.Calendar, error) {
	all := make([]model.Calendar, 0, len(p.feeds))
	for _, f := range p.feeds {
		all = append(all, model.Calendar{ID: f.Name, Name: f.Name})
	}
	return provider.FilterByName(all, names), nil
}

func (p *Provider) Events(ctx context.Context, id string, start, end model.Date) ([]model.Event, error) {
	var feed *Feed
	for i := range p.feeds {
		if p.feeds[i].Name == id {
			feed = &p.feeds[i]
			break
		}
	}
	if feed == nil {
		return nil, fmt.Errorf("unknown ics feed %q", id)
	}

	src := ics.Source{ID: feed.Name, Name: feed.Name, URL: feed.URL}
	res, err := p.fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, err
	}
	return ics.Events(src, [][]byte{res.Body}, start, end, p.location)
}
