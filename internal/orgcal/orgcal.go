// Package orgcal ties the pipeline together: resolve the date range, fetch
// calendars, render the org document and write it out.
package orgcal

import (
	"context"
	"fmt"
	"time"

	"orgcal/internal/config"
	"orgcal/internal/daterange"
	"orgcal/internal/fetcher"
	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/orgfmt"
	"orgcal/internal/provider"
	"orgcal/internal/provider/applescript"
	"orgcal/internal/provider/caldav"
	"orgcal/internal/provider/icsfeed"
	"orgcal/internal/provider/store"
	"orgcal/internal/writer"
)

// WriteOptions are the optional arguments of WriteCalendars. Nil / empty
// fields fall back to the configuration.
type WriteOptions struct {
	Calendars []string
	Start     *model.Date
	End       *model.Date
}

// Result describes one completed write.
type Result struct {
	Path       string
	Start      model.Date
	End        model.Date
	Calendars  int
	EventCount int
	Bytes      int
}

// Service writes calendars to the configured org file.
type Service struct {
	cfg       *config.Config
	fetcher   *fetcher.Fetcher
	formatter orgfmt.Formatter
	resolver  daterange.Resolver
}

// New builds a Service around an explicit provider.
func New(cfg *config.Config, p provider.Provider) *Service {
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher.New(p, fetcher.MissingPolicy(cfg.MissingCalendar)),
		formatter: orgfmt.Formatter{Location: cfg.Location()},
	}
}

// WithClock pins "now" for date resolution.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.resolver = daterange.Resolver{Now: now}
	return s
}

// Resolver exposes the date resolver so callers parse dates against the
// same clock.
func (s *Service) Resolver() daterange.Resolver {
	return s.resolver
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	loc := cfg.Location()

	switch cfg.Provider {
	case config.ProviderAppleScript:
		return applescript.New(loc), nil
	case config.ProviderStore:
		return store.New(config.ExpandPath(cfg.StoreDir), loc), nil
	case config.ProviderCalDAV:
		opts := caldav.Options{Location: loc}
		if cfg.CalDAV != nil {
			opts.Endpoint = cfg.CalDAV.Endpoint
			opts.Username = cfg.CalDAV.Username
			opts.Password = cfg.CalDAV.Password
		}
		return caldav.New(opts), nil
	case config.ProviderICS:
		feeds := make([]icsfeed.Feed, 0, len(cfg.ICS))
		for _, f := range cfg.ICS {
			feeds = append(feeds, icsfeed.Feed{Name: f.Name, URL: f.URL})
		}
		cacheDir := ""
		if cfg.CacheDir != "" {
			cacheDir = config.ExpandPath(cfg.CacheDir)
		}
		return icsfeed.New(feeds, ics.NewFetcher(cacheDir, nil), loc), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Connect initializes the provider ahead of the first write.
func (s *Service) Connect(ctx context.Context) error {
	return s.fetcher.EnsureReady(ctx)
}

func (s *Service) resolve(opts WriteOptions) (names []string, start, end model.Date) {
	names = opts.Calendars
	if len(names) == 0 {
		names = s.cfg.Calendars
	}

	start, end = s.resolver.Range(s.cfg.StartOffsetDays, s.cfg.EndOffsetDays)
	if opts.Start != nil {
		start = *opts.Start
	}
	if opts.End != nil {
		end = *opts.End
	}
	return names, start, end
}

// Render fetches and renders the document without writing it.
func (s *Service) Render(ctx context.Context, opts WriteOptions) (string, Result, error) {
	names, start, end := s.resolve(opts)
	res := Result{Path: s.cfg.OutputPath(), Start: start, End: end}

	if end.Before(start) {
		return "", res, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	cals, err := s.fetcher.Fetch(ctx, names, start, end)
	if err != nil {
		return "", res, err
	}

	res.Calendars = len(cals)
	for _, c := range cals {
		res.EventCount += len(c.Events)
	}

	doc := s.formatter.Aggregate(cals)
	res.Bytes = len(writer.Content(doc))
	return doc, res, nil
}

// WriteCalendars renders the selected calendars for the date range and
// replaces the output file. Nothing is written when any step fails.
func (s *Service) WriteCalendars(ctx context.Context, opts WriteOptions) (Result, error) {
	doc, res, err := s.Render(ctx, opts)
	if err != nil {
		return res, err
	}

	if err := writer.Write(res.Path, doc); err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}

	appLog.Info("calendars written",
		"path", res.Path,
		"start", res.Start,
		"end", res.End,
		"calendars", res.Calendars,
		"events", res.EventCount,
	)
	return res, nil
}

// ListCalendars resolves names against the provider.
func (s *Service) ListCalendars(ctx context.Context, names []string) ([]model.Calendar, error) {
	return s.fetcher.Resolve(ctx, names)
}
