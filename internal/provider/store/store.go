// Package store reads calendars straight from the Calendar.app data
// directory (~/Library/Calendars).
//
// Layout, as written by Calendar.app for CalDAV/iCloud/local accounts:
//
//	~/Library/Calendars/<account>.caldav/<uuid>.calendar/Info.plist
//	~/Library/Calendars/<account>.caldav/<uuid>.calendar/Events/*.ics
//
// Calendar bundles may also sit directly under the root.
package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"howett.net/plist"

	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/provider"
)

const calendarSuffix = ".calendar"

// info is the subset of a calendar bundle's Info.plist we read.
type info struct {
	Title string `plist:"Title"`
	Key   string `plist:"Key"`
}

// Provider reads calendar bundles under Root.
type Provider struct {
	root     string
	location *time.Location

	// calendar ID -> bundle directory, filled by Connect.
	bundles map[string]string
	cals    []model.Calendar
}

var _ provider.Provider = (*Provider)(nil)

// New creates a store provider rooted at root (usually
// ~/Library/Calendars). loc is the display zone; nil means time.Local.
func New(root string, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{root: root, location: loc}
}

func (p *Provider) Name() string { return "store" }

// Connect scans the store once and indexes every calendar bundle.
func (p *Provider) Connect(_ context.Context) error {
	if p.bundles != nil {
		return nil
	}

	st, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("%w: calendar store %s: %v", provider.ErrUnavailable, p.root, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: calendar store %s is not a directory", provider.ErrUnavailable, p.root)
	}

	bundles := make(map[string]string)
	cals := make([]model.Calendar, 0)

	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || !strings.HasSuffix(d.Name(), calendarSuffix) {
			return nil
		}

		cal, ok, err := readBundle(path)
		if err != nil {
			return err
		}
		if ok {
			bundles[cal.ID] = path
			cals = append(cals, cal)
		}
		// Bundles do not nest.
		return filepath.SkipDir
	})
	if err != nil {
		return fmt.Errorf("scan calendar store: %w", err)
	}

	sort.SliceStable(cals, func(i, j int) bool { return bundles[cals[i].ID] < bundles[cals[j].ID] })

	p.bundles = bundles
	p.cals = cals
	appLog.Debug("calendar store indexed", "root", p.root, "calendar_count", len(cals))
	return nil
}

// readBundle reads Info.plist. Bundles without one (or without a title) are
// skipped; Calendar.app leaves such directories behind for deleted
// calendars.
func readBundle(dir string) (model.Calendar, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, "Info.plist"))
	if os.IsNotExist(err) {
		return model.Calendar{}, false, nil
	}
	if err != nil {
		return model.Calendar{}, false, err
	}

	var inf info
	if _, err := plist.Unmarshal(data, &inf); err != nil {
		return model.Calendar{}, false, fmt.Errorf("parse %s: %w", filepath.Join(dir, "Info.plist"), err)
	}
	if inf.Title == "" {
		return model.Calendar{}, false, nil
	}

	id := inf.Key
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(dir), calendarSuffix)
	}
	return model.Calendar{ID: id, Name: inf.Title}, true, nil
}

func (p *Provider) Calendars(_ context.Context, names []string) ([]model.Calendar, error) {
	return provider.FilterByName(p.cals, names), nil
}

func (p *Provider) Events(_ context.Context, id string, start, end model.Date) ([]model.Event, error) {
	dir, ok := p.bundles[id]
	if !ok {
		return nil, fmt.Errorf("unknown calendar id %q", id)
	}

	files, err := filepath.Glob(filepath.Join(dir, "Events", "*.ics"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	bodies := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		bodies = append(bodies, data)
	}

	return ics.Events(ics.Source{ID: id}, bodies, start, end, p.location)
}
