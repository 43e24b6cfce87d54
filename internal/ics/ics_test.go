package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgcal/internal/model"
)

const weeklyICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup@test
DTSTAMP:20250101T000000Z
SUMMARY:Standup
DTSTART:20250106T090000Z
DTEND:20250106T093000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20250113T090000Z
END:VEVENT
BEGIN:VEVENT
UID:standup@test
DTSTAMP:20250101T000000Z
RECURRENCE-ID:20250120T090000Z
SUMMARY:Standup (moved)
DTSTART:20250120T100000Z
DTEND:20250120T103000Z
END:VEVENT
BEGIN:VEVENT
UID:holiday@test
DTSTAMP:20250101T000000Z
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250110
DTEND;VALUE=DATE:20250111
END:VEVENT
BEGIN:VEVENT
UID:later@test
DTSTAMP:20250101T000000Z
SUMMARY:Later
DTSTART:20250301T120000Z
DTEND:20250301T130000Z
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Source{ID: "work"}, []byte(weeklyICS))
	require.NoError(t, err)
	require.Len(t, events, 4)

	base := events[0]
	assert.Equal(t, "standup@test", base.UID)
	assert.Equal(t, "Standup", base.Summary)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", base.RawRRule)
	require.Len(t, base.ExDates, 1)
	assert.True(t, base.ExDates[0].Equal(time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)))
	assert.False(t, base.AllDay)
	assert.Equal(t, "work", base.Source.ID)

	override := events[1]
	assert.True(t, override.IsOverride)
	require.NotNil(t, override.Recurrence)

	holiday := events[2]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, 10, holiday.Start.Day())
	assert.Equal(t, 11, holiday.End.Day())
}

func TestParseICSEmpty(t *testing.T) {
	_, err := ParseICS(Source{ID: "x"}, []byte("  \n"))
	assert.Error(t, err)
}

func TestExpandOccurrences(t *testing.T) {
	events, err := ParseICS(Source{ID: "work"}, []byte(weeklyICS))
	require.NoError(t, err)

	start := model.Date{Year: 2025, Month: time.January, Day: 1}
	end := model.Date{Year: 2025, Month: time.January, Day: 31}
	res, err := ExpandOccurrences(events, RangeFor(start, end, time.UTC))
	require.NoError(t, err)

	var got []string
	for _, o := range res.Occurrences {
		got = append(got, o.Summary+" "+o.Start.Format("01-02 15:04"))
	}
	assert.Equal(t, []string{
		"Standup 01-06 09:00",
		"Holiday 01-10 00:00",
		"Standup (moved) 01-20 10:00",
		"Standup 01-27 09:00",
	}, got)
	assert.Empty(t, res.TruncatedEvents)
}

func TestExpandCap(t *testing.T) {
	events := []ParsedEvent{{
		UID:      "daily",
		Summary:  "Daily",
		Start:    time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}}
	cfg := RangeFor(model.Date{Year: 2025, Month: 1, Day: 1}, model.Date{Year: 2025, Month: 1, Day: 31}, time.UTC)
	cfg.MaxOccurrencesPerEvent = 5

	res, err := ExpandOccurrences(events, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 5)
	assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestEventsPipeline(t *testing.T) {
	start := model.Date{Year: 2025, Month: time.January, Day: 6}
	end := model.Date{Year: 2025, Month: time.January, Day: 6}

	evs, err := Events(Source{ID: "work"}, [][]byte{[]byte(weeklyICS)}, start, end, time.UTC)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "Standup", evs[0].Title)
	assert.Equal(t, model.Clock{Hour: 9}, evs[0].StartTime)
	assert.Equal(t, model.Clock{Hour: 9, Minute: 30}, evs[0].EndTime)
}

func TestFetcherConditionalCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(weeklyICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "feed", URL: srv.URL + "/private/feed.ics"}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, 2, hits)
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher("", srv.Client())

	_, err := f.FetchOne(context.Background(), Source{ID: "feed", URL: srv.URL + "/secret"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")

	_, err = f.FetchOne(context.Background(), Source{ID: "feed"})
	assert.Error(t, err)
}

func TestRedactURLAndWebcal(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/path/to/private.ics?token=abcd"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
	assert.Equal(t, "https://p01-calendars.icloud.com/x.ics", fetchURL("webcal://p01-calendars.icloud.com/x.ics"))
	assert.True(t, strings.HasPrefix(Source{ID: "a", URL: "https://h/x"}.Label(), "a@https://h/"))
}
