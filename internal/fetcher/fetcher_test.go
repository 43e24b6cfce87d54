package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgcal/internal/model"
	"orgcal/internal/provider/providertest"
)

var (
	rangeStart = model.Date{Year: 2025, Month: time.January, Day: 1}
	rangeEnd   = model.Date{Year: 2025, Month: time.January, Day: 31}
)

func event(title string, day, hour int) model.Event {
	d := model.Date{Year: 2025, Month: time.January, Day: day}
	return model.Event{
		Title:     title,
		StartDate: d,
		StartTime: model.Clock{Hour: hour},
		EndDate:   d,
		EndTime:   model.Clock{Hour: hour + 1},
	}
}

func newFake() *providertest.Fake {
	return &providertest.Fake{
		Cals: []model.Calendar{
			{ID: "home-id", Name: "Home"},
			{ID: "work-id", Name: "Work"},
		},
		ByID: map[string][]model.Event{
			"work-id": {
				event("Retro", 10, 15),
				event("Standup", 6, 9),
				event("Old", 31, 9),
				{Title: "Outside", StartDate: model.Date{Year: 2025, Month: time.February, Day: 1}},
			},
		},
	}
}

func TestFetchOrdersByRequestAndFilters(t *testing.T) {
	fake := newFake()
	f := New(fake, MissingSkip)

	got, err := f.Fetch(context.Background(), []string{"Work", "Home"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Work", got[0].Calendar.Name)
	assert.Equal(t, "Home", got[1].Calendar.Name)
	assert.Empty(t, got[1].Events)

	var titles []string
	for _, ev := range got[0].Events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"Standup", "Retro", "Old"}, titles)
	assert.Equal(t, []string{"work-id", "home-id"}, fake.EventCalls)
}

func TestFetchConnectsOnce(t *testing.T) {
	fake := newFake()
	f := New(fake, "")

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), []string{"Work"}, rangeStart, rangeEnd)
		require.NoError(t, err)
	}
	require.NoError(t, f.EnsureReady(context.Background()))

	assert.Equal(t, 1, fake.ConnectCalls)
}

func TestEnsureReadyRetriesAfterFailure(t *testing.T) {
	fake := newFake()
	fake.ConnectErr = errors.New("no calendar app")
	f := New(fake, MissingSkip)

	require.Error(t, f.EnsureReady(context.Background()))
	fake.ConnectErr = nil
	require.NoError(t, f.EnsureReady(context.Background()))
	require.NoError(t, f.EnsureReady(context.Background()))

	assert.Equal(t, 2, fake.ConnectCalls)
}

func TestFetchEmptyNamesSkipsProvider(t *testing.T) {
	fake := newFake()
	f := New(fake, MissingSkip)

	got, err := f.Fetch(context.Background(), nil, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fake.ConnectCalls)
}

func TestFetchMissingPolicies(t *testing.T) {
	t.Run("skip", func(t *testing.T) {
		f := New(newFake(), MissingSkip)
		got, err := f.Fetch(context.Background(), []string{"Nope", "Home"}, rangeStart, rangeEnd)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Home", got[0].Calendar.Name)
	})

	t.Run("fail", func(t *testing.T) {
		f := New(newFake(), MissingFail)
		_, err := f.Fetch(context.Background(), []string{"Home", "Nope"}, rangeStart, rangeEnd)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCalendarNotFound))
		assert.Contains(t, err.Error(), `"Nope"`)
	})
}

func TestFetchDedupesNames(t *testing.T) {
	fake := newFake()
	f := New(fake, MissingSkip)

	got, err := f.Fetch(context.Background(), []string{"Home", "Home"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"home-id"}, fake.EventCalls)
}

func TestFetchProviderErrorsAbort(t *testing.T) {
	boom := errors.New("boom")

	t.Run("connect", func(t *testing.T) {
		fake := newFake()
		fake.ConnectErr = boom
		_, err := New(fake, MissingSkip).Fetch(context.Background(), []string{"Work"}, rangeStart, rangeEnd)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("calendars", func(t *testing.T) {
		fake := newFake()
		fake.CalendarsErr = boom
		_, err := New(fake, MissingSkip).Fetch(context.Background(), []string{"Work"}, rangeStart, rangeEnd)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("events", func(t *testing.T) {
		fake := newFake()
		fake.EventsErr = map[string]error{"home-id": boom}
		got, err := New(fake, MissingSkip).Fetch(context.Background(), []string{"Work", "Home"}, rangeStart, rangeEnd)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, got)
	})
}

func TestFetchDuplicateDisplayNames(t *testing.T) {
	fake := newFake()
	fake.Cals = append(fake.Cals, model.Calendar{ID: "work-2", Name: "Work"})

	got, err := New(fake, MissingSkip).Fetch(context.Background(), []string{"Work"}, rangeStart, rangeEnd)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "work-id", got[0].Calendar.ID)
	assert.Equal(t, "work-2", got[1].Calendar.ID)
}
