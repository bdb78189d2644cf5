package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studykit/study-companion/internal/calendar"
)

type stubSource struct {
	events []calendar.Event
	err    error

	from time.Time
	to   time.Time
	max  int64
}

func (s *stubSource) ListEvents(_ context.Context, from, to time.Time, max int64) ([]calendar.Event, error) {
	s.from, s.to, s.max = from, to, max
	return s.events, s.err
}

func TestSearcherDegradesOnFetchError(t *testing.T) {
	source := &stubSource{err: errors.New("token expired")}
	searcher := NewSearcher(source)

	result := searcher.Search(context.Background(), "Physics")

	assert.False(t, result.Found)
	require.NotNil(t, result.Events)
	assert.Empty(t, result.Events)
}

func TestSearcherRanksFetchedEvents(t *testing.T) {
	source := &stubSource{events: []calendar.Event{
		{ID: "e1", Summary: "Physics Final Exam", StartDateTime: "2026-09-10T09:00:00Z"},
		{ID: "e2", Summary: "Staff meeting"},
	}}
	searcher := NewSearcher(source)

	result := searcher.Search(context.Background(), "Physics")

	require.True(t, result.Found)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "e1", result.Events[0].Event.ID)
}

func TestSearcherWindowDefaults(t *testing.T) {
	source := &stubSource{}
	searcher := NewSearcher(source)

	searcher.Search(context.Background(), "Physics")

	assert.Equal(t, 90*24*time.Hour, source.to.Sub(source.from))
	assert.Equal(t, int64(200), source.max)
}

func TestSearcherWindowOptions(t *testing.T) {
	source := &stubSource{}
	searcher := NewSearcher(source, WithLookaheadDays(30), WithMaxResults(50))

	searcher.Search(context.Background(), "Physics")

	assert.Equal(t, 30*24*time.Hour, source.to.Sub(source.from))
	assert.Equal(t, int64(50), source.max)
}

func TestNewSearcherPanicsOnNilSource(t *testing.T) {
	assert.Panics(t, func() { NewSearcher(nil) })
}
