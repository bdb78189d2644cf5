package match

import (
	"context"
	"time"

	"github.com/studykit/study-companion/internal/calendar"
	"github.com/studykit/study-companion/pkg/logging"
)

// EventSource lists calendar events over a time window.
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time, max int64) ([]calendar.Event, error)
}

// Searcher fetches upcoming events and runs Match over them. A fetch
// failure (auth or transport) degrades to an empty not-found result so
// the dialog controller always sees the same contract.
type Searcher struct {
	source     EventSource
	lookahead  time.Duration
	maxResults int64
	logger     *logging.Logger
	now        func() time.Time
}

// SearcherOption customizes the searcher.
type SearcherOption func(*Searcher)

// WithLookaheadDays sets how far ahead to search.
func WithLookaheadDays(days int) SearcherOption {
	return func(s *Searcher) {
		if days > 0 {
			s.lookahead = time.Duration(days) * 24 * time.Hour
		}
	}
}

// WithMaxResults caps how many events are fetched per search.
func WithMaxResults(max int64) SearcherOption {
	return func(s *Searcher) {
		if max > 0 {
			s.maxResults = max
		}
	}
}

// WithSearcherLogger sets the logger.
func WithSearcherLogger(logger *logging.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSearcher creates a searcher over the given event source.
func NewSearcher(source EventSource, opts ...SearcherOption) *Searcher {
	if source == nil {
		panic("match: event source cannot be nil")
	}
	s := &Searcher{
		source:     source,
		lookahead:  90 * 24 * time.Hour,
		maxResults: 200,
		logger:     logging.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search fetches upcoming events and ranks them against the subject.
func (s *Searcher) Search(ctx context.Context, subject string) SearchResult {
	from := s.now().UTC()
	events, err := s.source.ListEvents(ctx, from, from.Add(s.lookahead), s.maxResults)
	if err != nil {
		s.logger.Error("calendar fetch failed, degrading to no match", "error", err, "subject", subject)
		return SearchResult{Found: false, Events: []Candidate{}}
	}

	result := Match(subject, events)
	s.logger.Info("calendar search complete", "subject", subject, "fetched", len(events), "candidates", len(result.Events))
	return result
}
