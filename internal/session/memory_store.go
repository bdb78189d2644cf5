package session

import (
	"context"
	"sync"
	"time"

	"github.com/studykit/study-companion/internal/match"
)

// MemoryStore is the in-process fallback used when Redis is not
// configured. State is lost on restart, which matches how a single-user
// development bot is actually run.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with the given TTL. A
// background sweep removes expired conversations once a minute.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := s.now()
		s.mu.Lock()
		for id, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}

// Load returns a copy of the user's state, or a fresh one.
func (s *MemoryStore) Load(_ context.Context, userID int64) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || s.now().After(e.expiresAt) {
		return &State{}, nil
	}
	copied := e.state
	copied.Candidates = append([]match.Candidate(nil), e.state.Candidates...)
	return &copied, nil
}

// Save stores the user's state and refreshes its expiry.
func (s *MemoryStore) Save(_ context.Context, userID int64, state *State) error {
	if state == nil {
		state = &State{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *state
	stored.Candidates = append([]match.Candidate(nil), state.Candidates...)
	s.entries[userID] = memoryEntry{state: stored, expiresAt: s.now().Add(s.ttl)}
	return nil
}
