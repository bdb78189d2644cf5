package dialog

import (
	"sync"

	"github.com/google/uuid"

	"github.com/studykit/study-companion/pkg/logging"
)

// Sequencer runs each user's turns strictly in arrival order while
// different users proceed in parallel. Enqueue never blocks; a drain
// goroutine per active user works through that user's queue and exits
// when it empties.
type Sequencer struct {
	mu      sync.Mutex
	queues  map[int64][]turnJob
	running map[int64]bool
	wg      sync.WaitGroup
	logger  *logging.Logger
}

type turnJob struct {
	id string
	fn func()
}

// NewSequencer creates an empty sequencer.
func NewSequencer(logger *logging.Logger) *Sequencer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sequencer{
		queues:  make(map[int64][]turnJob),
		running: make(map[int64]bool),
		logger:  logger,
	}
}

// Enqueue schedules fn as the user's next turn.
func (s *Sequencer) Enqueue(userID int64, fn func()) {
	job := turnJob{id: uuid.NewString(), fn: fn}

	s.mu.Lock()
	s.queues[userID] = append(s.queues[userID], job)
	depth := len(s.queues[userID])
	if !s.running[userID] {
		s.running[userID] = true
		s.wg.Add(1)
		go s.drain(userID)
	}
	s.mu.Unlock()

	s.logger.Debug("turn enqueued", "job_id", job.id, "user_id", userID, "queue_depth", depth)
}

func (s *Sequencer) drain(userID int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		queue := s.queues[userID]
		if len(queue) == 0 {
			s.running[userID] = false
			delete(s.queues, userID)
			s.mu.Unlock()
			return
		}
		job := queue[0]
		s.queues[userID] = queue[1:]
		s.mu.Unlock()

		job.fn()
		s.logger.Debug("turn finished", "job_id", job.id, "user_id", userID)
	}
}

// Wait blocks until every queued turn has run. Used during shutdown.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
