package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/studykit/study-companion/pkg/logging"
)

// DefaultTTL is how long an idle conversation survives before Redis
// expires it.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps dialog state in Redis with a sliding TTL. Every save
// refreshes the expiry, so only abandoned conversations age out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
	tracer trace.Tracer
}

// NewRedisStore creates a store over an already-connected client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("session"),
	}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// Load fetches the user's state. A missing key is not an error; the
// caller gets a fresh empty state.
func (s *RedisStore) Load(ctx context.Context, userID int64) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "session.load",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	raw, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("session.miss", true))
		return &State{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis get failed")
		return nil, fmt.Errorf("session: load user %d: %w", userID, err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupt payload should not wedge the user forever.
		s.logger.Warn("discarding corrupt session state", "user_id", userID, "error", err)
		span.RecordError(err)
		return &State{}, nil
	}
	return &state, nil
}

// Save writes the user's state and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, userID int64, state *State) error {
	ctx, span := s.tracer.Start(ctx, "session.save",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if state == nil {
		state = &State{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: marshal user %d: %w", userID, err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), payload, s.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis set failed")
		return fmt.Errorf("session: save user %d: %w", userID, err)
	}
	return nil
}
