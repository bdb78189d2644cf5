package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBlocksRapidCommands(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	base := time.Now()
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow(42))
	assert.False(t, rl.Allow(42))

	rl.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	assert.False(t, rl.Allow(42))

	rl.now = func() time.Time { return base.Add(time.Second) }
	assert.True(t, rl.Allow(42))
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	base := time.Now()
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(2))
	assert.False(t, rl.Allow(1))
}

func TestRateLimiterDeniedAttemptDoesNotExtendWindow(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	base := time.Now()
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow(42))
	rl.now = func() time.Time { return base.Add(900 * time.Millisecond) }
	assert.False(t, rl.Allow(42))
	rl.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	assert.True(t, rl.Allow(42))
}
