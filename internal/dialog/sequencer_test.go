package dialog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerRunsUserTurnsInOrder(t *testing.T) {
	seq := NewSequencer(nil)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		seq.Enqueue(42, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	seq.Wait()

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestSequencerIsolatesUsers(t *testing.T) {
	seq := NewSequencer(nil)

	var mu sync.Mutex
	counts := map[int64]int{}
	for user := int64(1); user <= 4; user++ {
		user := user
		for i := 0; i < 20; i++ {
			seq.Enqueue(user, func() {
				mu.Lock()
				counts[user]++
				mu.Unlock()
			})
		}
	}
	seq.Wait()

	for user := int64(1); user <= 4; user++ {
		assert.Equal(t, 20, counts[user], "user %d", user)
	}
}

func TestSequencerWaitOnIdle(t *testing.T) {
	seq := NewSequencer(nil)
	seq.Wait()
}
