package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ccdb/internal/model"
)

var _ model.Clock = (*DeterministicClock)(nil)

func TestDeterministicClock_NowAdvancesOneSecond(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Zero(t, clock.Current())

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, Epoch.Add(time.Second), first)
	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, At(2), second)
	assert.Equal(t, int64(2), clock.Current())
	assert.Equal(t, time.UTC, second.Location())
}

func TestDeterministicClock_ResetReplaysTimestamps(t *testing.T) {
	clock := NewDeterministicClock()
	var before []time.Time
	for range 3 {
		before = append(before, clock.Now())
	}

	clock.Reset()
	assert.Zero(t, clock.Current())
	for i := range 3 {
		assert.Equal(t, before[i], clock.Now())
	}
}

func TestDeterministicClock_TwoClocksAgree(t *testing.T) {
	a, b := NewDeterministicClock(), NewDeterministicClock()
	for range 50 {
		require.True(t, a.Now().Equal(b.Now()))
	}
}

func TestDeterministicClock_ConcurrentTicksAreUnique(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, perWorker = 20, 50

	ticks := make([][]int64, workers)
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for range perWorker {
				ticks[w] = append(ticks[w], clock.Next())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]bool, workers*perWorker)
	for _, list := range ticks {
		for _, tick := range list {
			require.False(t, seen[tick], "tick %d handed out twice", tick)
			seen[tick] = true
		}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), clock.Current())
}
