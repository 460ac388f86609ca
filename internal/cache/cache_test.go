// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/watchlist/internal/watchlist"
)

var snapTime = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

func snapshot(runID string, scores ...int) *watchlist.Snapshot {
	snap := &watchlist.Snapshot{
		RunID:       runID,
		GeneratedAt: snapTime,
		Excluded:    map[string]int{"watched": 1},
	}
	for i, s := range scores {
		snap.Entries = append(snap.Entries, watchlist.Entry{
			Candidate: watchlist.Candidate{
				Key:          watchlist.RecordingKey{ChanID: 1000 + i, StartTime: snapTime.Add(-time.Duration(i+2) * time.Hour)},
				Title:        "show",
				ScheduledEnd: snapTime.Add(-time.Duration(i+1) * time.Hour),
			},
			Score: s,
		})
	}
	return snap
}

func TestMemory_PublishLatest(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok := m.Latest(ctx)
	assert.False(t, ok)

	first := snapshot("run-1", 50)
	require.NoError(t, m.Publish(ctx, first))
	got, ok := m.Latest(ctx)
	require.True(t, ok)
	assert.Same(t, first, got)

	second := snapshot("run-2", 70, 30)
	require.NoError(t, m.Publish(ctx, second))
	got, _ = m.Latest(ctx)
	assert.Same(t, second, got)

	// Readers holding the old snapshot keep a complete copy.
	assert.Len(t, first.Entries, 1)

	assert.Equal(t, Stats{Publishes: 2, Hits: 2, Misses: 1}, m.Stats())
}

func TestMemory_RejectsNil(t *testing.T) {
	assert.ErrorIs(t, NewMemory().Publish(context.Background(), nil), ErrNilSnapshot)
}

func TestMemory_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, snapshot("run-0", 1, 1)))

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				n := 1 + (i+j)%3
				scores := make([]int, n)
				for k := range scores {
					scores[k] = n
				}
				_ = m.Publish(ctx, snapshot("run", scores...))
			}
		}(i)
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				snap, ok := m.Latest(ctx)
				if !assert.True(t, ok) {
					return
				}
				// Every entry of a snapshot carries the snapshot's size as score.
				for _, e := range snap.Entries {
					assert.Equal(t, len(snap.Entries), e.Score)
				}
			}
		}()
	}
	wg.Wait()
}

type failingStore struct{ Memory }

func (f *failingStore) Publish(context.Context, *watchlist.Snapshot) error {
	return errors.New("mirror unavailable")
}

func TestTee_MirrorFailureDoesNotFailPublish(t *testing.T) {
	primary := NewMemory()
	mirror := NewMemory()
	tee := NewTee(zerolog.Nop(), primary, &failingStore{}, mirror)
	ctx := context.Background()

	snap := snapshot("run-1", 10)
	require.NoError(t, tee.Publish(ctx, snap))

	got, ok := tee.Latest(ctx)
	require.True(t, ok)
	assert.Same(t, snap, got)

	got, ok = mirror.Latest(ctx)
	require.True(t, ok)
	assert.Same(t, snap, got)
	assert.Equal(t, int64(1), tee.Stats().Publishes)
}

func TestTee_PrimaryFailureFailsPublish(t *testing.T) {
	tee := NewTee(zerolog.Nop(), &failingStore{}, NewMemory())
	assert.Error(t, tee.Publish(context.Background(), snapshot("run-1")))
}
