// SPDX-License-Identifier: MIT

// Package cache holds the published watch list so readers never observe a
// half-built ranking.
package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ManuGH/watchlist/internal/watchlist"
)

// Store publishes and serves watch list snapshots.
type Store interface {
	// Publish replaces the current snapshot as a whole.
	Publish(ctx context.Context, snap *watchlist.Snapshot) error
	// Latest returns the current snapshot, or false if none was published yet.
	Latest(ctx context.Context) (*watchlist.Snapshot, bool)
	// Stats returns store statistics.
	Stats() Stats
}

// Stats holds snapshot store counters.
type Stats struct {
	Publishes int64 // successful Publish calls
	Hits      int64 // Latest calls that found a snapshot
	Misses    int64 // Latest calls before the first publish, or failed reads
}

var ErrNilSnapshot = errors.New("nil snapshot")

// Memory keeps the current snapshot behind an atomic pointer.
type Memory struct {
	current atomic.Pointer[watchlist.Snapshot]
	stats   struct {
		publishes atomic.Int64
		hits      atomic.Int64
		misses    atomic.Int64
	}
}

// NewMemory creates an empty in-process snapshot store.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish swaps in snap. The previous snapshot stays valid for readers that hold it.
func (m *Memory) Publish(_ context.Context, snap *watchlist.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	m.current.Store(snap)
	m.stats.publishes.Add(1)
	return nil
}

// Latest returns the current snapshot.
func (m *Memory) Latest(context.Context) (*watchlist.Snapshot, bool) {
	snap := m.current.Load()
	if snap == nil {
		m.stats.misses.Add(1)
		return nil, false
	}
	m.stats.hits.Add(1)
	return snap, true
}

// Stats returns store statistics.
func (m *Memory) Stats() Stats {
	return Stats{
		Publishes: m.stats.publishes.Load(),
		Hits:      m.stats.hits.Load(),
		Misses:    m.stats.misses.Load(),
	}
}

// Tee publishes to a primary store and mirrors to secondaries. Reads are
// served by the primary. Mirror failures are logged and do not fail Publish.
type Tee struct {
	primary Store
	mirrors []Store
	logger  zerolog.Logger
}

// NewTee creates a store that serves from primary and copies to mirrors.
func NewTee(logger zerolog.Logger, primary Store, mirrors ...Store) *Tee {
	return &Tee{primary: primary, mirrors: mirrors, logger: logger}
}

func (t *Tee) Publish(ctx context.Context, snap *watchlist.Snapshot) error {
	if err := t.primary.Publish(ctx, snap); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Publish(ctx, snap); err != nil {
			t.logger.Warn().Err(err).Str("run_id", snap.RunID).Msg("snapshot mirror publish failed")
		}
	}
	return nil
}

func (t *Tee) Latest(ctx context.Context) (*watchlist.Snapshot, bool) {
	return t.primary.Latest(ctx)
}

func (t *Tee) Stats() Stats {
	return t.primary.Stats()
}
