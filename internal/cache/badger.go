// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/ManuGH/watchlist/internal/watchlist"
)

var latestKey = []byte("snapshot:latest")

// Disk keeps the last published snapshot in an embedded Badger database so
// a restarted daemon can serve the watch list before its first refresh.
type Disk struct {
	db     *badger.DB
	logger zerolog.Logger
	stats  struct {
		publishes atomic.Int64
		hits      atomic.Int64
		misses    atomic.Int64
	}
}

// OpenDisk opens (or creates) the snapshot database in dir. An empty dir
// keeps everything in memory.
func OpenDisk(dir string, logger zerolog.Logger) (*Disk, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	return &Disk{db: db, logger: logger}, nil
}

func (d *Disk) Publish(_ context.Context, snap *watchlist.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(latestKey, buf)
	}); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	d.stats.publishes.Add(1)
	return nil
}

func (d *Disk) Latest(context.Context) (*watchlist.Snapshot, bool) {
	var snap watchlist.Snapshot
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			d.logger.Warn().Err(err).Msg("read persisted snapshot failed")
		}
		d.stats.misses.Add(1)
		return nil, false
	}
	d.stats.hits.Add(1)
	return &snap, true
}

func (d *Disk) Stats() Stats {
	return Stats{
		Publishes: d.stats.publishes.Load(),
		Hits:      d.stats.hits.Load(),
		Misses:    d.stats.misses.Load(),
	}
}

func (d *Disk) Close() error {
	return d.db.Close()
}

// Warm copies the latest snapshot of src into dst. It reports whether a
// snapshot was copied.
func Warm(ctx context.Context, dst, src Store) (bool, error) {
	snap, ok := src.Latest(ctx)
	if !ok {
		return false, nil
	}
	if err := dst.Publish(ctx, snap); err != nil {
		return false, err
	}
	return true, nil
}
