// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDisk(t *testing.T, dir string) *Disk {
	t.Helper()
	d, err := OpenDisk(dir, zerolog.Nop())
	require.NoError(t, err)
	return d
}

func TestDisk_PublishLatest(t *testing.T) {
	d := openDisk(t, "")
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()

	_, ok := d.Latest(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, d.Publish(ctx, nil), ErrNilSnapshot)

	want := snapshot("run-1", 70, 30)
	require.NoError(t, d.Publish(ctx, want))

	got, ok := d.Latest(ctx)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Stats{Publishes: 1, Hits: 1, Misses: 1}, d.Stats())
}

func TestDisk_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	d := openDisk(t, dir)
	require.NoError(t, d.Publish(ctx, snapshot("run-1", 50)))
	require.NoError(t, d.Publish(ctx, snapshot("run-2", 60)))
	require.NoError(t, d.Close())

	d = openDisk(t, dir)
	t.Cleanup(func() { _ = d.Close() })

	mem := NewMemory()
	warmed, err := Warm(ctx, mem, d)
	require.NoError(t, err)
	assert.True(t, warmed)

	got, ok := mem.Latest(ctx)
	require.True(t, ok)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 60, got.Entries[0].Score)
}

func TestWarm_Empty(t *testing.T) {
	d := openDisk(t, "")
	t.Cleanup(func() { _ = d.Close() })

	warmed, err := Warm(context.Background(), NewMemory(), d)
	require.NoError(t, err)
	assert.False(t, warmed)
}
