package tablestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristinelam/gotransit"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tables.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func smallTable(t *testing.T) *gotransit.Table {
	t.Helper()
	tb, err := gotransit.BuildTable(0.07, 0.13, 4, 8)
	require.NoError(t, err)
	return tb
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	tb := smallTable(t)

	_, err := s.Load(ctx, tb.Key())
	assert.ErrorIs(t, err, gotransit.ErrTableNotFound)

	require.NoError(t, s.Save(ctx, tb))
	got, err := s.Load(ctx, tb.Key())
	require.NoError(t, err)
	assert.Equal(t, tb, got)

	// replacing keeps a single row
	require.NoError(t, s.Save(ctx, tb))
	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tb.Key(), entries[0].Key)
	assert.Positive(t, entries[0].Bytes)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tables.db")
	tb := smallTable(t)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, tb))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	got, err := s.Load(ctx, tb.Key())
	require.NoError(t, err)
	assert.Equal(t, tb.LE, got.LE)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	tb := smallTable(t)

	require.NoError(t, s.Save(ctx, tb))
	require.NoError(t, s.Delete(ctx, tb.Key()))
	assert.ErrorIs(t, s.Delete(ctx, tb.Key()), gotransit.ErrTableNotFound)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestModelUsesStore(t *testing.T) {
	s := openStore(t)

	cfg := gotransit.DefaultConfig()
	cfg.Interpolate = true
	cfg.NK, cfg.NZ = 8, 16
	cfg.Tables = s

	m, err := gotransit.New(cfg)
	require.NoError(t, err)
	built, err := m.Table()
	require.NoError(t, err)

	stored, err := s.Load(context.Background(), built.Key())
	require.NoError(t, err)
	assert.Equal(t, built, stored)
}
