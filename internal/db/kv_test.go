package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) *KV {
	t.Helper()
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewKV(database)
}

func TestKV_GetMissing(t *testing.T) {
	kv := setupKV(t)

	value, found, err := kv.GetValue(context.Background(), "savedCards")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestKV_SetThenGet(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.SetValue(ctx, "savedCards", `[{"id":"base1-4"}]`))

	value, found, err := kv.GetValue(ctx, "savedCards")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"base1-4"}]`, value)
}

func TestKV_SetOverwrites(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.SetValue(ctx, "k", "first"))
	require.NoError(t, kv.SetValue(ctx, "k", "second"))

	value, _, err := kv.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	var count int
	require.NoError(t, kv.db.QueryRow("SELECT COUNT(*) FROM kv WHERE key = 'k'").Scan(&count))
	assert.Equal(t, 1, count, "overwrite must not add a second row")
}

func TestKV_KeysAreIndependent(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.SetValue(ctx, "a", "1"))
	require.NoError(t, kv.SetValue(ctx, "b", "2"))

	a, _, err := kv.GetValue(ctx, "a")
	require.NoError(t, err)
	b, _, err := kv.GetValue(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db1, err := Init(dir)
	require.NoError(t, err)
	require.NoError(t, NewKV(db1).SetValue(ctx, "k", "kept"))
	db1.Close()

	db2, err := Init(dir)
	require.NoError(t, err)
	defer db2.Close()

	value, found, err := NewKV(db2).GetValue(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept", value)
}
