package collection

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
)

func TestNewManager_LoadsOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Collection{testCard("base1-4", "Charizard")}))

	m := NewManager(ctx, store, nil)

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Contains("base1-4"))
}

func TestManager_Save(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(ctx, store, nil)

	res, err := m.Save(ctx, testCard("base1-4", "Charizard"))
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.False(t, res.AlreadySaved)
	assert.Equal(t, 1, res.Count)

	// Persisted
	assert.Equal(t, []string{"base1-4"}, store.Load(ctx).IDs())
}

func TestManager_SaveDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(ctx, store, nil)

	_, err := m.Save(ctx, testCard("base1-4", "Charizard"))
	require.NoError(t, err)

	res, err := m.Save(ctx, testCard("base1-4", "Charizard"))
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.True(t, res.AlreadySaved)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, m.Len())
}

func TestManager_SaveEmptyID(t *testing.T) {
	m := NewManager(context.Background(), NewMemoryStore(), nil)

	_, err := m.Save(context.Background(), card.Card{Name: "nameless"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Zero(t, m.Len())
}

func TestManager_CardsIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ctx, NewMemoryStore(), nil)
	_, err := m.Save(ctx, testCard("a-1", "A"))
	require.NoError(t, err)

	cards := m.Cards()
	cards[0].Name = "mutated"

	got, ok := m.Get("a-1")
	require.True(t, ok)
	assert.Equal(t, "A", got.Name)
}

func TestManager_SeesOtherWriters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := NewManager(ctx, store, nil)
	b := NewManager(ctx, store, nil)

	_, err := a.Save(ctx, testCard("a-1", "A"))
	require.NoError(t, err)

	// b saves after a without reloading; a's card must survive
	_, err = b.Save(ctx, testCard("b-2", "B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a-1", "b-2"}, store.Load(ctx).IDs())
	assert.Equal(t, []string{"a-1", "b-2"}, b.Cards().IDs())

	require.NoError(t, a.Reload(ctx))
	assert.Equal(t, 2, a.Len())
}

func TestManager_StoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ctx, NewKVStore(failingKV{}, DefaultKey, nil), nil)

	_, err := m.Save(ctx, testCard("a-1", "A"))
	require.Error(t, err)
	assert.Zero(t, m.Len())
	assert.False(t, m.Contains("a-1"))
}

func TestManager_SaveKeepsCollectionOnReadFailure(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: NewMemoryKV()}
	store := NewKVStore(kv, DefaultKey, nil)
	m := NewManager(ctx, store, nil)

	for _, id := range []string{"a-1", "b-2", "c-3"} {
		_, err := m.Save(ctx, testCard(id, id))
		require.NoError(t, err)
	}

	kv.failReads = 1
	res, err := m.Save(ctx, testCard("d-4", "D"))
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, []string{"a-1", "b-2", "c-3"}, store.Load(ctx).IDs())
	assert.Equal(t, []string{"a-1", "b-2", "c-3"}, m.Cards().IDs())

	// The next save goes through once reads recover
	res, err = m.Save(ctx, testCard("d-4", "D"))
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, 4, res.Count)
}

func TestManager_ReloadKeepsCardsOnReadFailure(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: NewMemoryKV()}
	m := NewManager(ctx, NewKVStore(kv, DefaultKey, nil), nil)
	_, err := m.Save(ctx, testCard("a-1", "A"))
	require.NoError(t, err)

	kv.failReads = 1
	require.Error(t, m.Reload(ctx))
	assert.True(t, m.Contains("a-1"))

	require.NoError(t, m.Reload(ctx))
	assert.True(t, m.Contains("a-1"))
}

func TestManager_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(ctx, store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the goroutines race on the same ID
			id := fmt.Sprintf("card-%d", i%10)
			_, err := m.Save(ctx, testCard(id, id))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, m.Len())
	assert.Len(t, store.Load(ctx), 10)
}
