package pebble

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

// meta count key as the conflict ledger writes it.
var countKey = []byte{1, 1}

func TestGetReturnsCopy(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	require.NoError(t, store.Put(countKey, []byte{7}))

	value, err := store.Get(countKey)
	require.NoError(t, err)
	value[0] = 9

	again, err := store.Get(countKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, again)

	require.NoError(t, store.Delete(countKey))
	_, err = store.Get(countKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClosedStore(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get(countKey)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Put(countKey, []byte{1}), ErrClosed)
	assert.ErrorIs(t, store.Delete(countKey), ErrClosed)

	start, end := ballotRange(uint128.From64(1))
	_, err = store.NewIterator(start, end)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	id := uint128.From64(1)

	store, err := Open(path, Options{})
	require.NoError(t, err)
	batch := store.NewBatch()
	require.NoError(t, batch.Put(countKey, []byte{1}))
	require.NoError(t, batch.Put(ballotKey(id, 0), []byte("first")))
	require.NoError(t, batch.Put(ballotKey(id, 1), []byte("second")))
	require.NoError(t, batch.Commit())
	require.NoError(t, batch.Close())
	require.NoError(t, store.Close())

	reopened, err := Open(path, Options{CacheSize: 8 * mb, MemTableSize: 4 * mb})
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	count, err := reopened.Get(countKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, count)

	start, end := ballotRange(id)
	assert.Equal(t, []string{"first", "second"}, scan(t, reopened, start, end))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("", Options{})
	require.Error(t, err)
}

func TestInMemoryStoreIsFresh(t *testing.T) {
	first, err := NewKVStore()
	require.NoError(t, err)
	require.NoError(t, first.Put(countKey, []byte{1}))
	require.NoError(t, first.Close())

	second, err := NewKVStore()
	require.NoError(t, err)
	defer second.Close() //nolint:errcheck

	_, err = second.Get(countKey)
	assert.ErrorIs(t, err, ErrNotFound)
}
