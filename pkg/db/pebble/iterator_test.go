package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/pkg/db"
)

func TestBallotScan(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "neighbouring_ids", fn: testScanNeighbouringIDs},
		{name: "max_id", fn: testScanMaxID},
		{name: "unknown_id", fn: testScanUnknownID},
		{name: "value_before_next", fn: testValueBeforeNext},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

// scan collects the values of every key in [start, end).
func scan(t *testing.T, store db.KVStore, start, end []byte) []string {
	t.Helper()
	iter, err := store.NewIterator(start, end)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	var values []string
	for iter.Next() {
		value, err := iter.Value()
		require.NoError(t, err)
		values = append(values, string(value))
	}
	return values
}

func testScanNeighbouringIDs(t *testing.T, store db.KVStore) {
	one, two, three := uint128.From64(1), uint128.From64(2), uint128.From64(3)

	// Sequence 256 sorts after 2 only with a big-endian suffix.
	require.NoError(t, store.Put(ballotKey(two, 256), []byte("two-256")))
	require.NoError(t, store.Put(ballotKey(two, 0), []byte("two-0")))
	require.NoError(t, store.Put(ballotKey(two, 2), []byte("two-2")))
	require.NoError(t, store.Put(ballotKey(one, 0), []byte("one-0")))
	require.NoError(t, store.Put(ballotKey(three, 0), []byte("three-0")))
	require.NoError(t, store.Put(idKey(voterPrefix, two), []byte("voter")))

	start, end := ballotRange(two)
	assert.Equal(t, []string{"two-0", "two-2", "two-256"}, scan(t, store, start, end))

	start, end = ballotRange(one)
	assert.Equal(t, []string{"one-0"}, scan(t, store, start, end))
}

func testScanMaxID(t *testing.T, store db.KVStore) {
	last := uint128.Max
	prev := last.Sub64(1)

	require.NoError(t, store.Put(ballotKey(prev, 0), []byte("prev")))
	require.NoError(t, store.Put(ballotKey(last, 0), []byte("last-0")))
	require.NoError(t, store.Put(ballotKey(last, 1), []byte("last-1")))
	require.NoError(t, store.Put(idKey(voterPrefix, uint128.Zero), []byte("voter")))

	start, end := ballotRange(last)
	assert.Equal(t, []byte{ballotPrefix + 1}, end)
	assert.Equal(t, []string{"last-0", "last-1"}, scan(t, store, start, end))

	start, end = ballotRange(prev)
	assert.Equal(t, []string{"prev"}, scan(t, store, start, end))
}

func testScanUnknownID(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put(ballotKey(uint128.From64(1), 0), []byte("one")))

	start, end := ballotRange(uint128.From64(7))
	assert.Empty(t, scan(t, store, start, end))

	start, end = ballotRange(uint128.Zero)
	assert.Empty(t, scan(t, store, start, end))
}

func testValueBeforeNext(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put(ballotKey(uint128.From64(1), 0), []byte("one")))

	start, end := ballotRange(uint128.From64(1))
	iter, err := store.NewIterator(start, end)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	assert.False(t, iter.Valid())
	_, err = iter.Value()
	assert.ErrorIs(t, err, ErrIteratorInvalid)

	require.True(t, iter.Next())
	assert.Equal(t, ballotKey(uint128.From64(1), 0), iter.Key())
	require.False(t, iter.Next())
	_, err = iter.Value()
	assert.ErrorIs(t, err, ErrIteratorInvalid)
}
