package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/internal/conflict/conflicttest"
	"github.com/eigerco/arbiter/pkg/db"
	"github.com/eigerco/arbiter/pkg/db/pebble"
)

func newTestDB(t *testing.T) *pebble.KVStore {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		err := kv.Close()
		require.NoError(t, err, "failed to close db")
	})
	return kv
}

func TestRegistryWithConflictStore(t *testing.T) {
	conflicttest.Run(t, func(t *testing.T) conflict.Ledger {
		return NewConflicts(newTestDB(t))
	})
}

func TestConflictsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	authorities := conflict.NewAuthorities(conflicttest.Authority)

	kv, err := pebble.Open(path, pebble.Options{})
	require.NoError(t, err)
	r := conflict.NewRegistry(NewConflicts(kv), authorities)
	cid := conflicttest.Create(t, r, 42)
	conflicttest.CastAll(t, r, cid, true, false, true)
	fate, err := r.CloseConflict(conflicttest.Authority, cid)
	require.NoError(t, err)
	require.True(t, fate)
	open := conflicttest.Create(t, r, 43)
	require.NoError(t, r.Vote("kurt.near", open, false))
	rootBefore, err := r.Root()
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv, err = pebble.Open(path, pebble.Options{})
	require.NoError(t, err)
	defer kv.Close() //nolint:errcheck
	r = conflict.NewRegistry(NewConflicts(kv), authorities)

	count, err := r.ConflictCount()
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(2), count)

	votes, err := r.Votes(cid)
	require.NoError(t, err)
	assert.Equal(t, []conflict.Ballot{
		{Voter: "voter-0", Choice: true},
		{Voter: "voter-1", Choice: false},
		{Voter: "voter-2", Choice: true},
	}, votes)

	_, err = r.CloseConflict(conflicttest.Authority, cid)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)
	err = r.Vote("kurt.near", open, true)
	assert.ErrorIs(t, err, conflict.ErrDuplicateVote)

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{Valid: uint128.From64(1)}, counters)

	rootAfter, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, rootBefore, rootAfter)
}

func TestConflictsMatchMemoryLedgerRoot(t *testing.T) {
	changes := []conflict.Change{
		conflict.Created{ID: uint128.From64(1), Proposal: uint128.From64(9)},
		conflict.BallotCast{ID: uint128.From64(1), Ballot: conflict.Ballot{Voter: "a", Choice: true}},
		conflict.BallotCast{ID: uint128.From64(1), Ballot: conflict.Ballot{Voter: "b", Choice: false}},
		conflict.Resolved{ID: uint128.From64(1), Resolution: conflict.Valid},
	}

	mem := conflict.NewMemoryLedger()
	stored := NewConflicts(newTestDB(t))
	for _, ch := range changes {
		require.NoError(t, mem.Apply(ch))
		require.NoError(t, stored.Apply(ch))
	}

	memRoot, err := mem.Root()
	require.NoError(t, err)
	storedRoot, err := stored.Root()
	require.NoError(t, err)
	assert.Equal(t, memRoot, storedRoot)
	assert.NotEqual(t, conflict.Digest{}, storedRoot)
}

func TestConflictsRejectedApplyWritesNothing(t *testing.T) {
	kv := newTestDB(t)
	c := NewConflicts(kv)
	id := uint128.From64(1)
	require.NoError(t, c.Apply(conflict.Created{ID: id}))
	ballot := conflict.BallotCast{ID: id, Ballot: conflict.Ballot{Voter: "a", Choice: true}}
	require.NoError(t, c.Apply(ballot))
	root, err := c.Root()
	require.NoError(t, err)

	err = c.Apply(ballot)
	assert.ErrorIs(t, err, conflict.ErrDuplicateVote)
	err = c.Apply(conflict.Created{ID: uint128.From64(5)})
	assert.Error(t, err)

	ballots, err := c.Ballots(id)
	require.NoError(t, err)
	assert.Len(t, ballots, 1)
	tally, err := c.Tally(id)
	require.NoError(t, err)
	assert.Equal(t, conflict.Tally{Up: 1, Total: 1}, tally)
	count, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, id, count)
	after, err := c.Root()
	require.NoError(t, err)
	assert.Equal(t, root, after)
}

func TestConflictsBallotsAreScopedToConflict(t *testing.T) {
	c := NewConflicts(newTestDB(t))
	for n := uint64(1); n <= 3; n++ {
		require.NoError(t, c.Apply(conflict.Created{ID: uint128.From64(n)}))
	}
	// 300 ballots push the sequence past one byte
	for i := 0; i < 300; i++ {
		voter := conflict.Identity(uint128.From64(uint64(i)).String())
		require.NoError(t, c.Apply(conflict.BallotCast{ID: uint128.From64(2), Ballot: conflict.Ballot{Voter: voter, Choice: i%3 == 0}}))
	}
	require.NoError(t, c.Apply(conflict.BallotCast{ID: uint128.From64(3), Ballot: conflict.Ballot{Voter: "x", Choice: true}}))

	ballots, err := c.Ballots(uint128.From64(2))
	require.NoError(t, err)
	require.Len(t, ballots, 300)
	for i, b := range ballots {
		assert.Equal(t, conflict.Identity(uint128.From64(uint64(i)).String()), b.Voter)
	}

	ballots, err = c.Ballots(uint128.From64(1))
	require.NoError(t, err)
	assert.Empty(t, ballots)

	ballots, err = c.Ballots(uint128.Max)
	require.NoError(t, err)
	assert.Empty(t, ballots)

	tally, err := c.Tally(uint128.From64(2))
	require.NoError(t, err)
	assert.Equal(t, conflict.Tally{Up: 100, Total: 300}, tally)
}

func TestConflictsCorruptValues(t *testing.T) {
	kv := newTestDB(t)
	c := NewConflicts(kv)
	id := uint128.From64(1)

	require.NoError(t, kv.Put(makeKey(prefixResolution, id), []byte{7}))
	_, err := c.Resolution(id)
	assert.ErrorIs(t, err, ErrCorruptValue)

	require.NoError(t, kv.Put(makeKey(prefixTally, id), []byte{0xff}))
	_, err = c.Tally(id)
	assert.ErrorIs(t, err, ErrCorruptValue)

	require.NoError(t, kv.Put(metaKey(metaRoot), []byte{1, 2}))
	_, err = c.Root()
	assert.ErrorIs(t, err, ErrCorruptValue)
}

func TestConflictsClosed(t *testing.T) {
	var kv db.KVStore = newTestDB(t)
	c := NewConflicts(kv)
	c.Close()

	_, err := c.Count()
	assert.ErrorIs(t, err, ErrConflictsClosed)
	_, err = c.Ballots(uint128.From64(1))
	assert.ErrorIs(t, err, ErrConflictsClosed)
	err = c.Apply(conflict.Created{ID: uint128.From64(1)})
	assert.ErrorIs(t, err, ErrConflictsClosed)
}

func TestPrefixToString(t *testing.T) {
	assert.Equal(t, "ballot", PrefixToString(prefixBallot))
	assert.Equal(t, "unknown", PrefixToString(0))
}
