// Package conflicttest holds the registry behaviour suite shared by every
// conflict.Ledger implementation.
package conflicttest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/internal/conflict"
)

const Authority conflict.Identity = "harry.near"

// NewLedgerFunc returns a fresh, empty ledger for one subtest.
type NewLedgerFunc func(t *testing.T) conflict.Ledger

func id(n uint64) conflict.ID {
	return uint128.From64(n)
}

// Run exercises the full registry contract against ledgers from newLedger.
func Run(t *testing.T, newLedger NewLedgerFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, r *conflict.Registry)
	}{
		{name: "initial_state", fn: testInitialState},
		{name: "create_by_authority", fn: testCreateByAuthority},
		{name: "create_unauthorized", fn: testCreateUnauthorized},
		{name: "votes_in_cast_order", fn: testVotesInCastOrder},
		{name: "duplicate_vote", fn: testDuplicateVote},
		{name: "vote_not_found", fn: testVoteNotFound},
		{name: "vote_after_resolution", fn: testVoteAfterResolution},
		{name: "close_majority_rule", fn: testCloseMajorityRule},
		{name: "close_twice", fn: testCloseTwice},
		{name: "close_without_support", fn: testCloseWithoutSupport},
		{name: "close_precondition_order", fn: testClosePreconditionOrder},
		{name: "null_fresh_conflict", fn: testNullFreshConflict},
		{name: "null_with_support", fn: testNullWithSupport},
		{name: "null_with_only_rejections", fn: testNullWithOnlyRejections},
		{name: "counters", fn: testCounters},
		{name: "conflict_read_model", fn: testConflictReadModel},
		{name: "journal_root", fn: testJournalRoot},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := conflict.NewRegistry(newLedger(t), conflict.NewAuthorities(Authority))
			tc.fn(t, r)
		})
	}
}

// Create opens a conflict as the authority and fails the test on error.
func Create(t *testing.T, r *conflict.Registry, proposal uint64) conflict.ID {
	t.Helper()
	cid, err := r.CreateConflict(Authority, uint128.From64(proposal))
	require.NoError(t, err)
	return cid
}

// CastAll votes choices[i] as voter-i on conflict cid.
func CastAll(t *testing.T, r *conflict.Registry, cid conflict.ID, choices ...bool) {
	t.Helper()
	for i, choice := range choices {
		voter := conflict.Identity("voter-" + uint128.From64(uint64(i)).String())
		require.NoError(t, r.Vote(voter, cid, choice))
	}
}

func testInitialState(t *testing.T, r *conflict.Registry) {
	count, err := r.ConflictCount()
	require.NoError(t, err)
	assert.True(t, count.IsZero())

	for _, n := range []uint64{0, 1, 2, 1000} {
		votes, err := r.Votes(id(n))
		require.NoError(t, err)
		assert.NotNil(t, votes)
		assert.Empty(t, votes)
	}

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{}, counters)
}

func testCreateByAuthority(t *testing.T, r *conflict.Registry) {
	for n := uint64(1); n <= 3; n++ {
		cid, err := r.CreateConflict(Authority, uint128.From64(100+n))
		require.NoError(t, err)
		assert.Equal(t, id(n), cid)

		count, err := r.ConflictCount()
		require.NoError(t, err)
		assert.Equal(t, id(n), count)
	}

	votes, err := r.Votes(id(2))
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func testCreateUnauthorized(t *testing.T, r *conflict.Registry) {
	for _, caller := range []conflict.Identity{"mikky.near", "", "harry.near "} {
		_, err := r.CreateConflict(caller, uint128.From64(3))
		assert.ErrorIs(t, err, conflict.ErrUnauthorized)
	}

	count, err := r.ConflictCount()
	require.NoError(t, err)
	assert.True(t, count.IsZero())
}

func testVotesInCastOrder(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 5)

	expected := []conflict.Ballot{
		{Voter: "kurt.near", Choice: true},
		{Voter: "weiler.near", Choice: false},
		{Voter: "brandon.near", Choice: true},
		{Voter: "snow.near", Choice: true},
		{Voter: Authority, Choice: false},
	}
	for _, b := range expected {
		require.NoError(t, r.Vote(b.Voter, cid, b.Choice))
	}

	votes, err := r.Votes(cid)
	require.NoError(t, err)
	assert.Equal(t, expected, votes)
}

func testDuplicateVote(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 5)
	require.NoError(t, r.Vote("mikky.near", cid, true))

	for _, choice := range []bool{true, false} {
		err := r.Vote("mikky.near", cid, choice)
		assert.ErrorIs(t, err, conflict.ErrDuplicateVote)
	}

	votes, err := r.Votes(cid)
	require.NoError(t, err)
	assert.Equal(t, []conflict.Ballot{{Voter: "mikky.near", Choice: true}}, votes)

	// The same voter may still vote on another conflict
	other := Create(t, r, 6)
	require.NoError(t, r.Vote("mikky.near", other, false))
}

func testVoteNotFound(t *testing.T, r *conflict.Registry) {
	err := r.Vote("mikky.near", id(0), true)
	assert.ErrorIs(t, err, conflict.ErrNotFound)

	Create(t, r, 1)
	err = r.Vote("mikky.near", id(2), true)
	assert.ErrorIs(t, err, conflict.ErrNotFound)
}

func testVoteAfterResolution(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 1)
	CastAll(t, r, cid, true)
	_, err := r.CloseConflict(Authority, cid)
	require.NoError(t, err)

	err = r.Vote("late.near", cid, true)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	// Existence is checked before resolution, and resolution before duplicates
	err = r.Vote("voter-0", cid, true)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	votes, err := r.Votes(cid)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func testCloseMajorityRule(t *testing.T, r *conflict.Registry) {
	tests := []struct {
		name     string
		choices  []bool
		expected bool
	}{
		{name: "three_of_four", choices: []bool{true, false, true, true}, expected: true},
		{name: "one_of_three", choices: []bool{true, false, false}, expected: false},
		{name: "tie", choices: []bool{true, false}, expected: true},
		{name: "unanimous", choices: []bool{true}, expected: true},
		{name: "two_of_five", choices: []bool{false, true, false, true, false}, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cid := Create(t, r, 9)
			CastAll(t, r, cid, tc.choices...)

			fate, err := r.CloseConflict(Authority, cid)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, fate)

			c, err := r.Conflict(cid)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c.Resolution.Fate())
			if tc.expected {
				assert.Equal(t, conflict.Valid, c.Resolution)
			} else {
				assert.Equal(t, conflict.Invalid, c.Resolution)
			}
		})
	}
}

func testCloseTwice(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 6)
	CastAll(t, r, cid, true, false, true, true)

	fate, err := r.CloseConflict(Authority, cid)
	require.NoError(t, err)
	assert.True(t, fate)

	_, err = r.CloseConflict(Authority, cid)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	_, err = r.NullConflict(Authority, cid)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, id(1), counters.Valid)
}

func testCloseWithoutSupport(t *testing.T, r *conflict.Registry) {
	empty := Create(t, r, 1)
	_, err := r.CloseConflict(Authority, empty)
	assert.ErrorIs(t, err, conflict.ErrNoSupportingVotes)

	rejected := Create(t, r, 2)
	CastAll(t, r, rejected, false, false)
	_, err = r.CloseConflict(Authority, rejected)
	assert.ErrorIs(t, err, conflict.ErrNoSupportingVotes)

	for _, cid := range []conflict.ID{empty, rejected} {
		c, err := r.Conflict(cid)
		require.NoError(t, err)
		assert.Equal(t, conflict.Open, c.Resolution)
	}
	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{}, counters)

	// Still open for voting
	require.NoError(t, r.Vote("fresh.near", empty, true))
}

func testClosePreconditionOrder(t *testing.T, r *conflict.Registry) {
	const outsider conflict.Identity = "mikky.near"

	// Existence, then openness, then authority, then support.
	_, err := r.CloseConflict(outsider, id(7))
	assert.ErrorIs(t, err, conflict.ErrNotFound)
	_, err = r.NullConflict(outsider, id(7))
	assert.ErrorIs(t, err, conflict.ErrNotFound)

	resolved := Create(t, r, 7)
	_, err = r.NullConflict(Authority, resolved)
	require.NoError(t, err)
	_, err = r.CloseConflict(outsider, resolved)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)
	_, err = r.NullConflict(outsider, resolved)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	unsupported := Create(t, r, 8)
	_, err = r.CloseConflict(outsider, unsupported)
	assert.ErrorIs(t, err, conflict.ErrUnauthorized)
	_, err = r.CloseConflict(Authority, unsupported)
	assert.ErrorIs(t, err, conflict.ErrNoSupportingVotes)

	supported := Create(t, r, 9)
	CastAll(t, r, supported, true)
	_, err = r.NullConflict(outsider, supported)
	assert.ErrorIs(t, err, conflict.ErrUnauthorized)
	_, err = r.NullConflict(Authority, supported)
	assert.ErrorIs(t, err, conflict.ErrUnexpectedSupportingVotes)

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{Null: uint128.From64(1)}, counters)
}

func testNullFreshConflict(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 6)

	ok, err := r.NullConflict(Authority, cid)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.NullConflict(Authority, cid)
	assert.ErrorIs(t, err, conflict.ErrAlreadyResolved)

	c, err := r.Conflict(cid)
	require.NoError(t, err)
	assert.Equal(t, conflict.Null, c.Resolution)
	assert.False(t, c.Resolution.Fate())

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{Null: id(1)}, counters)
}

func testNullWithSupport(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 6)
	CastAll(t, r, cid, false, true, false)

	_, err := r.NullConflict(Authority, cid)
	assert.ErrorIs(t, err, conflict.ErrUnexpectedSupportingVotes)

	c, err := r.Conflict(cid)
	require.NoError(t, err)
	assert.Equal(t, conflict.Open, c.Resolution)
}

func testNullWithOnlyRejections(t *testing.T, r *conflict.Registry) {
	cid := Create(t, r, 6)
	CastAll(t, r, cid, false, false, false)

	ok, err := r.NullConflict(Authority, cid)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testCounters(t *testing.T, r *conflict.Registry) {
	valid := Create(t, r, 1)
	invalid := Create(t, r, 2)
	null := Create(t, r, 3)
	CastAll(t, r, valid, true, true, false)
	CastAll(t, r, invalid, true, false, false)

	// Resolve out of creation order
	ok, err := r.NullConflict(Authority, null)
	require.NoError(t, err)
	assert.True(t, ok)
	fate, err := r.CloseConflict(Authority, invalid)
	require.NoError(t, err)
	assert.False(t, fate)
	fate, err = r.CloseConflict(Authority, valid)
	require.NoError(t, err)
	assert.True(t, fate)

	counters, err := r.Counters()
	require.NoError(t, err)
	assert.Equal(t, conflict.Counters{Valid: id(1), Invalid: id(1), Null: id(1)}, counters)
}

func testConflictReadModel(t *testing.T, r *conflict.Registry) {
	_, err := r.Conflict(id(1))
	assert.ErrorIs(t, err, conflict.ErrNotFound)

	cid := Create(t, r, 77)
	CastAll(t, r, cid, true, false, true)

	c, err := r.Conflict(cid)
	require.NoError(t, err)
	assert.Equal(t, conflict.Conflict{
		ID:         cid,
		Proposal:   uint128.From64(77),
		Resolution: conflict.Open,
		Tally:      conflict.Tally{Up: 2, Total: 3},
	}, c)
}

func testJournalRoot(t *testing.T, r *conflict.Registry) {
	genesis, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, conflict.Digest{}, genesis)

	cid := Create(t, r, 1)
	afterCreate, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, conflict.NextRoot(genesis, conflict.Created{ID: cid, Proposal: uint128.From64(1)}), afterCreate)

	// Rejected operations leave the root untouched
	_, err = r.CloseConflict(Authority, cid)
	require.ErrorIs(t, err, conflict.ErrNoSupportingVotes)
	unchanged, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, afterCreate, unchanged)

	require.NoError(t, r.Vote("kurt.near", cid, true))
	afterVote, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, conflict.NextRoot(afterCreate, conflict.BallotCast{
		ID:     cid,
		Ballot: conflict.Ballot{Voter: "kurt.near", Choice: true},
	}), afterVote)
}
