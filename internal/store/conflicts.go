package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/pkg/codec"
	"github.com/eigerco/arbiter/pkg/db"
	"github.com/eigerco/arbiter/pkg/db/pebble"
	"github.com/eigerco/arbiter/pkg/log"
)

var (
	ErrConflictsClosed = errors.New("conflict store is closed")
	ErrCorruptValue    = errors.New("corrupt stored value")
)

// Conflicts persists the conflict ledger in a KVStore. Every Apply is a
// single batch, so a change is either fully stored or not at all.
type Conflicts struct {
	db     db.KVStore
	closed atomic.Bool
	logger zerolog.Logger
}

var _ conflict.Ledger = (*Conflicts)(nil)

// NewConflicts creates a new conflict store using KVStore
func NewConflicts(db db.KVStore) *Conflicts {
	return &Conflicts{db: db, logger: log.Store}
}

// Close marks the store closed. The underlying KVStore is owned by the caller.
func (c *Conflicts) Close() {
	c.closed.Store(true)
}

// get returns nil, nil when key is absent.
func (c *Conflicts) get(key []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConflictsClosed
	}
	value, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	return value, nil
}

func metaKey(name byte) []byte {
	return []byte{prefixMeta, name}
}

func (c *Conflicts) Count() (conflict.ID, error) {
	value, err := c.get(metaKey(metaCount))
	if err != nil || value == nil {
		return uint128.Zero, err
	}
	d := codec.NewDecoder(value)
	count := d.Uint128()
	if err := d.Finish(); err != nil {
		return uint128.Zero, fmt.Errorf("decode count: %w", errors.Join(ErrCorruptValue, err))
	}
	return count, nil
}

func (c *Conflicts) Proposal(id conflict.ID) (conflict.ProposalID, bool, error) {
	value, err := c.get(makeKey(prefixProposal, id))
	if err != nil || value == nil {
		return uint128.Zero, false, err
	}
	d := codec.NewDecoder(value)
	proposal := d.Uint128()
	if err := d.Finish(); err != nil {
		return uint128.Zero, false, fmt.Errorf("decode proposal: %w", errors.Join(ErrCorruptValue, err))
	}
	return proposal, true, nil
}

func (c *Conflicts) Resolution(id conflict.ID) (conflict.Resolution, error) {
	value, err := c.get(makeKey(prefixResolution, id))
	if err != nil || value == nil {
		return conflict.Open, err
	}
	if len(value) != 1 || value[0] == byte(conflict.Open) || value[0] > byte(conflict.Null) {
		return conflict.Open, fmt.Errorf("decode resolution %v: %w", value, ErrCorruptValue)
	}
	return conflict.Resolution(value[0]), nil
}

func (c *Conflicts) Tally(id conflict.ID) (conflict.Tally, error) {
	value, err := c.get(makeKey(prefixTally, id))
	if err != nil || value == nil {
		return conflict.Tally{}, err
	}
	return decodeTally(value)
}

func (c *Conflicts) HasVoted(id conflict.ID, voter conflict.Identity) (bool, error) {
	value, err := c.get(makeKey(prefixVoter, id, []byte(voter)...))
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Ballots scans the ballot log of one conflict. Keys carry a big-endian
// sequence number, so iteration order is cast order.
func (c *Conflicts) Ballots(id conflict.ID) ([]conflict.Ballot, error) {
	if c.closed.Load() {
		return nil, ErrConflictsClosed
	}

	start := makeKey(prefixBallot, id)
	end := []byte{prefixBallot + 1}
	if !id.Equals(uint128.Max) {
		end = makeKey(prefixBallot, id.Add64(1))
	}

	iter, err := c.db.NewIterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer func() {
		if err := iter.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("error closing iterator")
		}
	}()

	ballots := []conflict.Ballot{}
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("get iterator value: %w", err)
		}
		d := codec.NewDecoder(value)
		b := conflict.Ballot{Voter: conflict.Identity(d.String()), Choice: d.Bool()}
		if err := d.Finish(); err != nil {
			return nil, fmt.Errorf("decode ballot: %w", errors.Join(ErrCorruptValue, err))
		}
		ballots = append(ballots, b)
	}
	return ballots, nil
}

func (c *Conflicts) Counters() (conflict.Counters, error) {
	value, err := c.get(metaKey(metaCounters))
	if err != nil || value == nil {
		return conflict.Counters{}, err
	}
	d := codec.NewDecoder(value)
	counters := conflict.Counters{Valid: d.Uint128(), Invalid: d.Uint128(), Null: d.Uint128()}
	if err := d.Finish(); err != nil {
		return conflict.Counters{}, fmt.Errorf("decode counters: %w", errors.Join(ErrCorruptValue, err))
	}
	return counters, nil
}

func (c *Conflicts) Root() (conflict.Digest, error) {
	value, err := c.get(metaKey(metaRoot))
	if err != nil || value == nil {
		return conflict.Digest{}, err
	}
	if len(value) != len(conflict.Digest{}) {
		return conflict.Digest{}, fmt.Errorf("decode root: %w", ErrCorruptValue)
	}
	var root conflict.Digest
	copy(root[:], value)
	return root, nil
}

// Apply stages every key touched by change, plus the new journal root, in
// one batch and commits it.
func (c *Conflicts) Apply(change conflict.Change) error {
	if c.closed.Load() {
		return ErrConflictsClosed
	}

	batch := c.db.NewBatch()
	defer func() {
		if err := batch.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("error closing batch")
		}
	}()

	var err error
	switch ch := change.(type) {
	case conflict.Created:
		err = c.stageCreated(batch, ch)
	case conflict.BallotCast:
		err = c.stageBallot(batch, ch)
	case conflict.Resolved:
		err = c.stageResolved(batch, ch)
	default:
		err = fmt.Errorf("unknown change %T", change)
	}
	if err != nil {
		return err
	}

	root, err := c.Root()
	if err != nil {
		return err
	}
	next := conflict.NextRoot(root, change)
	if err := batch.Put(metaKey(metaRoot), next[:]); err != nil {
		return fmt.Errorf("store root: %w", err)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	c.logger.Debug().Hex("root", next[:]).Msg("applied change")
	return nil
}

func (c *Conflicts) stageCreated(batch db.Batch, ch conflict.Created) error {
	count, err := c.Count()
	if err != nil {
		return err
	}
	if !ch.ID.Equals(count.Add64(1)) {
		return fmt.Errorf("create conflict %s: expected id %s", ch.ID, count.Add64(1))
	}

	if err := batch.Put(metaKey(metaCount), codec.NewEncoder().Uint128(ch.ID).Result()); err != nil {
		return fmt.Errorf("store count: %w", err)
	}
	if err := batch.Put(makeKey(prefixProposal, ch.ID), codec.NewEncoder().Uint128(ch.Proposal).Result()); err != nil {
		return fmt.Errorf("store proposal: %w", err)
	}
	return nil
}

func (c *Conflicts) stageBallot(batch db.Batch, ch conflict.BallotCast) error {
	voted, err := c.HasVoted(ch.ID, ch.Ballot.Voter)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("cast ballot on conflict %s: %w", ch.ID, conflict.ErrDuplicateVote)
	}
	tally, err := c.Tally(ch.ID)
	if err != nil {
		return err
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], tally.Total)
	ballot := codec.NewEncoder().String(string(ch.Ballot.Voter)).Bool(ch.Ballot.Choice).Result()
	if err := batch.Put(makeKey(prefixBallot, ch.ID, seq[:]...), ballot); err != nil {
		return fmt.Errorf("store ballot: %w", err)
	}
	if err := batch.Put(makeKey(prefixVoter, ch.ID, []byte(ch.Ballot.Voter)...), codec.NewEncoder().Bool(ch.Ballot.Choice).Result()); err != nil {
		return fmt.Errorf("store voter: %w", err)
	}

	tally.Total++
	if ch.Ballot.Choice {
		tally.Up++
	}
	if err := batch.Put(makeKey(prefixTally, ch.ID), encodeTally(tally)); err != nil {
		return fmt.Errorf("store tally: %w", err)
	}
	return nil
}

func (c *Conflicts) stageResolved(batch db.Batch, ch conflict.Resolved) error {
	current, err := c.Resolution(ch.ID)
	if err != nil {
		return err
	}
	if current.Resolved() {
		return fmt.Errorf("resolve conflict %s: %w", ch.ID, conflict.ErrAlreadyResolved)
	}
	counters, err := c.Counters()
	if err != nil {
		return err
	}
	switch ch.Resolution {
	case conflict.Valid:
		counters.Valid = counters.Valid.Add64(1)
	case conflict.Invalid:
		counters.Invalid = counters.Invalid.Add64(1)
	case conflict.Null:
		counters.Null = counters.Null.Add64(1)
	default:
		return fmt.Errorf("resolve conflict %s: invalid resolution %s", ch.ID, ch.Resolution)
	}

	if err := batch.Put(makeKey(prefixResolution, ch.ID), []byte{byte(ch.Resolution)}); err != nil {
		return fmt.Errorf("store resolution: %w", err)
	}
	encoded := codec.NewEncoder().Uint128(counters.Valid).Uint128(counters.Invalid).Uint128(counters.Null).Result()
	if err := batch.Put(metaKey(metaCounters), encoded); err != nil {
		return fmt.Errorf("store counters: %w", err)
	}
	return nil
}

func encodeTally(t conflict.Tally) []byte {
	return codec.NewEncoder().Natural(t.Up).Natural(t.Total).Result()
}

func decodeTally(b []byte) (conflict.Tally, error) {
	d := codec.NewDecoder(b)
	t := conflict.Tally{Up: d.Natural(), Total: d.Natural()}
	if err := d.Finish(); err != nil {
		return conflict.Tally{}, fmt.Errorf("decode tally: %w", errors.Join(ErrCorruptValue, err))
	}
	return t, nil
}
