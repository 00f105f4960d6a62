package conflict

import (
	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/arbiter/pkg/codec"
)

// Ledger is the durable state the registry reads and writes through.
// Reads must observe every change applied before them. Apply must commit all
// of a change or nothing.
type Ledger interface {
	// Count returns the number of conflicts ever created.
	Count() (ID, error)
	// Proposal returns the proposal of a conflict and whether it exists.
	Proposal(id ID) (ProposalID, bool, error)
	// Resolution returns Open for unresolved and unknown conflicts.
	Resolution(id ID) (Resolution, error)
	Tally(id ID) (Tally, error)
	HasVoted(id ID, voter Identity) (bool, error)
	// Ballots returns ballots in cast order, empty for unknown conflicts.
	Ballots(id ID) ([]Ballot, error)
	Counters() (Counters, error)
	Root() (Digest, error)
	Apply(change Change) error
}

// Change is a single committed mutation: one of Created, BallotCast or
// Resolved.
type Change interface {
	isChange()
	encode(e *codec.Encoder)
}

const (
	createdKind byte = iota + 1
	ballotCastKind
	resolvedKind
)

// Created registers a new conflict. ID must be the current count plus one.
type Created struct {
	ID       ID
	Proposal ProposalID
}

func (Created) isChange() {}

func (c Created) encode(e *codec.Encoder) {
	e.Byte(createdKind).Uint128(c.ID).Uint128(c.Proposal)
}

// BallotCast appends a ballot to an open conflict.
type BallotCast struct {
	ID     ID
	Ballot Ballot
}

func (BallotCast) isChange() {}

func (b BallotCast) encode(e *codec.Encoder) {
	e.Byte(ballotCastKind).Uint128(b.ID).String(string(b.Ballot.Voter)).Bool(b.Ballot.Choice)
}

// Resolved records the terminal resolution of a conflict.
type Resolved struct {
	ID         ID
	Resolution Resolution
}

func (Resolved) isChange() {}

func (r Resolved) encode(e *codec.Encoder) {
	e.Byte(resolvedKind).Uint128(r.ID).Byte(byte(r.Resolution))
}

// Digest is a journal root.
type Digest [32]byte

// NextRoot chains change onto root: blake2b-256(root || encode(change)).
func NextRoot(root Digest, change Change) Digest {
	e := codec.NewEncoder().Raw(root[:])
	change.encode(e)
	return blake2b.Sum256(e.Result())
}

// Encode returns the canonical encoding of a change.
func Encode(change Change) []byte {
	e := codec.NewEncoder()
	change.encode(e)
	return e.Result()
}
