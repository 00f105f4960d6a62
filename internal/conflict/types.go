package conflict

import (
	"fmt"

	"lukechampine.com/uint128"
)

// ID identifies a conflict. IDs are assigned densely from 1; zero means no
// conflict has been created.
type ID = uint128.Uint128

// ProposalID is an opaque reference to the external proposal a conflict is
// about.
type ProposalID = uint128.Uint128

// Identity is the caller identity supplied by the boundary for every
// operation.
type Identity string

// ParseID parses a decimal conflict or proposal id.
func ParseID(s string) (ID, error) {
	id, err := uint128.FromString(s)
	if err != nil {
		return uint128.Zero, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}

// Ballot is one voter's single, immutable vote on a conflict.
type Ballot struct {
	Voter  Identity
	Choice bool
}

// Resolution is the stored fate of a conflict.
type Resolution uint8

const (
	Open Resolution = iota
	Valid
	Invalid
	Null
)

func (r Resolution) String() string {
	switch r {
	case Open:
		return "open"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Null:
		return "null"
	}
	return fmt.Sprintf("resolution(%d)", uint8(r))
}

// Resolved reports whether the conflict reached a terminal state.
func (r Resolution) Resolved() bool {
	return r != Open
}

// Fate is the boolean outcome exposed to callers: true only for Valid.
// Invalid and Null both read false.
func (r Resolution) Fate() bool {
	return r == Valid
}

// Tally counts the ballots of one conflict.
type Tally struct {
	Up    uint64
	Total uint64
}

func (t Tally) add(choice bool) Tally {
	t.Total++
	if choice {
		t.Up++
	}
	return t
}

// Majority reports whether supporting ballots are at least half of all
// ballots. A tie counts as a majority.
func (t Tally) Majority() bool {
	return 2*t.Up >= t.Total
}

// Counters are the running totals of resolved conflicts per resolution.
type Counters struct {
	Valid   uint128.Uint128
	Invalid uint128.Uint128
	Null    uint128.Uint128
}

func (c Counters) record(r Resolution) Counters {
	switch r {
	case Valid:
		c.Valid = c.Valid.Add64(1)
	case Invalid:
		c.Invalid = c.Invalid.Add64(1)
	case Null:
		c.Null = c.Null.Add64(1)
	}
	return c
}

// Conflict is the read model of a single conflict.
type Conflict struct {
	ID         ID
	Proposal   ProposalID
	Resolution Resolution
	Tally      Tally
}
