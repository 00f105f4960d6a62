package conflict

import (
	"fmt"
	"slices"
)

type voterKey struct {
	id    ID
	voter Identity
}

// MemoryLedger keeps the ledger in maps. It does no locking; callers
// serialize access.
type MemoryLedger struct {
	count     ID
	counters  Counters
	root      Digest
	proposals map[ID]ProposalID
	ballots   map[ID][]Ballot
	voters    map[voterKey]struct{}
	tallies   map[ID]Tally
	fates     map[ID]Resolution
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		proposals: make(map[ID]ProposalID),
		ballots:   make(map[ID][]Ballot),
		voters:    make(map[voterKey]struct{}),
		tallies:   make(map[ID]Tally),
		fates:     make(map[ID]Resolution),
	}
}

func (m *MemoryLedger) Count() (ID, error) {
	return m.count, nil
}

func (m *MemoryLedger) Proposal(id ID) (ProposalID, bool, error) {
	p, ok := m.proposals[id]
	return p, ok, nil
}

func (m *MemoryLedger) Resolution(id ID) (Resolution, error) {
	return m.fates[id], nil
}

func (m *MemoryLedger) Tally(id ID) (Tally, error) {
	return m.tallies[id], nil
}

func (m *MemoryLedger) HasVoted(id ID, voter Identity) (bool, error) {
	_, ok := m.voters[voterKey{id: id, voter: voter}]
	return ok, nil
}

func (m *MemoryLedger) Ballots(id ID) ([]Ballot, error) {
	return slices.Clone(m.ballots[id]), nil
}

func (m *MemoryLedger) Counters() (Counters, error) {
	return m.counters, nil
}

func (m *MemoryLedger) Root() (Digest, error) {
	return m.root, nil
}

// Apply validates change against the current state before touching any map,
// so a rejected change leaves the ledger as it was.
func (m *MemoryLedger) Apply(change Change) error {
	switch c := change.(type) {
	case Created:
		if !c.ID.Equals(m.count.Add64(1)) {
			return fmt.Errorf("create conflict %s: expected id %s", c.ID, m.count.Add64(1))
		}
		m.count = c.ID
		m.proposals[c.ID] = c.Proposal
		m.ballots[c.ID] = []Ballot{}
	case BallotCast:
		key := voterKey{id: c.ID, voter: c.Ballot.Voter}
		if _, ok := m.voters[key]; ok {
			return fmt.Errorf("cast ballot on conflict %s: %w", c.ID, ErrDuplicateVote)
		}
		m.voters[key] = struct{}{}
		m.ballots[c.ID] = append(m.ballots[c.ID], c.Ballot)
		m.tallies[c.ID] = m.tallies[c.ID].add(c.Ballot.Choice)
	case Resolved:
		if !c.Resolution.Resolved() {
			return fmt.Errorf("resolve conflict %s: invalid resolution %s", c.ID, c.Resolution)
		}
		if m.fates[c.ID].Resolved() {
			return fmt.Errorf("resolve conflict %s: %w", c.ID, ErrAlreadyResolved)
		}
		m.fates[c.ID] = c.Resolution
		m.counters = m.counters.record(c.Resolution)
	default:
		return fmt.Errorf("unknown change %T", change)
	}
	m.root = NextRoot(m.root, change)
	return nil
}
