// Package conflict implements the conflict registry: the authority opens
// conflicts about external proposals, voters cast one ballot each, and the
// authority resolves each conflict exactly once.
//
// Every operation is a self-contained read-check-write. All preconditions are
// checked against the ledger before a single Change is applied, so a rejected
// operation has no effect.
package conflict

import (
	"fmt"

	"github.com/rs/zerolog"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/pkg/log"
)

// Registry is the conflict registry. It performs no locking: the host must
// run one operation at a time.
type Registry struct {
	ledger      Ledger
	authorities Authorities
	logger      zerolog.Logger
}

// NewRegistry builds a registry over ledger. Only identities in authorities
// may create and resolve conflicts.
func NewRegistry(ledger Ledger, authorities Authorities) *Registry {
	return &Registry{
		ledger:      ledger,
		authorities: authorities,
		logger:      log.Registry,
	}
}

// WithLogger replaces the diagnostic logger.
func (r *Registry) WithLogger(l zerolog.Logger) *Registry {
	r.logger = l
	return r
}

// ConflictCount returns the number of conflicts ever created.
func (r *Registry) ConflictCount() (ID, error) {
	count, err := r.ledger.Count()
	if err != nil {
		return uint128.Zero, fmt.Errorf("get conflict count: %w", err)
	}
	return count, nil
}

// Votes returns every ballot of a conflict in the order cast. Unknown ids
// yield an empty slice rather than an error.
func (r *Registry) Votes(id ID) ([]Ballot, error) {
	ballots, err := r.ledger.Ballots(id)
	if err != nil {
		return nil, fmt.Errorf("get votes for conflict %s: %w", id, err)
	}
	if ballots == nil {
		ballots = []Ballot{}
	}
	return ballots, nil
}

// Counters returns the running totals of valid, invalid and null resolutions.
func (r *Registry) Counters() (Counters, error) {
	c, err := r.ledger.Counters()
	if err != nil {
		return Counters{}, fmt.Errorf("get counters: %w", err)
	}
	return c, nil
}

// Root returns the journal root over every change applied so far.
func (r *Registry) Root() (Digest, error) {
	root, err := r.ledger.Root()
	if err != nil {
		return Digest{}, fmt.Errorf("get journal root: %w", err)
	}
	return root, nil
}

// Conflict returns the read model of a conflict.
func (r *Registry) Conflict(id ID) (Conflict, error) {
	proposal, err := r.mustExist(id)
	if err != nil {
		return Conflict{}, err
	}
	resolution, err := r.ledger.Resolution(id)
	if err != nil {
		return Conflict{}, fmt.Errorf("get resolution of conflict %s: %w", id, err)
	}
	tally, err := r.ledger.Tally(id)
	if err != nil {
		return Conflict{}, fmt.Errorf("get tally of conflict %s: %w", id, err)
	}
	return Conflict{ID: id, Proposal: proposal, Resolution: resolution, Tally: tally}, nil
}

// CreateConflict opens a new conflict about proposal and returns its id.
func (r *Registry) CreateConflict(caller Identity, proposal ProposalID) (ID, error) {
	if !r.authorities.Contains(caller) {
		return uint128.Zero, ErrUnauthorized
	}

	count, err := r.ledger.Count()
	if err != nil {
		return uint128.Zero, fmt.Errorf("get conflict count: %w", err)
	}
	id := count.Add64(1)

	r.logger.Info().Str("proposal", proposal.String()).Msg("registering conflict for proposal")

	if err := r.ledger.Apply(Created{ID: id, Proposal: proposal}); err != nil {
		return uint128.Zero, fmt.Errorf("create conflict %s: %w", id, err)
	}
	return id, nil
}

// Vote records caller's ballot on an open conflict. A voter gets exactly one
// ballot per conflict and cannot change it.
func (r *Registry) Vote(caller Identity, id ID, choice bool) error {
	if _, err := r.mustBeOpen(id); err != nil {
		return err
	}

	voted, err := r.ledger.HasVoted(id, caller)
	if err != nil {
		return fmt.Errorf("check voter on conflict %s: %w", id, err)
	}
	if voted {
		return ErrDuplicateVote
	}

	if err := r.ledger.Apply(BallotCast{ID: id, Ballot: Ballot{Voter: caller, Choice: choice}}); err != nil {
		return fmt.Errorf("vote on conflict %s: %w", id, err)
	}
	return nil
}

// CloseConflict resolves a conflict that has at least one supporting ballot.
// It resolves Valid when supporting ballots are at least half of all ballots
// and Invalid otherwise, and returns the fate.
func (r *Registry) CloseConflict(caller Identity, id ID) (bool, error) {
	tally, err := r.mustBeOpen(id)
	if err != nil {
		return false, err
	}
	if !r.authorities.Contains(caller) {
		return false, ErrUnauthorized
	}
	if tally.Up == 0 {
		return false, ErrNoSupportingVotes
	}

	r.logger.Info().Str("conflict", id.String()).Msg("closing conflict")

	resolution := Invalid
	if tally.Majority() {
		resolution = Valid
	}
	if err := r.resolve(id, resolution); err != nil {
		return false, err
	}
	return resolution.Fate(), nil
}

// NullConflict resolves a conflict that has no supporting ballots. The stored
// fate is false, counted apart from Invalid. It always returns true.
func (r *Registry) NullConflict(caller Identity, id ID) (bool, error) {
	tally, err := r.mustBeOpen(id)
	if err != nil {
		return false, err
	}
	if !r.authorities.Contains(caller) {
		return false, ErrUnauthorized
	}
	if tally.Up != 0 {
		return false, ErrUnexpectedSupportingVotes
	}

	r.logger.Info().Str("conflict", id.String()).Msg("nulling conflict")

	if err := r.resolve(id, Null); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) resolve(id ID, resolution Resolution) error {
	if err := r.ledger.Apply(Resolved{ID: id, Resolution: resolution}); err != nil {
		return fmt.Errorf("resolve conflict %s as %s: %w", id, resolution, err)
	}
	return nil
}

func (r *Registry) mustExist(id ID) (ProposalID, error) {
	proposal, ok, err := r.ledger.Proposal(id)
	if err != nil {
		return uint128.Zero, fmt.Errorf("get conflict %s: %w", id, err)
	}
	if !ok {
		return uint128.Zero, ErrNotFound
	}
	return proposal, nil
}

// mustBeOpen checks existence then openness, in that order, and returns the
// current tally.
func (r *Registry) mustBeOpen(id ID) (Tally, error) {
	if _, err := r.mustExist(id); err != nil {
		return Tally{}, err
	}
	resolution, err := r.ledger.Resolution(id)
	if err != nil {
		return Tally{}, fmt.Errorf("get resolution of conflict %s: %w", id, err)
	}
	if resolution.Resolved() {
		return Tally{}, ErrAlreadyResolved
	}
	tally, err := r.ledger.Tally(id)
	if err != nil {
		return Tally{}, fmt.Errorf("get tally of conflict %s: %w", id, err)
	}
	return tally, nil
}
