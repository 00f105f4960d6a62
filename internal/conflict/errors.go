package conflict

import "errors"

var (
	// ErrUnauthorized is returned when a caller that is not a configured
	// authority tries to create or resolve a conflict.
	ErrUnauthorized = errors.New("unauthorized lead validator")

	// ErrNotFound is returned when a mutating operation names a conflict id
	// that was never created.
	ErrNotFound = errors.New("conflict does not exist")

	// ErrAlreadyResolved is returned when a vote or resolution targets a
	// conflict whose fate is already recorded.
	ErrAlreadyResolved = errors.New("conflict has already been resolved")

	// ErrDuplicateVote is returned when a voter already has a ballot on the
	// conflict, whatever its choice.
	ErrDuplicateVote = errors.New("voter has already voted")

	// ErrNoSupportingVotes is returned by close when no ballot supports the
	// conflict. Such conflicts must be nulled instead.
	ErrNoSupportingVotes = errors.New("conflict has no supporting votes")

	// ErrUnexpectedSupportingVotes is returned by null when at least one
	// ballot supports the conflict. Such conflicts must be closed instead.
	ErrUnexpectedSupportingVotes = errors.New("conflict has supporting votes")
)
