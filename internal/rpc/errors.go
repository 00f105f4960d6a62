package rpc

import (
	"errors"
	"fmt"

	"github.com/eigerco/arbiter/internal/conflict"
)

// ErrorCode identifies a failure on the wire.
type ErrorCode uint8

const (
	CodeUnauthorized ErrorCode = iota + 1
	CodeNotFound
	CodeAlreadyResolved
	CodeDuplicateVote
	CodeNoSupportingVotes
	CodeUnexpectedSupportingVotes

	CodeBadRequest ErrorCode = 254
	CodeInternal   ErrorCode = 255
)

var (
	ErrBadRequest         = errors.New("malformed request")
	ErrInternal           = errors.New("internal server error")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

var codeErrors = map[ErrorCode]error{
	CodeUnauthorized:              conflict.ErrUnauthorized,
	CodeNotFound:                  conflict.ErrNotFound,
	CodeAlreadyResolved:           conflict.ErrAlreadyResolved,
	CodeDuplicateVote:             conflict.ErrDuplicateVote,
	CodeNoSupportingVotes:         conflict.ErrNoSupportingVotes,
	CodeUnexpectedSupportingVotes: conflict.ErrUnexpectedSupportingVotes,
}

// codeOf maps a registry error to its wire code. Anything that is not a
// registry precondition failure is internal.
func codeOf(err error) ErrorCode {
	for code, sentinel := range codeErrors {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}

// Err turns a wire error back into the matching sentinel, so callers can use
// errors.Is on either side of the connection.
func (e Error) Err() error {
	if sentinel, ok := codeErrors[e.Code]; ok {
		return sentinel
	}
	switch e.Code {
	case CodeBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, e.Message)
	case CodeInternal:
		return fmt.Errorf("%w: %s", ErrInternal, e.Message)
	}
	return fmt.Errorf("unknown error code %d: %s", e.Code, e.Message)
}

func errorResponse(err error) Error {
	return Error{Code: codeOf(err), Message: err.Error()}
}
