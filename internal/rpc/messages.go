package rpc

import (
	"fmt"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/pkg/codec"
)

const (
	getConflictCountKind byte = iota
	getAllVotesKind
	createConflictKind
	voteOnConflictKind
	closeConflictKind
	nullConflictKind
	getCountersKind
	getConflictKind
	getRootKind
)

const (
	countKind byte = iota
	votesKind
	createdKind
	votedKind
	resolvedKind
	countersKind
	conflictKind
	rootKind
	errorKind byte = 255
)

// Request is one of GetConflictCount, GetAllVotes, CreateConflict,
// VoteOnConflict, CloseConflict, NullConflict, GetCounters, GetConflict or
// GetRoot.
type Request interface {
	isRequest()
	encode(e *codec.Encoder)
}

// Response is one of Count, Votes, Created, Voted, Resolved, CountersReply,
// ConflictReply, RootReply or Error.
type Response interface {
	isResponse()
	encode(e *codec.Encoder)
}

type GetConflictCount struct{}

type GetAllVotes struct {
	ID conflict.ID
}

type CreateConflict struct {
	Proposal conflict.ProposalID
}

type VoteOnConflict struct {
	ID     conflict.ID
	Choice bool
}

type CloseConflict struct {
	ID conflict.ID
}

type NullConflict struct {
	ID conflict.ID
}

type GetCounters struct{}

type GetConflict struct {
	ID conflict.ID
}

type GetRoot struct{}

func (GetConflictCount) isRequest() {}
func (GetAllVotes) isRequest()      {}
func (CreateConflict) isRequest()   {}
func (VoteOnConflict) isRequest()   {}
func (CloseConflict) isRequest()    {}
func (NullConflict) isRequest()     {}
func (GetCounters) isRequest()      {}
func (GetConflict) isRequest()      {}
func (GetRoot) isRequest()          {}

func (GetConflictCount) encode(e *codec.Encoder) { e.Byte(getConflictCountKind) }
func (r GetAllVotes) encode(e *codec.Encoder)    { e.Byte(getAllVotesKind).Uint128(r.ID) }
func (r CreateConflict) encode(e *codec.Encoder) { e.Byte(createConflictKind).Uint128(r.Proposal) }
func (r VoteOnConflict) encode(e *codec.Encoder) {
	e.Byte(voteOnConflictKind).Uint128(r.ID).Bool(r.Choice)
}
func (r CloseConflict) encode(e *codec.Encoder) { e.Byte(closeConflictKind).Uint128(r.ID) }
func (r NullConflict) encode(e *codec.Encoder)  { e.Byte(nullConflictKind).Uint128(r.ID) }
func (GetCounters) encode(e *codec.Encoder)     { e.Byte(getCountersKind) }
func (r GetConflict) encode(e *codec.Encoder)   { e.Byte(getConflictKind).Uint128(r.ID) }
func (GetRoot) encode(e *codec.Encoder)         { e.Byte(getRootKind) }

type Count struct {
	Count conflict.ID
}

type Votes struct {
	Ballots []conflict.Ballot
}

type Created struct {
	ID conflict.ID
}

type Voted struct{}

// Resolved carries the boolean returned by close and null.
type Resolved struct {
	Fate bool
}

type CountersReply struct {
	Counters conflict.Counters
}

type ConflictReply struct {
	Conflict conflict.Conflict
}

type RootReply struct {
	Root conflict.Digest
}

// Error reports a failed request.
type Error struct {
	Code    ErrorCode
	Message string
}

func (Count) isResponse()         {}
func (Votes) isResponse()         {}
func (Created) isResponse()       {}
func (Voted) isResponse()         {}
func (Resolved) isResponse()      {}
func (CountersReply) isResponse() {}
func (ConflictReply) isResponse() {}
func (RootReply) isResponse()     {}
func (Error) isResponse()         {}

func (r Count) encode(e *codec.Encoder) { e.Byte(countKind).Uint128(r.Count) }

func (r Votes) encode(e *codec.Encoder) {
	e.Byte(votesKind).Natural(uint64(len(r.Ballots)))
	for _, b := range r.Ballots {
		e.String(string(b.Voter)).Bool(b.Choice)
	}
}

func (r Created) encode(e *codec.Encoder)  { e.Byte(createdKind).Uint128(r.ID) }
func (Voted) encode(e *codec.Encoder)      { e.Byte(votedKind) }
func (r Resolved) encode(e *codec.Encoder) { e.Byte(resolvedKind).Bool(r.Fate) }

func (r CountersReply) encode(e *codec.Encoder) {
	e.Byte(countersKind).
		Uint128(r.Counters.Valid).
		Uint128(r.Counters.Invalid).
		Uint128(r.Counters.Null)
}

func (r ConflictReply) encode(e *codec.Encoder) {
	c := r.Conflict
	e.Byte(conflictKind).
		Uint128(c.ID).
		Uint128(c.Proposal).
		Byte(byte(c.Resolution)).
		Natural(c.Tally.Up).
		Natural(c.Tally.Total)
}

func (r RootReply) encode(e *codec.Encoder) { e.Byte(rootKind).Raw(r.Root[:]) }

func (r Error) encode(e *codec.Encoder) {
	e.Byte(errorKind).Byte(byte(r.Code)).String(r.Message)
}

// MarshalRequest encodes a request as its kind byte followed by its fields.
func MarshalRequest(req Request) []byte {
	e := codec.NewEncoder()
	req.encode(e)
	return e.Result()
}

// MarshalResponse encodes a response as its kind byte followed by its fields.
func MarshalResponse(resp Response) []byte {
	e := codec.NewEncoder()
	resp.encode(e)
	return e.Result()
}

// UnmarshalRequest decodes a request written by MarshalRequest.
func UnmarshalRequest(b []byte) (Request, error) {
	d := codec.NewDecoder(b)
	var req Request
	switch kind := d.Byte(); kind {
	case getConflictCountKind:
		req = GetConflictCount{}
	case getAllVotesKind:
		req = GetAllVotes{ID: d.Uint128()}
	case createConflictKind:
		req = CreateConflict{Proposal: d.Uint128()}
	case voteOnConflictKind:
		id := d.Uint128()
		req = VoteOnConflict{ID: id, Choice: d.Bool()}
	case closeConflictKind:
		req = CloseConflict{ID: d.Uint128()}
	case nullConflictKind:
		req = NullConflict{ID: d.Uint128()}
	case getCountersKind:
		req = GetCounters{}
	case getConflictKind:
		req = GetConflict{ID: d.Uint128()}
	case getRootKind:
		req = GetRoot{}
	default:
		if d.Err() == nil {
			return nil, fmt.Errorf("unknown request kind %d", kind)
		}
	}
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// UnmarshalResponse decodes a response written by MarshalResponse.
func UnmarshalResponse(b []byte) (Response, error) {
	d := codec.NewDecoder(b)
	var resp Response
	switch kind := d.Byte(); kind {
	case countKind:
		resp = Count{Count: d.Uint128()}
	case votesKind:
		resp = decodeVotes(d)
	case createdKind:
		resp = Created{ID: d.Uint128()}
	case votedKind:
		resp = Voted{}
	case resolvedKind:
		resp = Resolved{Fate: d.Bool()}
	case countersKind:
		var c conflict.Counters
		c.Valid = d.Uint128()
		c.Invalid = d.Uint128()
		c.Null = d.Uint128()
		resp = CountersReply{Counters: c}
	case conflictKind:
		var c conflict.Conflict
		c.ID = d.Uint128()
		c.Proposal = d.Uint128()
		c.Resolution = conflict.Resolution(d.Byte())
		c.Tally.Up = d.Natural()
		c.Tally.Total = d.Natural()
		if c.Resolution > conflict.Null {
			return nil, fmt.Errorf("decode response: unknown resolution %d", c.Resolution)
		}
		resp = ConflictReply{Conflict: c}
	case rootKind:
		var r RootReply
		copy(r.Root[:], d.Raw(len(r.Root)))
		resp = r
	case errorKind:
		code := ErrorCode(d.Byte())
		resp = Error{Code: code, Message: d.String()}
	default:
		if d.Err() == nil {
			return nil, fmt.Errorf("unknown response kind %d", kind)
		}
	}
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func decodeVotes(d *codec.Decoder) Votes {
	n := d.Natural()
	// Every ballot takes at least two bytes, which bounds the allocation.
	if n > uint64(d.Remaining()) {
		n = uint64(d.Remaining())
	}
	ballots := make([]conflict.Ballot, 0, n)
	for i := uint64(0); i < n && d.Err() == nil; i++ {
		voter := d.String()
		ballots = append(ballots, conflict.Ballot{Voter: conflict.Identity(voter), Choice: d.Bool()})
	}
	return Votes{Ballots: ballots}
}
