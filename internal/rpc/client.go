package rpc

import (
	"context"
	"fmt"

	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/internal/conflict"
)

// Caller sends one encoded request and returns the encoded response.
// *transport.Client implements it.
type Caller interface {
	Call(ctx context.Context, payload []byte) ([]byte, error)
}

// Client mirrors the registry operations over a Caller. Registry errors come
// back as the conflict package sentinels.
type Client struct {
	conn Caller
}

func NewClient(conn Caller) *Client {
	return &Client{conn: conn}
}

func (c *Client) ConflictCount(ctx context.Context) (conflict.ID, error) {
	resp, err := call[Count](ctx, c, GetConflictCount{})
	if err != nil {
		return uint128.Zero, err
	}
	return resp.Count, nil
}

func (c *Client) Votes(ctx context.Context, id conflict.ID) ([]conflict.Ballot, error) {
	resp, err := call[Votes](ctx, c, GetAllVotes{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Ballots, nil
}

func (c *Client) CreateConflict(ctx context.Context, proposal conflict.ProposalID) (conflict.ID, error) {
	resp, err := call[Created](ctx, c, CreateConflict{Proposal: proposal})
	if err != nil {
		return uint128.Zero, err
	}
	return resp.ID, nil
}

func (c *Client) Vote(ctx context.Context, id conflict.ID, choice bool) error {
	_, err := call[Voted](ctx, c, VoteOnConflict{ID: id, Choice: choice})
	return err
}

// CloseConflict returns the fate of the closed conflict.
func (c *Client) CloseConflict(ctx context.Context, id conflict.ID) (bool, error) {
	resp, err := call[Resolved](ctx, c, CloseConflict{ID: id})
	if err != nil {
		return false, err
	}
	return resp.Fate, nil
}

func (c *Client) NullConflict(ctx context.Context, id conflict.ID) (bool, error) {
	resp, err := call[Resolved](ctx, c, NullConflict{ID: id})
	if err != nil {
		return false, err
	}
	return resp.Fate, nil
}

func (c *Client) Counters(ctx context.Context) (conflict.Counters, error) {
	resp, err := call[CountersReply](ctx, c, GetCounters{})
	if err != nil {
		return conflict.Counters{}, err
	}
	return resp.Counters, nil
}

func (c *Client) Conflict(ctx context.Context, id conflict.ID) (conflict.Conflict, error) {
	resp, err := call[ConflictReply](ctx, c, GetConflict{ID: id})
	if err != nil {
		return conflict.Conflict{}, err
	}
	return resp.Conflict, nil
}

func (c *Client) Root(ctx context.Context) (conflict.Digest, error) {
	resp, err := call[RootReply](ctx, c, GetRoot{})
	if err != nil {
		return conflict.Digest{}, err
	}
	return resp.Root, nil
}

// call sends req and expects a response of type T. An Error response is
// converted with Error.Err.
func call[T Response](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	b, err := c.conn.Call(ctx, MarshalRequest(req))
	if err != nil {
		return zero, fmt.Errorf("%T: %w", req, err)
	}
	resp, err := UnmarshalResponse(b)
	if err != nil {
		return zero, err
	}
	switch resp := resp.(type) {
	case T:
		return resp, nil
	case Error:
		return zero, resp.Err()
	default:
		return zero, fmt.Errorf("%w: %T for %T", ErrUnexpectedResponse, resp, req)
	}
}
