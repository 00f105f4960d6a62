// Package rpc exposes the conflict registry over the network: a tagged-union
// request/response protocol, the serializing service that hosts the registry
// and a typed client.
package rpc

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/pkg/log"
)

// Service hosts a registry. Requests from every connection are handled one at
// a time, so each registry operation runs to completion before the next
// starts.
type Service struct {
	mu       sync.Mutex
	registry *conflict.Registry
	logger   zerolog.Logger
}

func NewService(registry *conflict.Registry) *Service {
	return &Service{
		registry: registry,
		logger:   log.Network,
	}
}

// HandleRequest decodes a request, runs it as caller and encodes the answer.
// Failures are reported in-band as an Error response.
func (s *Service) HandleRequest(ctx context.Context, caller string, payload []byte) ([]byte, error) {
	req, err := UnmarshalRequest(payload)
	if err != nil {
		s.logger.Debug().Err(err).Str("caller", caller).Msg("rejecting malformed request")
		return MarshalResponse(Error{Code: CodeBadRequest, Message: err.Error()}), nil
	}
	resp, err := s.Handle(ctx, conflict.Identity(caller), req)
	if err != nil {
		return nil, err
	}
	return MarshalResponse(resp), nil
}

// Handle runs a decoded request as caller. The context is checked again once
// the service lock is held, so a request that expired while queued behind
// others returns ctx.Err() and changes nothing.
func (s *Service) Handle(ctx context.Context, caller conflict.Identity, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		s.logger.Debug().Err(err).Str("caller", string(caller)).Msgf("dropping expired %T", req)
		return nil, err
	}

	resp, err := s.dispatch(caller, req)
	if err != nil {
		e := errorResponse(err)
		if e.Code == CodeInternal {
			s.logger.Error().Err(err).Str("caller", string(caller)).Msgf("%T failed", req)
		} else {
			s.logger.Debug().Err(err).Str("caller", string(caller)).Msgf("%T rejected", req)
		}
		return e, nil
	}
	return resp, nil
}

func (s *Service) dispatch(caller conflict.Identity, req Request) (Response, error) {
	switch req := req.(type) {
	case GetConflictCount:
		count, err := s.registry.ConflictCount()
		if err != nil {
			return nil, err
		}
		return Count{Count: count}, nil
	case GetAllVotes:
		ballots, err := s.registry.Votes(req.ID)
		if err != nil {
			return nil, err
		}
		return Votes{Ballots: ballots}, nil
	case CreateConflict:
		id, err := s.registry.CreateConflict(caller, req.Proposal)
		if err != nil {
			return nil, err
		}
		return Created{ID: id}, nil
	case VoteOnConflict:
		if err := s.registry.Vote(caller, req.ID, req.Choice); err != nil {
			return nil, err
		}
		return Voted{}, nil
	case CloseConflict:
		fate, err := s.registry.CloseConflict(caller, req.ID)
		if err != nil {
			return nil, err
		}
		return Resolved{Fate: fate}, nil
	case NullConflict:
		ok, err := s.registry.NullConflict(caller, req.ID)
		if err != nil {
			return nil, err
		}
		return Resolved{Fate: ok}, nil
	case GetCounters:
		c, err := s.registry.Counters()
		if err != nil {
			return nil, err
		}
		return CountersReply{Counters: c}, nil
	case GetConflict:
		c, err := s.registry.Conflict(req.ID)
		if err != nil {
			return nil, err
		}
		return ConflictReply{Conflict: c}, nil
	case GetRoot:
		root, err := s.registry.Root()
		if err != nil {
			return nil, err
		}
		return RootReply{Root: root}, nil
	}
	return Error{Code: CodeBadRequest, Message: "unsupported request"}, nil
}
