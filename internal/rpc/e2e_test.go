package rpc

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/arbiter/internal/conflict"
	"github.com/eigerco/arbiter/internal/store"
	"github.com/eigerco/arbiter/pkg/db/pebble"
	"github.com/eigerco/arbiter/pkg/network/cert"
	"github.com/eigerco/arbiter/pkg/network/transport"
)

func generateKey(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

func identityOf(key ed25519.PrivateKey) conflict.Identity {
	return conflict.Identity(cert.KeyIdentity(key))
}

func TestOverQUIC(t *testing.T) {
	authorityKey, voterKey := generateKey(t), generateKey(t)

	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	ledger := store.NewConflicts(kv)

	registry := conflict.NewRegistry(ledger, conflict.NewAuthorities(identityOf(authorityKey)))
	server, err := transport.NewServer(transport.Config{
		PrivateKey: generateKey(t),
		ListenAddr: "127.0.0.1:0",
	}, NewService(registry))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connect := func(key ed25519.PrivateKey) *Client {
		conn, err := transport.Dial(ctx, server.Addr().String(), transport.ClientConfig{
			PrivateKey:     key,
			ServerIdentity: server.Identity(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return NewClient(conn)
	}
	auth, voter := connect(authorityKey), connect(voterKey)

	_, err = voter.CreateConflict(ctx, uint128.From64(5))
	assert.ErrorIs(t, err, conflict.ErrUnauthorized)

	id, err := auth.CreateConflict(ctx, uint128.From64(5))
	require.NoError(t, err)

	require.NoError(t, voter.Vote(ctx, id, false))
	require.NoError(t, auth.Vote(ctx, id, true))
	assert.ErrorIs(t, voter.Vote(ctx, id, true), conflict.ErrDuplicateVote)

	ballots, err := voter.Votes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []conflict.Ballot{
		{Voter: identityOf(voterKey), Choice: false},
		{Voter: identityOf(authorityKey), Choice: true},
	}, ballots)

	_, err = voter.CloseConflict(ctx, id)
	assert.ErrorIs(t, err, conflict.ErrUnauthorized)

	fate, err := auth.CloseConflict(ctx, id)
	require.NoError(t, err)
	assert.True(t, fate)

	counters, err := voter.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(1), counters.Valid)
}
