package transport

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/arbiter/pkg/network/cert"
)

func newKey(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

func startServer(t *testing.T, handler Handler) *Server {
	server, err := NewServer(Config{
		PrivateKey: newKey(t),
		ListenAddr: "127.0.0.1:0",
	}, handler)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		if err := server.Stop(); err != nil {
			t.Logf("failed to stop server: %v", err)
		}
	})
	return server
}

func dial(t *testing.T, server *Server, key ed25519.PrivateKey) *Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, server.Addr().String(), ClientConfig{
		PrivateKey:     key,
		ServerIdentity: server.Identity(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// echoCaller answers every request with the caller identity followed by the
// request payload.
var echoCaller = HandlerFunc(func(_ context.Context, caller string, payload []byte) ([]byte, error) {
	return append([]byte(caller+":"), payload...), nil
})

func TestCallCarriesCallerIdentity(t *testing.T) {
	server := startServer(t, echoCaller)
	key := newKey(t)
	client := dial(t, server, key)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Call(ctx, []byte("ping"))
	require.NoError(t, err)

	identity := cert.KeyIdentity(key)
	assert.Equal(t, identity, client.Identity())
	assert.Equal(t, identity+":ping", string(resp))
}

func TestConcurrentCalls(t *testing.T) {
	server := startServer(t, echoCaller)
	client := dial(t, server, newKey(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte{byte(i)}
			resp, err := client.Call(ctx, payload)
			if err != nil {
				errs <- err
				return
			}
			if resp[len(resp)-1] != byte(i) {
				errs <- errors.New("response for wrong request")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestHandlerErrorAbortsStream(t *testing.T) {
	server := startServer(t, HandlerFunc(func(context.Context, string, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}))
	client := dial(t, server, newKey(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Call(ctx, []byte("ping"))
	assert.Error(t, err)
}

func TestDialRejectsUnexpectedServer(t *testing.T) {
	server := startServer(t, echoCaller)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	other := newKey(t)
	_, err := Dial(ctx, server.Addr().String(), ClientConfig{
		PrivateKey:     newKey(t),
		ServerIdentity: cert.KeyIdentity(other),
	})
	assert.ErrorIs(t, err, ErrDialFailed)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(Config{ListenAddr: "127.0.0.1:0"}, echoCaller)
	assert.Error(t, err)

	_, err = NewServer(Config{PrivateKey: newKey(t)}, nil)
	assert.Error(t, err)

	_, err = Dial(context.Background(), "127.0.0.1:1", ClientConfig{})
	assert.Error(t, err)
}
