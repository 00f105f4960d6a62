package transport

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/arbiter/pkg/network/cert"
	"github.com/eigerco/arbiter/pkg/network/message"
)

// ClientConfig configures Dial.
type ClientConfig struct {
	PrivateKey   ed25519.PrivateKey
	CertValidity time.Duration
	// ServerIdentity, when set, pins the identity the server must present.
	ServerIdentity string
}

// Client is a QUIC connection to a Server. Calls may run concurrently; each
// uses its own stream.
type Client struct {
	conn     quic.Connection
	identity string
}

// Dial connects to a server at addr.
func Dial(ctx context.Context, addr string, config ClientConfig) (*Client, error) {
	if len(config.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key required")
	}
	tlsCert, err := newCertificate(config.PrivateKey, config.CertValidity)
	if err != nil {
		return nil, err
	}

	tlsConf := clientTLSConfig(tlsCert, config.ServerIdentity)
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}

	return &Client{
		conn:     conn,
		identity: cert.KeyIdentity(config.PrivateKey),
	}, nil
}

// Identity returns the identity the server sees for this client.
func (c *Client) Identity() string {
	return c.identity
}

// Call sends payload on a fresh stream and waits for the response.
func (c *Client) Call(ctx context.Context, payload []byte) ([]byte, error) {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set stream deadline: %w", err)
		}
	}

	if err := message.Write(ctx, stream, payload); err != nil {
		stream.CancelRead(streamErrorInternal)
		return nil, fmt.Errorf("write request: %w", err)
	}
	// Closing the send side tells the server the request is complete.
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("close request stream: %w", err)
	}

	resp, err := message.Read(ctx, stream)
	if err != nil {
		stream.CancelRead(streamErrorInternal)
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp.Content, nil
}

// Close closes the connection and cancels all associated streams.
func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "")
}
