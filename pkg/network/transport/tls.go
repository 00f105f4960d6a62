package transport

import (
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/arbiter/pkg/network/cert"
)

const (
	// ALPN is the only application protocol spoken over the transport.
	ALPN = "arbiter/1"

	// MaxIdleTimeout defines the maximum duration a connection can be idle before timing out
	MaxIdleTimeout = 5 * time.Minute

	// DefaultCertValidity is used when no validity period is configured.
	DefaultCertValidity = 24 * time.Hour
)

// StreamErrorCode values sent when a stream is aborted.
const (
	streamErrorInternal quic.StreamErrorCode = 1
)

func newCertificate(key ed25519.PrivateKey, validity time.Duration) (*tls.Certificate, error) {
	if validity <= 0 {
		validity = DefaultCertValidity
	}
	return cert.New(key, validity)
}

// verifyPeer validates the first raw certificate presented by the peer.
// Chain verification is replaced by the self-signed Ed25519 checks in
// cert.Verify, hence InsecureSkipVerify in both configs.
func verifyPeer(expected string) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
		}
		c, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
		}
		identity, err := cert.Verify(c, time.Now())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
		}
		if expected != "" && identity != expected {
			return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedPeer, identity, expected)
		}
		return nil
	}
}

func serverTLSConfig(c *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{*c},
		NextProtos:            []string{ALPN},
		ClientAuth:            tls.RequireAnyClientCert,
		MinVersion:            tls.VersionTLS13,
		InsecureSkipVerify:    true, //nolint:gosec
		VerifyPeerCertificate: verifyPeer(""),
	}
}

func clientTLSConfig(c *tls.Certificate, expected string) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{*c},
		NextProtos:            []string{ALPN},
		MinVersion:            tls.VersionTLS13,
		InsecureSkipVerify:    true, //nolint:gosec
		VerifyPeerCertificate: verifyPeer(expected),
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}
