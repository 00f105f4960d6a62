// Package cert issues and checks the self-signed Ed25519 certificates that
// bind a QUIC peer to its identity. There is no chain: a certificate is
// accepted when its single DNS name is the identity of its own key and it
// verifies under that key.
package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrUnsupportedKey   = errors.New("certificate is not ed25519")
	ErrIdentityMismatch = errors.New("certificate name does not match its key")
	ErrBadSignature     = errors.New("certificate signature does not verify")
	ErrNotYetValid      = errors.New("certificate is not yet valid")
	ErrExpired          = errors.New("certificate has expired")
)

// clockSkew backdates NotBefore for peers whose clocks run slightly behind.
const clockSkew = time.Minute

var serialLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// New issues a certificate for key that is valid from now for validity.
func New(key ed25519.PrivateKey, validity time.Duration) (*tls.Certificate, error) {
	return issue(key, time.Now(), validity)
}

func issue(key ed25519.PrivateKey, now time.Time, validity time.Duration) (*tls.Certificate, error) {
	identity := KeyIdentity(key)

	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return nil, fmt.Errorf("certificate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:       serial,
		Subject:            pkix.Name{CommonName: identity},
		DNSNames:           []string{identity},
		NotBefore:          now.Add(-clockSkew),
		NotAfter:           now.Add(validity),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		ExtKeyUsage:        []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		SignatureAlgorithm: x509.PureEd25519,

		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("create certificate for %s: %w", identity, err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate for %s: %w", identity, err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// Verify checks c as of now and returns the identity it binds.
func Verify(c *x509.Certificate, now time.Time) (string, error) {
	pub, ok := c.PublicKey.(ed25519.PublicKey)
	if !ok || c.SignatureAlgorithm != x509.PureEd25519 {
		return "", ErrUnsupportedKey
	}

	if len(c.DNSNames) != 1 {
		return "", fmt.Errorf("%w: %d dns names", ErrIdentityMismatch, len(c.DNSNames))
	}
	identity := c.DNSNames[0]
	named, err := ParseIdentity(identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityMismatch, err)
	}
	if !named.Equal(pub) {
		return "", fmt.Errorf("%w: %s", ErrIdentityMismatch, identity)
	}

	if err := c.CheckSignature(c.SignatureAlgorithm, c.RawTBSCertificate, c.Signature); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	switch {
	case now.Before(c.NotBefore):
		return "", ErrNotYetValid
	case now.After(c.NotAfter):
		return "", ErrExpired
	}
	return identity, nil
}
