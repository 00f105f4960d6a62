package cert

import (
	"crypto/ed25519"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// An identity is IdentityPrefix followed by the unpadded lower-case base32 of
// an Ed25519 public key. It is both the certificate's only DNS name and the
// caller identity recorded in the ledger.
const (
	IdentityPrefix = "e"
	IdentityLength = len(IdentityPrefix) + 52
)

var ErrInvalidIdentity = errors.New("invalid identity")

var identityEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Identity encodes a public key.
func Identity(pub ed25519.PublicKey) string {
	return IdentityPrefix + identityEncoding.EncodeToString(pub)
}

// KeyIdentity is the identity of the public half of key.
func KeyIdentity(key ed25519.PrivateKey) string {
	return Identity(key.Public().(ed25519.PublicKey))
}

// ParseIdentity decodes an identity back into its public key.
func ParseIdentity(identity string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(identity, IdentityPrefix)
	if !ok || len(identity) != IdentityLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	key, err := identityEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return key, nil
}
