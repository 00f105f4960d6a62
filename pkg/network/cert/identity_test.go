package cert

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	key := testKey(9)
	pub := key.Public().(ed25519.PublicKey)

	identity := KeyIdentity(key)
	assert.Equal(t, Identity(pub), identity)
	assert.Len(t, identity, IdentityLength)
	assert.True(t, strings.HasPrefix(identity, IdentityPrefix))
	assert.Equal(t, strings.ToLower(identity), identity, "identities are valid DNS labels")

	parsed, err := ParseIdentity(identity)
	require.NoError(t, err)
	assert.True(t, pub.Equal(parsed))

	assert.NotEqual(t, identity, KeyIdentity(testKey(10)))
}

func TestParseIdentityRejects(t *testing.T) {
	valid := KeyIdentity(testKey(4))

	for _, identity := range []string{
		"",
		"harry.near",
		valid[:IdentityLength-1],
		valid + "a",
		"x" + valid[1:],
		strings.ToUpper(valid),
		IdentityPrefix + strings.Repeat("1", IdentityLength-1),
	} {
		_, err := ParseIdentity(identity)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "identity %q", identity)
	}
}
