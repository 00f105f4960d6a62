package cert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbiter.key")

	generated, err := GenerateKeyFile(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, KeyIdentity(generated), KeyIdentity(loaded))

	_, err = GenerateKeyFile(path)
	assert.Error(t, err, "existing key file must not be overwritten")
}

func TestLoadKeyFileRejects(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	for name, path := range map[string]string{
		"missing":    filepath.Join(dir, "missing.key"),
		"not_hex":    write("not_hex.key", "harry.near\n"),
		"short_seed": write("short.key", "0102\n"),
	} {
		_, err := LoadKeyFile(path)
		assert.Error(t, err, name)
	}
}
