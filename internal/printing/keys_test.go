package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyShape(t *testing.T) {
	plain, prefix, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Len(t, plain, 48)
	assert.Regexp(t, "^[0-9a-f]{48}$", plain)
	assert.Equal(t, plain[:8], prefix)
	assert.NotEmpty(t, hash)
	assert.NotContains(t, hash, plain)
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		plain, _, _, err := GenerateAPIKey()
		require.NoError(t, err)
		assert.False(t, seen[plain])
		seen[plain] = true
	}
}

func TestCheckKeyRoundTrip(t *testing.T) {
	plain, _, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, CheckKey(plain, hash))

	wrong := plain[:47] + "a"
	if plain[47] == 'a' {
		wrong = plain[:47] + "b"
	}
	assert.False(t, CheckKey(wrong, hash))
	assert.False(t, CheckKey("", hash))
}

func TestRotationInvalidatesOldKey(t *testing.T) {
	oldPlain, _, oldHash, err := GenerateAPIKey()
	require.NoError(t, err)
	newPlain, _, newHash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, CheckKey(newPlain, newHash))
	assert.False(t, CheckKey(oldPlain, newHash))
	assert.False(t, CheckKey(newPlain, oldHash))
}
