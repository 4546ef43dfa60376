package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	assert.True(t, CheckPassword("secret123", digest))
	assert.False(t, CheckPassword("secret124", digest))
	assert.False(t, CheckPassword("", digest))
}

func TestPasswordDigestsDiffer(t *testing.T) {
	first, err := HashPassword("secret123")
	require.NoError(t, err)
	second, err := HashPassword("secret123")
	require.NoError(t, err)

	// Salted per call, so the same plaintext never produces the same digest.
	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword("secret123", first))
	assert.True(t, CheckPassword("secret123", second))
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	assert.False(t, CheckPassword("secret123", "not-a-bcrypt-digest"))
	assert.False(t, CheckPassword("secret123", ""))
}
