package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("secretA")
	require.NoError(t, err)
	assert.NotEqual(t, "secretA", digest)

	assert.True(t, hasher.Verify("secretA", digest))
	assert.False(t, hasher.Verify("wrong", digest))
	assert.False(t, hasher.Verify("", digest))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secretA")
	require.NoError(t, err)
	second, err := hasher.Hash("secretA")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("secretA", first))
	assert.True(t, hasher.Verify("secretA", second))
}

func TestPasswordHasherRejectsBogusCost(t *testing.T) {
	hasher := NewPasswordHasher(9999)

	digest, err := hasher.Hash("secretA")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("secretA", digest))
}

func TestVerifyGarbageDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("secretA", "not-a-bcrypt-digest"))
}
