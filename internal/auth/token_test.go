package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	token, err := codec.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenSignedWithDifferentKeyFails(t *testing.T) {
	issuer := NewTokenCodec([]byte("another-secret-key-of-decent-size"), time.Hour)
	verifier := NewTokenCodec(testSecret, time.Hour)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Nanosecond)

	token, err := codec.Issue("alice")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestNonPositiveTTLFallsBackToDefault(t *testing.T) {
	codec := NewTokenCodec(testSecret, -time.Minute)

	token, err := codec.Issue("alice")
	require.NoError(t, err)

	username, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestDecodeMalformedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	for _, tok := range []string{"garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := codec.Decode(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestDecodeEmptyToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	_, err := codec.Decode("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestIssueRequiresUsername(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	_, err := codec.Issue("")
	assert.Error(t, err)
}
