package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("s3cret", RoomParams)
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparePasswordBadHash(t *testing.T) {
	_, err := ComparePasswordAndHash("pw", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTRoundTrip(t *testing.T) {
	require.NoError(t, Init())

	token, err := CreateJWT("user-123", "Alice")
	require.NoError(t, err)

	userID, name, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
	assert.Equal(t, "Alice", name)
}

func TestJWTRejectsGarbage(t *testing.T) {
	require.NoError(t, Init())

	_, _, err := AuthenticateJWT("not.a.token")
	assert.Error(t, err)
}
