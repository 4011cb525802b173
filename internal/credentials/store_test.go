package credentials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestToken(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	require.NoError(t, s.SaveToken("https://API.example.com/v1/users", "secret"))

	// any path on the same origin shares the token
	token, err := s.Token("https://api.example.com/other?x=1")
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	_, err = s.Token("http://api.example.com/users")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteToken("https://api.example.com"))
	require.NoError(t, s.DeleteToken("https://api.example.com"))
	_, err = s.Token("https://api.example.com/users")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToken_Invalid(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	assert.Error(t, s.SaveToken("users", "secret"))
	assert.Error(t, s.SaveToken("https://api.example.com", ""))
	_, err := s.Token("::")
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	require.NoError(t, s.SavePassword("localhost", 5432, "app", "ann", "pw"))
	require.NoError(t, s.SavePassword("localhost", 5432, "app", "bo", ""))

	pw, err := s.Password("localhost", 5432, "app", "ann")
	require.NoError(t, err)
	assert.Equal(t, "pw", pw)

	_, err = s.Password("localhost", 5432, "app", "bo")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeletePassword("localhost", 5432, "app", "ann"))
	_, err = s.Password("localhost", 5432, "app", "ann")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringFailure(t *testing.T) {
	boom := errors.New("locked")
	keyring.MockInitWithError(boom)
	t.Cleanup(keyring.MockInit)
	s := NewStore()

	err := s.SavePassword("h", 1, "d", "u", "p")
	var secretErr *SecretError
	require.ErrorAs(t, err, &secretErr)
	assert.Equal(t, "save", secretErr.Op)
	assert.ErrorIs(t, err, boom)

	_, err = s.Password("h", 1, "d", "u")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
