package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Password("me@qq.com")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.SetPassword("me@qq.com", "auth-code"))
	got, err := s.Password("me@qq.com")
	require.NoError(t, err)
	assert.Equal(t, "auth-code", got)

	require.NoError(t, s.SetPassword("me@qq.com", "rotated"))
	got, err = s.Password("me@qq.com")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got)

	require.NoError(t, s.DeletePassword("me@qq.com"))
	require.NoError(t, s.DeletePassword("me@qq.com"))
	_, err = s.Password("me@qq.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}
