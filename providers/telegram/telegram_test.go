package telegram

import (
	"errors"
	"testing"

	"cashier/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID(" 1192041312 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1192041312), id)

	id, err = ParseChatID("-100987654321")
	require.NoError(t, err)
	assert.Equal(t, int64(-100987654321), id)

	for _, bad := range []string{"", "0", "@someone", "12ab"} {
		_, err := ParseChatID(bad)
		assert.True(t, errors.Is(err, providers.ErrInvalidIdentity), bad)
	}
}

func TestRegistered(t *testing.T) {
	_, err := providers.Open("TELEGRAM", providers.Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is empty")
}
