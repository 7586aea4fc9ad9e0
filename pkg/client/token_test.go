package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bot abc", "abc"},
		{"bot abc", "abc"},
		{"Bearer abc", "abc"},
		{"BEARER   abc", "abc"},
		{"  abc  ", "abc"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeToken(tt.in), "NormalizeToken(%q)", tt.in)
	}
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, ValidateToken(testToken))
	assert.NoError(t, ValidateToken("mfa."+testToken))
	assert.ErrorIs(t, ValidateToken(""), ErrTokenRequired)
	assert.ErrorIs(t, ValidateToken("short.abcdef.ghijk"), ErrInvalidTokenFormat)
	assert.ErrorIs(t, ValidateToken("Bot "+testToken), ErrInvalidTokenFormat, "prefix must be stripped first")
}

func TestUserIDFromToken(t *testing.T) {
	id, err := UserIDFromToken(testToken)
	assert.NoError(t, err)
	assert.Equal(t, testUserID, id)

	id, err = UserIDFromToken("Bot " + testToken)
	assert.NoError(t, err)
	assert.Equal(t, testUserID, id)

	_, err = UserIDFromToken("")
	assert.ErrorIs(t, err, ErrTokenRequired)

	_, err = UserIDFromToken("!!!.x.y")
	assert.ErrorIs(t, err, ErrInvalidTokenFormat)
}

func TestMention(t *testing.T) {
	assert.Equal(t, "<@42>", Mention("42"))
}
