package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateToken_Tampered(t *testing.T) {
	token, err := GenerateToken(42)
	require.NoError(t, err)

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordSetAndMatches(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("hunter22"))
	require.NotEmpty(t, p.Hash)
	assert.NotEqual(t, "hunter22", p.Hash)

	ok, err := p.Matches("hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Matches("wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAct(t *testing.T) {
	tests := []struct {
		name   string
		p      Principal
		target int64
		want   bool
	}{
		{"self", Principal{ID: 7}, 7, true},
		{"other user", Principal{ID: 7}, 8, false},
		{"admin acting on other", Principal{ID: 1, IsAdmin: true}, 8, true},
		{"admin acting on self", Principal{ID: 1, IsAdmin: true}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAct(tt.p, tt.target))
		})
	}
}
