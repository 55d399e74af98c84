package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/web/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	s := State{Category: models.CategoryIssotExclusive, Offset: 24, Shown: 24, Total: 40}

	token := EncodeToken(s)
	assert.NotContains(t, token, "=")
	got, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!"},
		{"empty", ""},
		{"too few parts", enc("commentary,12,12")},
		{"unknown category", enc("sports,12,12,20")},
		{"negative offset", enc("commentary,-12,12,20")},
		{"not a number", enc("commentary,12,x,20")},
		{"off page boundary", enc("commentary,13,12,20")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
