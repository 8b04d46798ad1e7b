package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/park285/tictactoe-client/internal/match"
)

func TestSession(t *testing.T) {
	t.Run("Anonymous session sends no credentials", func(t *testing.T) {
		assert.False(t, Anonymous.Authenticated())
		assert.Empty(t, Anonymous.Headers())
		assert.Equal(t, match.UserID(""), Anonymous.Identity())
	})

	t.Run("Authenticated session carries a bearer token", func(t *testing.T) {
		s := New("  tok  ", User{ID: "7", Username: "alice"})

		assert.True(t, s.Authenticated())
		assert.Equal(t, "Bearer tok", s.Headers()["Authorization"])
		assert.Equal(t, match.UserID("7"), s.Identity())
	})
}
