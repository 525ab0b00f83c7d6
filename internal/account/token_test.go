package account_test

import (
	"testing"
	"time"

	"schedule-service/internal/account"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	tm := account.NewTokenManager("test-secret-key-for-testing", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := tm.Generate(42, "Rahim", "rahim@ustc.ac.bd", account.RoleTeacher)
		require.NoError(t, err)

		claims, err := tm.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.AccountID)
		assert.Equal(t, "Rahim", claims.Name)
		assert.Equal(t, "rahim@ustc.ac.bd", claims.Email)
		assert.Equal(t, account.RoleTeacher, claims.Role)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := account.NewTokenManager("some-other-secret", time.Hour)
		token, err := other.Generate(1, "Eve", "eve@example.com", account.RoleStudent)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.ErrorIs(t, err, account.ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := account.NewTokenManager("test-secret-key-for-testing", -time.Minute)
		token, err := expired.Generate(1, "Old", "old@example.com", account.RoleStudent)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.ErrorIs(t, err, account.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.Validate("not-a-token")
		assert.ErrorIs(t, err, account.ErrInvalidToken)
	})
}
