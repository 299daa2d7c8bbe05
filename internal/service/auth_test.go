package service

import (
	"context"
	"strings"
	"testing"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(admins ...string) (*AuthService, *repository.MemStore) {
	store := repository.NewMemStore()
	isAdmin := func(email string) bool {
		for _, a := range admins {
			if strings.EqualFold(a, email) {
				return true
			}
		}
		return false
	}
	return NewAuthService(store, isAdmin), store
}

func TestRegister(t *testing.T) {
	auth, _ := newAuth("boss@example.com")
	ctx := context.Background()

	u, err := auth.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.Regexp(t, `^TAP[0-9A-Z]{8}$`, u.ReferralCode)
	assert.True(t, u.USDTBalance.IsZero())

	admin, err := auth.Register(ctx, RegisterInput{Email: "BOSS@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}

func TestRegister_Validation(t *testing.T) {
	auth, _ := newAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "12345"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = auth.Register(ctx, RegisterInput{Email: "A@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = auth.Register(ctx, RegisterInput{Email: "b@example.com", Password: "secret1", ReferredBy: "TAPNOPE0000"})
	assert.ErrorIs(t, err, ErrInvalidReferral)
}

func TestRegister_WithReferral(t *testing.T) {
	auth, store := newAuth()
	ctx := context.Background()

	inviter, err := auth.Register(ctx, RegisterInput{Email: "inviter@example.com", Password: "secret1"})
	require.NoError(t, err)

	invited, err := auth.Register(ctx, RegisterInput{
		Email:      "friend@example.com",
		Password:   "secret1",
		ReferredBy: strings.ToLower(inviter.ReferralCode),
	})
	require.NoError(t, err)
	require.NotNil(t, invited.ReferredBy)
	assert.Equal(t, inviter.ID, *invited.ReferredBy)

	summary, err := NewReferralService(store).Summary(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, inviter.ReferralCode, summary.Code)
	assert.Equal(t, 1, summary.Count)
	require.Len(t, summary.Referrals, 1)
	assert.Equal(t, "f***@example.com", summary.Referrals[0].Email)
}

func TestLogin(t *testing.T) {
	auth, _ := newAuth()
	ctx := context.Background()

	registered, err := auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := auth.Login(ctx, "A@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = auth.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "missing@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.CurrentUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		assert.Len(t, code, 11)
		assert.True(t, strings.HasPrefix(code, "TAP"))
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestPolicy(t *testing.T) {
	var p Policy
	user := &domain.User{ID: "u1"}
	admin := &domain.User{ID: "a1", IsAdmin: true}

	assert.False(t, p.IsAdmin(nil))
	assert.False(t, p.IsAdmin(user))
	assert.True(t, p.IsAdmin(admin))

	assert.True(t, p.CanActFor(user, "u1"))
	assert.False(t, p.CanActFor(user, "u2"))
	assert.True(t, p.CanActFor(admin, "u2"))
	assert.False(t, p.CanActFor(nil, "u1"))
}
