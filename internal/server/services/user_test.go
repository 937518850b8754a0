package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/cryptox"
	"github.com/dmitrijs2005/taskledger/internal/server/auth"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.users.Register(ctx, " Alice ", " Alice@Example.COM ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.True(t, cryptox.CheckPassword(u.PasswordHash, "correct horse"))

	_, err = h.users.Register(ctx, "Alice 2", "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, common.ErrConflict)

	tests := []struct {
		name, userName, email, password string
	}{
		{"empty name", "", "b@example.com", "password1"},
		{"bad email", "Bob", "not-an-email", "password1"},
		{"display name email", "Bob", "Bob <b@example.com>", "password1"},
		{"short password", "Bob", "b@example.com", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.users.Register(ctx, tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.users.Register(ctx, "Alice", "alice@example.com", "correct horse")
	require.NoError(t, err)

	pair, err := h.users.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)

	id, err := auth.GetUserIDFromToken(pair.AccessToken, []byte(h.cfg.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	stored := h.store.tokens[pair.RefreshToken]
	assert.Equal(t, u.ID, stored.UserID)
	assert.Equal(t, t0.Add(h.cfg.RefreshTokenValidityDuration), stored.Expires)

	_, err = h.users.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = h.users.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	h.store.failOn("users.get_by_email", errBoom)
	_, err = h.users.Login(ctx, "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestRefreshToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.users.Register(ctx, "Alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	pair, err := h.users.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	next, err := h.users.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// rotated: the old token is gone
	_, err = h.users.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	h.clock.Advance(h.cfg.RefreshTokenValidityDuration + time.Second)
	_, err = h.users.RefreshToken(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefreshToken_RollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.users.Register(ctx, "Alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	pair, err := h.users.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	h.store.failOn("tokens.create", errBoom)
	_, err = h.users.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorInternal)

	_, ok := h.store.tokens[pair.RefreshToken]
	assert.True(t, ok, "old refresh token must survive a failed rotation")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.users.Register(ctx, "Alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	p1, err := h.users.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	p2, err := h.users.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	uid, err := auth.GetUserIDFromToken(p1.AccessToken, []byte(h.cfg.SecretKey))
	require.NoError(t, err)
	require.NoError(t, h.users.Logout(ctx, uid))

	for _, tok := range []string{p1.RefreshToken, p2.RefreshToken} {
		_, err := h.users.RefreshToken(ctx, tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	}
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	home := h.addProject("home")
	admin := h.addUser("admin")
	dev := h.addUser("dev")
	h.addMember(home, admin, models.RoleSuperAdmin)
	h.addMember(home, dev, models.RoleDeveloper)

	_, err := h.users.CreateUser(ctx, dev, "Bob", "bob@example.com", "password1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	bob, err := h.users.CreateUser(ctx, admin, "Bob", "bob@example.com", "password1")
	require.NoError(t, err)

	got, err := h.users.GetUser(ctx, admin, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = h.users.GetUser(ctx, admin, "user-missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	all, err := h.users.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = h.users.ListUsers(ctx, dev)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	name, email, pw := "Robert", "Robert@Example.com", "new password"
	updated, err := h.users.UpdateUser(ctx, admin, bob.ID, models.UserPatch{Name: &name, Email: &email, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, "robert@example.com", updated.Email)
	assert.True(t, cryptox.CheckPassword(updated.PasswordHash, "new password"))

	bad := "nope"
	_, err = h.users.UpdateUser(ctx, admin, bob.ID, models.UserPatch{Email: &bad})
	assert.ErrorIs(t, err, common.ErrorValidation)

	assert.ErrorIs(t, h.users.DeleteUser(ctx, admin, admin), common.ErrInvalidOperation)
	assert.ErrorIs(t, h.users.DeleteUser(ctx, dev, bob.ID), common.ErrorUnauthorized)
	require.NoError(t, h.users.DeleteUser(ctx, admin, dev))
	_, ok := h.store.edge(home, dev)
	assert.False(t, ok)
	assert.ErrorIs(t, h.users.DeleteUser(ctx, admin, dev), common.ErrorNotFound)
}
