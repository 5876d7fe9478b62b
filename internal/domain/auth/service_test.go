package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, revoker Revoker) (*Service, *KeyStore) {
	t.Helper()
	db := utils.SetupTestDB(t, &user.User{})
	users := user.NewService(user.NewRepository(db))
	ks := newTestKeyStore(t)
	return NewService(users, ks, revoker, "attendance", time.Hour), ks
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, ks := newTestService(t, nil)

	registered, err := svc.Register(ctx, user.RegisterRequest{
		Email: "prof@campus.edu", Password: "secret123", Name: "Prof", Role: user.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, registered.Role)

	res, err := svc.Login(ctx, user.LoginRequest{Email: "prof@campus.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, registered.ID, res.User.ID)

	claims, err := ks.Verify(res.AccessToken)
	require.NoError(t, err)
	require.NoError(t, claims.Validate("attendance"))
	assert.Equal(t, registered.ID.String(), claims.Subject())
	assert.Equal(t, user.RoleTeacher, claims.Role())
	assert.Equal(t, "prof@campus.edu", claims.Email())
	assert.WithinDuration(t, res.ExpiresAt, claims.Expiration(), time.Second)

	me, err := svc.Me(ctx, identityFromClaims(claims))
	require.NoError(t, err)
	assert.Equal(t, "prof@campus.edu", me.Email)

	_, err = svc.Login(ctx, user.LoginRequest{Email: "prof@campus.edu", Password: "nope-nope"})
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestService_RegisterAdminRefused(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Register(context.Background(), user.RegisterRequest{
		Email: "root@campus.edu", Password: "secret123", Name: "Root", Role: user.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrAdminRegistration)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)
	identity := &Identity{UserID: "u", TokenID: "jti-1", ExpiresAt: exp}

	t.Run("revokes the token", func(t *testing.T) {
		revoker := newMemoryRevoker()
		svc, _ := newTestService(t, revoker)

		require.NoError(t, svc.Logout(ctx, identity))
		revoked, err := revoker.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
		assert.Equal(t, exp, revoker.revoked["jti-1"])
	})

	t.Run("no revoker is a no-op", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		assert.NoError(t, svc.Logout(ctx, identity))
	})

	t.Run("missing identity", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		assert.ErrorIs(t, svc.Logout(ctx, nil), ErrMissingIdentity)
	})
}
