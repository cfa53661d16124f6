package libauth_test

import (
	"testing"
	"time"

	"github.com/contenox/pkgbot/libauth"
	"github.com/stretchr/testify/require"
)

func TestUnit_Token_RoundTrip(t *testing.T) {
	cfg := &libauth.Config{SigningKey: "secret", TokenTTL: time.Minute, Issuer: "pkgbot"}

	token, expiresAt, err := libauth.CreateToken(cfg, "runner", libauth.RoleAdmin)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := libauth.ValidateToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, "runner", claims.Identity)
	require.Equal(t, libauth.RoleAdmin, claims.Role)
}

func TestUnit_Token_WrongKeyFails(t *testing.T) {
	token, _, err := libauth.CreateToken(&libauth.Config{SigningKey: "one"}, "runner", libauth.RoleUser)
	require.NoError(t, err)

	_, err = libauth.ValidateToken(&libauth.Config{SigningKey: "two"}, token)
	require.ErrorIs(t, err, libauth.ErrTokenParsingFailed)
}

func TestUnit_Token_Expired(t *testing.T) {
	cfg := &libauth.Config{SigningKey: "secret", TokenTTL: time.Nanosecond}
	token, _, err := libauth.CreateToken(cfg, "runner", libauth.RoleUser)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = libauth.ValidateToken(cfg, token)
	require.ErrorIs(t, err, libauth.ErrTokenExpired)
}

func TestUnit_Token_Missing(t *testing.T) {
	_, err := libauth.ValidateToken(&libauth.Config{SigningKey: "secret"}, "")
	require.ErrorIs(t, err, libauth.ErrTokenMissing)
}

func TestUnit_Role_Allows(t *testing.T) {
	require.True(t, libauth.RoleAdmin.Allows(libauth.RoleUser))
	require.True(t, libauth.RoleAdmin.Allows(libauth.RoleAdmin))
	require.True(t, libauth.RoleUser.Allows(libauth.RoleUser))
	require.False(t, libauth.RoleUser.Allows(libauth.RoleAdmin))
	require.False(t, libauth.Role("").Allows(libauth.RoleUser))
}

func TestUnit_Password_HashAndCheck(t *testing.T) {
	hash, err := libauth.HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, libauth.CheckPassword(hash, "hunter2"))
	require.ErrorIs(t, libauth.CheckPassword(hash, "wrong"), libauth.ErrNotAuthorized)
	require.ErrorIs(t, libauth.CheckPassword("", "hunter2"), libauth.ErrNotAuthorized)
}
