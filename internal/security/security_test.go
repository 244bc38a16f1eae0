package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAdminPassword(t *testing.T) {
	t.Run("deterministic per tenant and domain", func(t *testing.T) {
		assert.Equal(t, HashAdminPassword("acme", "local"), HashAdminPassword("acme", "local"))
	})

	t.Run("salted by tenant and domain", func(t *testing.T) {
		assert.NotEqual(t, HashAdminPassword("acme", "local"), HashAdminPassword("other", "local"))
		assert.NotEqual(t, HashAdminPassword("acme", "local"), HashAdminPassword("acme", "example.com"))
	})

	t.Run("produces base64 of a 256-bit hash", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(HashAdminPassword("acme", "local"))
		require.NoError(t, err)
		assert.Len(t, raw, 32)
	})
}

func newTestKeys(t *testing.T) *SystemKeys {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &SystemKeys{Timestamp: "2019-01-01T00_00_00", PrivateKey: key}
}

func TestCreateToken(t *testing.T) {
	keys := newTestKeys(t)
	provider := NewTokenProvider(keys)

	signed, err := provider.CreateToken("acme", "portfolio", time.Minute)
	require.NoError(t, err)

	token, err := jwt.ParseWithClaims(signed, &systemClaims{}, func(token *jwt.Token) (any, error) {
		require.IsType(t, &jwt.SigningMethodRSA{}, token.Method)
		return &keys.PrivateKey.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(*systemClaims)
	assert.Equal(t, "acme", claims.Subject)
	assert.Equal(t, jwt.ClaimStrings{"portfolio"}, claims.Audience)
	assert.Equal(t, SystemAdminRole, claims.Role)
	assert.Equal(t, "2019-01-01T00_00_00", claims.KeyTimestamp)

	expires, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires.Time, 5*time.Second)
}

func TestCallContextScoping(t *testing.T) {
	minter := NewMinter(NewTokenProvider(newTestKeys(t)), time.Minute)

	t.Run("system call carries tenant and token", func(t *testing.T) {
		ctx, err := minter.SystemCall(context.Background(), "acme", "portfolio")
		require.NoError(t, err)

		cc, ok := CallContextFrom(ctx)
		require.True(t, ok)
		assert.Equal(t, "acme", cc.Tenant)
		assert.Equal(t, "portfolio", cc.Application)
		assert.NotEmpty(t, cc.Token)
		assert.False(t, cc.Guest)
	})

	t.Run("guest call carries no token", func(t *testing.T) {
		cc, ok := CallContextFrom(GuestCall(context.Background(), "acme"))
		require.True(t, ok)
		assert.Equal(t, "acme", cc.Tenant)
		assert.Empty(t, cc.Token)
		assert.True(t, cc.Guest)
	})

	t.Run("derived contexts do not leak across calls", func(t *testing.T) {
		base := context.Background()
		_, err := minter.SystemCall(base, "acme", "portfolio")
		require.NoError(t, err)

		_, ok := CallContextFrom(base)
		assert.False(t, ok)
	})
}
