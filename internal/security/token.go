// Package security mints the short-lived system tokens that scope one
// outbound call to a (tenant, application) pair, and carries the per-call
// security context through context.Context.
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SystemAdminRole is the role every system token asserts; remote services
// grant it full provisioning rights within the named tenant.
const SystemAdminRole = "system_admin"

// DefaultTokenTTL bounds how long a minted call token stays valid.
const DefaultTokenTTL = 2 * time.Minute

type systemClaims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	KeyTimestamp string `json:"keyTimestamp"`
}

// TokenProvider mints RSA-signed system tokens from the provisioner's own
// key pair.
type TokenProvider struct {
	keys *SystemKeys
}

func NewTokenProvider(keys *SystemKeys) *TokenProvider {
	return &TokenProvider{keys: keys}
}

// CreateToken builds a signed, time-limited assertion scoped to the given
// tenant and audience application.
func (p *TokenProvider) CreateToken(tenant, audience string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := &systemClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "system",
		},
		Role:         SystemAdminRole,
		KeyTimestamp: p.keys.Timestamp,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS512, claims)
	signed, err := token.SignedString(p.keys.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign system token: %w", err)
	}
	return signed, nil
}

// KeyTimestamp returns the key epoch the provisioner signs under.
func (p *TokenProvider) KeyTimestamp() string {
	return p.keys.Timestamp
}
