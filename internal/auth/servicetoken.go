package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// serviceClaims is the payload of an internal service token: just an issuer
// name and expiry, no user identity is carried across this channel.
type serviceClaims struct {
	jwt.RegisteredClaims
}

// ServiceTokenManager mints and verifies short-lived HMAC-signed tokens for
// the internal channel the reconciler uses to call the gateway/control
// services' restricted `/internal/*` routes. This is a machine credential,
// not a user one: it carries no identity claims.
type ServiceTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewServiceTokenManager builds a manager signing with secret under issuer
// name, with tokens valid for ttl (defaulting to 5 minutes).
func NewServiceTokenManager(secret []byte, issuer string, ttl time.Duration) *ServiceTokenManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ServiceTokenManager{secret: secret, issuer: issuer, ttl: ttl}
}

// Mint issues a new service token.
func (m *ServiceTokenManager) Mint() (string, error) {
	now := time.Now()
	claims := serviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// Verify checks a service token's signature and expiry. The issuer is not
// otherwise significant; it is not multi-tenant, unlike the JWKS path.
func (m *ServiceTokenManager) Verify(token string) error {
	_, err := jwt.ParseWithClaims(token, &serviceClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid service token: %w", err)
	}
	return nil
}
