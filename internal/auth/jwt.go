package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

// audience is the JWT "aud" claim, which the identity provider may encode
// as either a single string or an array of strings.
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = audience{single}
		return nil
	}
	var multiple []string
	if err := json.Unmarshal(data, &multiple); err != nil {
		return err
	}
	*a = audience(multiple)
	return nil
}

func (a audience) contains(want string) bool {
	for _, v := range a {
		if v == want {
			return true
		}
	}
	return false
}

// rawClaims mirrors the JWT payload shape issued by the identity provider.
type rawClaims struct {
	Issuer      string   `json:"iss"`
	Subject     string   `json:"sub"`
	NamespaceID string   `json:"namespace_id"`
	SessionID   string   `json:"session_id"`
	MfaVerified bool     `json:"mfa_verified"`
	Audience    audience `json:"aud"`
	ExpiresAt   int64    `json:"exp"`
}

// JWKSValidator validates JWTs issued by the identity provider: signature
// via JWKS, then issuer/audience/expiry and claim shape by hand.
type JWKSValidator struct {
	config Config
	keys   *keySet
}

// NewJWKSValidator builds a validator over cfg, with its own JWKS cache.
func NewJWKSValidator(ctx context.Context, cfg Config) *JWKSValidator {
	return &JWKSValidator{config: cfg, keys: newKeySet(ctx, cfg)}
}

// Validate implements Validator.
func (v *JWKSValidator) Validate(ctx context.Context, token string) (Claims, error) {
	payload, err := v.keys.verifySignature(ctx, token)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	var claims rawClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("invalid token claims: %w", err)
	}

	if claims.Issuer != v.config.Issuer() {
		return Claims{}, fmt.Errorf("invalid issuer")
	}
	if !claims.Audience.contains(v.config.Audience) {
		return Claims{}, fmt.Errorf("invalid audience")
	}
	expiresAt := time.Unix(claims.ExpiresAt, 0)
	if time.Now().After(expiresAt) {
		return Claims{}, fmt.Errorf("token expired")
	}

	identityID, err := ids.IdentityIDFromString(claims.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid identity id: %w", err)
	}
	namespaceID, err := ids.NamespaceIDFromString(claims.NamespaceID)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid namespace id: %w", err)
	}
	sessionID, err := ids.SessionIDFromString(claims.SessionID)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid session id: %w", err)
	}

	return Claims{
		IdentityID:  identityID,
		NamespaceID: namespaceID,
		SessionID:   sessionID,
		MfaVerified: claims.MfaVerified,
		ExpiresAt:   expiresAt,
	}, nil
}
