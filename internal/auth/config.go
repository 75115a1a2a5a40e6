// Package auth implements the identity gate (C2): JWKS-backed JWT
// verification against the upstream identity provider, a mock validator for
// local development, and an internal service-token scheme used for
// machine-to-machine calls between the reconciler and the gateway/control
// services.
package auth

import "fmt"

// Config configures JWT validation against the upstream identity provider.
type Config struct {
	// BaseURL is the identity provider's base URL, e.g. "https://auth.zero.tech".
	BaseURL string
	// Audience is the expected JWT "aud" claim.
	Audience string
	// JWKSRefreshSeconds is how long a fetched key set is trusted before
	// being re-fetched.
	JWKSRefreshSeconds uint64
}

// DefaultConfig mirrors the platform's default identity provider settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "https://auth.zero.tech",
		Audience:           "swarm-platform",
		JWKSRefreshSeconds: 300,
	}
}

// JWKSURL returns the identity provider's published key set endpoint.
func (c Config) JWKSURL() string {
	return fmt.Sprintf("%s/.well-known/jwks.json", c.BaseURL)
}

// Issuer returns the expected JWT "iss" claim.
func (c Config) Issuer() string {
	return c.BaseURL
}
