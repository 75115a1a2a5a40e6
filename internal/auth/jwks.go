package auth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
)

// keySet wraps go-oidc's RemoteKeySet, which fetches and caches the
// identity provider's published signing keys and verifies JWT signatures
// against them by kid. Used here purely as a JWKS client — this service
// never performs the OIDC discovery/login flow the rest of the library
// is built around.
type keySet struct {
	remote *oidc.RemoteKeySet
}

// newKeySet builds a key set over cfg's JWKS endpoint.
func newKeySet(ctx context.Context, cfg Config) *keySet {
	return &keySet{remote: oidc.NewRemoteKeySet(ctx, cfg.JWKSURL())}
}

// verifySignature checks token's signature against the key set and returns
// its decoded payload. Claim validation (issuer, audience, expiry) is the
// caller's responsibility.
func (k *keySet) verifySignature(ctx context.Context, token string) ([]byte, error) {
	return k.remote.VerifySignature(ctx, token)
}
