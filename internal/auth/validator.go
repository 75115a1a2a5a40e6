package auth

import (
	"context"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

// Claims are the identity facts extracted from a validated JWT.
type Claims struct {
	IdentityID   ids.IdentityId
	NamespaceID  ids.NamespaceId
	SessionID    ids.SessionId
	MfaVerified  bool
	ExpiresAt    time.Time
}

// Validator validates a bearer token and extracts its claims.
type Validator interface {
	Validate(ctx context.Context, token string) (Claims, error)
}
