package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

// MockValidator accepts tokens of the form "test-token:<identity-uuid>:<namespace-uuid>"
// without any signature check. It exists for local development and tests
// when no identity provider is reachable; it must never be wired in
// when DEV_MODE is unset.
type MockValidator struct {
	MfaVerified bool
}

// Validate implements Validator.
func (v *MockValidator) Validate(_ context.Context, token string) (Claims, error) {
	rest, ok := strings.CutPrefix(token, "test-token:")
	if !ok {
		return Claims{}, fmt.Errorf("expected test-token:<identity>:<namespace>")
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return Claims{}, fmt.Errorf("expected test-token:<identity>:<namespace>")
	}

	identityID, err := ids.IdentityIDFromString(parts[0])
	if err != nil {
		return Claims{}, fmt.Errorf("invalid identity id: %w", err)
	}
	namespaceID, err := ids.NamespaceIDFromString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("invalid namespace id: %w", err)
	}

	return Claims{
		IdentityID:  identityID,
		NamespaceID: namespaceID,
		SessionID:   ids.GenerateSessionID(),
		MfaVerified: v.MfaVerified,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}
