package auth

import (
	"context"
	"testing"
)

func TestMockValidatorAcceptsWellFormedToken(t *testing.T) {
	v := &MockValidator{}
	identity := "550e8400-e29b-41d4-a716-446655440000"
	namespace := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	claims, err := v.Validate(context.Background(), "test-token:"+identity+":"+namespace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.IdentityID.String() != identity {
		t.Errorf("identity id = %q, want %q", claims.IdentityID.String(), identity)
	}
	if claims.NamespaceID.String() != namespace {
		t.Errorf("namespace id = %q, want %q", claims.NamespaceID.String(), namespace)
	}
	if claims.MfaVerified {
		t.Error("expected mfa_verified false by default")
	}
}

func TestMockValidatorHonorsMfaFlag(t *testing.T) {
	v := &MockValidator{MfaVerified: true}
	identity := "550e8400-e29b-41d4-a716-446655440000"
	namespace := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	claims, err := v.Validate(context.Background(), "test-token:"+identity+":"+namespace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claims.MfaVerified {
		t.Error("expected mfa_verified true")
	}
}

func TestMockValidatorRejectsMalformed(t *testing.T) {
	v := &MockValidator{}

	cases := []string{
		"invalid-token",
		"test-token:not-a-uuid:also-not-a-uuid",
		"test-token:only-one-part",
	}
	for _, token := range cases {
		if _, err := v.Validate(context.Background(), token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}
