package ids

import "testing"

func TestUserIDHexRoundtrip(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	u := UserIDFromBytes(raw)
	parsed, err := UserIDFromHex(u.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != u {
		t.Fatalf("roundtrip mismatch: got %v want %v", parsed, u)
	}
}

func TestUserIDFromHexRejectsBadLength(t *testing.T) {
	if _, err := UserIDFromHex("abcd"); err == nil {
		t.Fatal("expected error for short hex string")
	}
}

func TestUserIDFromHexRejectsNonHex(t *testing.T) {
	if _, err := UserIDFromHex("zz" + string(make([]byte, 62))); err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

func TestAgentIDDeterministicGenerationIsStable(t *testing.T) {
	userID := UserIDFromBytes([32]byte{1})
	id1 := GenerateDeterministicAgentID(userID, "test-agent", 123)
	id2 := GenerateDeterministicAgentID(userID, "test-agent", 123)
	if id1 != id2 {
		t.Fatal("deterministic generation with identical inputs must produce identical ids")
	}

	id3 := GenerateDeterministicAgentID(userID, "test-agent", 456)
	if id1 == id3 {
		t.Fatal("different seeds must produce different ids")
	}
}

func TestAgentIDGenerateProducesUniqueIDs(t *testing.T) {
	userID := UserIDFromBytes([32]byte{1})
	id1 := GenerateAgentID(userID, "test-agent")
	id2 := GenerateAgentID(userID, "test-agent")
	if id1 == id2 {
		t.Fatal("two successive Generate calls should not collide")
	}
}

func TestAgentIDHexRoundtrip(t *testing.T) {
	userID := UserIDFromBytes([32]byte{1})
	id := GenerateDeterministicAgentID(userID, "test", 42)
	parsed, err := AgentIDFromHex(id.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Fatal("agent id hex roundtrip mismatch")
	}
}

func TestSessionIDStringRoundtrip(t *testing.T) {
	id := GenerateSessionID()
	parsed, err := SessionIDFromString(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.String() != id.String() {
		t.Fatal("session id string roundtrip mismatch")
	}
}

func TestSessionIDFromStringRejectsMalformed(t *testing.T) {
	if _, err := SessionIDFromString("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}

func TestDeriveUserIDIsDeterministic(t *testing.T) {
	identity, err := IdentityIDFromString("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u1 := DeriveUserID(identity)
	u2 := DeriveUserID(identity)
	if u1 != u2 {
		t.Fatal("deriving a UserId from the same identity must be deterministic")
	}
	if len(u1.Bytes()) != 32 {
		t.Fatalf("expected 32 byte UserId, got %d", len(u1.Bytes()))
	}
}

func TestIdentityAndNamespaceIDRejectMalformed(t *testing.T) {
	if _, err := IdentityIDFromString("not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed identity uuid")
	}
	if _, err := NamespaceIDFromString("also-not-a-uuid"); err == nil {
		t.Fatal("expected error for malformed namespace uuid")
	}
}
