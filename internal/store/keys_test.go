package store

import (
	"testing"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

func TestUserAgentKeyRoundtrip(t *testing.T) {
	userID := ids.UserIDFromBytes([32]byte{1})
	agentID := ids.AgentIDFromBytes([32]byte{2})

	key := UserAgentKey(userID, agentID)
	if len(key) != 64 {
		t.Fatalf("expected 64 byte key, got %d", len(key))
	}

	extracted := ExtractAgentIDFromUserAgentKey(key)
	if extracted != agentID {
		t.Fatalf("extracted agent id mismatch: got %v want %v", extracted, agentID)
	}
}

func TestAgentSessionKeyRoundtrip(t *testing.T) {
	agentID := ids.AgentIDFromBytes([32]byte{1})
	sessionID := ids.GenerateSessionID()

	key := AgentSessionKey(agentID, sessionID)
	if len(key) != 48 {
		t.Fatalf("expected 48 byte key, got %d", len(key))
	}

	extracted, err := ExtractSessionIDFromAgentSessionKey(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extracted.String() != sessionID.String() {
		t.Fatalf("extracted session id mismatch: got %s want %s", extracted, sessionID)
	}
}

func TestPrefixScanSimulation(t *testing.T) {
	userID := ids.UserIDFromBytes([32]byte{1})
	agentID1 := ids.AgentIDFromBytes([32]byte{2})
	agentID2 := ids.AgentIDFromBytes([32]byte{3})

	key1 := UserAgentKey(userID, agentID1)
	key2 := UserAgentKey(userID, agentID2)
	prefix := UserPrefix(userID)

	if !hasPrefix(key1, prefix) {
		t.Error("key1 should start with user prefix")
	}
	if !hasPrefix(key2, prefix) {
		t.Error("key2 should start with user prefix")
	}
}
