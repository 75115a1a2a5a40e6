package store

import (
	"github.com/google/uuid"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

// AgentKey encodes the primary-key bytes for an agent record.
func AgentKey(agentID ids.AgentId) []byte {
	b := agentID.Bytes()
	return b[:]
}

// UserAgentKey encodes the by_user secondary-index key: user_id || agent_id.
// This supports an efficient prefix scan over all agents owned by a user.
func UserAgentKey(userID ids.UserId, agentID ids.AgentId) []byte {
	key := make([]byte, 0, 64)
	ub := userID.Bytes()
	ab := agentID.Bytes()
	key = append(key, ub[:]...)
	key = append(key, ab[:]...)
	return key
}

// UserPrefix encodes the by_user prefix for scanning all agents of a user.
func UserPrefix(userID ids.UserId) []byte {
	b := userID.Bytes()
	return b[:]
}

// ExtractAgentIDFromUserAgentKey pulls the trailing agent_id out of a
// by_user key. key must be at least 64 bytes.
func ExtractAgentIDFromUserAgentKey(key []byte) ids.AgentId {
	var b [32]byte
	copy(b[:], key[32:64])
	return ids.AgentIDFromBytes(b)
}

// StatusAgentKey encodes the by_status secondary-index key: status_byte ||
// agent_id. This supports an efficient prefix scan over all agents in a
// given lifecycle state.
func StatusAgentKey(status lifecycle.AgentState, agentID ids.AgentId) []byte {
	key := make([]byte, 0, 33)
	key = append(key, byte(status))
	ab := agentID.Bytes()
	key = append(key, ab[:]...)
	return key
}

// StatusPrefix encodes the by_status prefix for scanning all agents in a
// given lifecycle state.
func StatusPrefix(status lifecycle.AgentState) []byte {
	return []byte{byte(status)}
}

// SessionKey encodes the primary-key bytes for a session record.
func SessionKey(sessionID ids.SessionId) []byte {
	b := sessionID.AsBytes()
	return b[:]
}

// AgentSessionKey encodes the sessions_by_agent secondary-index key:
// agent_id || session_id. This supports an efficient prefix scan over all
// sessions belonging to an agent.
func AgentSessionKey(agentID ids.AgentId, sessionID ids.SessionId) []byte {
	key := make([]byte, 0, 48)
	ab := agentID.Bytes()
	sb := sessionID.AsBytes()
	key = append(key, ab[:]...)
	key = append(key, sb[:]...)
	return key
}

// AgentPrefix encodes the sessions_by_agent prefix for scanning all
// sessions of an agent.
func AgentPrefix(agentID ids.AgentId) []byte {
	b := agentID.Bytes()
	return b[:]
}

// ExtractSessionIDFromAgentSessionKey pulls the trailing session_id out of
// a sessions_by_agent key. key must be at least 48 bytes.
func ExtractSessionIDFromAgentSessionKey(key []byte) (ids.SessionId, error) {
	u, err := uuid.FromBytes(key[32:48])
	if err != nil {
		return ids.SessionId{}, err
	}
	return ids.SessionIDFromUUID(u), nil
}

// UserKey encodes the primary-key bytes for a user record.
func UserKey(userID ids.UserId) []byte {
	b := userID.Bytes()
	return b[:]
}
