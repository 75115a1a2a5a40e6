package store

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

var (
	bucketMeta            = []byte("meta")
	bucketAgents          = []byte("agents")
	bucketAgentsByUser    = []byte("by_user")
	bucketAgentsByStatus  = []byte("by_status")
	bucketSessions        = []byte("sessions")
	bucketSessionsByAgent = []byte("sessions_by_agent")
	bucketUsers           = []byte("users")
)

var allBuckets = [][]byte{
	bucketMeta,
	bucketAgents,
	bucketAgentsByUser,
	bucketAgentsByStatus,
	bucketSessions,
	bucketSessionsByAgent,
	bucketUsers,
}

// schemaVersion is written to the meta bucket on first open and checked on
// every subsequent open, so a binary built against an incompatible layout
// refuses to run against an older database file rather than corrupting it.
const schemaVersion = 1

var metaSchemaVersionKey = []byte("schema_version")

// Store is the embedded, durable key-value store backing agents, sessions,
// and users, with secondary indexes maintained atomically alongside every
// primary-record write.
type Store struct {
	db *bolt.DB
}

// Open opens or creates a store database at path, creating all buckets and
// validating the on-disk schema version.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errBackend("open database", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errBackend("create bucket", err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		existing := meta.Get(metaSchemaVersionKey)
		if existing == nil {
			return meta.Put(metaSchemaVersionKey, []byte{schemaVersion})
		}
		if len(existing) != 1 || existing[0] != schemaVersion {
			return errBackend("incompatible schema version", nil)
		}
		return nil
	})
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func serialize(v interface{}) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, errSerialization("encode record", err)
	}
	return b, nil
}

func deserialize(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return errSerialization("decode record", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Agent operations
// ---------------------------------------------------------------------------

// PutAgent creates or updates an agent record, maintaining the by_user and
// by_status secondary indexes atomically in a single transaction. If the
// agent already exists and its status changed, the old by_status entry is
// removed.
func (s *Store) PutAgent(agent *Agent) error {
	value, err := serialize(agent)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		agents := tx.Bucket(bucketAgents)
		byUser := tx.Bucket(bucketAgentsByUser)
		byStatus := tx.Bucket(bucketAgentsByStatus)

		agentKey := AgentKey(agent.AgentID)

		var oldStatus *lifecycle.AgentState
		if existing := agents.Get(agentKey); existing != nil {
			var prev Agent
			if err := deserialize(existing, &prev); err != nil {
				return err
			}
			oldStatus = &prev.Status
		}

		if err := agents.Put(agentKey, value); err != nil {
			return errBackend("put agent", err)
		}
		if err := byUser.Put(UserAgentKey(agent.UserID, agent.AgentID), nil); err != nil {
			return errBackend("put by_user index", err)
		}
		if oldStatus != nil && *oldStatus != agent.Status {
			if err := byStatus.Delete(StatusAgentKey(*oldStatus, agent.AgentID)); err != nil {
				return errBackend("delete stale by_status index", err)
			}
		}
		if err := byStatus.Put(StatusAgentKey(agent.Status, agent.AgentID), nil); err != nil {
			return errBackend("put by_status index", err)
		}
		return nil
	})
}

// GetAgent returns the agent with the given ID, or a not-found error.
func (s *Store) GetAgent(agentID ids.AgentId) (*Agent, error) {
	var agent Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAgents).Get(AgentKey(agentID))
		if data == nil {
			return ErrNotFound
		}
		return deserialize(data, &agent)
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// DeleteAgent removes an agent and its secondary-index entries.
func (s *Store) DeleteAgent(agentID ids.AgentId) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		agents := tx.Bucket(bucketAgents)
		data := agents.Get(AgentKey(agentID))
		if data == nil {
			return ErrNotFound
		}
		var agent Agent
		if err := deserialize(data, &agent); err != nil {
			return err
		}

		if err := agents.Delete(AgentKey(agentID)); err != nil {
			return errBackend("delete agent", err)
		}
		if err := tx.Bucket(bucketAgentsByUser).Delete(UserAgentKey(agent.UserID, agentID)); err != nil {
			return errBackend("delete by_user index", err)
		}
		if err := tx.Bucket(bucketAgentsByStatus).Delete(StatusAgentKey(agent.Status, agentID)); err != nil {
			return errBackend("delete by_status index", err)
		}
		return nil
	})
}

// UpdateAgentStatus loads the agent, sets its status and UpdatedAt, and
// writes it back through PutAgent so the by_status index stays consistent.
func (s *Store) UpdateAgentStatus(agentID ids.AgentId, status lifecycle.AgentState) error {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return err
	}
	agent.Status = status
	agent.UpdatedAt = time.Now().UTC()
	return s.PutAgent(agent)
}

// ListAgentsByUser returns every agent owned by the given user, via a
// prefix scan of the by_user index.
func (s *Store) ListAgentsByUser(userID ids.UserId) ([]*Agent, error) {
	var out []*Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAgentsByUser).Cursor()
		prefix := UserPrefix(userID)
		agents := tx.Bucket(bucketAgents)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			agentID := ExtractAgentIDFromUserAgentKey(k)
			data := agents.Get(AgentKey(agentID))
			if data == nil {
				continue
			}
			var a Agent
			if err := deserialize(data, &a); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

// CountAgentsByUser returns the number of agents owned by the given user,
// without deserializing each record — used for quota enforcement.
func (s *Store) CountAgentsByUser(userID ids.UserId) (uint32, error) {
	var count uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAgentsByUser).Cursor()
		prefix := UserPrefix(userID)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListAgentsByStatus returns every agent in the given lifecycle state, via
// a prefix scan of the by_status index. Used by the idle-timeout sweep.
func (s *Store) ListAgentsByStatus(status lifecycle.AgentState) ([]*Agent, error) {
	var out []*Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAgentsByStatus).Cursor()
		prefix := StatusPrefix(status)
		agents := tx.Bucket(bucketAgents)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			var idBytes [32]byte
			copy(idBytes[:], k[1:33])
			agentID := ids.AgentIDFromBytes(idBytes)
			data := agents.Get(AgentKey(agentID))
			if data == nil {
				continue
			}
			var a Agent
			if err := deserialize(data, &a); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

// ListAllAgents returns every agent record via a full scan of the agents
// bucket; callers serving requests should prefer an indexed listing.
func (s *Store) ListAllAgents() ([]*Agent, error) {
	var out []*Agent
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAgents).ForEach(func(_, v []byte) error {
			var a Agent
			if err := deserialize(v, &a); err != nil {
				return err
			}
			out = append(out, &a)
			return nil
		})
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Session operations
// ---------------------------------------------------------------------------

// PutSession creates or updates a session record and its sessions_by_agent
// index entry in a single transaction.
func (s *Store) PutSession(session *Session) error {
	value, err := serialize(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSessions).Put(SessionKey(session.SessionID), value); err != nil {
			return errBackend("put session", err)
		}
		key := AgentSessionKey(session.AgentID, session.SessionID)
		if err := tx.Bucket(bucketSessionsByAgent).Put(key, nil); err != nil {
			return errBackend("put sessions_by_agent index", err)
		}
		return nil
	})
}

// GetSession returns the session with the given ID, or a not-found error.
func (s *Store) GetSession(sessionID ids.SessionId) (*Session, error) {
	var session Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get(SessionKey(sessionID))
		if data == nil {
			return ErrNotFound
		}
		return deserialize(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and its sessions_by_agent index entry.
func (s *Store) DeleteSession(sessionID ids.SessionId) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		data := sessions.Get(SessionKey(sessionID))
		if data == nil {
			return ErrNotFound
		}
		var session Session
		if err := deserialize(data, &session); err != nil {
			return err
		}
		if err := sessions.Delete(SessionKey(sessionID)); err != nil {
			return errBackend("delete session", err)
		}
		key := AgentSessionKey(session.AgentID, session.SessionID)
		if err := tx.Bucket(bucketSessionsByAgent).Delete(key); err != nil {
			return errBackend("delete sessions_by_agent index", err)
		}
		return nil
	})
}

// ListSessionsByAgent returns every session ever opened against an agent,
// via a prefix scan of the sessions_by_agent index.
func (s *Store) ListSessionsByAgent(agentID ids.AgentId) ([]*Session, error) {
	var out []*Session
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSessionsByAgent).Cursor()
		prefix := AgentPrefix(agentID)
		sessions := tx.Bucket(bucketSessions)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			sessionID, err := ExtractSessionIDFromAgentSessionKey(k)
			if err != nil {
				return errBackend("decode sessions_by_agent key", err)
			}
			data := sessions.Get(SessionKey(sessionID))
			if data == nil {
				continue
			}
			var sess Session
			if err := deserialize(data, &sess); err != nil {
				return err
			}
			out = append(out, &sess)
		}
		return nil
	})
	return out, err
}

// UpdateSessionStatus loads the session, sets its status (and ClosedAt if
// transitioning to closed), and writes it back.
func (s *Store) UpdateSessionStatus(sessionID ids.SessionId, status SessionStatus) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.Status = status
	if status == SessionClosed && session.ClosedAt == nil {
		now := time.Now().UTC()
		session.ClosedAt = &now
	}
	return s.PutSession(session)
}

// ---------------------------------------------------------------------------
// User operations
// ---------------------------------------------------------------------------

// PutUser creates or updates a user record.
func (s *Store) PutUser(user *User) error {
	value, err := serialize(user)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketUsers).Put(UserKey(user.UserID), value); err != nil {
			return errBackend("put user", err)
		}
		return nil
	})
}

// GetUser returns the user with the given ID, or a not-found error.
func (s *Store) GetUser(userID ids.UserId) (*User, error) {
	var user User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(UserKey(userID))
		if data == nil {
			return ErrNotFound
		}
		return deserialize(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
