package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestAgent(userID ids.UserId, name string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		AgentID:   ids.GenerateAgentID(userID, name),
		UserID:    userID,
		Name:      name,
		Status:    lifecycle.Provisioning,
		Spec:      DefaultAgentSpec(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAgentCRUD(t *testing.T) {
	s := newTestStore(t)
	userID := ids.UserIDFromBytes([32]byte{9})
	agent := newTestAgent(userID, "agent-a")

	if err := s.PutAgent(agent); err != nil {
		t.Fatalf("put agent: %v", err)
	}

	got, err := s.GetAgent(agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Name != "agent-a" || got.Status != lifecycle.Provisioning {
		t.Fatalf("unexpected agent: %+v", got)
	}

	if err := s.UpdateAgentStatus(agent.AgentID, lifecycle.Running); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err = s.GetAgent(agent.AgentID)
	if err != nil {
		t.Fatalf("get agent after update: %v", err)
	}
	if got.Status != lifecycle.Running {
		t.Fatalf("expected Running, got %s", got.Status)
	}

	if err := s.DeleteAgent(agent.AgentID); err != nil {
		t.Fatalf("delete agent: %v", err)
	}
	if _, err := s.GetAgent(agent.AgentID); !IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestListAgentsByUser(t *testing.T) {
	s := newTestStore(t)
	user1 := ids.UserIDFromBytes([32]byte{1})
	user2 := ids.UserIDFromBytes([32]byte{2})

	a1 := newTestAgent(user1, "a1")
	a2 := newTestAgent(user1, "a2")
	a3 := newTestAgent(user2, "a3")

	for _, a := range []*Agent{a1, a2, a3} {
		if err := s.PutAgent(a); err != nil {
			t.Fatalf("put agent: %v", err)
		}
	}

	list, err := s.ListAgentsByUser(user1)
	if err != nil {
		t.Fatalf("list agents by user: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 agents for user1, got %d", len(list))
	}

	count, err := s.CountAgentsByUser(user1)
	if err != nil {
		t.Fatalf("count agents by user: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	count2, err := s.CountAgentsByUser(user2)
	if err != nil {
		t.Fatalf("count agents by user2: %v", err)
	}
	if count2 != 1 {
		t.Fatalf("expected count 1 for user2, got %d", count2)
	}
}

func TestListAgentsByStatus(t *testing.T) {
	s := newTestStore(t)
	userID := ids.UserIDFromBytes([32]byte{5})

	a1 := newTestAgent(userID, "a1")
	a1.Status = lifecycle.Running
	a2 := newTestAgent(userID, "a2")
	a2.Status = lifecycle.Running
	a3 := newTestAgent(userID, "a3")
	a3.Status = lifecycle.Idle

	for _, a := range []*Agent{a1, a2, a3} {
		if err := s.PutAgent(a); err != nil {
			t.Fatalf("put agent: %v", err)
		}
	}

	running, err := s.ListAgentsByStatus(lifecycle.Running)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(running) != 2 {
		t.Fatalf("expected 2 running agents, got %d", len(running))
	}

	idle, err := s.ListAgentsByStatus(lifecycle.Idle)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(idle) != 1 {
		t.Fatalf("expected 1 idle agent, got %d", len(idle))
	}
}

func TestStatusIndexUpdatedOnChange(t *testing.T) {
	s := newTestStore(t)
	userID := ids.UserIDFromBytes([32]byte{7})
	agent := newTestAgent(userID, "a1")
	agent.Status = lifecycle.Running

	if err := s.PutAgent(agent); err != nil {
		t.Fatalf("put agent: %v", err)
	}

	if err := s.UpdateAgentStatus(agent.AgentID, lifecycle.Idle); err != nil {
		t.Fatalf("update status: %v", err)
	}

	running, err := s.ListAgentsByStatus(lifecycle.Running)
	if err != nil {
		t.Fatalf("list by status running: %v", err)
	}
	for _, a := range running {
		if a.AgentID == agent.AgentID {
			t.Fatal("old status index entry should have been removed")
		}
	}

	idle, err := s.ListAgentsByStatus(lifecycle.Idle)
	if err != nil {
		t.Fatalf("list by status idle: %v", err)
	}
	found := false
	for _, a := range idle {
		if a.AgentID == agent.AgentID {
			found = true
		}
	}
	if !found {
		t.Fatal("new status index entry should have been added")
	}
}

func TestSessionCRUDAndListByAgent(t *testing.T) {
	s := newTestStore(t)
	userID := ids.UserIDFromBytes([32]byte{3})
	agent := newTestAgent(userID, "a1")
	if err := s.PutAgent(agent); err != nil {
		t.Fatalf("put agent: %v", err)
	}

	sess1 := &Session{
		SessionID: ids.GenerateSessionID(),
		AgentID:   agent.AgentID,
		UserID:    userID,
		Status:    SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	sess2 := &Session{
		SessionID: ids.GenerateSessionID(),
		AgentID:   agent.AgentID,
		UserID:    userID,
		Status:    SessionActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.PutSession(sess1); err != nil {
		t.Fatalf("put session: %v", err)
	}
	if err := s.PutSession(sess2); err != nil {
		t.Fatalf("put session: %v", err)
	}

	list, err := s.ListSessionsByAgent(agent.AgentID)
	if err != nil {
		t.Fatalf("list sessions by agent: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}

	if err := s.UpdateSessionStatus(sess1.SessionID, SessionClosed); err != nil {
		t.Fatalf("update session status: %v", err)
	}
	got, err := s.GetSession(sess1.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != SessionClosed || got.ClosedAt == nil {
		t.Fatalf("expected closed session with ClosedAt set, got %+v", got)
	}

	if err := s.DeleteSession(sess2.SessionID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.GetSession(sess2.SessionID); !IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}

	list, err = s.ListSessionsByAgent(agent.AgentID)
	if err != nil {
		t.Fatalf("list sessions by agent after delete: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session remaining, got %d", len(list))
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	userID := ids.UserIDFromBytes([32]byte{4})
	user := &User{
		UserID:    userID,
		Email:     "a@example.com",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutUser(user); err != nil {
		t.Fatalf("put user: %v", err)
	}
	got, err := s.GetUser(userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestSchemaVersionPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen should succeed with matching schema version: %v", err)
	}
	defer s2.Close()
}
