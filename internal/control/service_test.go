package control

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// fakeScheduler is an in-memory SchedulerClient double so control.Service
// tests never need a live scheduler or cluster.
type fakeScheduler struct {
	scheduleErr   error
	scheduleCalls int
	endpoint      string
	endpointOK    bool
	resourceUsed  ResourceUsageResponse
	resourceOK    bool
}

func (f *fakeScheduler) ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error {
	f.scheduleCalls++
	return f.scheduleErr
}

func (f *fakeScheduler) TerminateAgent(ctx context.Context, agentID ids.AgentId) error {
	return nil
}

func (f *fakeScheduler) GetPodStatus(ctx context.Context, agentID ids.AgentId) (PodStatusResponse, error) {
	return PodStatusResponse{Phase: "Running", Ready: true}, nil
}

func (f *fakeScheduler) GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error) {
	return f.endpoint, f.endpointOK, nil
}

func (f *fakeScheduler) GetResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsageResponse, bool, error) {
	return f.resourceUsed, f.resourceOK, nil
}

func newTestService(t *testing.T) (*Service, *fakeScheduler) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "control.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	sched := &fakeScheduler{}
	cfg := DefaultConfig()
	svc := NewService(s, sched, NewEventPublisher(""), cfg)
	return svc, sched
}

func TestCreateAndGetAgent(t *testing.T) {
	svc, _ := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{1})

	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "worker-1"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if agent.Status != lifecycle.Provisioning {
		t.Fatalf("expected new agent to be Provisioning, got %s", agent.Status)
	}

	got, err := svc.GetAgent(userID, agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Name != "worker-1" {
		t.Fatalf("unexpected name: %q", got.Name)
	}

	other := ids.UserIDFromBytes([32]byte{2})
	if _, err := svc.GetAgent(other, agent.AgentID); err == nil {
		t.Fatal("expected ownership error for a different user")
	}
}

func TestCreateAgentQuotaEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.MaxAgentsPerUser = 1
	userID := ids.UserIDFromBytes([32]byte{3})

	if _, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "a"}); err != nil {
		t.Fatalf("create first agent: %v", err)
	}
	if _, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "b"}); err == nil {
		t.Fatal("expected quota-exceeded error on second agent")
	}
}

func TestStopAgentTransitionsToStopping(t *testing.T) {
	svc, _ := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{4})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	// Force the agent straight to Running, as if the reconciler had observed
	// the pod come up.
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}

	stopped, err := svc.StopAgent(context.Background(), userID, agent.AgentID)
	if err != nil {
		t.Fatalf("stop agent: %v", err)
	}
	if stopped.Status != lifecycle.Stopping {
		t.Fatalf("expected Stopping, got %s", stopped.Status)
	}
}

func TestDeleteAgentRequiresTerminalState(t *testing.T) {
	svc, _ := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{5})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	if err := svc.DeleteAgent(userID, agent.AgentID); err == nil {
		t.Fatal("expected delete to fail while agent is Provisioning")
	}

	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	if _, err := svc.StopAgent(context.Background(), userID, agent.AgentID); err != nil {
		t.Fatalf("stop agent: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Stopped, ""); err != nil {
		t.Fatalf("notify stopped: %v", err)
	}

	if err := svc.DeleteAgent(userID, agent.AgentID); err != nil {
		t.Fatalf("expected delete to succeed once stopped: %v", err)
	}
	if _, err := svc.GetAgent(userID, agent.AgentID); err == nil {
		t.Fatal("expected agent to be gone after delete")
	}
}

func TestNotifyStatusChangeIgnoresStoppedWhileHibernating(t *testing.T) {
	svc, _ := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{6})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	if _, err := svc.HibernateAgent(context.Background(), userID, agent.AgentID); err != nil {
		t.Fatalf("hibernate agent: %v", err)
	}

	// The scheduler terminating the pod on purpose must not demote a
	// hibernating agent further.
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Stopped, ""); err != nil {
		t.Fatalf("notify stopped while hibernating: %v", err)
	}
	got, err := svc.GetAgent(userID, agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != lifecycle.Hibernating {
		t.Fatalf("expected agent to remain Hibernating, got %s", got.Status)
	}
}

func TestCreateSessionWakesIdleAgent(t *testing.T) {
	svc, sched := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{7})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Idle, ""); err != nil {
		t.Fatalf("notify idle: %v", err)
	}

	callsBeforeSession := sched.scheduleCalls
	session, err := svc.CreateSession(context.Background(), userID, agent.AgentID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sched.scheduleCalls != callsBeforeSession {
		t.Fatalf("expected waking an Idle (not Hibernating) agent not to re-provision, calls went from %d to %d", callsBeforeSession, sched.scheduleCalls)
	}
	if session.Status != store.SessionActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}

	got, err := svc.GetAgent(userID, agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != lifecycle.Running {
		t.Fatalf("expected agent woken to Running, got %s", got.Status)
	}
}

func TestCreateSessionReprovisionsHibernatingAgent(t *testing.T) {
	svc, sched := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{10})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	if _, err := svc.HibernateAgent(context.Background(), userID, agent.AgentID); err != nil {
		t.Fatalf("hibernate agent: %v", err)
	}

	callsBeforeSession := sched.scheduleCalls
	session, err := svc.CreateSession(context.Background(), userID, agent.AgentID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != store.SessionActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}
	if sched.scheduleCalls != callsBeforeSession+1 {
		t.Fatalf("expected ScheduleAgent to be called once to re-provision the hibernated pod, calls went from %d to %d", callsBeforeSession, sched.scheduleCalls)
	}

	got, err := svc.GetAgent(userID, agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != lifecycle.Running {
		t.Fatalf("expected agent woken to Running, got %s", got.Status)
	}
}

func TestCloseSessionDemotesAgentToIdle(t *testing.T) {
	svc, _ := newTestService(t)
	userID := ids.UserIDFromBytes([32]byte{8})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}

	session, err := svc.CreateSession(context.Background(), userID, agent.AgentID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := svc.CloseSession(userID, session.SessionID); err != nil {
		t.Fatalf("close session: %v", err)
	}
	// Closing an already-closed session is idempotent.
	if err := svc.CloseSession(userID, session.SessionID); err != nil {
		t.Fatalf("close session again: %v", err)
	}

	got, err := svc.GetAgent(userID, agent.AgentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Status != lifecycle.Idle {
		t.Fatalf("expected agent demoted to Idle, got %s", got.Status)
	}
}

func TestResolveAgentEndpointInactiveAgent(t *testing.T) {
	svc, sched := newTestService(t)
	sched.endpoint = "10.0.0.5:9000"
	sched.endpointOK = true
	userID := ids.UserIDFromBytes([32]byte{9})
	agent, err := svc.CreateAgent(context.Background(), userID, CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	// A new agent is Provisioning, which counts as active; hibernate it so
	// the first lookup sees an inactive agent.
	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	if _, err := svc.HibernateAgent(context.Background(), userID, agent.AgentID); err != nil {
		t.Fatalf("hibernate agent: %v", err)
	}

	_, found, err := svc.ResolveAgentEndpoint(context.Background(), agent.AgentID)
	if err != nil {
		t.Fatalf("resolve endpoint: %v", err)
	}
	if found {
		t.Fatal("expected no endpoint for a non-active agent")
	}

	if err := svc.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	endpoint, found, err := svc.ResolveAgentEndpoint(context.Background(), agent.AgentID)
	if err != nil {
		t.Fatalf("resolve endpoint: %v", err)
	}
	if !found || endpoint != "10.0.0.5:9000" {
		t.Fatalf("expected endpoint 10.0.0.5:9000, got %q found=%v", endpoint, found)
	}
}
