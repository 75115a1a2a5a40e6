package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/control"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// noopScheduler is a control.SchedulerClient double that never actually talks
// to a cluster, for gateway tests that only need a control.Service to exist.
type noopScheduler struct{}

func (noopScheduler) ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error {
	return nil
}
func (noopScheduler) TerminateAgent(ctx context.Context, agentID ids.AgentId) error { return nil }
func (noopScheduler) GetPodStatus(ctx context.Context, agentID ids.AgentId) (control.PodStatusResponse, error) {
	return control.PodStatusResponse{}, nil
}
func (noopScheduler) GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error) {
	return "", false, nil
}
func (noopScheduler) GetResourceUsage(ctx context.Context, agentID ids.AgentId) (control.ResourceUsageResponse, bool, error) {
	return control.ResourceUsageResponse{}, false, nil
}

func newTestState(t *testing.T) *State {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "gateway.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctrl := control.NewService(s, noopScheduler{}, control.NewEventPublisher(""), control.DefaultConfig())
	return NewState(ctrl, nil, DefaultConfig())
}

// testRouter wires only auth.Middleware plus the session WS route, enough to
// drive sessionWS's pre-upgrade checks without a live Redis or rate limiter.
func testRouter(st *State) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(auth.Middleware(&auth.MockValidator{MfaVerified: true}))
	v1.GET("/sessions/:session_id/ws", st.sessionWS)
	return r
}

func TestSessionWSRejectsInactiveSessionWithConflict(t *testing.T) {
	st := newTestState(t)

	identityID := uuid.New()
	namespaceID := uuid.New()
	token := "test-token:" + identityID.String() + ":" + namespaceID.String()
	claimsIdentity, err := ids.IdentityIDFromString(identityID.String())
	if err != nil {
		t.Fatalf("identity id: %v", err)
	}
	userID := ids.DeriveUserID(claimsIdentity)

	agent, err := st.Control.CreateAgent(context.Background(), userID, control.CreateAgentRequest{Name: "agent"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	// Drive the agent to Running so CreateSession succeeds, then close the
	// session so it is no longer Active.
	if err := st.Control.NotifyStatusChange(context.Background(), agent.AgentID.Hex(), lifecycle.Running, ""); err != nil {
		t.Fatalf("notify running: %v", err)
	}
	session, err := st.Control.CreateSession(context.Background(), userID, agent.AgentID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.Control.CloseSession(userID, session.SessionID); err != nil {
		t.Fatalf("close session: %v", err)
	}

	router := testRouter(st)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+session.SessionID.String()+"/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 Conflict for a non-active session, got %d: %s", rec.Code, rec.Body.String())
	}
}
