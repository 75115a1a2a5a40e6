// Package control implements the orchestration service (C4): agent CRUD,
// lifecycle mutations, session management, quota enforcement, and ownership
// checks, sitting between the gateway and the state store / scheduler.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// Service is the control plane's implementation of every operation in the
// agent/session contract. Every mutating call verifies ownership before
// touching state, consults internal/lifecycle before persisting a
// transition, and logs the outcome.
type Service struct {
	store     *store.Store
	scheduler SchedulerClient
	events    *EventPublisher
	config    Config
	sanitizer *bluemonday.Policy
}

// NewService wires a control service over a store, scheduler client, and
// event publisher. Pass control.NewNoopSchedulerClient() and a disabled
// EventPublisher (NewEventPublisher("")) for environments without those
// ambient services.
func NewService(s *store.Store, scheduler SchedulerClient, events *EventPublisher, cfg Config) *Service {
	return &Service{
		store:     s,
		scheduler: scheduler,
		events:    events,
		config:    cfg,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *Service) verifyOwnership(userID ids.UserId, agent *store.Agent) error {
	if agent.UserID != userID {
		return apierrors.NotOwner(userID.Hex(), agent.AgentID.Hex())
	}
	return nil
}

func (s *Service) getAndVerify(userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.store.GetAgent(agentID)
	if store.IsNotFound(err) {
		return nil, apierrors.AgentNotFound(agentID.Hex())
	}
	if err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	if err := s.verifyOwnership(userID, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// transitionState validates and persists a state transition, then publishes
// a status-changed event.
func (s *Service) transitionState(agent *store.Agent, target lifecycle.AgentState) error {
	if !lifecycle.IsValidTransition(agent.Status, target) {
		return apierrors.InvalidState(agent.AgentID.Hex(), agent.Status.String(), target.String())
	}
	agent.Status = target
	agent.UpdatedAt = time.Now().UTC()
	if err := s.store.PutAgent(agent); err != nil {
		return apierrors.StoreBackend(err)
	}
	s.events.PublishStatusChanged(agent.AgentID.Hex(), agent.UserID.Hex(), target)
	return nil
}

// CreateAgent allocates a new agent for userID, subject to the per-user
// quota, and best-effort schedules its pod.
func (s *Service) CreateAgent(ctx context.Context, userID ids.UserId, req CreateAgentRequest) (*store.Agent, error) {
	count, err := s.store.CountAgentsByUser(userID)
	if err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	if count >= s.config.MaxAgentsPerUser {
		return nil, apierrors.QuotaExceeded(userID.Hex(), s.config.MaxAgentsPerUser)
	}

	spec := store.DefaultAgentSpec()
	if req.Spec != nil {
		spec = *req.Spec
	}

	name := s.sanitizer.Sanitize(req.Name)
	now := time.Now().UTC()
	agent := &store.Agent{
		AgentID:   ids.GenerateAgentID(userID, name),
		UserID:    userID,
		Name:      name,
		Status:    lifecycle.Provisioning,
		Spec:      spec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.PutAgent(agent); err != nil {
		return nil, apierrors.StoreBackend(err)
	}

	if err := s.scheduler.ScheduleAgent(ctx, agent.AgentID, userID.Hex(), spec); err != nil {
		msg := err.Error()
		agent.Status = lifecycle.Error
		agent.ErrorMessage = &msg
		agent.UpdatedAt = time.Now().UTC()
		if putErr := s.store.PutAgent(agent); putErr != nil {
			logger.Control().Error().Err(putErr).Str("agent_id", agent.AgentID.Hex()).Msg("failed to persist scheduling failure")
		}
		logger.Control().Error().Err(err).Str("agent_id", agent.AgentID.Hex()).Msg("failed to schedule agent")
	}

	s.events.PublishStatusChanged(agent.AgentID.Hex(), userID.Hex(), agent.Status)
	logger.Control().Info().Str("agent_id", agent.AgentID.Hex()).Str("user_id", userID.Hex()).Str("name", name).Msg("created agent")
	return agent, nil
}

// GetAgent returns an agent, verifying ownership.
func (s *Service) GetAgent(userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	return s.getAndVerify(userID, agentID)
}

// ListAgents returns every agent owned by userID.
func (s *Service) ListAgents(userID ids.UserId) ([]*store.Agent, error) {
	agents, err := s.store.ListAgentsByUser(userID)
	if err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	return agents, nil
}

// DeleteAgent removes an agent and cascades to its sessions. The agent must
// be in a terminal state (Stopped or Error).
func (s *Service) DeleteAgent(userID ids.UserId, agentID ids.AgentId) error {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return err
	}
	if !lifecycle.IsTerminal(agent.Status) {
		return apierrors.InvalidState(agentID.Hex(), agent.Status.String(), lifecycle.Stopped.String())
	}

	sessions, err := s.store.ListSessionsByAgent(agentID)
	if err != nil {
		return apierrors.StoreBackend(err)
	}
	for _, sess := range sessions {
		if err := s.store.DeleteSession(sess.SessionID); err != nil {
			return apierrors.StoreBackend(err)
		}
	}

	if err := s.store.DeleteAgent(agentID); err != nil {
		return apierrors.StoreBackend(err)
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Str("user_id", userID.Hex()).Msg("deleted agent")
	return nil
}

// StartAgent transitions a Stopped agent to Provisioning and (re)schedules it.
func (s *Service) StartAgent(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.transitionState(agent, lifecycle.Provisioning); err != nil {
		return nil, err
	}
	if err := s.scheduler.ScheduleAgent(ctx, agentID, userID.Hex(), agent.Spec); err != nil {
		logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to schedule agent on start")
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Msg("starting agent")
	return agent, nil
}

// StopAgent closes all active sessions and transitions the agent to Stopping.
func (s *Service) StopAgent(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.closeActiveSessions(agentID); err != nil {
		return nil, err
	}
	if err := s.transitionState(agent, lifecycle.Stopping); err != nil {
		return nil, err
	}
	if err := s.scheduler.TerminateAgent(ctx, agentID); err != nil {
		logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to terminate agent pod on stop")
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Msg("stopping agent")
	return agent, nil
}

// RestartAgent stops then starts an agent. In the absence of a real
// scheduler round trip, it performs the synthetic Stopping -> Stopped ->
// Provisioning sequence locally rather than waiting for the reconciler to
// observe actual pod teardown. This mirrors a known race in the source
// system (see the design notes on restart): the reconciler may still
// observe the old pod terminating after this synthetic Stopped is recorded,
// momentarily reverting the agent to Stopped before it provisions again.
func (s *Service) RestartAgent(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.StopAgent(ctx, userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.transitionState(agent, lifecycle.Stopped); err != nil {
		return nil, err
	}
	if err := s.transitionState(agent, lifecycle.Provisioning); err != nil {
		return nil, err
	}
	if err := s.scheduler.ScheduleAgent(ctx, agentID, userID.Hex(), agent.Spec); err != nil {
		logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to schedule agent on restart")
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Msg("restarting agent")
	return agent, nil
}

// HibernateAgent closes active sessions and releases the agent's pod while
// preserving its logical state.
func (s *Service) HibernateAgent(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.closeActiveSessions(agentID); err != nil {
		return nil, err
	}
	if err := s.transitionState(agent, lifecycle.Hibernating); err != nil {
		return nil, err
	}
	if err := s.scheduler.TerminateAgent(ctx, agentID); err != nil {
		logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to terminate agent pod on hibernate")
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Msg("hibernating agent")
	return agent, nil
}

// WakeAgent brings a Hibernating agent directly to Running, or a Stopped
// agent back through Provisioning.
func (s *Service) WakeAgent(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error) {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanWake(agent.Status) {
		return nil, apierrors.InvalidState(agentID.Hex(), agent.Status.String(), lifecycle.Running.String())
	}

	target := lifecycle.Provisioning
	if agent.Status == lifecycle.Hibernating {
		target = lifecycle.Running
	}
	if err := s.transitionState(agent, target); err != nil {
		return nil, err
	}
	if target == lifecycle.Provisioning {
		if err := s.scheduler.ScheduleAgent(ctx, agentID, userID.Hex(), agent.Spec); err != nil {
			logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to schedule agent on wake")
		}
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Msg("waking agent")
	return agent, nil
}

// HibernateAgentBySweep hibernates an Idle agent on the idle sweeper's
// behalf. Unlike HibernateAgent it takes the already-loaded agent record
// directly and skips ownership verification: the sweeper iterates the
// by-status index system-wide, not on behalf of any one caller.
func (s *Service) HibernateAgentBySweep(ctx context.Context, agent *store.Agent) error {
	if err := s.closeActiveSessions(agent.AgentID); err != nil {
		return err
	}
	if err := s.transitionState(agent, lifecycle.Hibernating); err != nil {
		return err
	}
	if err := s.scheduler.TerminateAgent(ctx, agent.AgentID); err != nil {
		logger.Control().Error().Err(err).Str("agent_id", agent.AgentID.Hex()).Msg("failed to terminate agent pod on idle-sweep hibernate")
	}
	return nil
}

func (s *Service) closeActiveSessions(agentID ids.AgentId) error {
	sessions, err := s.store.ListSessionsByAgent(agentID)
	if err != nil {
		return apierrors.StoreBackend(err)
	}
	for _, sess := range sessions {
		if sess.Status == store.SessionActive {
			if err := s.store.UpdateSessionStatus(sess.SessionID, store.SessionClosed); err != nil {
				return apierrors.StoreBackend(err)
			}
		}
	}
	return nil
}

// NotifyStatusChange implements scheduler.StatusNotifier, letting the
// reconciler push an externally-observed pod status directly into the
// control service (in-process) or through the gateway's internal endpoint
// (cross-process). A Stopped report is skipped while the agent is
// Hibernating: the pod's teardown on hibernate is voluntary and must not be
// mistaken for a crash.
func (s *Service) NotifyStatusChange(_ context.Context, agentIDHex string, status lifecycle.AgentState, message string) error {
	agentID, err := ids.AgentIDFromHex(agentIDHex)
	if err != nil {
		return fmt.Errorf("invalid agent id %q: %w", agentIDHex, err)
	}
	agent, err := s.store.GetAgent(agentID)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apierrors.StoreBackend(err)
	}

	if status == lifecycle.Stopped && agent.Status == lifecycle.Hibernating {
		return nil
	}
	if !lifecycle.IsValidTransition(agent.Status, status) {
		logger.Control().Debug().Str("agent_id", agentIDHex).Str("from", agent.Status.String()).Str("to", status.String()).Msg("ignoring invalid externally-observed transition")
		return nil
	}

	if message != "" {
		agent.ErrorMessage = &message
	} else {
		agent.ErrorMessage = nil
	}
	return s.transitionState(agent, status)
}

// ProcessHeartbeat records a liveness signal from an agent's pod.
func (s *Service) ProcessHeartbeat(agentID ids.AgentId) error {
	agent, err := s.store.GetAgent(agentID)
	if store.IsNotFound(err) {
		return apierrors.AgentNotFound(agentID.Hex())
	}
	if err != nil {
		return apierrors.StoreBackend(err)
	}
	now := time.Now().UTC()
	agent.LastHeartbeatAt = &now
	agent.UpdatedAt = now
	if err := s.store.PutAgent(agent); err != nil {
		return apierrors.StoreBackend(err)
	}
	logger.Control().Debug().Str("agent_id", agentID.Hex()).Msg("processed heartbeat")
	return nil
}

// ResolveAgentEndpoint returns the agent's network endpoint if it is active.
func (s *Service) ResolveAgentEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error) {
	agent, err := s.store.GetAgent(agentID)
	if store.IsNotFound(err) {
		return "", false, apierrors.AgentNotFound(agentID.Hex())
	}
	if err != nil {
		return "", false, apierrors.StoreBackend(err)
	}
	if !lifecycle.IsActive(agent.Status) {
		return "", false, nil
	}
	endpoint, found, err := s.scheduler.GetPodEndpoint(ctx, agentID)
	if err != nil {
		return "", false, apierrors.SchedulerBackend(err)
	}
	return endpoint, found, nil
}

// CreateSession opens a session against an agent, waking it if necessary.
// Running requires no transition; Idle and Hibernating wake directly to
// Running; Stopped restarts through Provisioning; Provisioning, Stopping,
// and Error reject the request outright.
func (s *Service) CreateSession(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Session, error) {
	agent, err := s.getAndVerify(userID, agentID)
	if err != nil {
		return nil, err
	}

	switch agent.Status {
	case lifecycle.Running:
		// no transition needed
	case lifecycle.Idle, lifecycle.Hibernating:
		wasHibernating := agent.Status == lifecycle.Hibernating
		if err := s.transitionState(agent, lifecycle.Running); err != nil {
			return nil, err
		}
		if wasHibernating {
			// Hibernate tore the pod down via C5.Terminate, so waking it for a
			// new session must re-provision it, not just confirm liveness.
			if err := s.scheduler.ScheduleAgent(ctx, agentID, userID.Hex(), agent.Spec); err != nil {
				logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to schedule agent on session wake from hibernation")
			}
		} else if _, err := s.scheduler.GetPodStatus(ctx, agentID); err != nil {
			logger.Control().Warn().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to confirm pod status on wake for session")
		}
	case lifecycle.Stopped:
		if err := s.transitionState(agent, lifecycle.Provisioning); err != nil {
			return nil, err
		}
		if err := s.scheduler.ScheduleAgent(ctx, agentID, userID.Hex(), agent.Spec); err != nil {
			logger.Control().Error().Err(err).Str("agent_id", agentID.Hex()).Msg("failed to schedule agent for session")
		}
	default:
		return nil, apierrors.AgentNotRunnable(agentID.Hex())
	}

	session := &store.Session{
		SessionID: ids.GenerateSessionID(),
		AgentID:   agentID,
		UserID:    userID,
		Status:    store.SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutSession(session); err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	logger.Control().Info().Str("agent_id", agentID.Hex()).Str("session_id", session.SessionID.String()).Msg("created session")
	return session, nil
}

// GetSession returns a session, verifying the caller owns its agent.
func (s *Service) GetSession(userID ids.UserId, sessionID ids.SessionId) (*store.Session, error) {
	session, err := s.store.GetSession(sessionID)
	if store.IsNotFound(err) {
		return nil, apierrors.SessionNotFound(sessionID.String())
	}
	if err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	if session.UserID != userID {
		return nil, apierrors.NotOwner(userID.Hex(), session.AgentID.Hex())
	}
	return session, nil
}

// ListSessions returns every session recorded against agentID.
func (s *Service) ListSessions(userID ids.UserId, agentID ids.AgentId) ([]*store.Session, error) {
	if _, err := s.getAndVerify(userID, agentID); err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessionsByAgent(agentID)
	if err != nil {
		return nil, apierrors.StoreBackend(err)
	}
	return sessions, nil
}

// CloseSession closes an active session. Closing an already-closed session
// is idempotent. If this was the agent's last active session, the agent
// demotes to Idle.
func (s *Service) CloseSession(userID ids.UserId, sessionID ids.SessionId) error {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return err
	}
	if session.Status == store.SessionClosed {
		return nil
	}
	if err := s.store.UpdateSessionStatus(sessionID, store.SessionClosed); err != nil {
		return apierrors.StoreBackend(err)
	}

	remaining, err := s.store.ListSessionsByAgent(session.AgentID)
	if err != nil {
		return apierrors.StoreBackend(err)
	}
	stillActive := false
	for _, sess := range remaining {
		if sess.Status == store.SessionActive {
			stillActive = true
			break
		}
	}
	if stillActive {
		return nil
	}

	agent, err := s.store.GetAgent(session.AgentID)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apierrors.StoreBackend(err)
	}
	if agent.Status == lifecycle.Running {
		if err := s.transitionState(agent, lifecycle.Idle); err != nil {
			return err
		}
	}
	return nil
}

// GetAgentResourceUsage queries the scheduler for the agent pod's live
// CPU/memory usage.
func (s *Service) GetAgentResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsageResponse, time.Time, error) {
	usage, found, err := s.scheduler.GetResourceUsage(ctx, agentID)
	if err != nil {
		return ResourceUsageResponse{}, time.Time{}, apierrors.SchedulerBackend(err)
	}
	if !found {
		return ResourceUsageResponse{}, time.Time{}, apierrors.AgentUnavailable(agentID.Hex())
	}
	return usage, time.Now().UTC(), nil
}
