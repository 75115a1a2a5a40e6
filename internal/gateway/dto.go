package gateway

import (
	"time"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

type agentResponse struct {
	AgentID         string     `json:"agent_id"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	Spec            specDTO    `json:"spec"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
}

type specDTO struct {
	CPUMillicores  uint32 `json:"cpu_millicores"`
	MemoryMB       uint32 `json:"memory_mb"`
	RuntimeVersion string `json:"runtime_version"`
}

func newAgentResponse(a *store.Agent) agentResponse {
	return agentResponse{
		AgentID: a.AgentID.Hex(),
		UserID:  a.UserID.Hex(),
		Name:    a.Name,
		Status:  a.Status.String(),
		Spec: specDTO{
			CPUMillicores:  a.Spec.CPUMillicores,
			MemoryMB:       a.Spec.MemoryMB,
			RuntimeVersion: a.Spec.RuntimeVersion,
		},
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		LastHeartbeatAt: a.LastHeartbeatAt,
		ErrorMessage:    a.ErrorMessage,
	}
}

type sessionResponse struct {
	SessionID string     `json:"session_id"`
	AgentID   string     `json:"agent_id"`
	UserID    string     `json:"user_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func newSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		SessionID: s.SessionID.String(),
		AgentID:   s.AgentID.Hex(),
		UserID:    s.UserID.Hex(),
		Status:    s.Status.String(),
		CreatedAt: s.CreatedAt,
		ClosedAt:  s.ClosedAt,
	}
}

type createAgentRequest struct {
	Name string         `json:"name" binding:"required"`
	Spec *store.AgentSpec `json:"spec"`
}

func badRequest(msg string) *apierrors.AppError {
	return apierrors.BadRequest(msg)
}
