// Package store provides the embedded, durable key-value store for Agent,
// Session, and User records, with secondary indexes maintained atomically on
// every write.
package store

import (
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

// AgentSpec is the resource specification requested for an agent's pod.
type AgentSpec struct {
	CPUMillicores  uint32 `cbor:"1,keyasint"`
	MemoryMB       uint32 `cbor:"2,keyasint"`
	RuntimeVersion string `cbor:"3,keyasint"`
}

// DefaultAgentSpec returns the platform's default resource allocation.
func DefaultAgentSpec() AgentSpec {
	return AgentSpec{CPUMillicores: 500, MemoryMB: 512, RuntimeVersion: "latest"}
}

// Agent is a persisted agent record.
type Agent struct {
	AgentID         ids.AgentId         `cbor:"1,keyasint"`
	UserID          ids.UserId          `cbor:"2,keyasint"`
	Name            string              `cbor:"3,keyasint"`
	Status          lifecycle.AgentState `cbor:"4,keyasint"`
	Spec            AgentSpec           `cbor:"5,keyasint"`
	CreatedAt       time.Time           `cbor:"6,keyasint"`
	UpdatedAt       time.Time           `cbor:"7,keyasint"`
	LastHeartbeatAt *time.Time          `cbor:"8,keyasint,omitempty"`
	ErrorMessage    *string             `cbor:"9,keyasint,omitempty"`
}

// SessionStatus is the status of a client session against an agent.
type SessionStatus uint8

const (
	SessionActive SessionStatus = 1
	SessionClosed SessionStatus = 2
)

func (s SessionStatus) String() string {
	if s == SessionActive {
		return "active"
	}
	return "closed"
}

// Session is a persisted session record.
type Session struct {
	SessionID ids.SessionId `cbor:"1,keyasint"`
	AgentID   ids.AgentId   `cbor:"2,keyasint"`
	UserID    ids.UserId    `cbor:"3,keyasint"`
	Status    SessionStatus `cbor:"4,keyasint"`
	CreatedAt time.Time     `cbor:"5,keyasint"`
	ClosedAt  *time.Time    `cbor:"6,keyasint,omitempty"`
}

// User is a persisted user record, synced from the upstream identity
// provider on first sight.
type User struct {
	UserID        ids.UserId `cbor:"1,keyasint"`
	Email         string     `cbor:"2,keyasint"`
	EmailVerified bool       `cbor:"3,keyasint"`
	CreatedAt     time.Time  `cbor:"4,keyasint"`
	LastLoginAt   *time.Time `cbor:"5,keyasint,omitempty"`
}
