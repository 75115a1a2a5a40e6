package control

import "github.com/cypher-asi/aura-swarm-sub000/internal/store"

// Config holds the control service's tunables: quota, idle/hibernate timers,
// and heartbeat expectations.
type Config struct {
	MaxAgentsPerUser          uint32
	IdleTimeoutSeconds        uint64
	HibernateAfterIdleSeconds uint64
	HeartbeatIntervalSeconds  uint64
	HeartbeatTimeoutSeconds   uint64
	IdleSweepIntervalSeconds  uint64
}

// DefaultConfig mirrors the platform's default tunables.
func DefaultConfig() Config {
	return Config{
		MaxAgentsPerUser:          10,
		IdleTimeoutSeconds:        300,
		HibernateAfterIdleSeconds: 1800,
		HeartbeatIntervalSeconds:  30,
		HeartbeatTimeoutSeconds:   90,
		IdleSweepIntervalSeconds:  60,
	}
}

// CreateAgentRequest is the payload for CreateAgent. Spec is optional; a nil
// Spec uses store.DefaultAgentSpec().
type CreateAgentRequest struct {
	Name string
	Spec *store.AgentSpec
}
