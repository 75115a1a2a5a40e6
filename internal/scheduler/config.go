// Package scheduler implements the cluster-facing half of the platform: the
// pod lifecycle adapter (C5), the pod/event reconciler (C6), and the
// in-memory endpoint cache (C7).
package scheduler

// Config holds the scheduler's cluster and resource-limit configuration.
type Config struct {
	Namespace            string
	RuntimeClass         string
	Image                string
	ControlPlaneURL      string
	StatePVCName         string
	DefaultCPUMillicores uint32
	DefaultMemoryMB      uint32
	MaxCPUMillicores     uint32
	MaxMemoryMB          uint32
}

// DefaultConfig returns the platform's default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:            "swarm-agents",
		RuntimeClass:         "kata-fc",
		Image:                "ghcr.io/cypher-asi/aura-runtime:latest",
		ControlPlaneURL:      "http://aura-swarm-control.swarm-system.svc:8080",
		StatePVCName:         "swarm-agent-state",
		DefaultCPUMillicores: 500,
		DefaultMemoryMB:      512,
		MaxCPUMillicores:     4000,
		MaxMemoryMB:          8192,
	}
}

// WithNamespace returns a copy of c with Namespace overridden.
func (c Config) WithNamespace(ns string) Config {
	c.Namespace = ns
	return c
}

// ValidateResources reports an error if the requested resources exceed the
// configured per-agent ceiling.
func (c Config) ValidateResources(cpuMillicores, memoryMB uint32) error {
	if cpuMillicores > c.MaxCPUMillicores {
		return &ConfigError{Msg: "cpu request exceeds maximum allowed"}
	}
	if memoryMB > c.MaxMemoryMB {
		return &ConfigError{Msg: "memory request exceeds maximum allowed"}
	}
	return nil
}

// ConfigError reports a scheduler configuration violation.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return e.Msg }
