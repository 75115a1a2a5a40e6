package scheduler

import "time"

// PodPhase mirrors a Kubernetes pod's coarse lifecycle phase.
type PodPhase int

const (
	PodPending PodPhase = iota
	PodRunning
	PodSucceeded
	PodFailed
	PodUnknown
)

// PodPhaseFromK8s maps a Kubernetes pod phase string to a PodPhase.
func PodPhaseFromK8s(phase string) PodPhase {
	switch phase {
	case "Pending":
		return PodPending
	case "Running":
		return PodRunning
	case "Succeeded":
		return PodSucceeded
	case "Failed":
		return PodFailed
	default:
		return PodUnknown
	}
}

func (p PodPhase) String() string {
	switch p {
	case PodPending:
		return "Pending"
	case PodRunning:
		return "Running"
	case PodSucceeded:
		return "Succeeded"
	case PodFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the pod has stopped running for good.
func (p PodPhase) IsTerminal() bool {
	return p == PodSucceeded || p == PodFailed
}

// IsActive reports whether the pod is pending or running.
func (p PodPhase) IsActive() bool {
	return p == PodPending || p == PodRunning
}

// PodStatus is a snapshot of an agent pod's observed condition.
type PodStatus struct {
	Phase        PodPhase
	Ready        bool
	RestartCount int32
	StartedAt    *time.Time
	Message      string
}

// PodInfo describes a scheduled agent pod.
type PodInfo struct {
	AgentID  string
	PodName  string
	NodeName string
	PodIP    string
	Status   PodStatus
}

// ResourceUsage is a point-in-time CPU/memory reading for an agent pod,
// sourced from the metrics-server API rather than the pod spec's requests.
type ResourceUsage struct {
	CPUMillicores uint32
	MemoryMB      uint32
}
