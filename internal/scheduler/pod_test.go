package scheduler

import (
	"testing"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

func testAgentID() ids.AgentId {
	userID := ids.UserIDFromBytes([32]byte{1})
	return ids.GenerateDeterministicAgentID(userID, "test-agent", 1)
}

func TestPodNameFormat(t *testing.T) {
	name := podNameForAgent(testAgentID())
	if name[:6] != "agent-" {
		t.Fatalf("expected name to start with agent-, got %q", name)
	}
	if len(name) != 6+16 {
		t.Fatalf("expected length %d, got %d", 6+16, len(name))
	}
}

func TestBuildPodHasRequiredFields(t *testing.T) {
	agentID := testAgentID()
	userID := ids.UserIDFromBytes([32]byte{1})
	spec := store.DefaultAgentSpec()
	cfg := DefaultConfig()

	pod := buildPod(agentID, userID.Hex(), spec, cfg)

	if pod.Namespace != "swarm-agents" {
		t.Errorf("expected namespace swarm-agents, got %s", pod.Namespace)
	}
	if pod.Labels[LabelApp] != "swarm-agent" {
		t.Errorf("expected app label swarm-agent, got %s", pod.Labels[LabelApp])
	}
	if _, ok := pod.Labels[LabelAgentID]; !ok {
		t.Error("expected agent-id label")
	}
	if _, ok := pod.Labels[LabelUserID]; !ok {
		t.Error("expected user-id label")
	}

	if pod.Spec.RuntimeClassName == nil || *pod.Spec.RuntimeClassName != "kata-fc" {
		t.Error("expected runtime class kata-fc")
	}
	if pod.Spec.RestartPolicy != "Always" {
		t.Errorf("expected restart policy Always, got %s", pod.Spec.RestartPolicy)
	}
	if pod.Spec.TerminationGracePeriodSeconds == nil || *pod.Spec.TerminationGracePeriodSeconds != 30 {
		t.Error("expected termination grace period 30")
	}

	container := pod.Spec.Containers[0]
	if container.Name != "aura" {
		t.Errorf("expected container name aura, got %s", container.Name)
	}
	if container.Image == "" {
		t.Error("expected image to be set")
	}
	if container.ReadinessProbe == nil || container.LivenessProbe == nil {
		t.Error("expected both probes to be set")
	}

	wantEnv := map[string]bool{
		"AGENT_ID": false, "USER_ID": false, "STATE_DIR": false,
		"AURA_LISTEN_ADDR": false, "CONTROL_PLANE_URL": false,
	}
	for _, e := range container.Env {
		if _, ok := wantEnv[e.Name]; ok {
			wantEnv[e.Name] = true
		}
	}
	for name, found := range wantEnv {
		if !found {
			t.Errorf("expected env var %s to be present", name)
		}
	}
}

func TestBuildPodUsesSpecResources(t *testing.T) {
	agentID := testAgentID()
	userID := ids.UserIDFromBytes([32]byte{1})
	spec := store.AgentSpec{CPUMillicores: 1000, MemoryMB: 2048, RuntimeVersion: "v1.0"}
	cfg := DefaultConfig()

	pod := buildPod(agentID, userID.Hex(), spec, cfg)
	container := pod.Spec.Containers[0]

	cpuReq := container.Resources.Requests.Cpu()
	if cpuReq.String() != "1" {
		t.Errorf("expected cpu request 1000m (1 core), got %s", cpuReq.String())
	}
	memReq := container.Resources.Requests.Memory()
	if memReq.String() != "2Gi" && memReq.Value() != 2048*1024*1024 {
		t.Errorf("unexpected memory request: %s", memReq.String())
	}
}
