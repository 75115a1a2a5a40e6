package scheduler

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

const auraPort int32 = 8080

// LabelApp, LabelAgentID, and LabelUserID are the pod labels the reconciler
// filters on and keys state lookups by.
const (
	LabelApp       = "app"
	LabelAgentID   = "swarm.io/agent-id"
	LabelUserID    = "swarm.io/user-id"
	AnnotationFull = "swarm.io/agent-id-full"
	AnnotationCreatedAt = "swarm.io/created-at"
)

// podNameForAgent derives the pod name from the first 16 hex characters of
// the agent ID. The full ID is preserved in an annotation since 16 hex
// characters (64 bits) is not guaranteed collision-free at cluster scale.
func podNameForAgent(agentID ids.AgentId) string {
	hexID := agentID.Hex()
	return "agent-" + hexID[:16]
}

// buildPod constructs the Kubernetes Pod object for an agent, ready to be
// submitted via the cluster pods API.
func buildPod(agentID ids.AgentId, userIDHex string, spec store.AgentSpec, cfg Config) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: buildMetadata(agentID, userIDHex, cfg),
		Spec:       buildPodSpec(agentID, userIDHex, spec, cfg),
	}
}

func buildMetadata(agentID ids.AgentId, userIDHex string, cfg Config) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      podNameForAgent(agentID),
		Namespace: cfg.Namespace,
		Labels: map[string]string{
			LabelApp:     "swarm-agent",
			LabelAgentID: agentID.Hex()[:16],
			LabelUserID:  userIDHex,
		},
		Annotations: map[string]string{
			AnnotationFull:      agentID.Hex(),
			AnnotationCreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func buildPodSpec(agentID ids.AgentId, userIDHex string, spec store.AgentSpec, cfg Config) corev1.PodSpec {
	gracePeriod := int64(30)
	return corev1.PodSpec{
		RuntimeClassName:              &cfg.RuntimeClass,
		Containers:                    []corev1.Container{buildContainer(agentID, userIDHex, spec, cfg)},
		Volumes:                       []corev1.Volume{buildStateVolume(cfg, agentID)},
		RestartPolicy:                 corev1.RestartPolicyAlways,
		TerminationGracePeriodSeconds: &gracePeriod,
		SecurityContext:               buildSecurityContext(),
	}
}

func buildContainer(agentID ids.AgentId, userIDHex string, spec store.AgentSpec, cfg Config) corev1.Container {
	return corev1.Container{
		Name:  "aura",
		Image: cfg.Image,
		Ports: []corev1.ContainerPort{
			{Name: "http", ContainerPort: auraPort},
		},
		Env:             buildEnvVars(agentID, userIDHex, cfg),
		Resources:       buildResources(spec),
		VolumeMounts:    []corev1.VolumeMount{buildStateMount(agentID)},
		ReadinessProbe:  buildReadinessProbe(),
		LivenessProbe:   buildLivenessProbe(),
	}
}

func buildEnvVars(agentID ids.AgentId, userIDHex string, cfg Config) []corev1.EnvVar {
	return []corev1.EnvVar{
		{Name: "AGENT_ID", Value: agentID.Hex()},
		{Name: "USER_ID", Value: userIDHex},
		{Name: "STATE_DIR", Value: "/state"},
		{Name: "AURA_LISTEN_ADDR", Value: "0.0.0.0:8080"},
		{Name: "CONTROL_PLANE_URL", Value: cfg.ControlPlaneURL},
	}
}

func buildResources(spec store.AgentSpec) corev1.ResourceRequirements {
	cpu := resource.MustParse(fmt.Sprintf("%dm", spec.CPUMillicores))
	mem := resource.MustParse(fmt.Sprintf("%dMi", spec.MemoryMB))
	list := corev1.ResourceList{
		corev1.ResourceCPU:    cpu,
		corev1.ResourceMemory: mem,
	}
	return corev1.ResourceRequirements{Requests: list, Limits: list}
}

func buildStateVolume(cfg Config, agentID ids.AgentId) corev1.Volume {
	return corev1.Volume{
		Name: "state",
		VolumeSource: corev1.VolumeSource{
			PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
				ClaimName: cfg.StatePVCName,
			},
		},
	}
}

func buildStateMount(agentID ids.AgentId) corev1.VolumeMount {
	return corev1.VolumeMount{
		Name:      "state",
		MountPath: "/state",
		SubPath:   agentID.Hex(),
	}
}

func buildReadinessProbe() *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/health",
				Port: intstr.FromInt32(auraPort),
			},
		},
		InitialDelaySeconds: 5,
		PeriodSeconds:       10,
		TimeoutSeconds:      5,
		FailureThreshold:    3,
	}
}

func buildLivenessProbe() *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/health",
				Port: intstr.FromInt32(auraPort),
			},
		},
		InitialDelaySeconds: 30,
		PeriodSeconds:       30,
		TimeoutSeconds:      10,
		FailureThreshold:    3,
	}
}

func buildSecurityContext() *corev1.PodSecurityContext {
	nonRoot := true
	uid := int64(1000)
	return &corev1.PodSecurityContext{
		RunAsNonRoot: &nonRoot,
		RunAsUser:    &uid,
		FSGroup:      &uid,
	}
}
