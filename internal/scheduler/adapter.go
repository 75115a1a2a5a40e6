package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierr "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/rs/zerolog/log"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// Adapter is the pluggable interface for agent pod lifecycle management: a
// cluster-backed implementation for production, and a no-op implementation
// for environments with no scheduler wired up.
type Adapter interface {
	ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error
	TerminateAgent(ctx context.Context, agentID ids.AgentId) error
	GetPodStatus(ctx context.Context, agentID ids.AgentId) (PodStatus, error)
	GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error)
	ListPods(ctx context.Context) ([]PodInfo, error)
	CheckAgentHealth(ctx context.Context, agentID ids.AgentId) (bool, error)
	GetAgentResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsage, bool, error)
}

// metricsGetter is the slice of the metrics-server typed client this
// adapter needs — satisfied by k8s.io/metrics's
// typed/metrics/v1beta1.PodMetricsInterface, and by a fake in tests.
type metricsGetter interface {
	Get(ctx context.Context, name string, opts metav1.GetOptions) (*metricsv1beta1.PodMetrics, error)
}

// ClusterAdapter manages agent pods in a real Kubernetes cluster using
// Kata Containers for microVM isolation.
type ClusterAdapter struct {
	pods    typedcorev1.PodInterface
	metrics metricsGetter
	config  Config
	cache   *EndpointCache
	http    *http.Client
}

// NewClusterAdapter builds a cluster adapter over already-constructed pods
// and metrics clients (in-cluster or kubeconfig-derived — see cmd/scheduler
// for the construction path). metrics may be nil when the metrics-server
// API isn't installed; GetAgentResourceUsage then reports ok=false rather
// than failing the whole adapter.
func NewClusterAdapter(pods typedcorev1.PodInterface, metrics metricsGetter, cfg Config) *ClusterAdapter {
	return &ClusterAdapter{
		pods:    pods,
		metrics: metrics,
		config:  cfg,
		cache:   NewEndpointCache(),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Cache exposes the adapter's endpoint cache so the reconciler can keep it
// warm from pod-watch events.
func (a *ClusterAdapter) Cache() *EndpointCache { return a.cache }

func (a *ClusterAdapter) ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error {
	if err := a.config.ValidateResources(spec.CPUMillicores, spec.MemoryMB); err != nil {
		return err
	}

	podName := podNameForAgent(agentID)

	if _, err := a.pods.Get(ctx, podName, metav1.GetOptions{}); err == nil {
		log.Warn().Str("agent_id", agentID.Hex()).Str("pod_name", podName).Msg("pod already exists, skipping creation")
		return nil
	} else if !apierr.IsNotFound(err) {
		return errKube("get pod", err)
	}

	pod := buildPod(agentID, userIDHex, spec, a.config)
	if _, err := a.pods.Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return errKube("create pod", err)
	}

	log.Info().Str("agent_id", agentID.Hex()).Str("pod_name", podName).
		Uint32("cpu_millicores", spec.CPUMillicores).Uint32("memory_mb", spec.MemoryMB).
		Msg("created agent pod")
	return nil
}

func (a *ClusterAdapter) TerminateAgent(ctx context.Context, agentID ids.AgentId) error {
	podName := podNameForAgent(agentID)
	a.cache.Remove(agentID.Hex())

	err := a.pods.Delete(ctx, podName, metav1.DeleteOptions{})
	if err == nil {
		log.Info().Str("agent_id", agentID.Hex()).Str("pod_name", podName).Msg("terminated agent pod")
		return nil
	}
	if apierr.IsNotFound(err) {
		log.Warn().Str("pod_name", podName).Msg("pod not found, already terminated")
		return nil
	}
	return errKube("delete pod", err)
}

func (a *ClusterAdapter) GetPodStatus(ctx context.Context, agentID ids.AgentId) (PodStatus, error) {
	podName := podNameForAgent(agentID)
	pod, err := a.pods.Get(ctx, podName, metav1.GetOptions{})
	if apierr.IsNotFound(err) {
		return PodStatus{}, errPodNotFound(podName)
	}
	if err != nil {
		return PodStatus{}, errKube("get pod", err)
	}
	return extractPodStatus(pod), nil
}

func (a *ClusterAdapter) GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error) {
	if endpoint, ok := a.cache.Get(agentID.Hex()); ok {
		return endpoint, true, nil
	}

	podName := podNameForAgent(agentID)
	pod, err := a.pods.Get(ctx, podName, metav1.GetOptions{})
	if apierr.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errKube("get pod", err)
	}
	if pod.Status.PodIP == "" {
		return "", false, nil
	}
	endpoint := fmt.Sprintf("%s:%d", pod.Status.PodIP, auraPort)
	a.cache.Insert(agentID.Hex(), endpoint)
	return endpoint, true, nil
}

func (a *ClusterAdapter) ListPods(ctx context.Context) ([]PodInfo, error) {
	list, err := a.pods.List(ctx, metav1.ListOptions{LabelSelector: LabelApp + "=swarm-agent"})
	if err != nil {
		return nil, errKube("list pods", err)
	}

	result := make([]PodInfo, 0, len(list.Items))
	for i := range list.Items {
		pod := &list.Items[i]
		agentIDHex, ok := extractAgentIDHex(pod)
		if !ok {
			continue
		}
		result = append(result, PodInfo{
			AgentID:  agentIDHex,
			PodName:  pod.Name,
			NodeName: pod.Spec.NodeName,
			PodIP:    pod.Status.PodIP,
			Status:   extractPodStatus(pod),
		})
	}
	return result, nil
}

func (a *ClusterAdapter) CheckAgentHealth(ctx context.Context, agentID ids.AgentId) (bool, error) {
	endpoint, ok, err := a.GetPodEndpoint(ctx, agentID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/health", endpoint), nil)
	if err != nil {
		return false, nil
	}
	resp, err := a.http.Do(req)
	if err != nil {
		log.Warn().Str("agent_id", agentID.Hex()).Err(err).Msg("health check request failed")
		return false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	log.Warn().Str("agent_id", agentID.Hex()).Int("status", resp.StatusCode).Msg("health check returned non-success status")
	return false, nil
}

func (a *ClusterAdapter) GetAgentResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsage, bool, error) {
	if a.metrics == nil {
		return ResourceUsage{}, false, nil
	}
	podName := podNameForAgent(agentID)
	pm, err := a.metrics.Get(ctx, podName, metav1.GetOptions{})
	if apierr.IsNotFound(err) {
		return ResourceUsage{}, false, nil
	}
	if err != nil {
		return ResourceUsage{}, false, errKube("get pod metrics", err)
	}

	var cpuMillicores, memoryBytes int64
	for _, c := range pm.Containers {
		cpuMillicores += c.Usage.Cpu().MilliValue()
		memoryBytes += c.Usage.Memory().Value()
	}
	return ResourceUsage{
		CPUMillicores: uint32(cpuMillicores),
		MemoryMB:      uint32(memoryBytes / (1024 * 1024)),
	}, true, nil
}

func extractPodStatus(pod *corev1.Pod) PodStatus {
	phase := PodPhaseFromK8s(string(pod.Status.Phase))
	ready := isPodReady(pod)
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += cs.RestartCount
	}
	var startedAt *time.Time
	if pod.Status.StartTime != nil {
		t := pod.Status.StartTime.Time
		startedAt = &t
	}

	message, _ := extractContainerError(pod)
	if message == "" {
		message = pod.Status.Message
	}

	return PodStatus{
		Phase:        phase,
		Ready:        ready,
		RestartCount: restarts,
		StartedAt:    startedAt,
		Message:      message,
	}
}

func isPodReady(pod *corev1.Pod) bool {
	for _, c := range pod.Status.Conditions {
		if c.Type == corev1.PodReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

func extractAgentIDHex(pod *corev1.Pod) (string, bool) {
	if full, ok := pod.Annotations[AnnotationFull]; ok && full != "" {
		return full, true
	}
	if short, ok := pod.Labels[LabelAgentID]; ok && short != "" {
		return short, true
	}
	return "", false
}

// NoopAdapter logs operations without talking to any scheduler backend and
// reports a synthetic running, ready pod. cmd/scheduler does not use it; it
// always builds a ClusterAdapter.
type NoopAdapter struct{}

// NewNoopAdapter returns a no-op scheduler adapter.
func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) ScheduleAgent(_ context.Context, agentID ids.AgentId, _ string, _ store.AgentSpec) error {
	log.Warn().Str("agent_id", agentID.Hex()).Msg("noop adapter: schedule_agent called but no scheduler configured")
	return nil
}

func (n *NoopAdapter) TerminateAgent(_ context.Context, agentID ids.AgentId) error {
	log.Warn().Str("agent_id", agentID.Hex()).Msg("noop adapter: terminate_agent called but no scheduler configured")
	return nil
}

func (n *NoopAdapter) GetPodStatus(_ context.Context, agentID ids.AgentId) (PodStatus, error) {
	log.Warn().Str("agent_id", agentID.Hex()).Msg("noop adapter: get_pod_status called but no scheduler configured")
	return PodStatus{Phase: PodRunning, Ready: true, Message: "no scheduler configured"}, nil
}

func (n *NoopAdapter) GetPodEndpoint(_ context.Context, agentID ids.AgentId) (string, bool, error) {
	log.Warn().Str("agent_id", agentID.Hex()).Msg("noop adapter: get_pod_endpoint called but no scheduler configured")
	return "localhost:8080", true, nil
}

func (n *NoopAdapter) ListPods(_ context.Context) ([]PodInfo, error) {
	return nil, nil
}

func (n *NoopAdapter) CheckAgentHealth(_ context.Context, _ ids.AgentId) (bool, error) {
	return true, nil
}

func (n *NoopAdapter) GetAgentResourceUsage(_ context.Context, _ ids.AgentId) (ResourceUsage, bool, error) {
	return ResourceUsage{}, false, nil
}
