package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"

	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

// containerErrorReasons are waiting-state reasons that should immediately
// move an agent to Error rather than waiting out the probe schedule.
var containerErrorReasons = map[string]struct{}{
	"ImagePullBackOff":          {},
	"ErrImagePull":              {},
	"CrashLoopBackOff":          {},
	"CreateContainerError":      {},
	"CreateContainerConfigError": {},
	"InvalidImageName":          {},
	"RunContainerError":         {},
}

// eventErrorReasons are Warning-event reasons on a pod that indicate a
// scheduling or sandbox failure severe enough to report as Error directly,
// without waiting for a subsequent pod-status update.
var eventErrorReasons = map[string]struct{}{
	"FailedCreatePodSandBox": {},
	"FailedMount":            {},
	"FailedScheduling":       {},
	"FailedAttachVolume":     {},
	"NetworkNotReady":        {},
}

// StatusNotifier pushes an externally-observed agent status to the control
// service. HTTPStatusNotifier implements it over the control service's
// internal status route, and *control.Service satisfies it directly for
// in-process use.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, agentIDHex string, status lifecycle.AgentState, message string) error
}

// Reconciler watches the cluster's agent pods and Warning events, mapping
// observed pod state onto the lifecycle state machine and reporting
// transitions to the control service. It also keeps an EndpointCache warm
// so C9 proxy connections resolve without a cluster round-trip.
type Reconciler struct {
	pods     typedcorev1.PodInterface
	events   typedcorev1.EventInterface
	cache    *EndpointCache
	notifier StatusNotifier
}

// NewReconciler builds a reconciler over the given namespaced pod/event
// clients, sharing the adapter's endpoint cache.
func NewReconciler(pods typedcorev1.PodInterface, events typedcorev1.EventInterface, cache *EndpointCache, notifier StatusNotifier) *Reconciler {
	return &Reconciler{pods: pods, events: events, cache: cache, notifier: notifier}
}

// Run starts the pod watcher and the event watcher concurrently and blocks
// until ctx is cancelled. Each watcher independently retries on error; a
// transient API-server hiccup does not bring down the other stream.
func (r *Reconciler) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() { r.runPodWatcher(ctx); done <- struct{}{} }()
	go func() { r.runEventWatcher(ctx); done <- struct{}{} }()
	<-done
	<-done
}

func (r *Reconciler) runPodWatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w, err := r.pods.Watch(ctx, metav1.ListOptions{LabelSelector: LabelApp + "=swarm-agent"})
		if err != nil {
			log.Error().Err(err).Msg("pod watcher failed to start, retrying")
			continue
		}
		r.consumePodEvents(ctx, w.ResultChan())
		w.Stop()
	}
}

func (r *Reconciler) consumePodEvents(ctx context.Context, ch <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			pod, isPod := ev.Object.(*corev1.Pod)
			if !isPod {
				continue
			}
			switch ev.Type {
			case watch.Added, watch.Modified:
				r.handlePodUpdate(ctx, pod)
			case watch.Deleted:
				r.handlePodDeleted(ctx, pod)
			}
		}
	}
}

func (r *Reconciler) runEventWatcher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w, err := r.events.Watch(ctx, metav1.ListOptions{
			FieldSelector: fields.OneTermEqualSelector("involvedObject.kind", "Pod").String(),
		})
		if err != nil {
			log.Debug().Err(err).Msg("event watcher failed to start, retrying")
			continue
		}
		r.consumeEvents(ctx, w.ResultChan())
		w.Stop()
	}
}

func (r *Reconciler) consumeEvents(ctx context.Context, ch <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != watch.Added && ev.Type != watch.Modified {
				continue
			}
			event, isEvent := ev.Object.(*corev1.Event)
			if !isEvent {
				continue
			}
			r.handleEvent(ctx, event)
		}
	}
}

// handlePodUpdate reflects an Added/Modified pod event into the endpoint
// cache and, if warranted, a status transition pushed to the control
// service.
func (r *Reconciler) handlePodUpdate(ctx context.Context, pod *corev1.Pod) {
	agentIDHex, ok := extractAgentIDHex(pod)
	if !ok {
		return
	}

	if pod.Status.PodIP != "" {
		r.cache.Insert(agentIDHex, fmt.Sprintf("%s:%d", pod.Status.PodIP, auraPort))
	}

	// An Unknown phase with no container error implies no state change.
	if _, hasErr := extractContainerError(pod); !hasErr && PodPhaseFromK8s(string(pod.Status.Phase)) == PodUnknown {
		return
	}

	newState, message := deriveStateFromPod(pod)
	if err := r.notifier.NotifyStatusChange(ctx, agentIDHex, newState, message); err != nil {
		log.Error().Err(err).Str("agent_id", agentIDHex).Msg("failed to notify control service of status change")
	}
}

// handlePodDeleted reflects pod deletion as a Stopped transition. The
// control service is responsible for skipping this update when the agent
// is already Hibernating, since a deliberate hibernate also deletes the pod
// and must not be mistaken for an unplanned disappearance.
func (r *Reconciler) handlePodDeleted(ctx context.Context, pod *corev1.Pod) {
	agentIDHex, ok := extractAgentIDHex(pod)
	if !ok {
		return
	}
	r.cache.Remove(agentIDHex)
	if err := r.notifier.NotifyStatusChange(ctx, agentIDHex, lifecycle.Stopped, "Pod deleted"); err != nil {
		log.Error().Err(err).Str("agent_id", agentIDHex).Msg("failed to notify control service of pod deletion")
	}
}

// handleEvent inspects a Warning event on an agent pod for a reason severe
// enough to drive an immediate Error transition.
func (r *Reconciler) handleEvent(ctx context.Context, event *corev1.Event) {
	if event.Type != corev1.EventTypeWarning {
		return
	}
	podName := event.InvolvedObject.Name
	if podName == "" || len(podName) < 6 || podName[:6] != "agent-" {
		return
	}

	reason := event.Reason
	if _, bad := eventErrorReasons[reason]; !bad {
		return
	}

	pod, err := r.pods.Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		return
	}
	agentIDHex, ok := extractAgentIDHex(pod)
	if !ok {
		return
	}

	message := fmt.Sprintf("%s: %s", reason, event.Message)
	if err := r.notifier.NotifyStatusChange(ctx, agentIDHex, lifecycle.Error, message); err != nil {
		log.Error().Err(err).Str("agent_id", agentIDHex).Msg("failed to notify control service of pod event error")
	}
}

// deriveStateFromPod computes the lifecycle state (and an optional detail
// message) implied by a pod's current condition and phase. A waiting- or
// terminated-container error takes precedence over the coarse phase.
func deriveStateFromPod(pod *corev1.Pod) (lifecycle.AgentState, string) {
	if msg, hasErr := extractContainerError(pod); hasErr {
		return lifecycle.Error, msg
	}

	phase := PodPhaseFromK8s(string(pod.Status.Phase))
	ready := isPodReady(pod)

	switch {
	case phase == PodPending:
		return lifecycle.Provisioning, ""
	case phase == PodRunning && ready:
		return lifecycle.Running, ""
	case phase == PodRunning && !ready:
		return lifecycle.Provisioning, "container running but not ready"
	case phase == PodFailed:
		return lifecycle.Error, pod.Status.Message
	case phase == PodSucceeded:
		return lifecycle.Stopped, ""
	default:
		return lifecycle.Provisioning, ""
	}
}

// extractContainerError inspects container waiting/terminated states and
// scheduling conditions for an error severe enough to report immediately,
// ahead of the coarse phase+ready matrix. Waiting-container errors take
// precedence over terminated containers, which take precedence over a
// PodScheduled=False condition. The returned message favors the most
// specific detail available (the container's own message) over the bare
// reason code.
func extractContainerError(pod *corev1.Pod) (string, bool) {
	allStatuses := append(append([]corev1.ContainerStatus{}, pod.Status.InitContainerStatuses...), pod.Status.ContainerStatuses...)
	for _, cs := range allStatuses {
		if cs.State.Waiting != nil {
			if _, bad := containerErrorReasons[cs.State.Waiting.Reason]; bad {
				if cs.State.Waiting.Message != "" {
					return cs.State.Waiting.Message, true
				}
				return cs.State.Waiting.Reason, true
			}
		}
	}
	for _, cs := range allStatuses {
		if cs.State.Terminated != nil && cs.State.Terminated.ExitCode != 0 {
			switch {
			case cs.State.Terminated.Message != "":
				return cs.State.Terminated.Message, true
			case cs.State.Terminated.Reason != "":
				return cs.State.Terminated.Reason, true
			default:
				return fmt.Sprintf("Exit code %d", cs.State.Terminated.ExitCode), true
			}
		}
	}

	for _, c := range pod.Status.Conditions {
		if c.Type == corev1.PodScheduled && c.Status == corev1.ConditionFalse && c.Reason != "Unschedulable" && c.Message != "" {
			return c.Message, true
		}
	}

	return "", false
}
