package scheduler

import (
	"testing"

	corev1 "k8s.io/api/core/v1"

	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

func TestExtractContainerErrorWaitingPrefersMessage(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{
							Reason:  "ImagePullBackOff",
							Message: "manifest unknown",
						},
					},
				},
			},
		},
	}

	msg, hasErr := extractContainerError(pod)
	if !hasErr {
		t.Fatal("expected a container error")
	}
	if msg != "manifest unknown" {
		t.Fatalf("expected bare waiting message, got %q", msg)
	}
}

func TestExtractContainerErrorWaitingFallsBackToReason(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
					},
				},
			},
		},
	}

	msg, hasErr := extractContainerError(pod)
	if !hasErr {
		t.Fatal("expected a container error")
	}
	if msg != "CrashLoopBackOff" {
		t.Fatalf("expected bare reason when message is empty, got %q", msg)
	}
}

func TestExtractContainerErrorTerminatedPrecedence(t *testing.T) {
	withMessage := &corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{
					ExitCode: 1, Reason: "Error", Message: "disk full",
				}}},
			},
		},
	}
	if msg, ok := extractContainerError(withMessage); !ok || msg != "disk full" {
		t.Fatalf("expected termination message, got %q ok=%v", msg, ok)
	}

	reasonOnly := &corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{
					ExitCode: 1, Reason: "OOMKilled",
				}}},
			},
		},
	}
	if msg, ok := extractContainerError(reasonOnly); !ok || msg != "OOMKilled" {
		t.Fatalf("expected termination reason, got %q ok=%v", msg, ok)
	}

	bareExit := &corev1.Pod{
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: 137}}},
			},
		},
	}
	if msg, ok := extractContainerError(bareExit); !ok || msg != "Exit code 137" {
		t.Fatalf("expected bare exit code fallback, got %q ok=%v", msg, ok)
	}
}

func TestExtractContainerErrorPodScheduledCondition(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodScheduled, Status: corev1.ConditionFalse, Reason: "SchedulerError", Message: "no nodes available"},
			},
		},
	}
	msg, ok := extractContainerError(pod)
	if !ok || msg != "no nodes available" {
		t.Fatalf("expected bare condition message, got %q ok=%v", msg, ok)
	}
}

func TestExtractContainerErrorPrecedenceWaitingOverScheduled(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodScheduled, Status: corev1.ConditionFalse, Reason: "SchedulerError", Message: "no nodes available"},
			},
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{
					Reason: "ImagePullBackOff", Message: "manifest unknown",
				}}},
			},
		},
	}
	msg, ok := extractContainerError(pod)
	if !ok || msg != "manifest unknown" {
		t.Fatalf("expected waiting-container error to take precedence over PodScheduled, got %q ok=%v", msg, ok)
	}
}

func TestExtractContainerErrorUnschedulableIgnored(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodScheduled, Status: corev1.ConditionFalse, Reason: "Unschedulable", Message: "insufficient cpu"},
			},
		},
	}
	if _, ok := extractContainerError(pod); ok {
		t.Fatal("expected Unschedulable to be excluded from immediate error reporting")
	}
}

func TestDeriveStateFromPodScenarioImagePullBackOff(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			Phase: corev1.PodPending,
			ContainerStatuses: []corev1.ContainerStatus{
				{State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{
					Reason: "ImagePullBackOff", Message: "manifest unknown",
				}}},
			},
		},
	}
	state, msg := deriveStateFromPod(pod)
	if state != lifecycle.Error {
		t.Fatalf("expected Error state, got %s", state)
	}
	if msg != "manifest unknown" {
		t.Fatalf("expected error_message %q, got %q", "manifest unknown", msg)
	}
}
