package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// PodStatusResponse is the scheduler's reported pod status.
type PodStatusResponse struct {
	Phase        string `json:"phase"`
	Ready        bool   `json:"ready"`
	RestartCount uint32 `json:"restart_count"`
	Message      string `json:"message"`
}

// ResourceUsageResponse is the scheduler's reported pod resource usage.
type ResourceUsageResponse struct {
	CPUMillicores uint32 `json:"cpu_millicores"`
	MemoryMB      uint32 `json:"memory_mb"`
}

// SchedulerClient abstracts communication with the scheduler service (C5),
// letting the control service be tested without a live cluster.
type SchedulerClient interface {
	ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error
	TerminateAgent(ctx context.Context, agentID ids.AgentId) error
	GetPodStatus(ctx context.Context, agentID ids.AgentId) (PodStatusResponse, error)
	GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error)
	GetResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsageResponse, bool, error)
}

// HttpSchedulerClient calls the scheduler service's REST API
// (internal/scheduler's Server) over HTTP.
type HttpSchedulerClient struct {
	client  *http.Client
	baseURL string
}

// NewHttpSchedulerClient builds a client against the scheduler's base URL,
// e.g. "http://aura-swarm-scheduler.swarm-system.svc:8080".
func NewHttpSchedulerClient(baseURL string) *HttpSchedulerClient {
	return &HttpSchedulerClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

type scheduleRequestBody struct {
	UserID string          `json:"user_id"`
	Spec   store.AgentSpec `json:"spec"`
}

type errorResponseBody struct {
	Error string `json:"error"`
}

func (c *HttpSchedulerClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errAgentNotFoundFromScheduler
	}

	var errBody errorResponseBody
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	if errBody.Error == "" {
		errBody.Error = fmt.Sprintf("scheduler returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("scheduler error: %s", errBody.Error)
}

// errAgentNotFoundFromScheduler is the sentinel do returns for a scheduler
// 404; GetResourceUsage checks for it to report a missing pod as not found
// rather than as an error.
var errAgentNotFoundFromScheduler = fmt.Errorf("scheduler: pod not found")

func (c *HttpSchedulerClient) ScheduleAgent(ctx context.Context, agentID ids.AgentId, userIDHex string, spec store.AgentSpec) error {
	path := fmt.Sprintf("/v1/agents/%s/schedule", agentID.Hex())
	return c.do(ctx, http.MethodPost, path, scheduleRequestBody{UserID: userIDHex, Spec: spec}, nil)
}

func (c *HttpSchedulerClient) TerminateAgent(ctx context.Context, agentID ids.AgentId) error {
	path := fmt.Sprintf("/v1/agents/%s", agentID.Hex())
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HttpSchedulerClient) GetPodStatus(ctx context.Context, agentID ids.AgentId) (PodStatusResponse, error) {
	var out PodStatusResponse
	path := fmt.Sprintf("/v1/agents/%s/status", agentID.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return PodStatusResponse{}, err
	}
	return out, nil
}

func (c *HttpSchedulerClient) GetPodEndpoint(ctx context.Context, agentID ids.AgentId) (string, bool, error) {
	var out struct {
		Endpoint *string `json:"endpoint"`
	}
	path := fmt.Sprintf("/v1/agents/%s/endpoint", agentID.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", false, err
	}
	if out.Endpoint == nil {
		return "", false, nil
	}
	return *out.Endpoint, true, nil
}

func (c *HttpSchedulerClient) GetResourceUsage(ctx context.Context, agentID ids.AgentId) (ResourceUsageResponse, bool, error) {
	var out ResourceUsageResponse
	path := fmt.Sprintf("/v1/agents/%s/metrics", agentID.Hex())
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err == errAgentNotFoundFromScheduler {
		return ResourceUsageResponse{}, false, nil
	}
	if err != nil {
		return ResourceUsageResponse{}, false, err
	}
	return out, true, nil
}

// NoopSchedulerClient logs operations without talking to any scheduler
// service. Used when SCHEDULER_URL is unset, e.g. for local development.
type NoopSchedulerClient struct{}

// NewNoopSchedulerClient returns a no-op scheduler client.
func NewNoopSchedulerClient() *NoopSchedulerClient { return &NoopSchedulerClient{} }

func (n *NoopSchedulerClient) ScheduleAgent(_ context.Context, agentID ids.AgentId, _ string, _ store.AgentSpec) error {
	logger.Control().Warn().Str("agent_id", agentID.Hex()).Msg("noop scheduler client: schedule_agent called but no scheduler configured")
	return nil
}

func (n *NoopSchedulerClient) TerminateAgent(_ context.Context, agentID ids.AgentId) error {
	logger.Control().Warn().Str("agent_id", agentID.Hex()).Msg("noop scheduler client: terminate_agent called but no scheduler configured")
	return nil
}

func (n *NoopSchedulerClient) GetPodStatus(_ context.Context, agentID ids.AgentId) (PodStatusResponse, error) {
	logger.Control().Warn().Str("agent_id", agentID.Hex()).Msg("noop scheduler client: get_pod_status called but no scheduler configured")
	return PodStatusResponse{Phase: "Running", Ready: true, Message: "no scheduler configured"}, nil
}

func (n *NoopSchedulerClient) GetPodEndpoint(_ context.Context, agentID ids.AgentId) (string, bool, error) {
	logger.Control().Warn().Str("agent_id", agentID.Hex()).Msg("noop scheduler client: get_pod_endpoint called but no scheduler configured")
	return "localhost:8080", true, nil
}

func (n *NoopSchedulerClient) GetResourceUsage(_ context.Context, _ ids.AgentId) (ResourceUsageResponse, bool, error) {
	return ResourceUsageResponse{}, false, nil
}
