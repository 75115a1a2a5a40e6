package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin wrapper over the gateway's HTTP API. It mirrors the shape
// of original_source's aura-swarm-cli client: one method per gateway route,
// no retries or connection pooling beyond what net/http already gives us.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type agentDTO struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Spec    struct {
		CPUMillicores  uint32 `json:"cpu_millicores"`
		MemoryMB       uint32 `json:"memory_mb"`
		RuntimeVersion string `json:"runtime_version"`
	} `json:"spec"`
}

type sessionDTO struct {
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	Status    string `json:"status"`
}

func (c *client) listAgents() ([]agentDTO, error) {
	var out struct {
		Agents []agentDTO `json:"agents"`
	}
	if err := c.do(http.MethodGet, "/v1/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

func (c *client) createAgent(name string, cpuMillicores, memoryMB uint32) (*agentDTO, error) {
	body := map[string]any{"name": name}
	if cpuMillicores > 0 || memoryMB > 0 {
		body["spec"] = map[string]any{
			"cpu_millicores": cpuMillicores,
			"memory_mb":      memoryMB,
		}
	}
	var out agentDTO
	if err := c.do(http.MethodPost, "/v1/agents", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) getAgent(agentID string) (*agentDTO, error) {
	var out agentDTO
	if err := c.do(http.MethodGet, "/v1/agents/"+agentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) deleteAgent(agentID string) error {
	return c.do(http.MethodDelete, "/v1/agents/"+agentID, nil, nil)
}

func (c *client) agentAction(agentID, action string) (*agentDTO, error) {
	var out agentDTO
	if err := c.do(http.MethodPost, "/v1/agents/"+agentID+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) createSession(agentID string) (*sessionDTO, error) {
	var out sessionDTO
	if err := c.do(http.MethodPost, "/v1/agents/"+agentID+"/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
