package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

// serviceTokenMinter mints the HMAC service tokens the control plane's
// internal routes require. internal/auth's ServiceTokenManager satisfies
// this without the scheduler package needing to import auth directly.
type serviceTokenMinter interface {
	Mint() (string, error)
}

// HTTPStatusNotifier implements StatusNotifier by calling the control
// service's restricted `/internal/agents/{id}/status` route, authenticating
// with a freshly minted service token on every call.
type HTTPStatusNotifier struct {
	client  *http.Client
	baseURL string
	tokens  serviceTokenMinter
}

// NewHTTPStatusNotifier builds a notifier against the control plane's base
// URL, e.g. Config.ControlPlaneURL.
func NewHTTPStatusNotifier(baseURL string, tokens serviceTokenMinter) *HTTPStatusNotifier {
	return &HTTPStatusNotifier{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

type statusUpdateBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (n *HTTPStatusNotifier) NotifyStatusChange(ctx context.Context, agentIDHex string, status lifecycle.AgentState, message string) error {
	body, err := json.Marshal(statusUpdateBody{Status: status.String(), Message: message})
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/internal/agents/%s/status", n.baseURL, agentIDHex), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build status update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := n.tokens.Mint()
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}
	req.Header.Set("X-Service-Token", token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("status update request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status update rejected: %s", resp.Status)
	}
	return nil
}
