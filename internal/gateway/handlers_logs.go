package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
)

// logsProxyTimeout bounds the upstream pod fetch independently of the
// gateway's general request timeout, since a `follow=true` tail could
// otherwise be killed by requestTimeout before it produces anything.
const logsProxyTimeout = 60 * time.Second

var logsHTTPClient = &http.Client{Timeout: logsProxyTimeout}

// getAgentLogs has no backing control-plane or scheduler-adapter method: the
// agent pod itself is the only holder of its log stream. The gateway
// resolves the pod endpoint the same way the session proxy does and forwards
// the request directly, streaming the response body back unmodified.
func (st *State) getAgentLogs(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	if _, err := st.Control.GetAgent(userID, agentID); err != nil {
		apierrors.HandleError(c, err)
		return
	}

	endpoint, ready, err := st.Control.ResolveAgentEndpoint(c.Request.Context(), agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	if !ready {
		apierrors.AbortWithError(c, apierrors.AgentUnavailable(agentID.Hex()))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, "http://"+endpoint+"/logs", nil)
	if err != nil {
		apierrors.AbortWithError(c, apierrors.Internal("failed to build upstream log request"))
		return
	}
	q := req.URL.Query()
	for _, key := range []string{"lines", "follow", "since", "until"} {
		if v := c.Query(key); v != "" {
			q.Set(key, v)
		}
	}
	req.URL.RawQuery = q.Encode()

	resp, err := logsHTTPClient.Do(req)
	if err != nil {
		apierrors.AbortWithError(c, apierrors.AgentUnavailable(agentID.Hex()))
		return
	}
	defer resp.Body.Close()

	c.Status(resp.StatusCode)
	c.Header("Content-Type", resp.Header.Get("Content-Type"))
	io.Copy(c.Writer, resp.Body)
}
