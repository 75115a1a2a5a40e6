package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
)

type statusUpdateRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

var statusByName = map[string]lifecycle.AgentState{
	"provisioning": lifecycle.Provisioning,
	"running":      lifecycle.Running,
	"idle":         lifecycle.Idle,
	"hibernating":  lifecycle.Hibernating,
	"stopping":     lifecycle.Stopping,
	"stopped":      lifecycle.Stopped,
	"error":        lifecycle.Error,
}

// updateAgentStatus is the reconciler's callback into the control plane,
// reached only through the internal network-policy-restricted mount and an
// HMAC service token (see auth.InternalServiceAuth).
func (st *State) updateAgentStatus(c *gin.Context) {
	agentIDHex := c.Param("agent_id")
	if _, err := ids.AgentIDFromHex(agentIDHex); err != nil {
		apierrors.AbortWithError(c, badRequest("invalid agent id: "+agentIDHex))
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithError(c, badRequest(err.Error()))
		return
	}
	status, ok := statusByName[req.Status]
	if !ok {
		apierrors.AbortWithError(c, badRequest("unknown status: "+req.Status))
		return
	}

	if err := st.Control.NotifyStatusChange(c.Request.Context(), agentIDHex, status, req.Message); err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
