package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/control"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

func parseAgentID(c *gin.Context) (ids.AgentId, bool) {
	agentID, err := ids.AgentIDFromHex(c.Param("agent_id"))
	if err != nil {
		apierrors.AbortWithError(c, badRequest("invalid agent id: "+c.Param("agent_id")))
		return ids.AgentId{}, false
	}
	return agentID, true
}

func (st *State) listAgents(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agents, err := st.Control.ListAgents(userID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	out := make([]agentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, newAgentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"agents": out})
}

func (st *State) createAgent(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.AbortWithError(c, badRequest(err.Error()))
		return
	}
	agent, err := st.Control.CreateAgent(c.Request.Context(), userID, control.CreateAgentRequest{
		Name: req.Name,
		Spec: req.Spec,
	})
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAgentResponse(agent))
}

func (st *State) getAgent(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	agent, err := st.Control.GetAgent(userID, agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAgentResponse(agent))
}

func (st *State) deleteAgent(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	if err := st.Control.DeleteAgent(userID, agentID); err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// lifecycleFunc is the common shape shared by every single-agent lifecycle
// call on control.Service (StartAgent, StopAgent, RestartAgent, ...).
type lifecycleFunc func(ctx context.Context, userID ids.UserId, agentID ids.AgentId) (*store.Agent, error)

// runLifecycle resolves the caller and path agent ID once and dispatches to
// whichever control.Service lifecycle method backs the route.
func (st *State) runLifecycle(fn lifecycleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerUserID(c)
		if !ok {
			apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
			return
		}
		agentID, ok := parseAgentID(c)
		if !ok {
			return
		}
		agent, err := fn(c.Request.Context(), userID, agentID)
		if err != nil {
			apierrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, newAgentResponse(agent))
	}
}

func (st *State) startAgent(c *gin.Context)     { st.runLifecycle(st.Control.StartAgent)(c) }
func (st *State) stopAgent(c *gin.Context)      { st.runLifecycle(st.Control.StopAgent)(c) }
func (st *State) restartAgent(c *gin.Context)   { st.runLifecycle(st.Control.RestartAgent)(c) }
func (st *State) hibernateAgent(c *gin.Context) { st.runLifecycle(st.Control.HibernateAgent)(c) }
func (st *State) wakeAgent(c *gin.Context)      { st.runLifecycle(st.Control.WakeAgent)(c) }

func (st *State) getAgentStatus(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	agent, err := st.Control.GetAgent(userID, agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_id":          agent.AgentID.Hex(),
		"status":            agent.Status.String(),
		"last_heartbeat_at": agent.LastHeartbeatAt,
		"error_message":     agent.ErrorMessage,
	})
}

func (st *State) getAgentMetrics(c *gin.Context) {
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
	usage, observedAt, err := st.Control.GetAgentResourceUsage(c.Request.Context(), agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cpu_millicores": usage.CPUMillicores,
		"memory_mb":      usage.MemoryMB,
		"observed_at":    observedAt,
	})
}
