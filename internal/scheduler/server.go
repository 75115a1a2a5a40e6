package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// Server exposes Adapter over HTTP for the control service's
// HttpSchedulerClient to call — the scheduler-side half of the
// control↔scheduler contract.
type Server struct {
	adapter Adapter
}

// NewServer wraps an Adapter as a gin-routable HTTP server.
func NewServer(adapter Adapter) *Server {
	return &Server{adapter: adapter}
}

// Register mounts the scheduler's routes onto an existing gin engine or
// group, e.g. under "/v1/agents".
func (s *Server) Register(r gin.IRouter) {
	agents := r.Group("/v1/agents/:id")
	agents.POST("/schedule", s.handleSchedule)
	agents.DELETE("", s.handleTerminate)
	agents.GET("/status", s.handleStatus)
	agents.GET("/endpoint", s.handleEndpoint)
	agents.GET("/metrics", s.handleMetrics)
	agents.GET("/health", s.handleHealth)
}

func parseAgentID(c *gin.Context) (ids.AgentId, bool) {
	agentID, err := ids.AgentIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return ids.AgentId{}, false
	}
	return agentID, true
}

type scheduleRequest struct {
	UserID string          `json:"user_id" binding:"required"`
	Spec   store.AgentSpec `json:"spec"`
}

func (s *Server) handleSchedule(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adapter.ScheduleAgent(c.Request.Context(), agentID, req.UserID, req.Spec); err != nil {
		writeAdapterError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) handleTerminate(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	if err := s.adapter.TerminateAgent(c.Request.Context(), agentID); err != nil {
		writeAdapterError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStatus(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	status, err := s.adapter.GetPodStatus(c.Request.Context(), agentID)
	if err != nil {
		writeAdapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"phase":         status.Phase.String(),
		"ready":         status.Ready,
		"restart_count": status.RestartCount,
		"message":       status.Message,
	})
}

func (s *Server) handleEndpoint(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	endpoint, found, err := s.adapter.GetPodEndpoint(c.Request.Context(), agentID)
	if err != nil {
		writeAdapterError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"endpoint": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": endpoint})
}

func (s *Server) handleMetrics(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	usage, found, err := s.adapter.GetAgentResourceUsage(c.Request.Context(), agentID)
	if err != nil {
		writeAdapterError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cpu_millicores": usage.CPUMillicores,
		"memory_mb":      usage.MemoryMB,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	healthy, err := s.adapter.CheckAgentHealth(c.Request.Context(), agentID)
	if err != nil {
		writeAdapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"healthy": healthy})
}

func writeAdapterError(c *gin.Context, err error) {
	if IsPodNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("scheduler request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
