package gateway

import (
	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
)

// NewRouter builds the gateway's gin engine: the shared middleware chain
// followed by the public, authenticated, and internal-only route groups.
// The middleware order mirrors the teacher's main.go chain — tracing first
// so every later stage can log against a request ID, security headers and
// CORS before anything that might short-circuit, rate limiting and body
// limits before the handler does real work, and the timeout wrapping
// everything else so it can bound the full handler call.
func NewRouter(st *State, validator auth.Validator, serviceTokens *auth.ServiceTokenManager) *gin.Engine {
	r := gin.New()
	r.Use(apierrors.Recovery())

	limiter := newUserRateLimiter(st.Redis, st.Config.RateLimitRPS)

	r.Use(
		requestTracing(),
		cors(st.Config.CORSOrigins),
		securityHeaders(),
		bodyLimit(st.Config.MaxBodyBytes),
		limiter.middleware(),
		requestTimeout(st.Config.RequestTimeout()),
		apierrors.ErrorHandler(),
	)

	r.GET("/health", health)

	v1 := r.Group("/v1")
	v1.Use(auth.Middleware(validator), limiter.middleware())
	{
		v1.GET("/agents", st.listAgents)
		v1.POST("/agents", st.createAgent)
		v1.GET("/agents/:agent_id", st.getAgent)
		v1.DELETE("/agents/:agent_id", st.deleteAgent)
		v1.POST("/agents/:agent_id/start", st.startAgent)
		v1.POST("/agents/:agent_id/stop", st.stopAgent)
		v1.POST("/agents/:agent_id/restart", st.restartAgent)
		v1.POST("/agents/:agent_id/hibernate", auth.RequireMFA(), st.hibernateAgent)
		v1.POST("/agents/:agent_id/wake", st.wakeAgent)
		v1.GET("/agents/:agent_id/status", st.getAgentStatus)
		v1.GET("/agents/:agent_id/metrics", st.getAgentMetrics)
		v1.GET("/agents/:agent_id/logs", st.getAgentLogs)

		v1.POST("/agents/:agent_id/sessions", st.createSession)
		v1.GET("/agents/:agent_id/sessions", st.listSessions)
		v1.GET("/sessions/:session_id", st.getSession)
		v1.DELETE("/sessions/:session_id", st.closeSession)
		v1.GET("/sessions/:session_id/ws", st.sessionWS)
	}

	internal := r.Group("/internal")
	internal.Use(auth.InternalServiceAuth(serviceTokens))
	{
		internal.PATCH("/agents/:agent_id/status", st.updateAgentStatus)
	}

	return r
}
