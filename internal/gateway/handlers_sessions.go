package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

func parseSessionID(c *gin.Context) (ids.SessionId, bool) {
	sessionID, err := ids.SessionIDFromString(c.Param("session_id"))
	if err != nil {
		apierrors.AbortWithError(c, badRequest("invalid session id: "+c.Param("session_id")))
		return ids.SessionId{}, false
	}
	return sessionID, true
}

// createSession opens a new session against an agent the caller owns.
// control.Service wakes an Idle or Hibernating agent and re-provisions a
// Stopped one; Provisioning, Stopping, and Error agents are rejected with
// AgentNotRunnable.
func (st *State) createSession(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	session, err := st.Control.CreateSession(c.Request.Context(), userID, agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

func (st *State) listSessions(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	agentID, ok := parseAgentID(c)
	if !ok {
		return
	}
	sessions, err := st.Control.ListSessions(userID, agentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (st *State) getSession(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	session, err := st.Control.GetSession(userID, sessionID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (st *State) closeSession(c *gin.Context) {
	userID, ok := callerUserID(c)
	if !ok {
		apierrors.AbortWithError(c, apierrors.Unauthorized("missing caller identity"))
		return
	}
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}
	if err := st.Control.CloseSession(userID, sessionID); err != nil {
		apierrors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
