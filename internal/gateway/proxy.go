package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

// dialTimeout bounds how long the gateway waits to establish the upstream
// leg of the proxy against the agent pod.
const dialTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway itself enforces CORS on the HTTP surface; the WebSocket
	// upgrade is authenticated by the bearer token carried on the request,
	// not by origin, so every origin is accepted here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sessionWS implements the bidirectional proxy: it verifies the session
// belongs to the caller and is still active, resolves the owning agent's pod
// endpoint, upgrades the inbound connection, dials the pod's own stream
// endpoint, and relays frames between the two sockets until either side
// closes or the session's configured timeout elapses.
func (st *State) sessionWS(c *gin.Context) {
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
	if session.Status != store.SessionActive {
		apierrors.AbortWithError(c, apierrors.New(apierrors.ErrCodeInvalidState,
			fmt.Sprintf("session %s is not active", sessionID.String())))
		return
	}

	endpoint, ready, err := st.Control.ResolveAgentEndpoint(c.Request.Context(), session.AgentID)
	if err != nil {
		apierrors.HandleError(c, err)
		return
	}
	if !ready {
		apierrors.AbortWithError(c, apierrors.AgentUnavailable(session.AgentID.Hex()))
		return
	}

	clientConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Proxy().Warn().Err(err).Str("session_id", sessionID.String()).Msg("client upgrade failed")
		return
	}
	defer clientConn.Close()

	agentURL := url.URL{Scheme: "ws", Host: endpoint, Path: "/stream"}
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	agentConn, _, err := dialer.Dial(agentURL.String(), nil)
	if err != nil {
		logger.Proxy().Warn().Err(err).Str("agent_id", session.AgentID.Hex()).Msg("agent dial failed")
		clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "agent unreachable"))
		return
	}
	defer agentConn.Close()

	if d := st.Config.WebSocketTimeout(); d > 0 {
		deadline := time.Now().Add(d)
		clientConn.SetReadDeadline(deadline)
		agentConn.SetReadDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		forward(clientConn, agentConn)
		close(done)
	}()
	forward(agentConn, clientConn)
	<-done

	logger.Proxy().Info().Str("session_id", sessionID.String()).Msg("session proxy closed")
}

// forward copies text and binary frames from src to dst verbatim until src
// closes or errors, then sends dst a normal-closure close frame. ReadMessage
// answers pings, consumes pongs, and reports a peer's close as an error, so
// control frames are not relayed and the ping/pong/close cases below never
// match.
func forward(src, dst *websocket.Conn) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			dst.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage, websocket.PingMessage, websocket.PongMessage:
			if writeErr := dst.WriteMessage(msgType, data); writeErr != nil {
				return
			}
		case websocket.CloseMessage:
			dst.WriteMessage(websocket.CloseMessage, data)
			return
		}
	}
}
