// Package gateway implements the HTTP/WebSocket API surface (C8/C9): request
// routing, authentication extraction, error mapping, rate limiting, and the
// bidirectional session proxy to agent pods.
package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/control"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
)

// State holds the services every handler needs.
type State struct {
	Control *control.Service
	Redis   *redis.Client
	Config  Config
}

// NewState wires a gateway State over an already-constructed control service
// and the Redis client backing the rate limiter.
func NewState(ctrl *control.Service, rdb *redis.Client, cfg Config) *State {
	return &State{Control: ctrl, Redis: rdb, Config: cfg}
}

// callerUserID derives the internal UserId for the authenticated caller from
// the validated JWT claims already placed in context by auth.Middleware.
func callerUserID(c *gin.Context) (ids.UserId, bool) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return ids.UserId{}, false
	}
	return ids.DeriveUserID(claims.IdentityID), true
}
