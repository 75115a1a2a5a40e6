package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const gatewayVersion = "0.1.0"

// health is unauthenticated and cheap: it reports process liveness only, not
// store or scheduler reachability.
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": gatewayVersion,
	})
}
