// Command control runs the control service (C4) as a standalone internal
// process, exposed only to the gateway and reconciler over the cluster
// network — it never terminates a client connection directly.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/control"
	"github.com/cypher-asi/aura-swarm-sub000/internal/ids"
	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

var statusByName = map[string]lifecycle.AgentState{
	"provisioning": lifecycle.Provisioning,
	"running":      lifecycle.Running,
	"idle":         lifecycle.Idle,
	"hibernating":  lifecycle.Hibernating,
	"stopping":     lifecycle.Stopping,
	"stopped":      lifecycle.Stopped,
	"error":        lifecycle.Error,
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("DEV_MODE", "") == "true")
	log := logger.Control()

	dataDir := getEnv("DATA_DIR", "/var/lib/aura-swarm/control")
	s, err := store.Open(dataDir + "/control.db")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer s.Close()

	var schedulerClient control.SchedulerClient = control.NewNoopSchedulerClient()
	if schedulerURL := os.Getenv("SCHEDULER_URL"); schedulerURL != "" {
		schedulerClient = control.NewHttpSchedulerClient(schedulerURL)
	}
	events := control.NewEventPublisher(getEnv("NATS_URL", ""))
	defer events.Close()

	svc := control.NewService(s, schedulerClient, events, control.DefaultConfig())

	sweeper := control.NewIdleSweeper(svc)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start idle sweeper")
	}
	defer sweeper.Stop()

	serviceTokens := auth.NewServiceTokenManager([]byte(getEnv("INTERNAL_TOKEN_SECRET", "")), "aura-swarm-control", 5*time.Minute)

	r := gin.New()
	r.Use(apierrors.Recovery(), apierrors.ErrorHandler())
	internal := r.Group("/internal")
	internal.Use(auth.InternalServiceAuth(serviceTokens))
	{
		internal.PATCH("/agents/:agent_id/status", func(c *gin.Context) {
			agentIDHex := c.Param("agent_id")
			if _, err := ids.AgentIDFromHex(agentIDHex); err != nil {
				apierrors.AbortWithError(c, apierrors.BadRequest("invalid agent id: "+agentIDHex))
				return
			}
			var req struct {
				Status  string `json:"status" binding:"required"`
				Message string `json:"message"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				apierrors.AbortWithError(c, apierrors.BadRequest(err.Error()))
				return
			}
			status, ok := statusByName[req.Status]
			if !ok {
				apierrors.AbortWithError(c, apierrors.BadRequest("unknown status: "+req.Status))
				return
			}
			if err := svc.NotifyStatusChange(c.Request.Context(), agentIDHex, status, req.Message); err != nil {
				apierrors.HandleError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}

	addr := getEnv("LISTEN_ADDR", "0.0.0.0:8081")
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Msg("control service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("control server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down control service")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("control shutdown did not complete cleanly")
	}
}
