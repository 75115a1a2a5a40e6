// Command gateway runs the HTTP/WebSocket API surface (C8/C9): it terminates
// client connections, authenticates them against the identity provider, and
// talks to the control service for everything else.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/control"
	"github.com/cypher-asi/aura-swarm-sub000/internal/gateway"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
	"github.com/cypher-asi/aura-swarm-sub000/internal/store"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("DEV_MODE", "") == "true")
	log := logger.Gateway()

	dataDir := getEnv("DATA_DIR", "/var/lib/aura-swarm/gateway")
	s, err := store.Open(dataDir + "/gateway.db")
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

	ctrl := control.NewService(s, schedulerClient, events, control.DefaultConfig())

	// The gateway is the all-in-one deployable: it embeds the control
	// service directly (matching the single-process wiring this module's
	// control-plane design is grounded on) rather than calling out over the
	// network, so it also owns the idle sweeper. cmd/control exists for
	// topologies that split control onto its own volume/replica instead.
	sweeper := control.NewIdleSweeper(ctrl)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start idle sweeper")
	}
	defer sweeper.Stop()

	rdb := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	cfg := gateway.DefaultConfig()
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.RateLimitRPS = float64(getEnvInt("RATE_LIMIT_RPS", int(cfg.RateLimitRPS)))

	st := gateway.NewState(ctrl, rdb, cfg)

	var validator auth.Validator
	if getEnv("DEV_MODE", "") == "true" {
		log.Warn().Msg("DEV_MODE enabled: using mock JWT validator, do not run this in production")
		validator = &auth.MockValidator{MfaVerified: true}
	} else {
		authCfg := auth.DefaultConfig()
		authCfg.BaseURL = getEnv("AUTH_BASE_URL", authCfg.BaseURL)
		authCfg.Audience = getEnv("AUTH_AUDIENCE", authCfg.Audience)
		validator = auth.NewJWKSValidator(context.Background(), authCfg)
	}

	serviceTokens := auth.NewServiceTokenManager([]byte(getEnv("INTERNAL_TOKEN_SECRET", "")), "aura-swarm-gateway", 5*time.Minute)

	router := gateway.NewRouter(st, validator, serviceTokens)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown did not complete cleanly")
	}
}
