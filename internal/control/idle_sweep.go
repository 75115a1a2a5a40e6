package control

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
)

// IdleSweeper periodically demotes agents that have sat Idle past their
// hibernate threshold, freeing their pods without the caller noticing until
// they next try to use the agent.
type IdleSweeper struct {
	svc  *Service
	cron *cron.Cron
}

// NewIdleSweeper builds a sweeper over svc using svc's configured interval.
func NewIdleSweeper(svc *Service) *IdleSweeper {
	return &IdleSweeper{
		svc:  svc,
		cron: cron.New(),
	}
}

// Start schedules the sweep and begins running it in the background. Call
// Stop to halt it.
func (sw *IdleSweeper) Start() error {
	spec := cronSpecForInterval(sw.svc.config.IdleSweepIntervalSeconds)
	_, err := sw.cron.AddFunc(spec, sw.sweep)
	if err != nil {
		return err
	}
	sw.cron.Start()
	logger.Control().Info().Str("interval", spec).Msg("idle sweep started")
	return nil
}

// Stop halts the sweep, waiting for any in-flight run to finish.
func (sw *IdleSweeper) Stop() {
	ctx := sw.cron.Stop()
	<-ctx.Done()
}

func (sw *IdleSweeper) sweep() {
	ctx := context.Background()
	log := logger.Control()

	agents, err := sw.svc.store.ListAgentsByStatus(lifecycle.Idle)
	if err != nil {
		log.Error().Err(err).Msg("idle sweep: failed to list idle agents")
		return
	}

	threshold := time.Duration(sw.svc.config.HibernateAfterIdleSeconds) * time.Second
	now := time.Now().UTC()
	demoted := 0

	for _, agent := range agents {
		if now.Sub(agent.UpdatedAt) < threshold {
			continue
		}
		if err := sw.svc.HibernateAgentBySweep(ctx, agent); err != nil {
			log.Error().Err(err).Str("agent_id", agent.AgentID.Hex()).Msg("idle sweep: failed to hibernate agent")
			continue
		}
		demoted++
	}

	if demoted > 0 {
		log.Info().Int("count", demoted).Msg("idle sweep demoted agents to hibernating")
	}
}

// cronSpecForInterval builds an "@every" cron spec from a sweep interval in
// seconds, defaulting to 60s if unset.
func cronSpecForInterval(seconds uint64) string {
	if seconds == 0 {
		seconds = 60
	}
	return "@every " + (time.Duration(seconds) * time.Second).String()
}
