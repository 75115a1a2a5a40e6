package control

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cypher-asi/aura-swarm-sub000/internal/lifecycle"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
)

// SubjectAgentStatusChanged is the NATS subject agent status transitions are
// published on, so other gateway replicas can invalidate cached state
// without polling the store on every request.
const SubjectAgentStatusChanged = "agent.status.changed"

// AgentStatusChangedEvent is the payload published on SubjectAgentStatusChanged.
type AgentStatusChangedEvent struct {
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes agent lifecycle events. A disabled publisher
// (NATS unreachable or unconfigured) degrades to a no-op rather than failing
// the mutation that triggered it.
type EventPublisher struct {
	conn    *nats.Conn
	enabled bool
}

// NewEventPublisher connects to the given NATS URL. An empty url or a
// connection failure returns a disabled publisher — agent mutations still
// succeed, other gateway replicas simply fall back to polling the store.
func NewEventPublisher(url string) *EventPublisher {
	log := logger.Control()
	if url == "" {
		log.Warn().Msg("NATS_URL not configured, agent status events will not be published")
		return &EventPublisher{enabled: false}
	}

	conn, err := nats.Connect(url,
		nats.Name("aura-swarm-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS publisher disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS publisher reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS publisher error")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to connect to NATS, agent status events disabled")
		return &EventPublisher{enabled: false}
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("control service connected to NATS")
	return &EventPublisher{conn: conn, enabled: true}
}

// PublishStatusChanged publishes an AgentStatusChangedEvent. Errors are
// logged, not returned: event delivery is best-effort and must never block
// or fail a control-plane mutation.
func (p *EventPublisher) PublishStatusChanged(agentIDHex, userIDHex string, status lifecycle.AgentState) {
	if !p.enabled {
		return
	}
	event := AgentStatusChangedEvent{
		AgentID:   agentIDHex,
		UserID:    userIDHex,
		Status:    status.String(),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Control().Error().Err(err).Msg("failed to marshal agent status event")
		return
	}
	if err := p.conn.Publish(SubjectAgentStatusChanged, data); err != nil {
		logger.Control().Error().Err(err).Msg("failed to publish agent status event")
	}
}

// Close drains and closes the NATS connection, if connected.
func (p *EventPublisher) Close() {
	if p.enabled && p.conn != nil {
		p.conn.Drain()
		p.conn.Close()
	}
}
