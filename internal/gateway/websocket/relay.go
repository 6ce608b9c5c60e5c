package websocket

import (
	"context"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
	"github.com/zep-us/zep-pixel-agents/internal/events"
	"github.com/zep-us/zep-pixel-agents/internal/events/bus"
)

// Relay subscribes to all agent status subjects on the event bus and fans
// each event out through the hub.
type Relay struct {
	bus    bus.EventBus
	hub    *Hub
	logger *logger.Logger
	sub    bus.Subscription
}

// NewRelay creates a relay between the event bus and the hub.
func NewRelay(eventBus bus.EventBus, hub *Hub, log *logger.Logger) *Relay {
	return &Relay{
		bus:    eventBus,
		hub:    hub,
		logger: log.WithComponent("ws_relay"),
	}
}

// Start subscribes to the agent status wildcard subject.
func (r *Relay) Start() error {
	sub, err := r.bus.Subscribe(events.BuildAgentWildcardSubject(), func(ctx context.Context, event *bus.Event) error {
		r.hub.Broadcast(&Frame{
			Action:  event.Type,
			Payload: event.Data,
		})
		return nil
	})
	if err != nil {
		return err
	}
	r.sub = sub
	r.logger.Info("relay subscribed", zap.String("subject", events.BuildAgentWildcardSubject()))
	return nil
}

// Stop drops the bus subscription.
func (r *Relay) Stop() {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.logger.WithError(err).Warn("failed to unsubscribe relay")
		}
		r.sub = nil
	}
}
