package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
	"github.com/zep-us/zep-pixel-agents/internal/events"
	"github.com/zep-us/zep-pixel-agents/internal/events/bus"
)

// Notifier receives the discrete status events the state machine produces.
// The production implementation publishes to the event bus; tests substitute
// a recording fake.
type Notifier interface {
	ToolStarted(agentID int, toolID, toolName, statusText string)
	ToolDone(agentID int, toolID string)
	ToolsCleared(agentID int)
	StatusChanged(agentID int, state string)
	StallDetected(agentID int)
	SubtaskStarted(agentID int, parentToolID, subToolID, toolName, statusText string)
	SubtaskDone(agentID int, parentToolID, subToolID string)
	SubtaskCleared(agentID int, parentToolID string)
	SubtaskStalled(agentID int, parentToolID string)
	AgentTracked(agentID int, logPath string)
	AgentUntracked(agentID int)
}

const eventSource = "tracker"

// BusNotifier publishes status events to the event bus. Publish failures are
// logged and dropped; a missed status frame degrades the display, not the
// tracking state.
type BusNotifier struct {
	bus    bus.EventBus
	logger *logger.Logger
}

// NewBusNotifier creates a Notifier backed by the given event bus.
func NewBusNotifier(eventBus bus.EventBus, log *logger.Logger) *BusNotifier {
	return &BusNotifier{
		bus:    eventBus,
		logger: log.WithComponent("notifier"),
	}
}

func (n *BusNotifier) publish(eventType string, data map[string]interface{}) {
	event := bus.NewEvent(eventType, eventSource, data)
	if err := n.bus.Publish(context.Background(), eventType, event); err != nil {
		n.logger.Warn("failed to publish status event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

// ToolStarted publishes an events.ToolStarted event.
func (n *BusNotifier) ToolStarted(agentID int, toolID, toolName, statusText string) {
	n.publish(events.ToolStarted, map[string]interface{}{
		"agent_id":    agentID,
		"tool_id":     toolID,
		"tool_name":   toolName,
		"status_text": statusText,
	})
}

// ToolDone publishes an events.ToolDone event.
func (n *BusNotifier) ToolDone(agentID int, toolID string) {
	n.publish(events.ToolDone, map[string]interface{}{
		"agent_id": agentID,
		"tool_id":  toolID,
	})
}

// ToolsCleared publishes an events.ToolsCleared event.
func (n *BusNotifier) ToolsCleared(agentID int) {
	n.publish(events.ToolsCleared, map[string]interface{}{
		"agent_id": agentID,
	})
}

// StatusChanged publishes an events.StatusChanged event.
func (n *BusNotifier) StatusChanged(agentID int, state string) {
	n.publish(events.StatusChanged, map[string]interface{}{
		"agent_id": agentID,
		"state":    state,
	})
}

// StallDetected publishes an events.StallDetected event.
func (n *BusNotifier) StallDetected(agentID int) {
	n.publish(events.StallDetected, map[string]interface{}{
		"agent_id": agentID,
	})
}

// SubtaskStarted publishes an events.SubtaskStarted event.
func (n *BusNotifier) SubtaskStarted(agentID int, parentToolID, subToolID, toolName, statusText string) {
	n.publish(events.SubtaskStarted, map[string]interface{}{
		"agent_id":       agentID,
		"parent_tool_id": parentToolID,
		"sub_tool_id":    subToolID,
		"tool_name":      toolName,
		"status_text":    statusText,
	})
}

// SubtaskDone publishes an events.SubtaskDone event.
func (n *BusNotifier) SubtaskDone(agentID int, parentToolID, subToolID string) {
	n.publish(events.SubtaskDone, map[string]interface{}{
		"agent_id":       agentID,
		"parent_tool_id": parentToolID,
		"sub_tool_id":    subToolID,
	})
}

// SubtaskCleared publishes an events.SubtaskCleared event.
func (n *BusNotifier) SubtaskCleared(agentID int, parentToolID string) {
	n.publish(events.SubtaskCleared, map[string]interface{}{
		"agent_id":       agentID,
		"parent_tool_id": parentToolID,
	})
}

// SubtaskStalled publishes an events.SubtaskStalled event.
func (n *BusNotifier) SubtaskStalled(agentID int, parentToolID string) {
	n.publish(events.SubtaskStalled, map[string]interface{}{
		"agent_id":       agentID,
		"parent_tool_id": parentToolID,
	})
}

// AgentTracked publishes an events.AgentTracked event.
func (n *BusNotifier) AgentTracked(agentID int, logPath string) {
	n.publish(events.AgentTracked, map[string]interface{}{
		"agent_id": agentID,
		"log_path": logPath,
	})
}

// AgentUntracked publishes an events.AgentUntracked event.
func (n *BusNotifier) AgentUntracked(agentID int) {
	n.publish(events.AgentUntracked, map[string]interface{}{
		"agent_id": agentID,
	})
}
