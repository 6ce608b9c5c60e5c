// Package events provides event types and utilities for the zep-pixel-agents event system.
package events

// Event types for agent tool activity
const (
	ToolStarted  = "agent.tool.started"
	ToolDone     = "agent.tool.done"
	ToolsCleared = "agent.tool.cleared"
)

// Event types for agent status
const (
	StatusChanged  = "agent.status.changed"
	StallDetected  = "agent.stall.detected"
	AgentTracked   = "agent.tracked"
	AgentUntracked = "agent.untracked"
)

// Event types for sub-task activity (nested tool invocations spawned by a
// delegating tool call, tracked one level deep)
const (
	SubtaskStarted = "agent.subtask.started"
	SubtaskDone    = "agent.subtask.done"
	SubtaskCleared = "agent.subtask.cleared"
	SubtaskStalled = "agent.subtask.stalled"
)

// Agent status states
const (
	StateActive  = "active"
	StateWaiting = "waiting"
)

// BuildAgentWildcardSubject returns the subject pattern matching every
// agent event.
func BuildAgentWildcardSubject() string {
	return "agent.>"
}

// ToolStartedData is the payload for ToolStarted events.
type ToolStartedData struct {
	AgentID    int    `json:"agent_id"`
	ToolID     string `json:"tool_id"`
	ToolName   string `json:"tool_name"`
	StatusText string `json:"status_text"`
}

// ToolDoneData is the payload for ToolDone events.
// Emission is delayed by the configured tool-done delay so that very fast
// tools still render a visible start state.
type ToolDoneData struct {
	AgentID int    `json:"agent_id"`
	ToolID  string `json:"tool_id"`
}

// ToolsClearedData is the payload for ToolsCleared events.
type ToolsClearedData struct {
	AgentID int `json:"agent_id"`
}

// StatusChangedData is the payload for StatusChanged events.
type StatusChangedData struct {
	AgentID int    `json:"agent_id"`
	State   string `json:"state"` // StateActive or StateWaiting
}

// StallDetectedData is the payload for StallDetected events.
type StallDetectedData struct {
	AgentID int `json:"agent_id"`
}

// SubtaskStartedData is the payload for SubtaskStarted events.
type SubtaskStartedData struct {
	AgentID      int    `json:"agent_id"`
	ParentToolID string `json:"parent_tool_id"`
	SubToolID    string `json:"sub_tool_id"`
	ToolName     string `json:"tool_name"`
	StatusText   string `json:"status_text"`
}

// SubtaskDoneData is the payload for SubtaskDone events.
type SubtaskDoneData struct {
	AgentID      int    `json:"agent_id"`
	ParentToolID string `json:"parent_tool_id"`
	SubToolID    string `json:"sub_tool_id"`
}

// SubtaskClearedData is the payload for SubtaskCleared events.
type SubtaskClearedData struct {
	AgentID      int    `json:"agent_id"`
	ParentToolID string `json:"parent_tool_id"`
}

// SubtaskStalledData is the payload for SubtaskStalled events.
type SubtaskStalledData struct {
	AgentID      int    `json:"agent_id"`
	ParentToolID string `json:"parent_tool_id"`
}

// AgentTrackedData is the payload for AgentTracked and AgentUntracked events.
type AgentTrackedData struct {
	AgentID int    `json:"agent_id"`
	LogPath string `json:"log_path,omitempty"`
}
