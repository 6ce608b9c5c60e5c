// Package transcript provides types and parsing for agent transcript files.
// A transcript is an append-only JSONL file where the agent process records
// one structured activity record per line, discriminated by a "type" field.
package transcript

import "encoding/json"

// Record kinds found in transcript lines
const (
	// KindAssistant contains text or tool invocations from the assistant
	KindAssistant = "assistant"
	// KindUser contains a prompt or tool results
	KindUser = "user"
	// KindSystem carries session-level signals, discriminated by subtype
	KindSystem = "system"
	// KindProgress carries nested sub-task activity or execution pulses
	KindProgress = "progress"
)

// System record subtypes
const (
	// SubtypeTurnDuration is the authoritative turn-end signal. It is not
	// written for turns that produce only text, which is why the tracker
	// falls back to an idle timeout for those.
	SubtypeTurnDuration = "turn_duration"
)

// Progress payload types
const (
	// ProgressAgent wraps a nested assistant/user record produced by a
	// sub-task spawned through the delegating tool kind
	ProgressAgent = "agent_progress"
	// ProgressBash is a periodic pulse from a long-running shell command
	ProgressBash = "bash_progress"
	// ProgressHook is a periodic pulse from a hook execution
	ProgressHook = "hook_progress"
)

// Tool kinds the tracker special-cases
const (
	ToolBash         = "Bash"
	ToolRead         = "Read"
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolNotebookEdit = "NotebookEdit"
	ToolGlob         = "Glob"
	ToolGrep         = "Grep"
	ToolTask         = "Task"
	ToolWebFetch     = "WebFetch"
	ToolWebSearch    = "WebSearch"
	ToolAskUser      = "AskUserQuestion"
)

// SubtaskToolName is the tool kind that spawns a nested sub-task whose
// activity arrives via progress records.
const SubtaskToolName = ToolTask

// permissionExempt lists tool kinds that never block on a human approval
// prompt and therefore must not arm the stall timer.
var permissionExempt = map[string]bool{
	ToolTask:    true,
	ToolAskUser: true,
}

// IsPermissionExempt reports whether a tool kind never stalls on approval.
func IsPermissionExempt(toolName string) bool {
	return permissionExempt[toolName]
}

// Line represents one raw transcript line. The record kind determines which
// fields are populated.
type Line struct {
	// Type is the record kind (assistant, user, system, progress, ...)
	Type string `json:"type"`

	// For system records
	Subtype    string `json:"subtype,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`

	// For assistant and user records
	Message *Message `json:"message,omitempty"`

	// For progress records
	ToolUseID string        `json:"toolUseID,omitempty"`
	Data      *ProgressData `json:"data,omitempty"`
}

// ProgressData is the nested payload of a progress record.
type ProgressData struct {
	Type string `json:"type"`

	// For agent_progress: the sub-task's own assistant/user record
	Message *Line `json:"message,omitempty"`
}

// Message contains the content of an assistant or user record.
// Content is either a plain string (freeform prompts, command output) or an
// array of content blocks.
type Message struct {
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ContentBlock represents a block of content in an assistant or user message.
type ContentBlock struct {
	Type string `json:"type"`

	// For text blocks
	Text string `json:"text,omitempty"`

	// For tool_use blocks
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// For tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ContentBlocks returns the message content parsed as blocks.
// Returns nil when the content is a plain string or absent.
func (m *Message) ContentBlocks() []ContentBlock {
	if m == nil || len(m.Content) == 0 {
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

// ContentString returns the message content when it is a plain string.
// Returns "" when the content is a block array or absent.
func (m *Message) ContentString() string {
	if m == nil || len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return ""
	}
	return s
}

// ToolUse is one tool invocation requested by the assistant.
type ToolUse struct {
	ID         string
	Name       string
	Input      map[string]any
	StatusText string
}

// ToolResult completes a previously started tool invocation.
type ToolResult struct {
	ToolUseID string
	IsError   bool
}

// Record is the closed set of classified transcript records. Downstream
// logic switches exhaustively over the concrete types, so unknown record
// shapes fail closed as Unrecognized rather than partially matching.
type Record interface {
	isRecord()
}

// AssistantRecord is an assistant turn: tool invocations and/or text.
type AssistantRecord struct {
	ToolUses []ToolUse
	HasText  bool
}

// UserRecord is either a set of tool results or a freeform text prompt.
type UserRecord struct {
	ToolResults []ToolResult
	Prompt      string
}

// TurnDurationRecord is the authoritative turn-end signal.
type TurnDurationRecord struct {
	DurationMS int64
}

// ProgressRecord carries sub-task activity for a parent tool invocation, or
// a liveness pulse for a long-running tool.
type ProgressRecord struct {
	ParentToolID string

	// Pulse is set for "still executing" records that carry no nested
	// content. A pulse is evidence of liveness, not of a stall.
	Pulse bool

	// Exactly one of Assistant/User is set for agent_progress records.
	Assistant *AssistantRecord
	User      *UserRecord
}

// UnrecognizedRecord is any well-formed line whose kind the tracker does not
// consume. It is ignored without error.
type UnrecognizedRecord struct {
	Kind string
}

func (*AssistantRecord) isRecord()    {}
func (*UserRecord) isRecord()         {}
func (*TurnDurationRecord) isRecord() {}
func (*ProgressRecord) isRecord()     {}
func (*UnrecognizedRecord) isRecord() {}
