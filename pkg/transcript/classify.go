package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classify parses one transcript line into a classified record.
// Malformed JSON returns an error; callers drop the line without side
// effects because transcripts may contain lines written concurrently with a
// read. Well-formed lines of unknown kinds classify as UnrecognizedRecord.
func Classify(line []byte) (Record, error) {
	var raw Line
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("malformed transcript line: %w", err)
	}

	switch raw.Type {
	case KindAssistant:
		return classifyAssistant(raw.Message), nil
	case KindUser:
		return classifyUser(raw.Message), nil
	case KindSystem:
		if raw.Subtype == SubtypeTurnDuration {
			return &TurnDurationRecord{DurationMS: raw.DurationMS}, nil
		}
		return &UnrecognizedRecord{Kind: KindSystem + "/" + raw.Subtype}, nil
	case KindProgress:
		return classifyProgress(&raw), nil
	default:
		return &UnrecognizedRecord{Kind: raw.Type}, nil
	}
}

// classifyAssistant extracts tool invocations and text presence from an
// assistant message.
func classifyAssistant(msg *Message) *AssistantRecord {
	rec := &AssistantRecord{}
	for _, block := range msg.ContentBlocks() {
		switch block.Type {
		case "tool_use":
			if block.ID == "" {
				continue
			}
			rec.ToolUses = append(rec.ToolUses, ToolUse{
				ID:         block.ID,
				Name:       block.Name,
				Input:      block.Input,
				StatusText: StatusText(block.Name, block.Input),
			})
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				rec.HasText = true
			}
		}
	}
	return rec
}

// classifyUser extracts tool results or a freeform prompt from a user
// message. A record with at least one tool_result block is a completion; a
// plain-string or text-block record is a prompt.
func classifyUser(msg *Message) *UserRecord {
	rec := &UserRecord{}

	if s := msg.ContentString(); s != "" {
		rec.Prompt = strings.TrimSpace(s)
		return rec
	}

	var textParts []string
	for _, block := range msg.ContentBlocks() {
		switch block.Type {
		case "tool_result":
			if block.ToolUseID == "" {
				continue
			}
			rec.ToolResults = append(rec.ToolResults, ToolResult{
				ToolUseID: block.ToolUseID,
				IsError:   block.IsError,
			})
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				textParts = append(textParts, strings.TrimSpace(block.Text))
			}
		}
	}

	// Tool results and a prompt never arrive in the same record; when both
	// block kinds are present the results win and the text is ignored.
	if len(rec.ToolResults) == 0 {
		rec.Prompt = strings.Join(textParts, "\n")
	}
	return rec
}

// classifyProgress maps a progress record to either nested sub-task content
// or a liveness pulse. Progress without a parent tool id is unusable and
// classifies as unrecognized.
func classifyProgress(raw *Line) Record {
	if raw.ToolUseID == "" || raw.Data == nil {
		return &UnrecognizedRecord{Kind: KindProgress}
	}

	rec := &ProgressRecord{ParentToolID: raw.ToolUseID}

	if raw.Data.Type == ProgressAgent && raw.Data.Message != nil {
		nested := raw.Data.Message
		switch nested.Type {
		case KindAssistant:
			rec.Assistant = classifyAssistant(nested.Message)
			return rec
		case KindUser:
			rec.User = classifyUser(nested.Message)
			return rec
		default:
			return &UnrecognizedRecord{Kind: KindProgress + "/" + nested.Type}
		}
	}

	// Every other progress payload (bash_progress, hook_progress, future
	// kinds) is treated as evidence that the parent tool is still executing.
	rec.Pulse = true
	return rec
}
