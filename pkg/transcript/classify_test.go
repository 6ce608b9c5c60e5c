package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_AssistantToolUse(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/a/b.py"}}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	assistant, ok := rec.(*AssistantRecord)
	require.True(t, ok, "expected AssistantRecord, got %T", rec)
	require.Len(t, assistant.ToolUses, 1)
	assert.Equal(t, "t1", assistant.ToolUses[0].ID)
	assert.Equal(t, "Read", assistant.ToolUses[0].Name)
	assert.Equal(t, "Reading b.py", assistant.ToolUses[0].StatusText)
	assert.False(t, assistant.HasText)
}

func TestClassify_AssistantTextOnly(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"text","text":"Here is what I found."}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	assistant, ok := rec.(*AssistantRecord)
	require.True(t, ok)
	assert.Empty(t, assistant.ToolUses)
	assert.True(t, assistant.HasText)
}

func TestClassify_AssistantMixedBlocks(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[` +
		`{"type":"text","text":"Running two tools."},` +
		`{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"go test ./..."}},` +
		`{"type":"tool_use","id":"t2","name":"Grep","input":{"pattern":"TODO"}}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	assistant := rec.(*AssistantRecord)
	require.Len(t, assistant.ToolUses, 2)
	assert.True(t, assistant.HasText)
	assert.Equal(t, "Running go test ./...", assistant.ToolUses[0].StatusText)
	assert.Equal(t, `Searching for "TODO"`, assistant.ToolUses[1].StatusText)
}

func TestClassify_UserToolResult(t *testing.T) {
	line := `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1"}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	user, ok := rec.(*UserRecord)
	require.True(t, ok)
	require.Len(t, user.ToolResults, 1)
	assert.Equal(t, "t1", user.ToolResults[0].ToolUseID)
	assert.Empty(t, user.Prompt)
}

func TestClassify_UserPromptString(t *testing.T) {
	line := `{"type":"user","message":{"content":"please fix the tests"}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	user := rec.(*UserRecord)
	assert.Equal(t, "please fix the tests", user.Prompt)
	assert.Empty(t, user.ToolResults)
}

func TestClassify_UserPromptTextBlocks(t *testing.T) {
	line := `{"type":"user","message":{"content":[{"type":"text","text":"try again"}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	user := rec.(*UserRecord)
	assert.Equal(t, "try again", user.Prompt)
}

func TestClassify_UserToolResultWinsOverText(t *testing.T) {
	line := `{"type":"user","message":{"content":[` +
		`{"type":"tool_result","tool_use_id":"t9","is_error":true},` +
		`{"type":"text","text":"context for the result"}]}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	user := rec.(*UserRecord)
	require.Len(t, user.ToolResults, 1)
	assert.True(t, user.ToolResults[0].IsError)
	assert.Empty(t, user.Prompt)
}

func TestClassify_TurnDuration(t *testing.T) {
	line := `{"type":"system","subtype":"turn_duration","durationMs":5230}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	turn, ok := rec.(*TurnDurationRecord)
	require.True(t, ok)
	assert.Equal(t, int64(5230), turn.DurationMS)
}

func TestClassify_SystemOtherSubtype(t *testing.T) {
	line := `{"type":"system","subtype":"compact_boundary"}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	_, ok := rec.(*UnrecognizedRecord)
	assert.True(t, ok)
}

func TestClassify_ProgressPulse(t *testing.T) {
	line := `{"type":"progress","toolUseID":"t1","data":{"type":"bash_progress"}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	prog, ok := rec.(*ProgressRecord)
	require.True(t, ok)
	assert.Equal(t, "t1", prog.ParentToolID)
	assert.True(t, prog.Pulse)
	assert.Nil(t, prog.Assistant)
	assert.Nil(t, prog.User)
}

func TestClassify_ProgressSubtaskAssistant(t *testing.T) {
	line := `{"type":"progress","toolUseID":"parent1","data":{"type":"agent_progress","message":` +
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"s1","name":"Bash","input":{"command":"ls"}}]}}}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	prog, ok := rec.(*ProgressRecord)
	require.True(t, ok)
	assert.Equal(t, "parent1", prog.ParentToolID)
	assert.False(t, prog.Pulse)
	require.NotNil(t, prog.Assistant)
	require.Len(t, prog.Assistant.ToolUses, 1)
	assert.Equal(t, "s1", prog.Assistant.ToolUses[0].ID)
}

func TestClassify_ProgressSubtaskUser(t *testing.T) {
	line := `{"type":"progress","toolUseID":"parent1","data":{"type":"agent_progress","message":` +
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"s1"}]}}}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	prog := rec.(*ProgressRecord)
	require.NotNil(t, prog.User)
	require.Len(t, prog.User.ToolResults, 1)
	assert.Equal(t, "s1", prog.User.ToolResults[0].ToolUseID)
}

func TestClassify_ProgressMissingParent(t *testing.T) {
	line := `{"type":"progress","data":{"type":"bash_progress"}}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	_, ok := rec.(*UnrecognizedRecord)
	assert.True(t, ok)
}

func TestClassify_UnknownKind(t *testing.T) {
	line := `{"type":"summary","summary":"Fixing the build"}`

	rec, err := Classify([]byte(line))
	require.NoError(t, err)

	unrec, ok := rec.(*UnrecognizedRecord)
	require.True(t, ok)
	assert.Equal(t, "summary", unrec.Kind)
}

func TestClassify_MalformedJSON(t *testing.T) {
	_, err := Classify([]byte(`{"type":"assistant","message":{"cont`))
	assert.Error(t, err)
}

func TestIsPermissionExempt(t *testing.T) {
	assert.True(t, IsPermissionExempt(ToolTask))
	assert.True(t, IsPermissionExempt(ToolAskUser))
	assert.False(t, IsPermissionExempt(ToolBash))
	assert.False(t, IsPermissionExempt(ToolRead))
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		input map[string]any
		want  string
	}{
		{"read file", ToolRead, map[string]any{"file_path": "/a/b.py"}, "Reading b.py"},
		{"read no path", ToolRead, nil, "Reading a file"},
		{"write file", ToolWrite, map[string]any{"file_path": "/x/y/main.go"}, "Writing main.go"},
		{"edit file", ToolEdit, map[string]any{"file_path": "/x/cfg.yaml"}, "Editing cfg.yaml"},
		{"bash command", ToolBash, map[string]any{"command": "make build"}, "Running make build"},
		{"bash multiline", ToolBash, map[string]any{"command": "ls\nwc -l"}, "Running ls"},
		{"grep", ToolGrep, map[string]any{"pattern": "func main"}, `Searching for "func main"`},
		{"web fetch", ToolWebFetch, map[string]any{"url": "https://pkg.go.dev/io"}, "Fetching pkg.go.dev"},
		{"task", ToolTask, map[string]any{"description": "audit imports"}, "Delegating: audit imports"},
		{"ask user", ToolAskUser, nil, "Asking a question"},
		{"unknown tool", "mcp__browser__click", nil, "Using mcp__browser__click"},
		{"empty tool", "", nil, "Working"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusText(tt.tool, tt.input))
		})
	}
}

func TestStatusText_TruncatesLongCommands(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := StatusText(ToolBash, map[string]any{"command": string(long)})
	assert.LessOrEqual(t, len(got), 60)
	assert.Contains(t, got, "...")
}
