package tracker

import "github.com/zep-us/zep-pixel-agents/pkg/transcript"

// toolState describes one open tool invocation.
type toolState struct {
	Name       string
	StatusText string
}

// Agent is the tracked state of one observed agent process. All fields are
// guarded by the registry mutex; nothing outside the registry mutates them.
type Agent struct {
	// ID is stable for the lifetime of the registry and never reused.
	ID int

	// ProcessName identifies the host process for restore matching.
	ProcessName string

	tailer *Tailer

	// awaitingFile is set while the expected transcript has not appeared
	// yet; wake-ups skip the pump until the file is bound.
	awaitingFile bool
	// existenceStop ends the existence poll goroutine, nil once bound.
	existenceStop chan struct{}

	// gen counts rebinds. Delayed event emissions capture it so a done
	// event scheduled against the old transcript is dropped.
	gen int

	// activeTools maps open tool-invocation ids to their display state.
	activeTools map[string]toolState

	// subTools maps a delegating parent invocation id to its nested
	// sub-invocation id -> tool kind. Tracked one level deep.
	subTools map[string]map[string]string

	// waiting is the best-effort "nothing left to do this turn" flag.
	waiting bool

	// turnHadToolUse gates which idle heuristic applies: the idle-fallback
	// timer only arms for turns that have not used a tool.
	turnHadToolUse bool

	// stallNotified suppresses duplicate stall events within one episode.
	stallNotified bool
}

func newAgent(id int, processName, logPath string, offset int64) *Agent {
	return &Agent{
		ID:          id,
		ProcessName: processName,
		tailer:      NewTailer(logPath, offset),
		activeTools: make(map[string]toolState),
		subTools:    make(map[string]map[string]string),
	}
}

// LogPath returns the transcript path the agent is currently bound to.
func (a *Agent) LogPath() string {
	return a.tailer.Path()
}

// hasNonExemptActive reports whether any open tool invocation, parent or
// nested, is of a kind that can block on a permission prompt.
func (a *Agent) hasNonExemptActive() bool {
	for _, tool := range a.activeTools {
		if !transcript.IsPermissionExempt(tool.Name) {
			return true
		}
	}
	return a.hasNonExemptNested()
}

// hasNonExemptNested reports whether any nested sub-task tool across all
// parents is of a permission-requiring kind.
func (a *Agent) hasNonExemptNested() bool {
	for _, nested := range a.subTools {
		for _, name := range nested {
			if !transcript.IsPermissionExempt(name) {
				return true
			}
		}
	}
	return false
}

// stalledParents returns the parent invocation ids whose nested sets still
// contain a permission-requiring tool.
func (a *Agent) stalledParents() []string {
	var parents []string
	for parentID, nested := range a.subTools {
		for _, name := range nested {
			if !transcript.IsPermissionExempt(name) {
				parents = append(parents, parentID)
				break
			}
		}
	}
	return parents
}

// resetActivity clears all open tool and sub-task state, as on a fresh
// prompt or conversation reset.
func (a *Agent) resetActivity() {
	a.activeTools = make(map[string]toolState)
	a.subTools = make(map[string]map[string]string)
	a.waiting = false
	a.turnHadToolUse = false
	a.stallNotified = false
}
