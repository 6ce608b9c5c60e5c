package tracker

import (
	"time"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/events"
	"github.com/zep-us/zep-pixel-agents/pkg/transcript"
)

// applyRecord advances one agent's state machine by a single classified
// transcript record. The registry mutex is held by the caller.
func (r *Registry) applyRecord(a *Agent, rec transcript.Record) {
	switch rec := rec.(type) {
	case *transcript.AssistantRecord:
		r.handleAssistant(a, rec)
	case *transcript.UserRecord:
		r.handleUser(a, rec)
	case *transcript.TurnDurationRecord:
		r.handleTurnDuration(a)
	case *transcript.ProgressRecord:
		r.handleProgress(a, rec)
	case *transcript.UnrecognizedRecord:
		r.log.WithAgentID(a.ID).Debug("ignoring unrecognized transcript record", zap.String("kind", rec.Kind))
	}
}

func (r *Registry) handleAssistant(a *Agent, rec *transcript.AssistantRecord) {
	if len(rec.ToolUses) > 0 {
		a.waiting = false
		a.turnHadToolUse = true
		r.timers.Cancel(a.ID, TimerIdle)
	}

	for _, tu := range rec.ToolUses {
		if _, open := a.activeTools[tu.ID]; open {
			continue
		}
		a.activeTools[tu.ID] = toolState{Name: tu.Name, StatusText: tu.StatusText}
		r.notifier.ToolStarted(a.ID, tu.ID, tu.Name, tu.StatusText)
		if tu.Name == transcript.SubtaskToolName {
			if _, ok := a.subTools[tu.ID]; !ok {
				a.subTools[tu.ID] = make(map[string]string)
			}
		}
		if !transcript.IsPermissionExempt(tu.Name) {
			r.restartStall(a)
		}
	}

	// A text-only assistant message may be the last thing the turn ever
	// writes, so fall back to a timer to notice the turn is over.
	if rec.HasText && len(rec.ToolUses) == 0 && !a.turnHadToolUse {
		r.startIdleFallback(a)
	}
}

func (r *Registry) handleUser(a *Agent, rec *transcript.UserRecord) {
	if rec.Prompt != "" {
		a.resetActivity()
		r.timers.CancelAll(a.ID)
		r.notifier.ToolsCleared(a.ID)
		r.notifier.StatusChanged(a.ID, events.StateActive)
		return
	}

	for _, tr := range rec.ToolResults {
		tool, open := a.activeTools[tr.ToolUseID]
		if !open {
			continue
		}
		if tool.Name == transcript.SubtaskToolName {
			if _, ok := a.subTools[tr.ToolUseID]; ok {
				delete(a.subTools, tr.ToolUseID)
				r.notifier.SubtaskCleared(a.ID, tr.ToolUseID)
			}
		}
		delete(a.activeTools, tr.ToolUseID)

		// The done event lags the removal so very fast invocations still
		// render a visible start state.
		agentID, toolID := a.ID, tr.ToolUseID
		r.emitAfter(a, func() {
			r.notifier.ToolDone(agentID, toolID)
		})
	}
	if len(a.activeTools) == 0 {
		a.turnHadToolUse = false
	}
}

func (r *Registry) handleTurnDuration(a *Agent) {
	hadActive := len(a.activeTools) > 0
	a.resetActivity()
	a.waiting = true
	r.timers.CancelAll(a.ID)
	if hadActive {
		r.notifier.ToolsCleared(a.ID)
	}
	r.notifier.StatusChanged(a.ID, events.StateWaiting)
}

func (r *Registry) handleProgress(a *Agent, rec *transcript.ProgressRecord) {
	if rec.Pulse {
		// Any progress output proves the parent tool is still alive.
		if _, open := a.activeTools[rec.ParentToolID]; open {
			r.restartStall(a)
		}
		return
	}

	nested, tracked := a.subTools[rec.ParentToolID]
	if !tracked {
		return
	}

	if rec.Assistant != nil {
		for _, tu := range rec.Assistant.ToolUses {
			if _, open := nested[tu.ID]; open {
				continue
			}
			nested[tu.ID] = tu.Name
			r.notifier.SubtaskStarted(a.ID, rec.ParentToolID, tu.ID, tu.Name, tu.StatusText)
			if !transcript.IsPermissionExempt(tu.Name) {
				r.restartStall(a)
			}
		}
	}

	if rec.User != nil {
		for _, tr := range rec.User.ToolResults {
			if _, open := nested[tr.ToolUseID]; !open {
				continue
			}
			delete(nested, tr.ToolUseID)
			agentID, parentID, subID := a.ID, rec.ParentToolID, tr.ToolUseID
			r.emitAfter(a, func() {
				r.notifier.SubtaskDone(agentID, parentID, subID)
			})
		}
		if a.hasNonExemptNested() {
			r.restartStall(a)
		}
	}
}

// emitAfter schedules a delayed event emission. The emission is dropped if
// the agent was untracked or rebound to a new transcript before the delay
// elapsed; its tool state no longer exists by then.
func (r *Registry) emitAfter(a *Agent, emit func()) {
	agentID, gen := a.ID, a.gen
	time.AfterFunc(r.cfg.ToolDoneDelay(), func() {
		r.mu.Lock()
		live, ok := r.agents[agentID]
		stale := !ok || live.gen != gen
		r.mu.Unlock()
		if !stale {
			emit()
		}
	})
}

func (r *Registry) startIdleFallback(a *Agent) {
	agentID := a.ID
	r.timers.Start(agentID, TimerIdle, r.cfg.IdleTimeoutDuration(), func() {
		r.onIdleExpired(agentID)
	})
}

func (r *Registry) restartStall(a *Agent) {
	a.stallNotified = false
	agentID := a.ID
	r.timers.Start(agentID, TimerStall, r.cfg.StallTimeoutDuration(), func() {
		r.onStallExpired(agentID)
	})
}

// onIdleExpired marks a tool-less turn as waiting for input once no more
// transcript output has arrived for the idle window.
func (r *Registry) onIdleExpired(agentID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return
	}
	if a.waiting || a.turnHadToolUse || len(a.activeTools) > 0 {
		return
	}
	a.waiting = true
	r.notifier.StatusChanged(a.ID, events.StateWaiting)
}

// onStallExpired reports a likely permission prompt: a permission-requiring
// tool has been open for the whole stall window with no sign of progress.
func (r *Registry) onStallExpired(agentID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return
	}
	if a.stallNotified || !a.hasNonExemptActive() {
		return
	}
	a.stallNotified = true
	r.notifier.StallDetected(a.ID)
	for _, parent := range a.stalledParents() {
		r.notifier.SubtaskStalled(a.ID, parent)
	}
}
