package tracker

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/config"
	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
	"github.com/zep-us/zep-pixel-agents/internal/events"
	"github.com/zep-us/zep-pixel-agents/pkg/transcript"
)

// Registry owns every tracked agent and all mutation of agent state. The
// tailer pump, the timer callbacks, and the lifecycle operations all
// serialize through its mutex, so the per-agent state machine behaves as if
// it were single threaded.
type Registry struct {
	mu       sync.Mutex
	cfg      *config.TrackingConfig
	log      *logger.Logger
	timers   *TimerService
	notifier Notifier
	store    *StateStore
	known    *PathSet

	agents    map[int]*Agent
	nextID    int
	focusedID int // 0 means no agent is focused
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.TrackingConfig, log *logger.Logger, timers *TimerService, notifier Notifier, store *StateStore, known *PathSet) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log.WithComponent("registry"),
		timers:   timers,
		notifier: notifier,
		store:    store,
		known:    known,
		agents:   make(map[int]*Agent),
		nextID:   1,
	}
}

// Track registers a newly launched agent process whose transcript is
// expected to appear at logPath. The path is pre-registered as known so the
// directory scanner does not mistake it for a conversation reset, and an
// existence poll runs until the file shows up.
func (r *Registry) Track(processName, logPath string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	a := newAgent(id, processName, logPath, 0)
	r.agents[id] = a
	r.known.Add(logPath)

	if _, err := os.Stat(logPath); err != nil {
		a.awaitingFile = true
		a.existenceStop = make(chan struct{})
		go r.pollExistence(id, logPath, a.existenceStop)
	}

	r.persistLocked()
	r.notifier.AgentTracked(id, logPath)
	r.log.WithAgentID(id).Info("tracking agent",
		zap.String("process_name", processName),
		zap.String("log_path", logPath))
	return id
}

// Untrack removes an agent, cancelling its timers and existence poll and
// evicting it from the persisted snapshot.
func (r *Registry) Untrack(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return
	}
	r.timers.CancelAll(id)
	if a.existenceStop != nil {
		close(a.existenceStop)
		a.existenceStop = nil
	}
	delete(r.agents, id)
	if r.focusedID == id {
		r.focusedID = 0
	}
	r.persistLocked()
	r.notifier.AgentUntracked(id)
	r.log.WithAgentID(id).Info("untracked agent")
}

// SetFocused records which agent's host process currently has attention.
// Zero clears focus.
func (r *Registry) SetFocused(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focusedID = id
}

// FocusedID returns the currently focused agent id, or zero.
func (r *Registry) FocusedID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focusedID
}

// Restore rebuilds tracked agents from the persisted snapshot. Each binding
// is kept only if its host process is still running; survivors resume at
// end-of-file so historical transcript lines never replay as fresh events.
func (r *Registry) Restore(ctx context.Context, prober ProcessProber) error {
	bindings, err := r.store.Load()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	maxID := 0
	for _, b := range bindings {
		// Dropped bindings still advance the id counter; a persisted id
		// is burned for good, alive or not.
		if b.ID > maxID {
			maxID = b.ID
		}
		if !prober.IsRunning(ctx, b.ProcessName) {
			r.log.WithAgentID(b.ID).Info("dropping binding for dead process",
				zap.String("process_name", b.ProcessName))
			continue
		}
		offset, err := FileSize(b.LogPath)
		if err != nil {
			r.log.WithAgentID(b.ID).WithError(err).Warn("failed to stat transcript on restore")
			offset = 0
		}
		a := newAgent(b.ID, b.ProcessName, b.LogPath, offset)
		r.agents[b.ID] = a
		r.known.Add(b.LogPath)
		r.notifier.AgentTracked(b.ID, b.LogPath)
		r.log.WithAgentID(b.ID).Info("restored agent",
			zap.String("log_path", b.LogPath),
			zap.Int64("offset", offset))
	}
	if maxID >= r.nextID {
		r.nextID = maxID + 1
	}
	r.persistLocked()
	return nil
}

// Rebind points an agent at a new transcript file, as happens on a
// conversation reset. All activity state is cleared the same way a fresh
// prompt would clear it.
func (r *Registry) Rebind(id int, newPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return
	}
	oldPath := a.tailer.Path()
	a.tailer.Rebind(newPath)
	a.resetActivity()
	a.gen++
	r.timers.CancelAll(id)
	r.notifier.ToolsCleared(id)
	r.notifier.StatusChanged(id, events.StateActive)
	r.persistLocked()
	r.log.WithAgentID(id).Info("rebound agent to new transcript",
		zap.String("old_path", oldPath),
		zap.String("new_path", newPath))

	r.pumpLocked(a)
}

// Poke wakes one agent's tailer: read whatever was appended, classify it,
// and feed it through the state machine. Safe to call redundantly.
func (r *Registry) Poke(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		r.pumpLocked(a)
	}
}

// PokeByPath wakes the agent bound to the given transcript path, if any.
func (r *Registry) PokeByPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.tailer.Path() == path {
			r.pumpLocked(a)
			return
		}
	}
}

// PokeAll wakes every agent. This is the interval-poll backstop for missed
// filesystem notifications.
func (r *Registry) PokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		r.pumpLocked(a)
	}
}

// AgentIDs returns the ids of all tracked agents in ascending order.
func (r *Registry) AgentIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close stops the existence polls of all remaining agents.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.existenceStop != nil {
			close(a.existenceStop)
			a.existenceStop = nil
		}
	}
}

func (r *Registry) pumpLocked(a *Agent) {
	if a.awaitingFile {
		// A filesystem notification can beat the existence poll to a
		// newly created file; bind here instead of waiting for the tick.
		if _, err := os.Stat(a.tailer.Path()); err != nil {
			return
		}
		a.awaitingFile = false
		if a.existenceStop != nil {
			close(a.existenceStop)
			a.existenceStop = nil
		}
	}
	lines, err := a.tailer.ReadNew()
	if err != nil {
		r.log.WithAgentID(a.ID).WithError(err).Warn("failed to read transcript")
		return
	}
	for _, line := range lines {
		rec, err := transcript.Classify(line)
		if err != nil {
			r.log.WithAgentID(a.ID).Debug("dropping malformed transcript line", zap.Error(err))
			continue
		}
		r.applyRecord(a, rec)
	}
}

// pollExistence waits for an expected transcript file to appear, then wakes
// the agent's tailer. Retries forever; only agent removal stops it.
func (r *Registry) pollExistence(id int, path string, stop chan struct{}) {
	ticker := time.NewTicker(r.cfg.ExistencePollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := os.Stat(path); err != nil {
				continue
			}
			r.mu.Lock()
			if a, ok := r.agents[id]; ok {
				a.awaitingFile = false
				a.existenceStop = nil
				r.pumpLocked(a)
			}
			r.mu.Unlock()
			return
		}
	}
}

// persistLocked snapshots the id/path bindings. Failures are logged; state
// stays correct in memory and the next lifecycle change retries the write.
func (r *Registry) persistLocked() {
	bindings := make([]AgentBinding, 0, len(r.agents))
	for _, a := range r.agents {
		bindings = append(bindings, AgentBinding{
			ID:          a.ID,
			ProcessName: a.ProcessName,
			LogPath:     a.tailer.Path(),
		})
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].ID < bindings[j].ID })
	if err := r.store.Save(bindings); err != nil {
		r.log.WithError(err).Error("failed to persist agent snapshot")
	}
}
