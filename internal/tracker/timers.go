package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

// TimerKind identifies one of the two heuristic timers owned per agent.
type TimerKind int

const (
	// TimerIdle fires when a text-only turn has gone quiet long enough to
	// presume the agent is waiting for input.
	TimerIdle TimerKind = iota
	// TimerStall fires when a permission-requiring tool has shown no sign
	// of liveness for too long.
	TimerStall
)

func (k TimerKind) String() string {
	switch k {
	case TimerIdle:
		return "idle"
	case TimerStall:
		return "stall"
	default:
		return "unknown"
	}
}

type timerKey struct {
	agentID int
	kind    TimerKind
}

type timerHandle struct {
	timer *time.Timer
	gen   uint64
}

// TimerService owns the per-agent heuristic timers. At most one live timer
// exists per (agent id, kind) pair: starting a new one replaces any prior
// timer of the same kind, and a replaced or cancelled timer never invokes
// its callback even if it was already about to fire.
type TimerService struct {
	mu      sync.Mutex
	timers  map[timerKey]*timerHandle
	nextGen uint64
	logger  *logger.Logger
}

// NewTimerService creates an empty timer service.
func NewTimerService(log *logger.Logger) *TimerService {
	return &TimerService{
		timers: make(map[timerKey]*timerHandle),
		logger: log.WithComponent("timers"),
	}
}

// Start schedules fn to run after delay, replacing any live timer of the
// same kind for the same agent.
func (s *TimerService) Start(agentID int, kind TimerKind, delay time.Duration, fn func()) {
	key := timerKey{agentID: agentID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen
	handle := &timerHandle{gen: gen}
	handle.timer = time.AfterFunc(delay, func() {
		// A fire races with Start/Cancel on other goroutines; the
		// generation check discards fires of replaced timers.
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
	s.timers[key] = handle

	s.logger.Debug("timer started",
		zap.Int("agent_id", agentID),
		zap.String("kind", kind.String()),
		zap.Duration("delay", delay))
}

// Cancel stops the live timer of the given kind for the agent, if any.
func (s *TimerService) Cancel(agentID int, kind TimerKind) {
	key := timerKey{agentID: agentID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if handle, ok := s.timers[key]; ok {
		handle.timer.Stop()
		delete(s.timers, key)
	}
}

// CancelAll stops every live timer owned by the agent. Mandatory on agent
// removal so no timer fires into a removed agent's state.
func (s *TimerService) CancelAll(agentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, handle := range s.timers {
		if key.agentID == agentID {
			handle.timer.Stop()
			delete(s.timers, key)
		}
	}
}

// Active reports whether a timer of the given kind is live for the agent.
func (s *TimerService) Active(agentID int, kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[timerKey{agentID: agentID, kind: kind}]
	return ok
}

// Stop cancels every live timer.
func (s *TimerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, handle := range s.timers {
		handle.timer.Stop()
		delete(s.timers, key)
	}
}
