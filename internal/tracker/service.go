package tracker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zep-us/zep-pixel-agents/internal/common/config"
	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
	"github.com/zep-us/zep-pixel-agents/internal/events/bus"
)

// Service wires the tracking subsystem together: registry, timers,
// directory scanner, filesystem watcher, and the interval poll backstop.
type Service struct {
	cfg      *config.TrackingConfig
	log      *logger.Logger
	timers   *TimerService
	registry *Registry
	scanner  *Scanner
	watch    *WatchService
}

// NewService builds the tracking subsystem on top of the given event bus.
func NewService(cfg *config.TrackingConfig, log *logger.Logger, eventBus bus.EventBus) (*Service, error) {
	timers := NewTimerService(log)
	notifier := NewBusNotifier(eventBus, log)
	store := NewStateStore(cfg.StatePath)
	known := NewPathSet()
	registry := NewRegistry(cfg, log, timers, notifier, store, known)
	scanner := NewScanner(cfg, log, registry, known)

	watch, err := NewWatchService(cfg.TranscriptDir, log, registry, scanner)
	if err != nil {
		// Keep running on poll alone; some filesystems cannot be watched.
		log.WithError(err).Warn("filesystem watch unavailable, relying on interval poll")
		watch = nil
	}

	return &Service{
		cfg:      cfg,
		log:      log.WithComponent("tracker"),
		timers:   timers,
		registry: registry,
		scanner:  scanner,
		watch:    watch,
	}, nil
}

// Registry exposes the agent registry for lifecycle calls from the outside
// (tracking, untracking, focus changes).
func (s *Service) Registry() *Registry {
	return s.registry
}

// Restore rebuilds tracked agents from the persisted snapshot.
func (s *Service) Restore(ctx context.Context, prober ProcessProber) error {
	return s.registry.Restore(ctx, prober)
}

// Run drives all background loops until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scanner.Run(ctx)
	})
	if s.watch != nil {
		g.Go(func() error {
			return s.watch.Run(ctx)
		})
	}
	g.Go(func() error {
		return s.pollLoop(ctx)
	})

	err := g.Wait()
	s.registry.Close()
	s.timers.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pollLoop wakes every tailer on a fixed interval regardless of filesystem
// notifications.
func (s *Service) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.registry.PokeAll()
		}
	}
}
