package tracker

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

// poker is the slice of the registry the watcher needs.
type poker interface {
	PokeByPath(path string)
}

// scanTrigger lets the watcher force a directory scan when a file is
// created, instead of waiting for the next interval tick.
type scanTrigger interface {
	Scan()
}

// WatchService delivers filesystem wake-ups for the transcript directory.
// Notifications are best effort; the interval poll remains the correctness
// backstop for platforms that drop events.
type WatchService struct {
	log      *logger.Logger
	watcher  *fsnotify.Watcher
	registry poker
	scanner  scanTrigger
}

// NewWatchService creates a watcher on the given directory.
func NewWatchService(dir string, log *logger.Logger, registry poker, scanner scanTrigger) (*WatchService, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	return &WatchService{
		log:      log.WithComponent("watch"),
		watcher:  watcher,
		registry: registry,
		scanner:  scanner,
	}, nil
}

// Run dispatches filesystem events until the context is cancelled.
func (w *WatchService) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("filesystem watch error")
		}
	}
}

func (w *WatchService) handle(event fsnotify.Event) {
	if !isTranscript(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) {
		w.scanner.Scan()
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		w.registry.PokeByPath(event.Name)
	}
}
