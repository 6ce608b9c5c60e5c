package tracker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zep-us/zep-pixel-agents/internal/common/config"
	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

// PathSet is the shared set of transcript paths already accounted for. Both
// the scanner and the registry add to it; nothing ever removes an entry.
type PathSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewPathSet creates an empty path set.
func NewPathSet() *PathSet {
	return &PathSet{paths: make(map[string]struct{})}
}

// Add records a path. Returns true if the path was not known before.
func (s *PathSet) Add(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[path]; ok {
		return false
	}
	s.paths[path] = struct{}{}
	return true
}

// Contains reports whether the path is known.
func (s *PathSet) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// rebinder is the slice of the registry the scanner needs.
type rebinder interface {
	FocusedID() int
	Rebind(id int, newPath string)
}

// Scanner watches the transcript directory for files nobody has seen
// before. A new file means the log producer abandoned its previous
// transcript and started over, so the focused agent is rebound to it.
type Scanner struct {
	cfg      *config.TrackingConfig
	log      *logger.Logger
	registry rebinder
	known    *PathSet
	running  atomic.Bool
}

// NewScanner creates a directory scanner. The known set is seeded from the
// files already present so startup never looks like a mass reset.
func NewScanner(cfg *config.TrackingConfig, log *logger.Logger, registry rebinder, known *PathSet) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		log:      log.WithComponent("scanner"),
		registry: registry,
		known:    known,
	}
	s.seed()
	return s
}

func (s *Scanner) seed() {
	entries, err := os.ReadDir(s.cfg.TranscriptDir)
	if err != nil {
		s.log.WithError(err).Warn("failed to seed known transcript paths")
		return
	}
	for _, entry := range entries {
		if isTranscript(entry.Name()) && !entry.IsDir() {
			s.known.Add(filepath.Join(s.cfg.TranscriptDir, entry.Name()))
		}
	}
}

// Run scans on a fixed interval until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ScanInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Scan()
		}
	}
}

// Scan performs one pass over the transcript directory. Overlapping calls
// collapse to one; a scan already in flight makes this a no-op.
func (s *Scanner) Scan() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	entries, err := os.ReadDir(s.cfg.TranscriptDir)
	if err != nil {
		s.log.WithError(err).Warn("failed to list transcript directory")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isTranscript(entry.Name()) {
			continue
		}
		path := filepath.Join(s.cfg.TranscriptDir, entry.Name())
		if !s.known.Add(path) {
			continue
		}
		s.log.Info("unseen transcript file", zap.String("path", path))
		focused := s.registry.FocusedID()
		if focused == 0 {
			// Remembered but not adopted; no agent has attention.
			continue
		}
		s.registry.Rebind(focused, path)
	}
}

func isTranscript(name string) bool {
	return strings.HasSuffix(name, ".jsonl")
}
