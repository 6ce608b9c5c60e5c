package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSetAddIsAddOnly(t *testing.T) {
	set := NewPathSet()
	assert.True(t, set.Add("/a"))
	assert.False(t, set.Add("/a"))
	assert.True(t, set.Contains("/a"))
	assert.False(t, set.Contains("/b"))
}

func newTestScanner(t *testing.T) (*Scanner, *Registry, *fakeNotifier) {
	t.Helper()
	log := newTestLogger(t)
	timers := NewTimerService(log)
	t.Cleanup(timers.Stop)
	cfg := testTrackingConfig(t.TempDir())
	notifier := &fakeNotifier{}
	known := NewPathSet()
	r := NewRegistry(cfg, log, timers, notifier, NewStateStore(cfg.StatePath), known)
	t.Cleanup(r.Close)
	return NewScanner(cfg, log, r, known), r, notifier
}

func TestScannerSeedsExistingFiles(t *testing.T) {
	log := newTestLogger(t)
	timers := NewTimerService(log)
	t.Cleanup(timers.Stop)
	cfg := testTrackingConfig(t.TempDir())
	appendFile(t, filepath.Join(cfg.TranscriptDir, "existing.jsonl"), "")

	known := NewPathSet()
	r := NewRegistry(cfg, log, timers, &fakeNotifier{}, NewStateStore(cfg.StatePath), known)
	t.Cleanup(r.Close)
	NewScanner(cfg, log, r, known)

	assert.True(t, known.Contains(filepath.Join(cfg.TranscriptDir, "existing.jsonl")),
		"files present at startup must not look like conversation resets")
}

func TestScannerRebindsFocusedAgentOnUnseenFile(t *testing.T) {
	scanner, r, n := newTestScanner(t)

	oldPath := filepath.Join(r.cfg.TranscriptDir, "agent.jsonl")
	appendFile(t, oldPath, "")
	id := r.Track("proc", oldPath)
	r.SetFocused(id)

	newPath := filepath.Join(r.cfg.TranscriptDir, "reset.jsonl")
	appendFile(t, newPath, toolUseLine("t1", "Read", "/a"))
	scanner.Scan()

	r.mu.Lock()
	boundPath := r.agents[id].LogPath()
	r.mu.Unlock()
	assert.Equal(t, newPath, boundPath)

	started := n.ofKind("tool_started")
	require.Len(t, started, 1, "the new transcript is read from offset zero")
	assert.Equal(t, "t1", started[0].ToolID)

	// The same file never triggers twice.
	scanner.Scan()
	assert.Len(t, n.ofKind("tool_started"), 1)
}

func TestScannerIgnoresUnseenFileWithoutFocus(t *testing.T) {
	scanner, r, _ := newTestScanner(t)

	oldPath := filepath.Join(r.cfg.TranscriptDir, "agent.jsonl")
	appendFile(t, oldPath, "")
	id := r.Track("proc", oldPath)

	newPath := filepath.Join(r.cfg.TranscriptDir, "reset.jsonl")
	appendFile(t, newPath, "")
	scanner.Scan()

	r.mu.Lock()
	boundPath := r.agents[id].LogPath()
	r.mu.Unlock()
	assert.Equal(t, oldPath, boundPath, "no focused agent, file only remembered")
	assert.True(t, scanner.known.Contains(newPath))
}

func TestScannerIgnoresNonTranscriptFiles(t *testing.T) {
	scanner, r, _ := newTestScanner(t)

	oldPath := filepath.Join(r.cfg.TranscriptDir, "agent.jsonl")
	appendFile(t, oldPath, "")
	id := r.Track("proc", oldPath)
	r.SetFocused(id)

	appendFile(t, filepath.Join(r.cfg.TranscriptDir, "notes.txt"), "hello")
	scanner.Scan()

	r.mu.Lock()
	boundPath := r.agents[id].LogPath()
	r.mu.Unlock()
	assert.Equal(t, oldPath, boundPath)
}
