package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestTailerReadsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.jsonl")
	appendFile(t, path, "one\ntwo\n")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "one", string(lines[0]))
	assert.Equal(t, "two", string(lines[1]))

	appendFile(t, path, "three\n")
	lines, err = tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "three", string(lines[0]))
}

func TestTailerRedundantWakeupsAreNoOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.jsonl")
	appendFile(t, path, "one\n")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)

	// No new bytes: repeated wake-ups must return nothing.
	for i := 0; i < 3; i++ {
		lines, err = tailer.ReadNew()
		require.NoError(t, err)
		assert.Empty(t, lines)
	}
	assert.Equal(t, int64(4), tailer.Offset())
}

func TestTailerHoldsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.jsonl")
	appendFile(t, path, "complete\npart")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "complete", string(lines[0]))

	// The cut line arrives whole once its tail is written, never split.
	appendFile(t, path, "ial\n")
	lines, err = tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "partial", string(lines[0]))
}

func TestTailerMissingFile(t *testing.T) {
	tailer := NewTailer(filepath.Join(t.TempDir(), "missing.jsonl"), 0)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTailerSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.jsonl")
	appendFile(t, path, "one\n\n\r\ntwo\n")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "one", string(lines[0]))
	assert.Equal(t, "two", string(lines[1]))
}

func TestTailerRebind(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.jsonl")
	newPath := filepath.Join(dir, "new.jsonl")
	appendFile(t, oldPath, "old-one\nold-part")
	appendFile(t, newPath, "new-one\n")

	tailer := NewTailer(oldPath, 0)
	_, err := tailer.ReadNew()
	require.NoError(t, err)

	tailer.Rebind(newPath)
	assert.Equal(t, newPath, tailer.Path())
	assert.Equal(t, int64(0), tailer.Offset())

	// Nothing from the old file leaks through, fragment included.
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "new-one", string(lines[0]))
}

func TestTailerResumeAtEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.jsonl")
	appendFile(t, path, "history-one\nhistory-two\n")

	offset, err := FileSize(path)
	require.NoError(t, err)

	tailer := NewTailer(path, offset)
	lines, err := tailer.ReadNew()
	require.NoError(t, err)
	assert.Empty(t, lines, "history must not be replayed")

	appendFile(t, path, "fresh\n")
	lines, err = tailer.ReadNew()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "fresh", string(lines[0]))
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()

	size, err := FileSize(filepath.Join(dir, "missing"))
	require.NoError(t, err, "a missing file is not an error")
	assert.Equal(t, int64(0), size)

	path := filepath.Join(dir, "agent.jsonl")
	appendFile(t, path, "12345")
	size, err = FileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}
