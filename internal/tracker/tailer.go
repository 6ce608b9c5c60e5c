// Package tracker implements the activity-tracking engine: transcript
// tailing, record-to-status state transitions, the timer heuristics that
// compensate for missing turn-boundary signals, and the registry that owns
// per-agent state.
package tracker

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Tailer reads complete lines appended to a transcript file since the last
// wake-up. It keeps a byte offset and carries any trailing partial line
// across reads, so a line cut mid-write is retried whole on the next wake-up
// rather than re-parsed partially.
//
// Tailer is not safe for concurrent use; the registry serializes access.
type Tailer struct {
	path     string
	offset   int64
	fragment []byte
}

// NewTailer creates a tailer for path starting at the given byte offset.
// Use offset 0 for a file expected to appear fresh and FileSize for a
// pre-existing file whose history must not be replayed.
func NewTailer(path string, offset int64) *Tailer {
	return &Tailer{path: path, offset: offset}
}

// Path returns the file currently bound to this tailer.
func (t *Tailer) Path() string {
	return t.path
}

// Offset returns the byte offset consumed so far.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// Rebind points the tailer at a new file, resetting the offset to zero and
// discarding any pending fragment. Used on conversation reset, when the log
// producer abandons the current transcript and starts a new one.
func (t *Tailer) Rebind(path string) {
	t.path = path
	t.offset = 0
	t.fragment = nil
}

// ReadNew returns the complete lines appended since the last call, in file
// order. It is idempotent with respect to the offset: redundant wake-ups
// with no new bytes return nothing. A missing file is not an error; the
// wake-up is simply a no-op until the file appears.
func (t *Tailer) ReadNew() ([][]byte, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat transcript: %w", err)
	}
	size := fi.Size()
	if size <= t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek transcript: %w", err)
	}

	// Limit the read to the size observed above so bytes the producer is
	// still writing are picked up on the next wake-up instead.
	chunk, err := io.ReadAll(io.LimitReader(f, size-t.offset))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	buf := append(t.fragment, chunk...)
	var lines [][]byte
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(buf[:i], "\r")
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
		buf = buf[i+1:]
	}

	// Retain the trailing incomplete text for the next wake-up.
	t.fragment = append([]byte(nil), buf...)
	t.offset = size

	return lines, nil
}

// FileSize returns the current size of path. A missing file is not an
// error; it reports size 0 so the caller starts reading fresh. Used when
// resuming a pre-existing transcript so history is not replayed.
func FileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat transcript: %w", err)
	}
	return fi.Size(), nil
}
