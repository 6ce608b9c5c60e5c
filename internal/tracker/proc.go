package tracker

import (
	"context"
	"os/exec"
	"strings"
)

// ProcessProber answers whether a process with the given name is still
// running. Restore uses it to drop bindings for agents whose host process
// died while the tracker was down.
type ProcessProber interface {
	IsRunning(ctx context.Context, processName string) bool
}

// PgrepProber checks process liveness by shelling out to pgrep.
type PgrepProber struct{}

// NewPgrepProber returns a ProcessProber backed by pgrep.
func NewPgrepProber() *PgrepProber {
	return &PgrepProber{}
}

// IsRunning reports whether at least one process matches the name exactly.
// An empty name never matches. pgrep failing to run at all is treated the
// same as no match.
func (p *PgrepProber) IsRunning(ctx context.Context, processName string) bool {
	name := strings.TrimSpace(processName)
	if name == "" {
		return false
	}
	cmd := exec.CommandContext(ctx, "pgrep", "-x", name)
	if err := cmd.Run(); err != nil {
		return false
	}
	return true
}
