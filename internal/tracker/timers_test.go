package tracker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zep-us/zep-pixel-agents/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "debug",
		Format:     "console",
		OutputPath: "stdout",
	})
	require.NoError(t, err)
	return log
}

func TestTimerStartReplacesPrior(t *testing.T) {
	timers := NewTimerService(newTestLogger(t))
	defer timers.Stop()

	var firedA, firedB atomic.Int32
	timers.Start(1, TimerIdle, 30*time.Millisecond, func() { firedA.Add(1) })
	timers.Start(1, TimerIdle, 30*time.Millisecond, func() { firedB.Add(1) })

	require.Eventually(t, func() bool { return firedB.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), firedA.Load(), "replaced timer must never fire")
	assert.Equal(t, int32(1), firedB.Load())
}

func TestTimerKindsAreIndependent(t *testing.T) {
	timers := NewTimerService(newTestLogger(t))
	defer timers.Stop()

	var idle, stall atomic.Int32
	timers.Start(1, TimerIdle, 20*time.Millisecond, func() { idle.Add(1) })
	timers.Start(1, TimerStall, 20*time.Millisecond, func() { stall.Add(1) })

	require.Eventually(t, func() bool {
		return idle.Load() == 1 && stall.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTimerCancel(t *testing.T) {
	timers := NewTimerService(newTestLogger(t))
	defer timers.Stop()

	var fired atomic.Int32
	timers.Start(1, TimerStall, 20*time.Millisecond, func() { fired.Add(1) })
	require.True(t, timers.Active(1, TimerStall))

	timers.Cancel(1, TimerStall)
	assert.False(t, timers.Active(1, TimerStall))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerCancelAll(t *testing.T) {
	timers := NewTimerService(newTestLogger(t))
	defer timers.Stop()

	var fired atomic.Int32
	timers.Start(1, TimerIdle, 20*time.Millisecond, func() { fired.Add(1) })
	timers.Start(1, TimerStall, 20*time.Millisecond, func() { fired.Add(1) })
	timers.Start(2, TimerIdle, 20*time.Millisecond, func() { fired.Add(1) })

	timers.CancelAll(1)
	assert.False(t, timers.Active(1, TimerIdle))
	assert.False(t, timers.Active(1, TimerStall))
	assert.True(t, timers.Active(2, TimerIdle))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "only the other agent's timer fires")
}
