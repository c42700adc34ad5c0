// Package diag exposes non-real-time-safe diagnostics for a running
// streamer: the last error observed on the disk thread and a running
// underrun count. Generalizes the teacher's types.PlaybackStatus /
// PlaybackMonitor pair and the metrics fields in pkg/audioplayer/player.go
// into a lock-free accessor any goroutine may poll.
package diag

import (
	"sync/atomic"
	"time"
)

// Status is a snapshot returned by (*Monitor).Poll.
type Status struct {
	LastError      string
	UnderrunCount  uint64
	BufferedBlocks int
	ElapsedTime    time.Duration
}

// Monitor accumulates diagnostics from the real-time and disk threads
// without locks: the real-time thread records underruns inline in its
// callback, and both threads may record errors without blocking.
type Monitor struct {
	lastError     atomic.Pointer[string]
	underrunCount atomic.Uint64
	startedAt     time.Time
}

// NewMonitor creates a Monitor with its elapsed-time clock started now.
func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

// RecordError stores msg as the last observed error. Safe to call from the
// real-time thread: it allocates once per call (a *string), same cost
// class as the teacher's own error-path logging calls, and never blocks.
func (m *Monitor) RecordError(msg string) {
	m.lastError.Store(&msg)
}

// RecordUnderrun increments the underrun counter. Safe to call from the
// real-time thread.
func (m *Monitor) RecordUnderrun() {
	m.underrunCount.Add(1)
}

// Poll returns a snapshot of current diagnostics. Never call from the
// real-time thread: the string read is safe, but Poll is intended for a
// UI or CLI status command, not the audio callback.
func (m *Monitor) Poll(bufferedBlocks int) Status {
	s := Status{
		UnderrunCount:  m.underrunCount.Load(),
		BufferedBlocks: bufferedBlocks,
		ElapsedTime:    time.Since(m.startedAt),
	}
	if p := m.lastError.Load(); p != nil {
		s.LastError = *p
	}
	return s
}
