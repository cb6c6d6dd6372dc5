package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxRecordedErrors caps the strategy errors kept for the report.
const maxRecordedErrors = 20

// Metrics tracks what the host fed into the document.
type Metrics struct {
	editsApplied   atomic.Uint64
	fileChanges    atomic.Uint64
	watchErrors    atomic.Uint64
	strategyErrors atomic.Uint64

	replayNs atomic.Int64

	mu     sync.Mutex
	errors []string

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordEdits records edits applied to the document.
func (m *Metrics) RecordEdits(n int) {
	m.editsApplied.Add(uint64(n))
}

// RecordFileChange records an on-disk change that was synced.
func (m *Metrics) RecordFileChange() {
	m.fileChanges.Add(1)
}

// RecordWatchError records a watcher failure.
func (m *Metrics) RecordWatchError() {
	m.watchErrors.Add(1)
}

// RecordReplay records how long a replay took.
func (m *Metrics) RecordReplay(d time.Duration) {
	m.replayNs.Add(d.Nanoseconds())
}

// RecordStrategyError records a failed strategy call. The first few
// messages are kept.
func (m *Metrics) RecordStrategyError(err error) {
	m.strategyErrors.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errors) < maxRecordedErrors {
		m.errors = append(m.errors, err.Error())
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	EditsApplied   uint64        `yaml:"edits_applied"`
	FileChanges    uint64        `yaml:"file_changes"`
	WatchErrors    uint64        `yaml:"watch_errors"`
	StrategyErrors uint64        `yaml:"strategy_errors"`
	ReplayTime     time.Duration `yaml:"replay_time"`
	Uptime         time.Duration `yaml:"uptime"`
	Errors         []string      `yaml:"errors,omitempty"`
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	errs := append([]string(nil), m.errors...)
	m.mu.Unlock()

	return MetricsSnapshot{
		EditsApplied:   m.editsApplied.Load(),
		FileChanges:    m.fileChanges.Load(),
		WatchErrors:    m.watchErrors.Load(),
		StrategyErrors: m.strategyErrors.Load(),
		ReplayTime:     time.Duration(m.replayNs.Load()),
		Uptime:         time.Since(m.startTime),
		Errors:         errs,
	}
}
