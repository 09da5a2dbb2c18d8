// Package scheduler runs compute tasks against the knowledge graph on a
// priority schedule, throttling itself under ingest backpressure and
// respecting task dependency ordering.
package scheduler

import "time"

// Priority is a task's execution priority. Lower numeric value runs
// sooner and is never blocked by backpressure.
type Priority int

const (
	// P0 runs synchronously on the ingest hot path.
	P0 Priority = iota
	// P1 runs near-realtime, every few minutes on recent batches.
	P1
	// P2 runs hourly on broader data windows.
	P2
	// P3 runs daily, expensive, tolerates delay.
	P3
)

func (p Priority) String() string {
	switch p {
	case P0:
		return "P0"
	case P1:
		return "P1"
	case P2:
		return "P2"
	case P3:
		return "P3"
	default:
		return "unknown"
	}
}

// LoadLevel is the system load level, determined from ingest queue depth.
type LoadLevel int

const (
	// LoadNormal runs every priority.
	LoadNormal LoadLevel = iota
	// LoadElevated pauses P3 and blocks nothing else.
	LoadElevated
	// LoadCritical pauses P2 and P3, keeping only P0 and P1 alive.
	LoadCritical
)

func (l LoadLevel) String() string {
	switch l {
	case LoadNormal:
		return "normal"
	case LoadElevated:
		return "elevated"
	case LoadCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Config is the scheduler's tunable knobs, loaded from TOML.
type Config struct {
	WorkerThreads         int
	P1IntervalSeconds     uint64
	P2IntervalSeconds     uint64
	P3IntervalSeconds     uint64
	BackpressureThreshold int
	CriticalThreshold     int
}

// DefaultConfig matches the defaults the load-assessment and interval
// logic were tuned against.
func DefaultConfig() Config {
	return Config{
		WorkerThreads:         0,
		P1IntervalSeconds:     300,
		P2IntervalSeconds:     3600,
		P3IntervalSeconds:     86400,
		BackpressureThreshold: 1000,
		CriticalThreshold:     10000,
	}
}

// ResolvedWorkerThreads returns the configured thread count, or a fixed
// fallback of 4 when WorkerThreads is 0 ("auto"). Go has no direct
// equivalent of Rust's std::thread::available_parallelism() wired through
// here without importing runtime, so callers that want CPU-count
// auto-sizing should set WorkerThreads from runtime.NumCPU() themselves;
// this only supplies the non-zero-means-explicit contract.
func (c Config) ResolvedWorkerThreads() int {
	if c.WorkerThreads == 0 {
		return 4
	}
	return c.WorkerThreads
}

// IntervalFor returns the configured polling interval for priority. P0 has
// no interval — it always runs immediately.
func (c Config) IntervalFor(p Priority) time.Duration {
	switch p {
	case P0:
		return 0
	case P1:
		return time.Duration(c.P1IntervalSeconds) * time.Second
	case P2:
		return time.Duration(c.P2IntervalSeconds) * time.Second
	case P3:
		return time.Duration(c.P3IntervalSeconds) * time.Second
	default:
		return 0
	}
}

// AssessLoad derives a LoadLevel from the current ingest queue depth.
func AssessLoad(ingestQueueDepth int, cfg Config) LoadLevel {
	switch {
	case ingestQueueDepth > cfg.CriticalThreshold:
		return LoadCritical
	case ingestQueueDepth > cfg.BackpressureThreshold:
		return LoadElevated
	default:
		return LoadNormal
	}
}

// Result is the outcome of one task execution.
type Result struct {
	TaskName       string
	Duration       time.Duration
	ItemsProcessed int
	Summary        string
}

// priorityAllowed reports whether p may run at the given load level.
func priorityAllowed(p Priority, load LoadLevel) bool {
	switch load {
	case LoadCritical:
		return p <= P1
	case LoadElevated:
		return p <= P2
	default:
		return true
	}
}
