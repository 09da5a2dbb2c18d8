package scheduler

import (
	"time"

	"github.com/trakrail/eisenbahn/internal/graphstore"
)

// KnowledgeState is the mutable shared state tasks read and write. It is
// defined here as a narrow interface rather than importing engine/knowledge
// directly, so a task registered with the scheduler never needs to know
// the concrete coordinator type — only that it can reach the graph.
type KnowledgeState interface {
	Graph() *graphstore.Store
}

// Task is one registrable unit of compute work.
type Task interface {
	Name() string
	Priority() Priority
	EstimatedDuration() time.Duration
	// Execute runs the task against state and reports what it did.
	Execute(state KnowledgeState) (Result, error)
	// ShouldRun decides whether the task needs to run right now, given
	// when it last ran (nil if never) and the current state. A P1/P2/P3
	// task typically gates on elapsed time since lastRun; P0 tasks are
	// invoked directly via ExecuteImmediate and rarely implement this
	// beyond "always true".
	ShouldRun(lastRun *time.Time, state KnowledgeState) bool
}

// IntervalGate is a reusable ShouldRun body for tasks that just want "has
// at least interval elapsed since lastRun".
func IntervalGate(lastRun *time.Time, interval time.Duration) bool {
	if lastRun == nil {
		return true
	}
	return time.Since(*lastRun) >= interval
}
