package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of scheduler activity.
type Metrics struct {
	CurrentLoadLevel  LoadLevel
	IngestQueueDepth  int64
	ActiveWorkers     int64
	TasksExecuted     map[string]int64
}

// Scheduler holds the registered tasks, their dependency graph, and the
// last-run bookkeeping used to gate periodic execution. One Scheduler is
// shared by every worker process that pulls tasks off it — in this
// single-process deployment it runs embedded in the compute worker.
type Scheduler struct {
	mu             sync.RWMutex
	config         Config
	state          KnowledgeState
	log            *slog.Logger
	registered     []Task
	dependencies   map[string][]string // task name -> names that must run first
	lastRun        map[string]time.Time
	tasksExecuted  map[string]int64

	ingestQueueDepth atomic.Int64
	activeWorkers    atomic.Int64
	shuttingDown     atomic.Bool
}

// New builds a Scheduler bound to state, with no tasks registered yet.
func New(cfg Config, state KnowledgeState, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		config:        cfg,
		state:         state,
		log:           log,
		dependencies:  make(map[string][]string),
		lastRun:       make(map[string]time.Time),
		tasksExecuted: make(map[string]int64),
	}
}

// RegisterTask adds task to the registry. Order of registration has no
// bearing on execution order beyond priority and dependency gating.
func (s *Scheduler) RegisterTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, t)
}

// RegisteredTasks returns the number of registered tasks.
func (s *Scheduler) RegisteredTasks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registered)
}

// AddDependency records that from must have run, and run more recently
// than to's own last execution, before to is eligible to run.
func (s *Scheduler) AddDependency(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependencies[to] = append(s.dependencies[to], from)
}

// SetIngestQueueDepth records the current ingest backlog, consulted on the
// next CollectRunnable / Run tick to assess load.
func (s *Scheduler) SetIngestQueueDepth(depth int64) {
	s.ingestQueueDepth.Store(depth)
}

// ExecuteImmediate runs t synchronously regardless of priority,
// backpressure, or dependency gating — for P0 tasks invoked directly from
// the ingest hot path.
func (s *Scheduler) ExecuteImmediate(t Task) (Result, error) {
	start := time.Now()
	result, err := t.Execute(s.state)
	if err != nil {
		return Result{}, fmt.Errorf("scheduler: task %q failed: %w", t.Name(), err)
	}

	s.mu.Lock()
	s.lastRun[t.Name()] = time.Now()
	s.tasksExecuted[t.Name()]++
	s.mu.Unlock()

	s.log.Debug("executed task", "task", t.Name(), "elapsed", time.Since(start))
	return result, nil
}

// CollectRunnable returns the registered tasks eligible to run right now
// under load: priority allowed at this load level, enough idle workers for
// P2/P3, every dependency satisfied, and the task's own ShouldRun agrees.
func (s *Scheduler) CollectRunnable(load LoadLevel) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	available := s.config.ResolvedWorkerThreads() - int(s.activeWorkers.Load())

	var out []Task
	for _, t := range s.registered {
		if !priorityAllowed(t.Priority(), load) {
			continue
		}
		if (t.Priority() == P2 || t.Priority() == P3) && available <= 2 {
			continue
		}
		if !s.dependenciesSatisfiedLocked(t.Name()) {
			continue
		}
		var lastRunPtr *time.Time
		if lr, ok := s.lastRun[t.Name()]; ok {
			lrCopy := lr
			lastRunPtr = &lrCopy
		}
		if !t.ShouldRun(lastRunPtr, s.state) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Scheduler) dependenciesSatisfiedLocked(name string) bool {
	deps := s.dependencies[name]
	if len(deps) == 0 {
		return true
	}
	ownLast, ownRan := s.lastRun[name]
	for _, dep := range deps {
		depLast, ok := s.lastRun[dep]
		if !ok {
			return false
		}
		if ownRan && !depLast.After(ownLast) {
			return false
		}
	}
	return true
}

// Metrics returns a snapshot of the scheduler's current state.
func (s *Scheduler) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	executed := make(map[string]int64, len(s.tasksExecuted))
	for k, v := range s.tasksExecuted {
		executed[k] = v
	}
	depth := s.ingestQueueDepth.Load()
	return Metrics{
		CurrentLoadLevel: AssessLoad(int(depth), s.config),
		IngestQueueDepth: depth,
		ActiveWorkers:    s.activeWorkers.Load(),
		TasksExecuted:    executed,
	}
}

// Shutdown signals Run to stop at the next tick.
func (s *Scheduler) Shutdown() {
	s.shuttingDown.Store(true)
}

// Run ticks once a second until ctx is cancelled or Shutdown is called:
// each tick it assesses load, collects runnable tasks in priority order,
// and executes them sequentially (the ExecuteImmediate bookkeeping path),
// incrementing ActiveWorkers for the duration of each task so later ticks
// see accurate worker availability.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.shuttingDown.Load() {
				return
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	load := AssessLoad(int(s.ingestQueueDepth.Load()), s.config)
	runnable := s.CollectRunnable(load)
	sort.SliceStable(runnable, func(i, j int) bool { return runnable[i].Priority() < runnable[j].Priority() })

	for _, t := range runnable {
		s.activeWorkers.Add(1)
		if _, err := s.ExecuteImmediate(t); err != nil {
			s.log.Error("task execution failed", "task", t.Name(), "error", err)
		}
		s.activeWorkers.Add(-1)
	}
}
