package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/trakrail/eisenbahn/internal/graphstore"
)

type fakeState struct{ g *graphstore.Store }

func (f fakeState) Graph() *graphstore.Store { return f.g }

func newFakeState() KnowledgeState { return fakeState{g: graphstore.New()} }

type mockTask struct {
	name       string
	priority   Priority
	count      atomic.Int64
	alwaysRun  bool
}

func newMockTask(name string, p Priority) *mockTask {
	return &mockTask{name: name, priority: p, alwaysRun: true}
}

func newGatedMockTask(name string, p Priority) *mockTask {
	return &mockTask{name: name, priority: p, alwaysRun: false}
}

func (m *mockTask) Name() string                  { return m.name }
func (m *mockTask) Priority() Priority            { return m.priority }
func (m *mockTask) EstimatedDuration() time.Duration { return 10 * time.Millisecond }

func (m *mockTask) Execute(state KnowledgeState) (Result, error) {
	m.count.Add(1)
	return Result{TaskName: m.name, Duration: time.Millisecond, ItemsProcessed: 1}, nil
}

func (m *mockTask) ShouldRun(lastRun *time.Time, state KnowledgeState) bool {
	return m.alwaysRun
}

func TestSchedulerCreationDefaults(t *testing.T) {
	s := New(DefaultConfig(), newFakeState(), nil)
	m := s.Metrics()
	if m.CurrentLoadLevel != LoadNormal {
		t.Fatalf("expected normal load, got %v", m.CurrentLoadLevel)
	}
	if m.IngestQueueDepth != 0 {
		t.Fatalf("expected 0 queue depth, got %d", m.IngestQueueDepth)
	}
}

func TestRegisterTask(t *testing.T) {
	s := New(DefaultConfig(), newFakeState(), nil)
	s.RegisterTask(newMockTask("test", P1))
	if s.RegisteredTasks() != 1 {
		t.Fatalf("expected 1 registered task, got %d", s.RegisteredTasks())
	}
}

func TestExecuteImmediateP0(t *testing.T) {
	s := New(DefaultConfig(), newFakeState(), nil)
	task := newMockTask("p0_task", P0)

	if _, err := s.ExecuteImmediate(task); err != nil {
		t.Fatalf("ExecuteImmediate: %v", err)
	}
	if task.count.Load() != 1 {
		t.Fatalf("expected 1 execution, got %d", task.count.Load())
	}
	if s.Metrics().TasksExecuted["p0_task"] != 1 {
		t.Fatalf("expected tasks_executed to record p0_task")
	}
}

func TestBackpressureCriticalBlocksP2P3(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerThreads = 10
	s := New(cfg, newFakeState(), nil)

	s.RegisterTask(newMockTask("p1_task", P1))
	s.RegisterTask(newMockTask("p2_task", P2))
	s.RegisterTask(newMockTask("p3_task", P3))

	names := taskNames(s.CollectRunnable(LoadCritical))
	if !contains(names, "p1_task") {
		t.Fatalf("expected p1_task to run under critical load")
	}
	if contains(names, "p2_task") || contains(names, "p3_task") {
		t.Fatalf("expected p2/p3 blocked under critical load, got %v", names)
	}
}

func TestBackpressureElevatedBlocksP3(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerThreads = 10
	s := New(cfg, newFakeState(), nil)

	s.RegisterTask(newMockTask("p1_task", P1))
	s.RegisterTask(newMockTask("p3_task", P3))

	names := taskNames(s.CollectRunnable(LoadElevated))
	if !contains(names, "p1_task") {
		t.Fatalf("expected p1_task to run under elevated load")
	}
	if contains(names, "p3_task") {
		t.Fatalf("expected p3_task blocked under elevated load")
	}
}

func TestDependencyEnforcement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerThreads = 10
	s := New(cfg, newFakeState(), nil)

	entity := newMockTask("entity_extraction", P1)
	pagerank := newMockTask("pagerank", P2)
	s.RegisterTask(entity)
	s.RegisterTask(pagerank)
	s.AddDependency("entity_extraction", "pagerank")

	names := taskNames(s.CollectRunnable(LoadNormal))
	if !contains(names, "entity_extraction") {
		t.Fatalf("expected entity_extraction runnable")
	}
	if contains(names, "pagerank") {
		t.Fatalf("expected pagerank blocked before its dependency has run")
	}

	s.mu.Lock()
	s.lastRun["entity_extraction"] = time.Now()
	s.mu.Unlock()

	names = taskNames(s.CollectRunnable(LoadNormal))
	if !contains(names, "pagerank") {
		t.Fatalf("expected pagerank runnable once its dependency has run")
	}
}

func TestShouldRunGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerThreads = 10
	s := New(cfg, newFakeState(), nil)
	s.RegisterTask(newGatedMockTask("gated", P1))

	if runnable := s.CollectRunnable(LoadNormal); len(runnable) != 0 {
		t.Fatalf("expected no runnable tasks when ShouldRun is false, got %d", len(runnable))
	}
}

func TestIngestQueueDepthSignal(t *testing.T) {
	s := New(DefaultConfig(), newFakeState(), nil)
	s.SetIngestQueueDepth(5000)
	if s.Metrics().IngestQueueDepth != 5000 {
		t.Fatalf("expected queue depth 5000, got %d", s.Metrics().IngestQueueDepth)
	}
	if s.Metrics().CurrentLoadLevel != LoadElevated {
		t.Fatalf("expected elevated load at depth 5000, got %v", s.Metrics().CurrentLoadLevel)
	}
}

func TestWorkerAvailabilityGatesP2P3(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerThreads = 3
	s := New(cfg, newFakeState(), nil)
	s.RegisterTask(newMockTask("p2_task", P2))

	if runnable := s.CollectRunnable(LoadNormal); len(runnable) != 1 {
		t.Fatalf("expected p2_task to run with 3 available workers, got %d runnable", len(runnable))
	}

	s.activeWorkers.Store(1)
	if runnable := s.CollectRunnable(LoadNormal); len(runnable) != 0 {
		t.Fatalf("expected p2_task blocked with only 2 available workers, got %d runnable", len(runnable))
	}
}

func taskNames(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name()
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
