// Package knowledge coordinates shared access to the knowledge graph
// and its derived artifacts (catalog, compute results) between the
// single writer that rebuilds/mutates it and the many readers
// (scheduler tasks, the rule evaluator, the gateway worker) that only
// ever need a consistent snapshot. No pack file names a concrete
// Rust-side state module for this — it's referenced only via the
// scheduler test fixture's KnowledgeState type — so this is a direct
// RWMutex-guarded coordinator, the standard Go shape for exactly this
// single-writer/many-reader access pattern.
package knowledge

import (
	"sync"

	"github.com/trakrail/eisenbahn/internal/graphstore"
)

// State holds the current graph and catalog, plus the most recent
// compute results keyed by task name, guarded by a single RWMutex so
// reads never block each other and a writer sees a consistent view.
type State struct {
	mu      sync.RWMutex
	graph   *graphstore.Store
	catalog graphstore.Catalog
	results map[string]any
}

// New builds an empty State backed by a fresh graph store.
func New() *State {
	return &State{
		graph:   graphstore.New(),
		results: make(map[string]any),
	}
}

// Graph returns the live graph store. Callers that only read (stats,
// neighbor lookups, catalog rebuilds) should prefer WithGraph/Catalog;
// this exists to satisfy scheduler.KnowledgeState's narrow Graph()
// contract structurally, with no import of engine/scheduler needed
// here.
func (s *State) Graph() *graphstore.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// ReplaceGraph swaps in a newly rebuilt graph store (e.g. after a
// startup reload from segments), taking the write lock for the
// duration of the swap only.
func (s *State) ReplaceGraph(g *graphstore.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
}

// Catalog returns the most recently built catalog snapshot.
func (s *State) Catalog() graphstore.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// RebuildCatalog recomputes the catalog from the current graph and
// stores it, returning the new snapshot.
func (s *State) RebuildCatalog() graphstore.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = graphstore.FromGraph(s.graph)
	return s.catalog
}

// StoreResult records a compute task's latest result (e.g. a
// PageRank or stats snapshot) by task name, for readers that want the
// most recent computed view without rerunning the algorithm.
func (s *State) StoreResult(taskName string, result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[taskName] = result
}

// Result fetches the most recently stored result for taskName.
func (s *State) Result(taskName string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.results[taskName]
	return v, ok
}
