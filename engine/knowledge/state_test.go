package knowledge

import (
	"sync"
	"testing"

	"github.com/trakrail/eisenbahn/internal/graphstore"
)

func TestNewStateHasEmptyGraph(t *testing.T) {
	s := New()
	if s.Graph().NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", s.Graph().NodeCount())
	}
}

func TestRebuildCatalogReflectsGraph(t *testing.T) {
	s := New()
	g := s.Graph()
	a := g.UpsertNode("member", "alice", "seg-1")
	b := g.UpsertNode("device", "dev1", "seg-1")
	if _, err := g.AddEdge(a, b, "logged_in_from", "seg-1"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	cat := s.RebuildCatalog()
	if len(cat.EntityTypes) != 2 {
		t.Fatalf("expected 2 entity type rows, got %d", len(cat.EntityTypes))
	}
	if got := s.Catalog(); len(got.EntityTypes) != 2 {
		t.Errorf("Catalog() should return the same snapshot RebuildCatalog stored")
	}
}

func TestReplaceGraphSwapsAtomically(t *testing.T) {
	s := New()
	replacement := graphstore.New()
	replacement.UpsertNode("member", "bob", "seg-2")

	s.ReplaceGraph(replacement)
	if s.Graph().NodeCount() != 1 {
		t.Errorf("expected replaced graph with 1 node, got %d", s.Graph().NodeCount())
	}
}

func TestStoreAndFetchResult(t *testing.T) {
	s := New()
	if _, ok := s.Result("pagerank"); ok {
		t.Fatal("expected no result before StoreResult")
	}
	s.StoreResult("pagerank", map[string]float64{"n1": 0.5})
	v, ok := s.Result("pagerank")
	if !ok {
		t.Fatal("expected a result after StoreResult")
	}
	m, ok := v.(map[string]float64)
	if !ok || m["n1"] != 0.5 {
		t.Errorf("unexpected result value: %#v", v)
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Graph().UpsertNode("member", "m", "seg")
			s.StoreResult("stats", n)
			_, _ = s.Result("stats")
			_ = s.Catalog()
		}(i)
	}
	wg.Wait()
}
