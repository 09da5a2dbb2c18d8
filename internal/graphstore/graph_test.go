package graphstore

import "testing"

func TestUpsertNodeDedups(t *testing.T) {
	s := New()
	id1 := s.UpsertNode("member", "alice", "seg-a")
	id2 := s.UpsertNode("member", "alice", "seg-b")
	if id1 != id2 {
		t.Fatalf("expected same id for repeated upsert, got %s and %s", id1, id2)
	}
	if s.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", s.NodeCount())
	}
	n, _ := s.Node(id1)
	if len(n.Segments) != 2 {
		t.Fatalf("expected 2 segments of provenance, got %d", len(n.Segments))
	}
}

func TestAddEdgeSumsWeight(t *testing.T) {
	s := New()
	a := s.UpsertNode("member", "alice", "seg")
	b := s.UpsertNode("device", "dev1", "seg")

	id1, err := s.AddEdge(a, b, "logged_in_from", "seg")
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	id2, err := s.AddEdge(a, b, "logged_in_from", "seg")
	if err != nil {
		t.Fatalf("AddEdge repeat: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same edge id, got %s and %s", id1, id2)
	}
	e, _ := s.Edge(id1)
	if e.Weight != 2 {
		t.Fatalf("expected weight 2 after two add_edge calls, got %d", e.Weight)
	}
}

func TestAddEdgeRejectsMissingNode(t *testing.T) {
	s := New()
	a := s.UpsertNode("member", "alice", "seg")
	ghost := NodeID("device", "does-not-exist")
	if _, err := s.AddEdge(a, ghost, "logged_in_from", "seg"); err == nil {
		t.Fatalf("expected ErrIntegrity for missing target node")
	}
}

func TestNeighborsCoversBothDirections(t *testing.T) {
	s := New()
	a := s.UpsertNode("member", "alice", "seg")
	b := s.UpsertNode("member", "bob", "seg")
	c := s.UpsertNode("member", "carol", "seg")
	s.AddEdge(a, b, "knows", "seg")
	s.AddEdge(c, a, "knows", "seg")

	neighbors := s.Neighbors(a)
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors of a, got %d", len(neighbors))
	}
}
