package main

import (
	"testing"

	"github.com/trakrail/eisenbahn/engine/compute"
	"github.com/trakrail/eisenbahn/engine/knowledge"
)

func TestSnapshotBuildsOneEntityPerNode(t *testing.T) {
	state := knowledge.New()
	graph := state.Graph()
	a := graph.UpsertNode("member", "alice", "seg-1")
	b := graph.UpsertNode("device", "dev-1", "seg-1")
	if _, err := graph.AddEdge(a, b, "LoggedInFrom", "seg-1"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	entities, scores := snapshot(state)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 score entries, got %d", len(scores))
	}
	for id, e := range entities {
		sig, ok := scores[id]
		if !ok {
			t.Fatalf("missing SignalScores for entity %s", id)
		}
		if _, ok := sig.Get(compute.SignalGraphAnomaly.Key()); !ok {
			t.Errorf("entity %s missing graph_anomaly signal", e.Key)
		}
	}
}

func TestSnapshotOnEmptyGraphIsEmpty(t *testing.T) {
	state := knowledge.New()
	entities, scores := snapshot(state)
	if len(entities) != 0 || len(scores) != 0 {
		t.Errorf("expected empty snapshot on empty graph, got %d entities, %d scores", len(entities), len(scores))
	}
}
