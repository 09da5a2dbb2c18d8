package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/trakrail/eisenbahn/engine/ingest"
	"github.com/trakrail/eisenbahn/engine/segment"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/topology"
)

func TestBootReplaysSegmentsIntoGraph(t *testing.T) {
	dir := t.TempDir()
	store, err := segment.NewStore(dir, segment.Daily)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	doc := envelope.NewDocument(ingest.EventLogin, map[string]envelope.Value{
		"member_key": envelope.Text("alice"),
		"device_id":  envelope.Text("dev-1"),
	})
	doc.Timestamp = time.Now()
	if _, err := store.Insert(doc); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sys, err := Boot(context.Background(), topology.Local(), Options{
		SegmentDir:         dir,
		SegmentGranularity: segment.Daily,
		ReplayWorkers:      0,
	}, nil)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer sys.Shutdown(context.Background())

	if got := sys.State.Graph().NodeCount(); got != 2 {
		t.Errorf("expected 2 nodes replayed (alice, dev-1), got %d", got)
	}
	cat := sys.State.Catalog()
	if len(cat.EntityTypes) != 2 {
		t.Errorf("expected catalog with 2 entity types, got %d", len(cat.EntityTypes))
	}
	if sys.Sched == nil {
		t.Error("expected a scheduler to be constructed")
	}
	if sys.Broker != nil || sys.Conn != nil {
		t.Error("expected no broker/connection when StartBroker is false")
	}
}

func TestBootWithEmptyStoreYieldsEmptyGraph(t *testing.T) {
	dir := t.TempDir()
	sys, err := Boot(context.Background(), topology.Local(), Options{
		SegmentDir:         dir,
		SegmentGranularity: segment.Daily,
	}, nil)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer sys.Shutdown(context.Background())

	if got := sys.State.Graph().NodeCount(); got != 0 {
		t.Errorf("expected empty graph, got %d nodes", got)
	}
}
