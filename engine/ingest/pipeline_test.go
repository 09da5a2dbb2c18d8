package ingest

import (
	"context"
	"testing"

	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/envelope"
)

func TestPipelineRunAppliesExtractedOps(t *testing.T) {
	store := graphstore.New()
	p := NewPipeline(store, nil, 0, Metrics{})

	docs := []envelope.Document{
		envelope.NewDocument(EventLogin, fields(map[string]string{
			"member_key": "alice",
			"device_id":  "dev-1",
		})),
		envelope.NewDocument(EventGameOpened, fields(map[string]string{
			"member_key": "alice",
			"game_id":    "slot-42",
			"provider":   "pragmatic",
		})),
	}

	n := p.Run(context.Background(), docs)
	if n != 2 {
		t.Fatalf("expected 2 documents ingested, got %d", n)
	}
	if store.NodeCount() != 4 {
		t.Errorf("expected 4 distinct nodes (alice, dev-1, slot-42, pragmatic), got %d", store.NodeCount())
	}
}

func TestPipelineRunEmptyBatchIsNoOp(t *testing.T) {
	store := graphstore.New()
	p := NewPipeline(store, nil, 0, Metrics{})
	if n := p.Run(context.Background(), nil); n != 0 {
		t.Errorf("expected 0 for an empty batch, got %d", n)
	}
	if store.NodeCount() != 0 {
		t.Errorf("expected empty store to stay empty, got %d nodes", store.NodeCount())
	}
}

func TestPipelineStageComposesAsFnStage(t *testing.T) {
	store := graphstore.New()
	p := NewPipeline(store, nil, 0, Metrics{})
	stage := p.Stage()

	docs := []envelope.Document{
		envelope.NewDocument(EventAPIError, fields(map[string]string{
			"member_key": "alice",
			"status":     "500",
			"url":        "/api/spin",
		})),
	}

	result := stage(context.Background(), docs)
	v, err := result.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("expected 1 document processed, got %d", v)
	}
}

func TestPipelineUnknownEventTypeIsSkipped(t *testing.T) {
	store := graphstore.New()
	p := NewPipeline(store, nil, 0, Metrics{})
	docs := []envelope.Document{envelope.NewDocument("SomethingElse", nil)}
	if n := p.Run(context.Background(), docs); n != 1 {
		t.Errorf("expected Run to still count the document, got %d", n)
	}
	if store.NodeCount() != 0 {
		t.Errorf("expected no nodes for an unregistered event type, got %d", store.NodeCount())
	}
}
