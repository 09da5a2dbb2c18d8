package ingest

import (
	"context"
	"log/slog"

	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/fn"
	"github.com/trakrail/eisenbahn/pkg/metrics"
)

// Metrics are the counters a Pipeline reports through; nil fields are
// skipped, so a caller that doesn't care about metrics can pass a zero
// value.
type Metrics struct {
	DocumentsIngested *metrics.Counter
	NodesUpserted     *metrics.Counter
	EdgesAdded        *metrics.Counter
	BatchLatency      *metrics.Histogram
}

// Pipeline turns batches of documents into graph operations and
// replays them into a Store: the fn.Stage/BatchStage combinators give
// the extraction half its concurrency (ExtractAll already parallelizes
// internally, so the outer stage is intentionally thin), while Apply
// stays sequential per the Store's single-writer contract.
type Pipeline struct {
	extractor *graphstore.Extractor
	store     *graphstore.Store
	log       *slog.Logger
	metrics   Metrics
	workers   int
}

// NewPipeline builds a Pipeline over store using the standard event-type
// extractors. workers<=0 runs one goroutine per document during
// extraction.
func NewPipeline(store *graphstore.Store, log *slog.Logger, workers int, m Metrics) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		extractor: NewExtractor(log),
		store:     store,
		log:       log,
		metrics:   m,
		workers:   workers,
	}
}

// Stage exposes the pipeline as a fn.Stage so it composes with other
// ingestion stages (dedup, validation, tracing) via fn.Then/fn.Pipeline.
func (p *Pipeline) Stage() fn.Stage[[]envelope.Document, int] {
	return fn.TracedStage("ingest.pipeline", func(ctx context.Context, docs []envelope.Document) fn.Result[int] {
		return fn.Ok(p.Run(ctx, docs))
	})
}

// Run extracts and applies one batch of documents, returning the count
// ingested. Safe to call from multiple goroutines across different
// batches; Apply itself stays single-threaded over the Store.
func (p *Pipeline) Run(ctx context.Context, docs []envelope.Document) int {
	if len(docs) == 0 {
		return 0
	}

	before := p.store.NodeCount()
	batch := p.extractor.ExtractAll(docs, p.workers)
	graphstore.Apply(p.store, p.log, batch)
	after := p.store.NodeCount()

	if p.metrics.DocumentsIngested != nil {
		p.metrics.DocumentsIngested.Add(int64(len(docs)))
	}
	if p.metrics.NodesUpserted != nil && after > before {
		p.metrics.NodesUpserted.Add(int64(after - before))
	}
	if p.metrics.EdgesAdded != nil {
		var edges int64
		for _, ops := range batch {
			edges += int64(len(ops.Edges))
		}
		p.metrics.EdgesAdded.Add(edges)
	}

	p.log.Debug("ingested batch", "documents", len(docs), "nodes_added", after-before)
	return len(docs)
}
