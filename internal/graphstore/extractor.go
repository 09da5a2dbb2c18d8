package graphstore

import (
	"log/slog"

	"github.com/trakrail/eisenbahn/pkg/envelope"
	"github.com/trakrail/eisenbahn/pkg/fn"
)

// NodeOp asks for a node to exist, attributing segment as provenance.
type NodeOp struct {
	EntityType string
	Key        string
	Segment    string
}

// EdgeOp asks for an edge between two nodes (creating them first if
// ExtractFunc didn't emit NodeOps for them — Apply upserts both
// endpoints unconditionally before adding the edge, so GraphIntegrity
// violations only happen for malformed EdgeOps with an empty key).
type EdgeOp struct {
	SourceType, SourceKey string
	TargetType, TargetKey string
	EdgeType              string
	Segment               string
}

// GraphOps is what one document's extraction produces: the nodes and
// edges it implies. A document with no extractable structure yields a
// zero-value GraphOps, which Apply treats as a no-op.
type GraphOps struct {
	Nodes []NodeOp
	Edges []EdgeOp
}

// ExtractFunc turns one document into graph operations. Registered per
// event type on an Extractor.
type ExtractFunc func(envelope.Document) GraphOps

// Extractor dispatches documents to per-event-type extraction functions.
// Extraction itself (ExtractAll) is embarrassingly parallel — each
// document is transformed independently with no shared state — so it
// runs through pkg/fn.ParMap. Applying the resulting ops to the graph
// (Apply) is not: edges must see their endpoints already upserted, so
// that step always replays sequentially on a single goroutine.
type Extractor struct {
	funcs map[string]ExtractFunc
	log   *slog.Logger
}

// NewExtractor builds an extractor with no registered event types.
func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{funcs: make(map[string]ExtractFunc), log: log}
}

// Register binds an ExtractFunc to an event type.
func (x *Extractor) Register(eventType string, fn ExtractFunc) {
	x.funcs[eventType] = fn
}

// ExtractAll runs extraction for every document concurrently (bounded by
// workers; workers<=0 means "one goroutine per document") and returns
// the ops in document order, ready for sequential Apply.
func (x *Extractor) ExtractAll(docs []envelope.Document, workers int) []GraphOps {
	return fn.ParMap(docs, workers, func(d envelope.Document) GraphOps {
		f, ok := x.funcs[d.EventType]
		if !ok {
			return GraphOps{}
		}
		return f(d)
	})
}

// Apply replays a batch of GraphOps against store in order, single
// threaded. Malformed ops (empty key) are logged and dropped rather than
// aborting the batch, matching the GraphIntegrity error class.
func Apply(store *Store, log *slog.Logger, batch []GraphOps) {
	if log == nil {
		log = slog.Default()
	}
	for _, ops := range batch {
		for _, n := range ops.Nodes {
			if n.EntityType == "" || n.Key == "" {
				log.Warn("dropping malformed node op", "entity_type", n.EntityType, "key", n.Key)
				continue
			}
			store.UpsertNode(n.EntityType, n.Key, n.Segment)
		}
		for _, e := range ops.Edges {
			if e.SourceKey == "" || e.TargetKey == "" || e.EdgeType == "" {
				log.Warn("dropping malformed edge op", "edge_type", e.EdgeType)
				continue
			}
			src := store.UpsertNode(e.SourceType, e.SourceKey, e.Segment)
			dst := store.UpsertNode(e.TargetType, e.TargetKey, e.Segment)
			if _, err := store.AddEdge(src, dst, e.EdgeType, e.Segment); err != nil {
				log.Warn("dropping edge with missing endpoint", "error", err)
			}
		}
	}
}
