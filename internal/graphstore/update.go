package graphstore

import "log/slog"

// GraphUpdate is the data-bearing batch the graph worker's PULL pipeline
// receives directly from compute, as distinct from the notify-only
// completion event compute publishes over pub/sub. Wiring these as two
// separate transports (PUSH/PULL for the payload, PUB/SUB for the
// event) keeps a slow or absent graph worker from blocking compute's
// broadcast, and keeps the broadcast from needing to carry the
// (potentially large) update payload at all.
type GraphUpdate struct {
	Entities []NodeOp
	Edges    []EdgeOp
}

// ApplyUpdate replays one GraphUpdate against store using the same
// malformed-op handling Apply uses for extracted batches.
func ApplyUpdate(store *Store, log *slog.Logger, update GraphUpdate) {
	Apply(store, log, []GraphOps{{Nodes: update.Entities, Edges: update.Edges}})
}
