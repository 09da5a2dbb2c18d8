// Package graphstore is the in-memory knowledge core: a property graph
// rebuilt from segments at startup (no external graph database, no
// durability of its own — segments are the durable record), plus the
// catalog summarizing it for discovery.
package graphstore

import "errors"

// ErrIntegrity marks an edge referencing a node that doesn't exist in
// the store. Per the GraphIntegrity error class, callers log and drop
// the offending edge rather than aborting the whole rebuild.
var ErrIntegrity = errors.New("graphstore: integrity violation")
