package graphstore

import (
	"fmt"
	"sync"

	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// Node is one graph entity. Its ID is derived deterministically from
// (EntityType, Key) so re-ingesting the same entity from a different
// segment converges on the node rather than duplicating it — Segments
// records every segment that has contributed evidence for this node.
type Node struct {
	ID         idgen.ID
	EntityType string
	Key        string
	Segments   map[string]struct{}
}

// Edge is one relationship between two nodes. Its ID is derived
// deterministically from (Source, Target, EdgeType); repeated add_edge
// calls for the same triple do not create duplicate edges, they
// accumulate Weight (Open Question decision: sum on every call) and
// widen Segments.
type Edge struct {
	ID       idgen.ID
	Source   idgen.ID
	Target   idgen.ID
	EdgeType string
	Weight   int64
	Segments map[string]struct{}
}

// Store is the in-memory, single-process property graph. It holds no
// transactional or durability guarantees of its own: the segment store
// is the durable record, and Store is rebuilt from it at startup.
type Store struct {
	mu        sync.RWMutex
	nodes     map[idgen.ID]*Node
	edges     map[idgen.ID]*Edge
	outgoing  map[idgen.ID][]idgen.ID // node -> edge ids where node is Source
	incoming  map[idgen.ID][]idgen.ID // node -> edge ids where node is Target
}

// New builds an empty graph store.
func New() *Store {
	return &Store{
		nodes:    make(map[idgen.ID]*Node),
		edges:    make(map[idgen.ID]*Edge),
		outgoing: make(map[idgen.ID][]idgen.ID),
		incoming: make(map[idgen.ID][]idgen.ID),
	}
}

// NodeID derives the deterministic id for (entityType, key), so callers
// can check membership before committing to an edge without going
// through UpsertNode.
func NodeID(entityType, key string) idgen.ID {
	return idgen.Deterministic(idgen.NamespaceNode, entityType+"\x00"+key)
}

// EdgeID derives the deterministic id for one (source, target, edgeType)
// triple.
func EdgeID(source, target idgen.ID, edgeType string) idgen.ID {
	return idgen.Deterministic(idgen.NamespaceEdge, source.String()+"\x00"+target.String()+"\x00"+edgeType)
}

// UpsertNode creates the node for (entityType, key) if it doesn't exist,
// or records segment as additional provenance if it does. Returns the
// node's id either way.
func (s *Store) UpsertNode(entityType, key, segment string) idgen.ID {
	id := NodeID(entityType, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		n = &Node{ID: id, EntityType: entityType, Key: key, Segments: map[string]struct{}{}}
		s.nodes[id] = n
	}
	if segment != "" {
		n.Segments[segment] = struct{}{}
	}
	return id
}

// AddEdge adds weight 1 between two existing nodes, or accumulates onto
// an existing edge of the same (source, target, edgeType) triple. It
// returns ErrIntegrity, wrapped with the missing node's id, if either
// endpoint has not been upserted — the caller logs and drops rather than
// panicking, per the GraphIntegrity error class.
func (s *Store) AddEdge(source, target idgen.ID, edgeType, segment string) (idgen.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[source]; !ok {
		return idgen.Nil, fmt.Errorf("%w: source node %s does not exist", ErrIntegrity, source)
	}
	if _, ok := s.nodes[target]; !ok {
		return idgen.Nil, fmt.Errorf("%w: target node %s does not exist", ErrIntegrity, target)
	}

	id := EdgeID(source, target, edgeType)
	e, ok := s.edges[id]
	if !ok {
		e = &Edge{ID: id, Source: source, Target: target, EdgeType: edgeType, Segments: map[string]struct{}{}}
		s.edges[id] = e
		s.outgoing[source] = append(s.outgoing[source], id)
		s.incoming[target] = append(s.incoming[target], id)
	}
	e.Weight++
	if segment != "" {
		e.Segments[segment] = struct{}{}
	}
	return id, nil
}

// Node returns a node by id.
func (s *Store) Node(id idgen.ID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edge returns an edge by id.
func (s *Store) Edge(id idgen.ID) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Neighbors returns the ids of every node reachable via one outgoing or
// incoming edge from id.
func (s *Store) Neighbors(id idgen.ID) []idgen.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[idgen.ID]struct{})
	var out []idgen.ID
	for _, eid := range s.outgoing[id] {
		if e, ok := s.edges[eid]; ok {
			if _, dup := seen[e.Target]; !dup {
				seen[e.Target] = struct{}{}
				out = append(out, e.Target)
			}
		}
	}
	for _, eid := range s.incoming[id] {
		if e, ok := s.edges[eid]; ok {
			if _, dup := seen[e.Source]; !dup {
				seen[e.Source] = struct{}{}
				out = append(out, e.Source)
			}
		}
	}
	return out
}

// NodeCount and EdgeCount report the current graph size.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Nodes returns a snapshot of every node, for compute algorithms that
// need to range over the whole graph.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	return out
}

// Edges returns a snapshot of every edge.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e)
	}
	return out
}

// Outgoing returns the edge ids where id is the source.
func (s *Store) Outgoing(id idgen.ID) []idgen.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]idgen.ID, len(s.outgoing[id]))
	copy(out, s.outgoing[id])
	return out
}

// Incoming returns the edge ids where id is the target.
func (s *Store) Incoming(id idgen.ID) []idgen.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]idgen.ID, len(s.incoming[id]))
	copy(out, s.incoming[id])
	return out
}
