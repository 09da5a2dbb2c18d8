package compute

import (
	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// GraphStats is the extended set of structural metrics computed over the
// whole knowledge graph: counts by type, degree distribution, connected
// components (treating every edge as undirected), and density.
type GraphStats struct {
	TotalNodes         int
	TotalEdges         int
	NodesByType        map[string]int
	EdgesByType        map[string]int
	AvgDegree          float64
	MaxDegreeNode      idgen.ID
	MaxDegree          int
	ConnectedComponents int
	Density            float64
}

// ExtendedGraphStats computes GraphStats from the current graph snapshot.
func ExtendedGraphStats(store *graphstore.Store) GraphStats {
	nodes := store.Nodes()
	edges := store.Edges()

	nodesByType := make(map[string]int)
	for _, n := range nodes {
		nodesByType[n.EntityType]++
	}
	edgesByType := make(map[string]int)
	for _, e := range edges {
		edgesByType[e.EdgeType]++
	}

	var maxNode idgen.ID
	var maxDeg int
	var totalDeg int
	for _, n := range nodes {
		deg := len(store.Outgoing(n.ID)) + len(store.Incoming(n.ID))
		totalDeg += deg
		if deg > maxDeg {
			maxDeg = deg
			maxNode = n.ID
		}
	}

	totalNodes := len(nodes)
	var avgDegree float64
	if totalNodes > 0 {
		avgDegree = float64(totalDeg) / float64(totalNodes)
	}

	var density float64
	if totalNodes > 1 {
		density = (2.0 * float64(len(edges))) / (float64(totalNodes) * float64(totalNodes-1))
	}

	return GraphStats{
		TotalNodes:          totalNodes,
		TotalEdges:          len(edges),
		NodesByType:         nodesByType,
		EdgesByType:         edgesByType,
		AvgDegree:           avgDegree,
		MaxDegreeNode:       maxNode,
		MaxDegree:           maxDeg,
		ConnectedComponents: countConnectedComponents(nodes, edges),
		Density:             density,
	}
}

// unionFind is a disjoint-set structure with path compression and union
// by rank, indexed by dense integer position rather than node id.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x])
	}
	return uf.parent[x]
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

func countConnectedComponents(nodes []graphstore.Node, edges []graphstore.Edge) int {
	n := len(nodes)
	if n == 0 {
		return 0
	}
	idx := make(map[idgen.ID]int, n)
	for i, nd := range nodes {
		idx[nd.ID] = i
	}
	uf := newUnionFind(n)
	for _, e := range edges {
		a, aok := idx[e.Source]
		b, bok := idx[e.Target]
		if aok && bok {
			uf.union(a, b)
		}
	}
	roots := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		roots[uf.find(i)] = struct{}{}
	}
	return len(roots)
}
