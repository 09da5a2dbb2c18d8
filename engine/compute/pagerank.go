package compute

import (
	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// PageRankConfig controls the damped power iteration.
type PageRankConfig struct {
	Damping    float64
	MaxIter    int
	Tolerance  float64
}

// DefaultPageRankConfig matches the usual textbook defaults: 0.85 damping,
// capped at 100 iterations, converging once the L1 delta drops below 1e-6.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{Damping: 0.85, MaxIter: 100, Tolerance: 1e-6}
}

// PageRank runs damped power iteration over store's nodes, treating every
// edge as directed from Source to Target. Dangling nodes (no outgoing
// edges) redistribute their rank uniformly over the whole graph each
// iteration, which is what keeps total rank mass conserved.
func PageRank(store *graphstore.Store, cfg PageRankConfig) map[idgen.ID]float64 {
	nodes := store.Nodes()
	n := len(nodes)
	rank := make(map[idgen.ID]float64, n)
	if n == 0 {
		return rank
	}
	for _, nd := range nodes {
		rank[nd.ID] = 1.0 / float64(n)
	}

	outDegree := make(map[idgen.ID]int, n)
	for _, nd := range nodes {
		outDegree[nd.ID] = len(store.Outgoing(nd.ID))
	}

	for iter := 0; iter < cfg.MaxIter; iter++ {
		next := make(map[idgen.ID]float64, n)
		base := (1 - cfg.Damping) / float64(n)
		for id := range rank {
			next[id] = base
		}

		var danglingMass float64
		for _, nd := range nodes {
			deg := outDegree[nd.ID]
			if deg == 0 {
				danglingMass += rank[nd.ID]
				continue
			}
			share := cfg.Damping * rank[nd.ID] / float64(deg)
			for _, eid := range store.Outgoing(nd.ID) {
				e, ok := store.Edge(eid)
				if !ok {
					continue
				}
				next[e.Target] += share
			}
		}

		if danglingMass > 0 {
			redistributed := cfg.Damping * danglingMass / float64(n)
			for id := range next {
				next[id] += redistributed
			}
		}

		var delta float64
		for id, v := range next {
			d := v - rank[id]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		if delta < cfg.Tolerance {
			break
		}
	}
	return rank
}
