package compute

import (
	"sort"

	"github.com/trakrail/eisenbahn/internal/graphstore"
	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// CommunityConfig bounds the label-propagation pass.
type CommunityConfig struct {
	MaxIter int
}

// DefaultCommunityConfig caps propagation at 20 rounds — enough for label
// propagation to converge on graphs of the size this system expects, and
// small enough to bound worst-case oscillation between two labels.
func DefaultCommunityConfig() CommunityConfig {
	return CommunityConfig{MaxIter: 20}
}

// LabelPropagation assigns every node a CommunityID by repeatedly adopting
// the most common label among its neighbors, breaking ties by choosing the
// numerically smallest candidate label so the result is deterministic
// regardless of map iteration order. Nodes start in their own singleton
// community, keyed by their position in the graph's sorted node-id order.
func LabelPropagation(store *graphstore.Store, cfg CommunityConfig) map[idgen.ID]CommunityID {
	nodes := store.Nodes()
	n := len(nodes)
	if n == 0 {
		return map[idgen.ID]CommunityID{}
	}

	ids := make([]idgen.ID, n)
	for i, nd := range nodes {
		ids[i] = nd.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	labels := make(map[idgen.ID]CommunityID, n)
	for i, id := range ids {
		labels[id] = CommunityID(i)
	}

	for iter := 0; iter < cfg.MaxIter; iter++ {
		changed := false
		for _, id := range ids {
			neighbors := store.Neighbors(id)
			if len(neighbors) == 0 {
				continue
			}
			counts := make(map[CommunityID]int, len(neighbors))
			for _, nb := range neighbors {
				counts[labels[nb]]++
			}
			best, bestCount := labels[id], -1
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label < best) {
					best, bestCount = label, count
				}
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// CommunitySizes tallies how many nodes fall into each community.
func CommunitySizes(labels map[idgen.ID]CommunityID) map[CommunityID]int {
	sizes := make(map[CommunityID]int)
	for _, c := range labels {
		sizes[c]++
	}
	return sizes
}
