package main

import (
	"github.com/trakrail/eisenbahn/engine/compute"
	"github.com/trakrail/eisenbahn/engine/knowledge"
	"github.com/trakrail/eisenbahn/engine/rules"
	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// snapshot is the per-evaluation view handed to the rule evaluator: every
// node in the graph as an EntityData, plus its graph_anomaly signal score
// derived from degree and community membership. Other signal types
// (z_score, dbscan_noise, behavioral_deviation) need entity feature
// vectors this repo doesn't build yet, so only graph_anomaly is
// populated — rules that reference the others simply never match.
func snapshot(state *knowledge.State) (map[string]rules.EntityData, map[string]rules.SignalScores) {
	graph := state.Graph()
	nodes := graph.Nodes()

	var avgDegree float64
	if stats, ok := state.Result("graph-stats").(compute.GraphStats); ok {
		avgDegree = stats.AvgDegree
	}

	labels, _ := state.Result("communities").(map[idgen.ID]compute.CommunityID)

	entities := make(map[string]rules.EntityData, len(nodes))
	scores := make(map[string]rules.SignalScores, len(nodes))

	for _, n := range nodes {
		id := n.ID.String()
		neighbors := graph.Neighbors(n.ID)

		neighborCommunities := map[compute.CommunityID]struct{}{}
		if labels != nil {
			for _, nb := range neighbors {
				if c, ok := labels[nb]; ok {
					neighborCommunities[c] = struct{}{}
				}
			}
		}

		score := compute.GraphAnomalyScore(len(neighbors), avgDegree, len(neighborCommunities))

		entities[id] = rules.EntityData{
			Key:        n.Key,
			EntityType: n.EntityType,
			Score:      score,
		}
		scores[id] = rules.SignalScores{
			Scores: map[string]float64{
				compute.SignalGraphAnomaly.Key(): score,
			},
		}
	}

	return entities, scores
}
