package main

import (
	"time"

	"github.com/trakrail/eisenbahn/engine/compute"
	"github.com/trakrail/eisenbahn/engine/knowledge"
	"github.com/trakrail/eisenbahn/engine/scheduler"
)

// statsTask recomputes graph-wide structural stats (node/edge counts by
// type, degree distribution, density, connected components) on a P1
// cadence — cheap enough to run near-realtime after ingest.
type statsTask struct {
	state    *knowledge.State
	interval time.Duration
}

func (t *statsTask) Name() string                      { return "graph-stats" }
func (t *statsTask) Priority() scheduler.Priority       { return scheduler.P1 }
func (t *statsTask) EstimatedDuration() time.Duration   { return 50 * time.Millisecond }
func (t *statsTask) ShouldRun(lastRun *time.Time, _ scheduler.KnowledgeState) bool {
	return scheduler.IntervalGate(lastRun, t.interval)
}
func (t *statsTask) Execute(ks scheduler.KnowledgeState) (scheduler.Result, error) {
	stats := compute.ExtendedGraphStats(ks.Graph())
	t.state.StoreResult("graph-stats", stats)
	return scheduler.Result{
		TaskName:       t.Name(),
		ItemsProcessed: len(stats.NodesByType),
		Summary:        "recomputed graph-wide structural stats",
	}, nil
}

// pageRankTask ranks nodes by influence across the whole graph — an
// hourly-cadence P2 task since it scans every edge.
type pageRankTask struct {
	state    *knowledge.State
	interval time.Duration
}

func (t *pageRankTask) Name() string                    { return "pagerank" }
func (t *pageRankTask) Priority() scheduler.Priority     { return scheduler.P2 }
func (t *pageRankTask) EstimatedDuration() time.Duration { return 500 * time.Millisecond }
func (t *pageRankTask) ShouldRun(lastRun *time.Time, _ scheduler.KnowledgeState) bool {
	return scheduler.IntervalGate(lastRun, t.interval)
}
func (t *pageRankTask) Execute(ks scheduler.KnowledgeState) (scheduler.Result, error) {
	ranks := compute.PageRank(ks.Graph(), compute.DefaultPageRankConfig())
	t.state.StoreResult("pagerank", ranks)
	return scheduler.Result{
		TaskName:       t.Name(),
		ItemsProcessed: len(ranks),
		Summary:        "recomputed PageRank over the full graph",
	}, nil
}

// communityTask groups nodes into communities via label propagation —
// also hourly, also a full-graph scan.
type communityTask struct {
	state    *knowledge.State
	interval time.Duration
}

func (t *communityTask) Name() string                    { return "community-detection" }
func (t *communityTask) Priority() scheduler.Priority     { return scheduler.P2 }
func (t *communityTask) EstimatedDuration() time.Duration { return 500 * time.Millisecond }
func (t *communityTask) ShouldRun(lastRun *time.Time, _ scheduler.KnowledgeState) bool {
	return scheduler.IntervalGate(lastRun, t.interval)
}
func (t *communityTask) Execute(ks scheduler.KnowledgeState) (scheduler.Result, error) {
	labels := compute.LabelPropagation(ks.Graph(), compute.DefaultCommunityConfig())
	sizes := compute.CommunitySizes(labels)
	t.state.StoreResult("communities", labels)
	t.state.StoreResult("community-sizes", sizes)
	return scheduler.Result{
		TaskName:       t.Name(),
		ItemsProcessed: len(labels),
		Summary:        "regrouped the graph into communities via label propagation",
	}, nil
}
