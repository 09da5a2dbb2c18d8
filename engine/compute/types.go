// Package compute implements the analytics algorithms that run over the
// in-memory knowledge graph and feature streams: graph statistics,
// centrality, community detection, streaming clustering, density-based
// clustering, sequential pattern mining, and anomaly scoring.
package compute

import (
	"time"

	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// ClusterID identifies a StreamingKMeans/DBSCAN cluster.
type ClusterID uint64

// CommunityID identifies a label-propagation community.
type CommunityID uint64

// Result wraps the outcome of running one compute task, matching the
// shape the scheduler reports on a task's completion.
type Result struct {
	TaskName       string
	Duration       time.Duration
	ItemsProcessed int
	Summary        string
}

// Point is one feature vector tied to the node it was computed for.
type Point struct {
	NodeID   idgen.ID
	Features []float64
}
