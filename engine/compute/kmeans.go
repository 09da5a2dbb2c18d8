package compute

import (
	"fmt"
	"math"

	"github.com/trakrail/eisenbahn/pkg/idgen"
)

// StreamingKMeans processes one feature vector at a time, assigning it to
// the nearest centroid and updating that centroid incrementally.
// Centroids are initialized lazily from the first k distinct points. Meant
// for the hot ingest path: each update is O(k*dim), no batching.
type StreamingKMeans struct {
	k         int
	dim       int
	centroids [][]float64
	counts    []int
	assigned  map[idgen.ID]ClusterID
}

// NewStreamingKMeans builds a streaming k-means instance. Panics if k or
// dim is zero — misconfiguration here indicates a bug, not runtime data.
func NewStreamingKMeans(k, dim int) *StreamingKMeans {
	if k < 1 {
		panic("compute: k must be at least 1")
	}
	if dim < 1 {
		panic("compute: dim must be at least 1")
	}
	return &StreamingKMeans{
		k:        k,
		dim:      dim,
		assigned: make(map[idgen.ID]ClusterID),
	}
}

// Update processes a single point. During initialization (fewer than k
// centroids seen so far) the point becomes a new centroid outright.
// Afterward it is assigned to the nearest centroid, which is updated with
// the online mean formula c += (x - c) / n. Reassigning a previously seen
// node moves it to its new nearest cluster but never decrements the old
// cluster's count — cluster_counts tracks total assignments ever made,
// not current membership.
func (km *StreamingKMeans) Update(node idgen.ID, features []float64) error {
	if len(features) != km.dim {
		return fmt.Errorf("compute: feature vector length mismatch: expected %d, got %d", km.dim, len(features))
	}

	if len(km.centroids) < km.k {
		cluster := ClusterID(len(km.centroids))
		point := make([]float64, km.dim)
		copy(point, features)
		km.centroids = append(km.centroids, point)
		km.counts = append(km.counts, 1)
		km.assigned[node] = cluster
		return nil
	}

	nearest := km.nearestCentroid(features)
	km.counts[nearest]++
	n := float64(km.counts[nearest])
	centroid := km.centroids[nearest]
	for i, x := range features {
		centroid[i] += (x - centroid[i]) / n
	}
	km.assigned[node] = ClusterID(nearest)
	return nil
}

// Cluster returns the current assignment for node, if seen.
func (km *StreamingKMeans) Cluster(node idgen.ID) (ClusterID, bool) {
	c, ok := km.assigned[node]
	return c, ok
}

// Centroids returns the current centroid vectors.
func (km *StreamingKMeans) Centroids() [][]float64 {
	return km.centroids
}

// ClusterCounts returns the number of assignments ever made to each
// cluster.
func (km *StreamingKMeans) ClusterCounts() []int {
	out := make([]int, len(km.counts))
	copy(out, km.counts)
	return out
}

func (km *StreamingKMeans) nearestCentroid(point []float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range km.centroids {
		d := squaredEuclidean(c, point)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
