package compute

import (
	"testing"

	"github.com/trakrail/eisenbahn/pkg/idgen"
)

func nodeAt(n byte) idgen.ID {
	var raw [16]byte
	raw[15] = n
	id, _ := idgen.Parse(idgen.ID(raw).String())
	return id
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-10
}

func TestKMeansInitializationUsesFirstKPoints(t *testing.T) {
	km := NewStreamingKMeans(3, 2)
	km.Update(nodeAt(1), []float64{0, 0})
	km.Update(nodeAt(2), []float64{10, 10})
	km.Update(nodeAt(3), []float64{20, 20})

	if len(km.Centroids()) != 3 {
		t.Fatalf("expected 3 centroids, got %d", len(km.Centroids()))
	}
	assertCluster(t, km, nodeAt(1), 0)
	assertCluster(t, km, nodeAt(2), 1)
	assertCluster(t, km, nodeAt(3), 2)
}

func TestKMeansAssignsToNearestCentroid(t *testing.T) {
	km := NewStreamingKMeans(2, 2)
	km.Update(nodeAt(1), []float64{0, 0})
	km.Update(nodeAt(2), []float64{10, 10})

	km.Update(nodeAt(3), []float64{1, 1})
	assertCluster(t, km, nodeAt(3), 0)

	km.Update(nodeAt(4), []float64{9, 9})
	assertCluster(t, km, nodeAt(4), 1)
}

func TestKMeansCentroidUpdatesIncrementally(t *testing.T) {
	km := NewStreamingKMeans(1, 2)
	km.Update(nodeAt(1), []float64{0, 0})
	if c := km.Centroids()[0]; !approxEqual(c[0], 0) || !approxEqual(c[1], 0) {
		t.Fatalf("unexpected initial centroid %v", c)
	}

	km.Update(nodeAt(2), []float64{2, 4})
	c := km.Centroids()[0]
	if !approxEqual(c[0], 1.0) || !approxEqual(c[1], 2.0) {
		t.Fatalf("expected (1,2) after 2 points, got %v", c)
	}

	km.Update(nodeAt(3), []float64{6, 6})
	c = km.Centroids()[0]
	if !approxEqual(c[0], 8.0/3.0) || !approxEqual(c[1], 10.0/3.0) {
		t.Fatalf("expected (8/3,10/3) after 3 points, got %v", c)
	}
}

func TestKMeansClusterCountsAreCorrect(t *testing.T) {
	km := NewStreamingKMeans(2, 2)
	km.Update(nodeAt(1), []float64{0, 0})
	km.Update(nodeAt(2), []float64{10, 10})
	km.Update(nodeAt(3), []float64{0.5, 0.5})
	km.Update(nodeAt(4), []float64{0.1, 0.1})
	km.Update(nodeAt(5), []float64{9.5, 9.5})

	counts := km.ClusterCounts()
	if counts[0] != 3 || counts[1] != 2 {
		t.Fatalf("expected counts [3,2], got %v", counts)
	}
}

func TestKMeansReassignmentUpdatesCluster(t *testing.T) {
	km := NewStreamingKMeans(2, 1)
	km.Update(nodeAt(1), []float64{0})
	km.Update(nodeAt(2), []float64{100})

	km.Update(nodeAt(3), []float64{1})
	assertCluster(t, km, nodeAt(3), 0)

	km.Update(nodeAt(3), []float64{99})
	assertCluster(t, km, nodeAt(3), 1)
}

func TestKMeansSingleCluster(t *testing.T) {
	km := NewStreamingKMeans(1, 3)
	for i := 0; i < 100; i++ {
		km.Update(nodeAt(byte(i)), []float64{1, 2, 3})
	}
	if len(km.Centroids()) != 1 {
		t.Fatalf("expected 1 centroid, got %d", len(km.Centroids()))
	}
	if counts := km.ClusterCounts(); len(counts) != 1 || counts[0] != 100 {
		t.Fatalf("expected count [100], got %v", counts)
	}
	c := km.Centroids()[0]
	if !approxEqual(c[0], 1) || !approxEqual(c[1], 2) || !approxEqual(c[2], 3) {
		t.Fatalf("unexpected centroid %v", c)
	}
}

func assertCluster(t *testing.T, km *StreamingKMeans, node idgen.ID, want ClusterID) {
	t.Helper()
	got, ok := km.Cluster(node)
	if !ok {
		t.Fatalf("node %s has no assignment", node)
	}
	if got != want {
		t.Fatalf("expected cluster %d, got %d", want, got)
	}
}
