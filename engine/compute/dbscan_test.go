package compute

import "testing"

func TestDBSCANFindsTwoDenseClustersAndNoise(t *testing.T) {
	points := []Point{
		{NodeID: nodeAt(1), Features: []float64{0, 0}},
		{NodeID: nodeAt(2), Features: []float64{0.1, 0.1}},
		{NodeID: nodeAt(3), Features: []float64{0.2, 0}},
		{NodeID: nodeAt(4), Features: []float64{10, 10}},
		{NodeID: nodeAt(5), Features: []float64{10.1, 10.1}},
		{NodeID: nodeAt(6), Features: []float64{10.2, 10}},
		{NodeID: nodeAt(7), Features: []float64{50, 50}},
	}
	result := DBSCAN(points, DBSCANConfig{Eps: 1.0, MinPoints: 3})

	if _, ok := result.Noise[nodeAt(7)]; !ok {
		t.Fatalf("expected isolated point to be noise")
	}
	if result.Assignments[nodeAt(1)] != result.Assignments[nodeAt(2)] {
		t.Fatalf("expected cluster 1 points to share a cluster id")
	}
	if result.Assignments[nodeAt(4)] != result.Assignments[nodeAt(5)] {
		t.Fatalf("expected cluster 2 points to share a cluster id")
	}
	if result.Assignments[nodeAt(1)] == result.Assignments[nodeAt(4)] {
		t.Fatalf("expected the two dense clusters to be distinct")
	}
}

func TestDBSCANAllNoiseWhenSparse(t *testing.T) {
	points := []Point{
		{NodeID: nodeAt(1), Features: []float64{0, 0}},
		{NodeID: nodeAt(2), Features: []float64{100, 100}},
	}
	result := DBSCAN(points, DBSCANConfig{Eps: 1.0, MinPoints: 2})
	if len(result.Noise) != 2 {
		t.Fatalf("expected both points to be noise, got %d", len(result.Noise))
	}
}
