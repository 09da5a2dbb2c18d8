package compute

import "github.com/trakrail/eisenbahn/pkg/idgen"

// DBSCANConfig parameterizes density-based clustering.
type DBSCANConfig struct {
	Eps       float64
	MinPoints int
}

// DBSCANResult is the outcome of one clustering pass: an assignment from
// point to cluster, and the set of points classified as noise (assigned
// to no cluster at all). Noise membership feeds the dbscan_noise anomaly
// signal directly.
type DBSCANResult struct {
	Assignments map[idgen.ID]ClusterID
	Noise       map[idgen.ID]struct{}
}

// DBSCAN clusters points by density: a point is a core point if at least
// MinPoints other points (including itself) lie within Eps of it; clusters
// grow by transitively absorbing every point density-reachable from a core
// point. Points reachable from no core point are noise.
func DBSCAN(points []Point, cfg DBSCANConfig) DBSCANResult {
	result := DBSCANResult{
		Assignments: make(map[idgen.ID]ClusterID),
		Noise:       make(map[idgen.ID]struct{}),
	}
	n := len(points)
	if n == 0 {
		return result
	}

	visited := make([]bool, n)
	clustered := make([]bool, n)
	var nextCluster ClusterID

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if squaredEuclidean(points[i].Features, points[j].Features) <= cfg.Eps*cfg.Eps {
				out = append(out, j)
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neigh := neighbors(i)
		if len(neigh)+1 < cfg.MinPoints {
			result.Noise[points[i].NodeID] = struct{}{}
			continue
		}

		cluster := nextCluster
		nextCluster++
		result.Assignments[points[i].NodeID] = cluster
		clustered[i] = true
		delete(result.Noise, points[i].NodeID)

		queue := append([]int(nil), neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				jNeigh := neighbors(j)
				if len(jNeigh)+1 >= cfg.MinPoints {
					queue = append(queue, jNeigh...)
				}
			}
			if !clustered[j] {
				clustered[j] = true
				result.Assignments[points[j].NodeID] = cluster
				delete(result.Noise, points[j].NodeID)
			}
		}
	}
	return result
}
