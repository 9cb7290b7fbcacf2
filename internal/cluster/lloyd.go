package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

type lloydResult struct {
	labels     []int
	centroids  [][]float64
	inertia    float64
	iterations int
	converged  bool
}

// kmeansPlusPlus picks k initial centers: the first uniformly, each next one with
// probability proportional to its squared distance from the nearest chosen center.
func kmeansPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), X[rng.IntN(n)]...))
	d2 := make([]float64, n)
	for i := range X {
		d2[i] = sqDist(X[i], centers[0])
	}
	for len(centers) < k {
		sum := floats.Sum(d2)
		idx := 0
		if sum <= 0 {
			// Every point coincides with a center; duplicates are unavoidable.
			idx = rng.IntN(n)
		} else {
			r := rng.Float64() * sum
			acc := 0.0
			idx = n - 1
			for i, w := range d2 {
				acc += w
				if acc > r {
					idx = i
					break
				}
			}
		}
		c := append([]float64(nil), X[idx]...)
		centers = append(centers, c)
		for i := range X {
			if d := sqDist(X[i], c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates centroid updates and reassignment until labels stop changing
// or maxIter updates have run. Centroids always equal the mean of their members
// when it returns converged.
func lloyd(X [][]float64, centroids [][]float64, maxIter int) *lloydResult {
	n := len(X)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	assign(X, centroids, labels)

	res := &lloydResult{}
	for it := 1; it <= maxIter; it++ {
		res.iterations = it
		counts := updateCentroids(X, labels, centroids)
		if reseedEmpty(X, labels, centroids, counts) {
			updateCentroids(X, labels, centroids)
		}
		if !assign(X, centroids, labels) {
			res.converged = true
			break
		}
	}
	for i, x := range X {
		res.inertia += sqDist(x, centroids[labels[i]])
	}
	res.labels = labels
	res.centroids = centroids
	return res
}

// assign moves every row to its nearest centroid; ties go to the lowest id.
// It reports whether any label changed.
func assign(X [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, x := range X {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if d := sqDist(x, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// updateCentroids sets each non-empty centroid to the mean of its members and
// returns member counts. Empty centroids keep their previous position.
func updateCentroids(X [][]float64, labels []int, centroids [][]float64) []int {
	k, p := len(centroids), len(X[0])
	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, p)
	}
	for i, x := range X {
		counts[labels[i]]++
		floats.Add(sums[labels[i]], x)
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
	}
	return counts
}

// reseedEmpty moves each empty centroid onto the row farthest from its own
// centroid, taking that row out of a cluster with more than one member. Rows with
// zero distance are never used, so a cluster stays empty when every row already
// sits on its centroid. It reports whether any label moved.
func reseedEmpty(X [][]float64, labels []int, centroids [][]float64, counts []int) bool {
	moved := false
	used := map[int]bool{}
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farD := -1, 0.0
		for i, x := range X {
			if used[i] || counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(x, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			continue
		}
		used[far] = true
		counts[labels[far]]--
		counts[c]++
		labels[far] = c
		copy(centroids[c], X[far])
		moved = true
	}
	return moved
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for j := range a {
		d := a[j] - b[j]
		s += d * d
	}
	return s
}
