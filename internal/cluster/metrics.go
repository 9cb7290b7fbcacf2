package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// silhouette is the mean over rows of (b-a)/max(a,b), where a is the mean distance
// to the row's own cluster and b the smallest mean distance to another non-empty
// cluster. Rows in singleton clusters score 0.
func silhouette(X [][]float64, labels []int, k int) float64 {
	n := len(X)
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	sums := make([]float64, k)
	total := 0.0
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(X[i], X[j], 2)
		}
		own := labels[i]
		if sizes[own] < 2 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if m := sums[c] / float64(sizes[c]); m < b {
				b = m
			}
		}
		if den := math.Max(a, b); den > 0 && !math.IsInf(b, 1) {
			total += (b - a) / den
		}
	}
	return total / float64(n)
}

// daviesBouldin averages, over non-empty clusters, the worst ratio of summed mean
// intra-cluster distances to the distance between the two centroids. Pairs with
// coincident centroids are skipped.
func daviesBouldin(X [][]float64, labels []int, k int) float64 {
	p := len(X[0])
	sizes := make([]int, k)
	centers := make([][]float64, k)
	for c := range centers {
		centers[c] = make([]float64, p)
	}
	for i, x := range X {
		sizes[labels[i]]++
		floats.Add(centers[labels[i]], x)
	}
	for c := range centers {
		if sizes[c] > 0 {
			floats.Scale(1/float64(sizes[c]), centers[c])
		}
	}
	scatter := make([]float64, k)
	for i, x := range X {
		scatter[labels[i]] += floats.Distance(x, centers[labels[i]], 2)
	}
	present := 0
	total := 0.0
	for c := 0; c < k; c++ {
		if sizes[c] == 0 {
			continue
		}
		scatter[c] /= float64(sizes[c])
		present++
	}
	for c := 0; c < k; c++ {
		if sizes[c] == 0 {
			continue
		}
		worst := 0.0
		for o := 0; o < k; o++ {
			if o == c || sizes[o] == 0 {
				continue
			}
			d := floats.Distance(centers[c], centers[o], 2)
			if d == 0 {
				continue
			}
			if r := (scatter[c] + scatter[o]) / d; r > worst {
				worst = r
			}
		}
		total += worst
	}
	if present == 0 {
		return 0
	}
	return total / float64(present)
}
