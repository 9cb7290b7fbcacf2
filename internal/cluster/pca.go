package cluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// project maps rows and centroids onto the first two principal components of X.
// Components are sign-normalized so their largest loading is positive. When X has
// fewer than two usable components the missing coordinates are 0.
func project(X [][]float64, labels []int, centroids [][]float64) ([]Point, []CentroidPosition) {
	n, p := len(X), len(X[0])
	points := make([]Point, n)
	for i := range points {
		points[i].Label = labels[i]
	}
	pos := make([]CentroidPosition, len(centroids))
	for c := range pos {
		pos[c].ID = c
	}
	if n < 2 {
		return points, pos
	}

	data := mat.NewDense(n, p, nil)
	for i, row := range X {
		data.SetRow(i, row)
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return points, pos
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, cols := vecs.Dims()
	ncomp := min(2, cols)
	comps := make([][]float64, ncomp)
	for c := 0; c < ncomp; c++ {
		comps[c] = mat.Col(nil, c, &vecs)
		flipSign(comps[c])
	}

	means := make([]float64, p)
	for j := 0; j < p; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	proj := func(x []float64) (float64, float64) {
		var xy [2]float64
		for c, v := range comps {
			s := 0.0
			for j := range x {
				s += (x[j] - means[j]) * v[j]
			}
			xy[c] = s
		}
		return xy[0], xy[1]
	}
	for i, x := range X {
		points[i].X, points[i].Y = proj(x)
	}
	for c, ctr := range centroids {
		pos[c].X, pos[c].Y = proj(ctr)
	}
	return points, pos
}

func flipSign(v []float64) {
	big := 0
	for j := range v {
		if math.Abs(v[j]) > math.Abs(v[big]) {
			big = j
		}
	}
	if v[big] < 0 {
		for j := range v {
			v[j] = -v[j]
		}
	}
}
