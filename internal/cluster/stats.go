package cluster

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

// ClusterStats describes one cluster id. Mean and Std are computed from member
// rows only; both are NaN vectors for an empty cluster.
type ClusterStats struct {
	ID         int
	Size       int
	Percentage float64
	Centroid   []float64
	Mean       []float64
	Std        []float64
	Features   []string
}

// Statistics is indexed by cluster id.
type Statistics []ClusterStats

// Sizes returns member counts by cluster id.
func (s Statistics) Sizes() []int {
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = c.Size
	}
	return out
}

// ClusterStatistics computes per-cluster size, share, centroid, mean and population
// standard deviation. m must be the matrix passed to Fit; a different shape fails
// with ErrPrecondition.
func (e *Engine) ClusterStatistics(m [][]float64, featureNames []string) (Statistics, error) {
	f := e.fit
	if f == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "statistics", "engine has not been fitted")
	}
	if len(m) != f.rows {
		return nil, apperr.New(apperr.ErrPrecondition, "statistics", "matrix has %d rows, fit used %d", len(m), f.rows)
	}
	if len(featureNames) != f.features {
		return nil, apperr.New(apperr.ErrPrecondition, "statistics", "%d feature names for %d fitted features", len(featureNames), f.features)
	}
	for i, row := range m {
		if len(row) != f.features {
			return nil, apperr.New(apperr.ErrPrecondition, "statistics", "row %d has %d features, fit used %d", i, len(row), f.features)
		}
	}

	k := len(f.centroids)
	members := make([][]int, k)
	for i, l := range f.labels {
		members[l] = append(members[l], i)
	}
	names := append([]string(nil), featureNames...)
	out := make(Statistics, k)
	for c := 0; c < k; c++ {
		cs := ClusterStats{
			ID:         c,
			Size:       len(members[c]),
			Percentage: float64(len(members[c])) / float64(f.rows) * 100,
			Centroid:   append([]float64(nil), f.centroids[c]...),
			Mean:       make([]float64, f.features),
			Std:        make([]float64, f.features),
			Features:   names,
		}
		col := make([]float64, len(members[c]))
		for j := 0; j < f.features; j++ {
			if cs.Size == 0 {
				cs.Mean[j], cs.Std[j] = math.NaN(), math.NaN()
				continue
			}
			for r, i := range members[c] {
				col[r] = m[i][j]
			}
			if cs.Size == 1 {
				cs.Mean[j] = col[0]
				continue
			}
			cs.Mean[j], cs.Std[j] = stat.PopMeanStdDev(col, nil)
		}
		out[c] = cs
	}
	return out, nil
}

// Assignment pairs a row identifier with its cluster id.
type Assignment struct {
	RowID   string `json:"row_id" yaml:"row_id"`
	Cluster int    `json:"cluster" yaml:"cluster"`
}

// Assignments pairs labels with row ids. Rows without an id (rowIDs nil or short)
// are identified by their zero-based index.
func Assignments(labels []int, rowIDs []string) []Assignment {
	out := make([]Assignment, len(labels))
	for i, l := range labels {
		id := strconv.Itoa(i)
		if i < len(rowIDs) {
			id = rowIDs[i]
		}
		out[i] = Assignment{RowID: id, Cluster: l}
	}
	return out
}
