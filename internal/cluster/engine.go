// Package cluster partitions a standardized feature matrix with Lloyd's k-means,
// scores the partition and projects it to two dimensions for display.
//
// An Engine is seeded explicitly, so the same matrix, K and seed always produce the
// same labels and centroids.
package cluster

import (
	"log/slog"
	"math/rand/v2"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

const (
	DefaultSeed     uint64 = 42
	DefaultRestarts        = 10
	DefaultMaxIter         = 300
)

// Option configures an Engine.
type Option func(*Engine)

// WithSeed fixes the base seed; restart r uses a PCG stream derived from (seed, r).
func WithSeed(seed uint64) Option { return func(e *Engine) { e.seed = seed } }

// WithRestarts sets the number of k-means++ initializations.
func WithRestarts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.restarts = n
		}
	}
}

// WithMaxIter caps Lloyd iterations per restart.
func WithMaxIter(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIter = n
		}
	}
}

// WithLogger sets the logger used for restart and convergence diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine fits one partition at a time and keeps the latest fit for Results and
// ClusterStatistics. It is not safe for concurrent use.
type Engine struct {
	seed     uint64
	restarts int
	maxIter  int
	log      *slog.Logger

	fit *fitted
}

// New returns an Engine with the default seed, restarts and iteration cap.
func New(opts ...Option) *Engine {
	e := &Engine{
		seed:     DefaultSeed,
		restarts: DefaultRestarts,
		maxIter:  DefaultMaxIter,
		log:      slog.Default().With("component", "cluster"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Seed returns the engine's base seed.
func (e *Engine) Seed() uint64 { return e.seed }

// Fitted reports whether Fit has succeeded at least once.
func (e *Engine) Fitted() bool { return e.fit != nil }

// Metrics holds the partition quality scores. A nil field means the score is
// undefined for this partition, which is different from a score of zero.
type Metrics struct {
	Silhouette    *float64 `json:"silhouette" yaml:"silhouette"`
	DaviesBouldin *float64 `json:"davies_bouldin" yaml:"davies_bouldin"`
}

// Empty reports whether neither score is defined.
func (m Metrics) Empty() bool { return m.Silhouette == nil && m.DaviesBouldin == nil }

// FitReport is the diagnostic summary of a successful Fit.
type FitReport struct {
	K             int      `json:"k" yaml:"k"`
	Silhouette    *float64 `json:"silhouette_score" yaml:"silhouette_score"`
	DaviesBouldin *float64 `json:"davies_bouldin_index" yaml:"davies_bouldin_index"`
	Inertia       float64  `json:"inertia" yaml:"inertia"`
	Iterations    int      `json:"iterations" yaml:"iterations"`
	Restarts      int      `json:"restarts" yaml:"restarts"`
	EmptyClusters int      `json:"empty_clusters" yaml:"empty_clusters"`
	Status        string   `json:"status" yaml:"status"`
}

// Point is one row in the 2-D projection.
type Point struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Label int     `json:"label" yaml:"label"`
}

// CentroidPosition is a centroid in the 2-D projection.
type CentroidPosition struct {
	ID int     `json:"id" yaml:"id"`
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
}

// Results is a copy of the latest fit.
type Results struct {
	Labels            []int              `json:"labels" yaml:"labels"`
	Centroids         [][]float64        `json:"centroids" yaml:"centroids"`
	PCAPoints         []Point            `json:"pca_points" yaml:"pca_points"`
	CentroidPositions []CentroidPosition `json:"centroid_positions" yaml:"centroid_positions"`
	Metrics           Metrics            `json:"metrics" yaml:"metrics"`
}

type fitted struct {
	rows, features int
	labels         []int
	centroids      [][]float64
	metrics        Metrics
	points         []Point
	centroidPos    []CentroidPosition
	report         FitReport
}

// Fit partitions m into k clusters, keeping the restart with the lowest inertia.
// It then scores the partition and computes the 2-D projection. k must lie in
// [1, rows]. A failed Fit leaves the previous fit in place.
func (e *Engine) Fit(m [][]float64, k int) (*FitReport, error) {
	n := len(m)
	if k < 1 || k > n {
		return nil, apperr.New(apperr.ErrInvalidK, "fit", "k=%d outside [1, %d]", k, n)
	}
	p, err := width(m)
	if err != nil {
		return nil, err
	}

	var best *lloydResult
	bestRestart := 0
	for r := 0; r < e.restarts; r++ {
		rng := rand.New(rand.NewPCG(e.seed, uint64(r)))
		res := lloyd(m, kmeansPlusPlus(m, k, rng), e.maxIter)
		e.log.Debug("restart finished", "restart", r, "k", k, "inertia", res.inertia,
			"iterations", res.iterations, "converged", res.converged)
		if best == nil || res.inertia < best.inertia {
			best, bestRestart = res, r
		}
	}

	f := &fitted{rows: n, features: p, labels: best.labels, centroids: best.centroids}
	if k >= 2 {
		distinct := distinctLabels(best.labels)
		if distinct >= 2 {
			if distinct < n {
				s := silhouette(m, best.labels, k)
				f.metrics.Silhouette = &s
			}
			db := daviesBouldin(m, best.labels, k)
			f.metrics.DaviesBouldin = &db
		}
	}
	f.points, f.centroidPos = project(m, best.labels, best.centroids)

	empty := k - distinctLabels(best.labels)
	f.report = FitReport{
		K:             k,
		Silhouette:    f.metrics.Silhouette,
		DaviesBouldin: f.metrics.DaviesBouldin,
		Inertia:       best.inertia,
		Iterations:    best.iterations,
		Restarts:      e.restarts,
		EmptyClusters: empty,
		Status:        "success",
	}
	if empty > 0 {
		e.log.Warn("partition has empty clusters", "k", k, "empty", empty)
	}
	e.log.Debug("fit complete", "k", k, "best_restart", bestRestart, "inertia", best.inertia)
	e.fit = f
	rep := f.report
	return &rep, nil
}

// Results returns the latest fit. It fails with ErrPrecondition before Fit.
func (e *Engine) Results() (*Results, error) {
	if e.fit == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "results", "engine has not been fitted")
	}
	f := e.fit
	out := &Results{
		Labels:            append([]int(nil), f.labels...),
		Centroids:         cloneRows(f.centroids),
		PCAPoints:         append([]Point(nil), f.points...),
		CentroidPositions: append([]CentroidPosition(nil), f.centroidPos...),
		Metrics:           f.metrics,
	}
	return out, nil
}

// Report returns the FitReport of the latest fit.
func (e *Engine) Report() (*FitReport, error) {
	if e.fit == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "results", "engine has not been fitted")
	}
	rep := e.fit.report
	return &rep, nil
}

func width(m [][]float64) (int, error) {
	p := len(m[0])
	if p == 0 {
		return 0, apperr.New(apperr.ErrPreprocessing, "fit", "matrix has no features")
	}
	for i, row := range m {
		if len(row) != p {
			return 0, apperr.New(apperr.ErrPrecondition, "fit", "row %d has %d features, expected %d", i, len(row), p)
		}
	}
	return p, nil
}

func distinctLabels(labels []int) int {
	seen := map[int]struct{}{}
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

func cloneRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
