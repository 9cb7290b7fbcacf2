package export

import (
	"sort"

	"github.com/KaramelBytes/segmenta/internal/cluster"
)

// Point mirrors cluster.Point with normalized coordinates.
type Point struct {
	X     Float `json:"x" yaml:"x"`
	Y     Float `json:"y" yaml:"y"`
	Label int   `json:"label" yaml:"label"`
}

// CentroidPosition mirrors cluster.CentroidPosition.
type CentroidPosition struct {
	ID int   `json:"id" yaml:"id"`
	X  Float `json:"x" yaml:"x"`
	Y  Float `json:"y" yaml:"y"`
}

// Metrics mirrors cluster.Metrics.
type Metrics struct {
	Silhouette    *Float `json:"silhouette" yaml:"silhouette"`
	DaviesBouldin *Float `json:"davies_bouldin" yaml:"davies_bouldin"`
}

// Clustering is the serializable form of cluster.Results.
type Clustering struct {
	Labels            []int              `json:"labels" yaml:"labels"`
	Centroids         [][]Float          `json:"centroids" yaml:"centroids"`
	PCAPoints         []Point            `json:"pca_points" yaml:"pca_points"`
	CentroidPositions []CentroidPosition `json:"centroid_positions" yaml:"centroid_positions"`
	Metrics           Metrics            `json:"metrics" yaml:"metrics"`
}

// FitInfo is the serializable form of cluster.FitReport.
type FitInfo struct {
	K             int    `json:"k" yaml:"k"`
	Silhouette    *Float `json:"silhouette_score" yaml:"silhouette_score"`
	DaviesBouldin *Float `json:"davies_bouldin_index" yaml:"davies_bouldin_index"`
	Inertia       Float  `json:"inertia" yaml:"inertia"`
	Iterations    int    `json:"iterations" yaml:"iterations"`
	Restarts      int    `json:"restarts" yaml:"restarts"`
	EmptyClusters int    `json:"empty_clusters" yaml:"empty_clusters"`
	Status        string `json:"status" yaml:"status"`
}

// KInfo is the serializable form of cluster.Selection.
type KInfo struct {
	Method string        `json:"method" yaml:"method"`
	K      int           `json:"selected_k" yaml:"selected_k"`
	Scores map[int]Float `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// ClusteringOf converts fit results.
func ClusteringOf(r *cluster.Results) Clustering {
	out := Clustering{
		Labels:            r.Labels,
		Centroids:         make([][]Float, len(r.Centroids)),
		PCAPoints:         make([]Point, len(r.PCAPoints)),
		CentroidPositions: make([]CentroidPosition, len(r.CentroidPositions)),
		Metrics:           Metrics{Silhouette: Ptr(r.Metrics.Silhouette), DaviesBouldin: Ptr(r.Metrics.DaviesBouldin)},
	}
	for i, c := range r.Centroids {
		out.Centroids[i] = Floats(c)
	}
	for i, p := range r.PCAPoints {
		out.PCAPoints[i] = Point{X: Float(p.X), Y: Float(p.Y), Label: p.Label}
	}
	for i, c := range r.CentroidPositions {
		out.CentroidPositions[i] = CentroidPosition{ID: c.ID, X: Float(c.X), Y: Float(c.Y)}
	}
	return out
}

// FitInfoOf converts a fit report.
func FitInfoOf(r *cluster.FitReport) FitInfo {
	return FitInfo{
		K:             r.K,
		Silhouette:    Ptr(r.Silhouette),
		DaviesBouldin: Ptr(r.DaviesBouldin),
		Inertia:       Float(r.Inertia),
		Iterations:    r.Iterations,
		Restarts:      r.Restarts,
		EmptyClusters: r.EmptyClusters,
		Status:        r.Status,
	}
}

// KInfoOf converts a K selection.
func KInfoOf(s *cluster.Selection) KInfo {
	out := KInfo{Method: s.Method, K: s.K}
	if len(s.Scores) > 0 {
		out.Scores = make(map[int]Float, len(s.Scores))
		for k, v := range s.Scores {
			out.Scores[k] = Float(v)
		}
	}
	return out
}

// SortedKs returns the K values of a score map in ascending order.
func SortedKs(scores map[int]float64) []int {
	ks := make([]int, 0, len(scores))
	for k := range scores {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}
