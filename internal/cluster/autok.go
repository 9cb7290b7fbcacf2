package cluster

import (
	"math"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

// Default auto-selection range.
const (
	DefaultKMin = 2
	DefaultKMax = 5
)

// AutoSelectK fits every K in [kMin, kMax] with the engine's seed and options and
// scores each by silhouette (NaN when undefined). The best K has the highest score;
// ties go to the smaller K and an all-NaN map selects kMin. The engine's own fit
// is not modified.
func (e *Engine) AutoSelectK(m [][]float64, kMin, kMax int) (int, map[int]float64, error) {
	n := len(m)
	if kMin < 2 || kMin > kMax || kMax > n {
		return 0, nil, apperr.New(apperr.ErrInvalidK, "auto-k", "invalid range [%d, %d] for %d rows", kMin, kMax, n)
	}
	scores := make(map[int]float64, kMax-kMin+1)
	bestK, bestScore := kMin, math.NaN()
	for k := kMin; k <= kMax; k++ {
		probe := &Engine{seed: e.seed, restarts: e.restarts, maxIter: e.maxIter, log: e.log}
		rep, err := probe.Fit(m, k)
		if err != nil {
			return 0, nil, err
		}
		score := math.NaN()
		if rep.Silhouette != nil {
			score = *rep.Silhouette
		}
		scores[k] = score
		if !math.IsNaN(score) && (math.IsNaN(bestScore) || score > bestScore) {
			bestK, bestScore = k, score
		}
	}
	e.log.Debug("auto-k selected", "k", bestK, "score", bestScore, "range", []int{kMin, kMax})
	return bestK, scores, nil
}

// Selection records how K was chosen.
type Selection struct {
	Method string          `json:"method" yaml:"method"`
	K      int             `json:"selected_k" yaml:"selected_k"`
	Scores map[int]float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
}

const (
	MethodManual = "manual"
	MethodAuto   = "auto"
)
