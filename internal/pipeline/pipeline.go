// Package pipeline runs the segmentation stages against a session's state. Each
// method validates its upstream artifact, runs one stage, and stores the result
// only on success, so a failed stage never disturbs what came before it.
package pipeline

import (
	"log/slog"
	"strconv"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/conclusion"
	"github.com/KaramelBytes/segmenta/internal/dataset"
	"github.com/KaramelBytes/segmenta/internal/export"
	"github.com/KaramelBytes/segmenta/internal/parser"
	"github.com/KaramelBytes/segmenta/internal/preprocess"
	"github.com/KaramelBytes/segmenta/internal/session"
)

// Options are the clustering defaults applied to every request.
type Options struct {
	DefaultK int
	KMin     int
	KMax     int
	Seed     uint64
	Restarts int
	MaxIter  int
	// Number fixes the decimal/thousands separators; zero values auto-detect.
	Number   dataset.Options
}

// DefaultOptions matches the built-in configuration defaults.
func DefaultOptions() Options {
	return Options{
		DefaultK: 3,
		KMin:     cluster.DefaultKMin,
		KMax:     cluster.DefaultKMax,
		Seed:     cluster.DefaultSeed,
		Restarts: cluster.DefaultRestarts,
		MaxIter:  cluster.DefaultMaxIter,
	}
}

// Pipeline is stateless; all artifacts live in the session.State passed in.
type Pipeline struct {
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
}

// New returns a Pipeline. A nil logger uses slog.Default.
func New(opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{opts: opts, base: logger, logger: logger.With("component", "pipeline")}
}

// LoadResult is returned by Load and SelectSheet.
type LoadResult struct {
	Filename    string              `json:"filename" yaml:"filename"`
	Sheet       string              `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Description dataset.Description `json:"info" yaml:"info"`
	// HasSheets is true when the workbook offers more than one sheet to choose from.
	HasSheets   bool                `json:"has_sheets" yaml:"has_sheets"`
}

// Load parses an upload and makes it the session's dataset.
func (p *Pipeline) Load(st *session.State, filename string, content []byte, sheet string) (*LoadResult, error) {
	ds, sheets, err := parser.LoadWithOptions(content, filename, sheet, p.opts.Number)
	if err != nil {
		return nil, err
	}
	st.SetDataset(&session.Upload{Filename: filename, Content: content}, ds, sheets)
	p.logger.Info("dataset loaded", "file", ds.Name, "sheet", ds.Sheet, "rows", ds.Rows(), "columns", len(ds.Columns))
	return p.loadResult(st), nil
}

// SelectSheet reloads the session's upload from another sheet.
func (p *Pipeline) SelectSheet(st *session.State, sheet string) (*LoadResult, error) {
	if st.Upload == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "select-sheet", "no file uploaded")
	}
	return p.Load(st, st.Upload.Filename, st.Upload.Content, sheet)
}

func (p *Pipeline) loadResult(st *session.State) *LoadResult {
	return &LoadResult{
		Filename:    st.Dataset.Name,
		Sheet:       st.Dataset.Sheet,
		Description: dataset.Describe(st.Dataset, st.Sheets),
		HasSheets:   len(st.Sheets) > 1,
	}
}

// Describe returns column metadata and the preview of the loaded dataset.
func (p *Pipeline) Describe(st *session.State) (dataset.Description, error) {
	if st.Dataset == nil {
		return dataset.Description{}, apperr.New(apperr.ErrPrecondition, "describe", "no dataset loaded")
	}
	return dataset.Describe(st.Dataset, st.Sheets), nil
}

// Sheets lists the worksheets of the uploaded workbook.
func (p *Pipeline) Sheets(st *session.State) ([]parser.SheetInfo, error) {
	if st.Upload == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "sheets", "no file uploaded")
	}
	return parser.SheetsInfo(st.Upload.Content, st.Upload.Filename)
}

// Preprocess builds the standardized matrix from the selected columns.
func (p *Pipeline) Preprocess(st *session.State, selection []string) (*preprocess.Report, error) {
	if st.Dataset == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "preprocess", "no dataset loaded")
	}
	m, rep, err := preprocess.Preprocess(st.Dataset, selection)
	if err != nil {
		return nil, err
	}
	st.SetMatrix(append([]string(nil), selection...), m, rep)
	p.logger.Info("preprocessed", "rows", rep.ProcessedShape[0], "features", rep.ProcessedShape[1],
		"zero_variance", len(rep.ZeroVariance))
	return rep, nil
}

// KRequest selects K manually (K, or the default when nil) or automatically over
// [KMin, KMax] (zero bounds take the configured range).
type KRequest struct {
	K     *int `json:"k"`
	AutoK bool `json:"auto_k"`
	KMin  int  `json:"k_min"`
	KMax  int  `json:"k_max"`
}

// KMeansResult is everything the clustering stage produces.
type KMeansResult struct {
	KInfo      cluster.Selection
	FitInfo    *cluster.FitReport
	Clustering *cluster.Results
	Statistics cluster.Statistics
}

// KMeans fits the session's matrix and computes cluster statistics.
func (p *Pipeline) KMeans(st *session.State, req KRequest) (*KMeansResult, error) {
	if st.Matrix == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "kmeans", "data has not been preprocessed")
	}
	m := st.Matrix
	engine := p.engine()
	sel := cluster.Selection{Method: cluster.MethodManual, K: p.opts.DefaultK}
	if req.AutoK {
		lo, hi := req.KMin, req.KMax
		if lo == 0 {
			lo = p.opts.KMin
		}
		if hi == 0 {
			hi = min(p.opts.KMax, len(m.Rows))
		}
		k, scores, err := engine.AutoSelectK(m.Rows, lo, hi)
		if err != nil {
			return nil, err
		}
		sel = cluster.Selection{Method: cluster.MethodAuto, K: k, Scores: scores}
	} else if req.K != nil {
		sel.K = *req.K
	}

	rep, err := engine.Fit(m.Rows, sel.K)
	if err != nil {
		return nil, err
	}
	res, err := engine.Results()
	if err != nil {
		return nil, err
	}
	stats, err := engine.ClusterStatistics(m.Rows, m.Features)
	if err != nil {
		return nil, err
	}
	st.SetFit(engine, rep, &sel)
	st.SetStats(stats)
	p.logger.Info("clustered", "method", sel.Method, "k", sel.K, "inertia", rep.Inertia)
	return &KMeansResult{KInfo: sel, FitInfo: rep, Clustering: res, Statistics: stats}, nil
}

func (p *Pipeline) engine() *cluster.Engine {
	return cluster.New(
		cluster.WithSeed(p.opts.Seed),
		cluster.WithRestarts(p.opts.Restarts),
		cluster.WithMaxIter(p.opts.MaxIter),
		cluster.WithLogger(p.base.With("component", "cluster")),
	)
}

// Conclude renders the narrative summary for the session's statistics.
func (p *Pipeline) Conclude(st *session.State) (*conclusion.Summary, error) {
	if st.Stats == nil || st.Fit == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "conclusion", "no clustering results")
	}
	sum := conclusion.Summarize(st.Stats, metricsOf(st.Fit))
	st.SetConclusion(&sum)
	return &sum, nil
}

// Export flattens the session's statistics and scores.
func (p *Pipeline) Export(st *session.State) (*export.Report, error) {
	if st.Stats == nil || st.Fit == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "export", "no clustering results")
	}
	return export.Build(st.Stats, metricsOf(st.Fit)), nil
}

// Assignments pairs each row's cluster with the value of idColumn, or the row
// index when idColumn is empty. Missing id cells fall back to the row index.
func (p *Pipeline) Assignments(st *session.State, idColumn string) ([]cluster.Assignment, error) {
	if st.Engine == nil || st.Dataset == nil {
		return nil, apperr.New(apperr.ErrPrecondition, "persist", "no clustering results")
	}
	res, err := st.Engine.Results()
	if err != nil {
		return nil, err
	}
	var ids []string
	if idColumn != "" {
		col, ok := st.Dataset.Column(idColumn)
		if !ok {
			return nil, apperr.New(apperr.ErrColumnSelection, "persist", "unknown id column %q", idColumn)
		}
		ids = make([]string, col.Len())
		for i, v := range col.Values {
			if col.IsMissing(i) {
				v = strconv.Itoa(i)
			}
			ids[i] = v
		}
	}
	return cluster.Assignments(res.Labels, ids), nil
}

func metricsOf(rep *cluster.FitReport) cluster.Metrics {
	return cluster.Metrics{Silhouette: rep.Silhouette, DaviesBouldin: rep.DaviesBouldin}
}
