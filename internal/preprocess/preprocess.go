// Package preprocess converts a Dataset column selection into a dense, standardized
// numeric matrix: missing values are imputed, categorical columns label-encoded,
// then every column is centered and scaled.
package preprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
)

// Matrix is the standardized feature matrix handed to the clustering engine.
type Matrix struct {
	Rows     [][]float64
	Features []string
}

// Dims returns (rows, features).
func (m *Matrix) Dims() (int, int) { return len(m.Rows), len(m.Features) }

// Frame is the imputed and encoded selection before scaling.
type Frame struct {
	Features  []string
	Kinds     []dataset.Kind
	Rows      [][]float64
	Encodings map[string]EncodingMap
	Imputed   map[string]int
	// columns holds the same data column-major.
	columns [][]float64
}

// Column returns feature j as a slice (column-major view).
func (f *Frame) Column(j int) []float64 { return f.columns[j] }

// Report describes a preprocessing run.
type Report struct {
	ProcessedShape [2]int              `json:"processed_shape" yaml:"processed_shape"`
	Columns        []string            `json:"columns" yaml:"columns"`
	Encodings      map[string][]string `json:"encodings" yaml:"encodings"`
	Imputed        map[string]int      `json:"imputed" yaml:"imputed"`
	ZeroVariance   []string            `json:"zero_variance" yaml:"zero_variance"`
	Means          []float64           `json:"-" yaml:"-"`
	Scales         []float64           `json:"-" yaml:"-"`
	Status         string              `json:"status" yaml:"status"`
}

// ProcessedFrame applies imputation and encoding to the selected columns without
// standardization.
func ProcessedFrame(ds *dataset.Dataset, selection []string) (*Frame, error) {
	cols, err := ds.Select(selection)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, &apperr.Error{Kind: apperr.ErrPreprocessing, Stage: "preprocess", Msg: "selection has no columns", Err: apperr.ErrColumnSelection}
	}
	f := &Frame{
		Features:  make([]string, len(cols)),
		Kinds:     make([]dataset.Kind, len(cols)),
		Encodings: map[string]EncodingMap{},
		Imputed:   map[string]int{},
		columns:   make([][]float64, len(cols)),
	}
	for j, c := range cols {
		f.Features[j] = c.Name
		f.Kinds[j] = c.Kind
		switch c.Kind {
		case dataset.KindNumeric:
			vals, filled, err := imputeNumeric(c)
			if err != nil {
				return nil, err
			}
			f.columns[j] = vals
			f.Imputed[c.Name] = filled
		default:
			vals, filled, err := imputeCategorical(c)
			if err != nil {
				return nil, err
			}
			enc := FitEncoding(vals)
			codes := make([]float64, len(vals))
			for i, v := range vals {
				code, _ := enc.Encode(v)
				codes[i] = float64(code)
			}
			f.columns[j] = codes
			f.Encodings[c.Name] = enc
			f.Imputed[c.Name] = filled
		}
	}
	n := ds.Rows()
	f.Rows = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = f.columns[j][i]
		}
		f.Rows[i] = row
	}
	return f, nil
}

// Preprocess imputes, encodes and standardizes the selection. Zero-variance columns
// are centered and left unscaled, so they come out all zero.
func Preprocess(ds *dataset.Dataset, selection []string) (*Matrix, *Report, error) {
	f, err := ProcessedFrame(ds, selection)
	if err != nil {
		return nil, nil, err
	}
	if len(f.Rows) == 0 {
		return nil, nil, apperr.New(apperr.ErrPreprocessing, "preprocess", "dataset has no rows")
	}
	p := len(f.Features)
	rep := &Report{
		Columns:      append([]string(nil), f.Features...),
		Encodings:    map[string][]string{},
		Imputed:      f.Imputed,
		ZeroVariance: []string{},
		Means:        make([]float64, p),
		Scales:       make([]float64, p),
		Status:       "success",
	}
	for name, enc := range f.Encodings {
		rep.Encodings[name] = enc.Classes
	}
	scaled := make([][]float64, p)
	for j := 0; j < p; j++ {
		col := append([]float64(nil), f.columns[j]...)
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.IsNaN(std) || std <= 1e-12*math.Max(1, math.Abs(mean)) {
			std = 1
			rep.ZeroVariance = append(rep.ZeroVariance, f.Features[j])
			for i := range col {
				col[i] = 0
			}
		} else {
			floats.AddConst(-mean, col)
			floats.Scale(1/std, col)
		}
		rep.Means[j] = mean
		rep.Scales[j] = std
		scaled[j] = col
	}
	m := &Matrix{Rows: make([][]float64, len(f.Rows)), Features: rep.Columns}
	for i := range m.Rows {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = scaled[j][i]
		}
		m.Rows[i] = row
	}
	rep.ProcessedShape = [2]int{len(m.Rows), p}
	return m, rep, nil
}
