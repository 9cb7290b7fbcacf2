package session

import (
	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/conclusion"
	"github.com/KaramelBytes/segmenta/internal/dataset"
	"github.com/KaramelBytes/segmenta/internal/preprocess"
)

// Stage is the furthest artifact a session holds.
type Stage int

const (
	StageEmpty Stage = iota
	StageLoaded
	StagePreprocessed
	StageFitted
	StageAnalyzed
	StageConcluded
)

var stageNames = [...]string{"empty", "loaded", "preprocessed", "fitted", "analyzed", "concluded"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Upload is the raw file kept so a different sheet can be loaded later.
type Upload struct {
	Filename string
	Content  []byte
}

// State holds one session's pipeline artifacts. Fields are read directly; writes
// go through the Set methods, which drop every artifact downstream of the one
// being replaced.
type State struct {
	Upload  *Upload
	Dataset *dataset.Dataset
	Sheets  []string

	Selection []string
	Matrix    *preprocess.Matrix
	Report    *preprocess.Report

	Engine *cluster.Engine
	Fit    *cluster.FitReport
	KInfo  *cluster.Selection

	Stats      cluster.Statistics
	Conclusion *conclusion.Summary
}

// Stage reports the furthest artifact present.
func (s *State) Stage() Stage {
	switch {
	case s.Conclusion != nil:
		return StageConcluded
	case s.Stats != nil:
		return StageAnalyzed
	case s.Fit != nil:
		return StageFitted
	case s.Matrix != nil:
		return StagePreprocessed
	case s.Dataset != nil:
		return StageLoaded
	}
	return StageEmpty
}

// SetDataset stores a newly loaded dataset and invalidates everything after it.
func (s *State) SetDataset(up *Upload, ds *dataset.Dataset, sheets []string) {
	s.Upload, s.Dataset, s.Sheets = up, ds, sheets
	s.clearFrom(StagePreprocessed)
}

// SetMatrix stores the preprocessed matrix and invalidates the fit.
func (s *State) SetMatrix(selection []string, m *preprocess.Matrix, rep *preprocess.Report) {
	s.Selection, s.Matrix, s.Report = selection, m, rep
	s.clearFrom(StageFitted)
}

// SetFit stores a fitted engine and invalidates statistics and conclusions.
func (s *State) SetFit(e *cluster.Engine, rep *cluster.FitReport, sel *cluster.Selection) {
	s.Engine, s.Fit, s.KInfo = e, rep, sel
	s.clearFrom(StageAnalyzed)
}

// SetStats stores cluster statistics and invalidates the conclusion.
func (s *State) SetStats(stats cluster.Statistics) {
	s.Stats = stats
	s.clearFrom(StageConcluded)
}

// SetConclusion stores the narrative summary.
func (s *State) SetConclusion(sum *conclusion.Summary) { s.Conclusion = sum }

// Reset drops every artifact.
func (s *State) Reset() { *s = State{} }

func (s *State) clearFrom(st Stage) {
	if st <= StagePreprocessed {
		s.Selection, s.Matrix, s.Report = nil, nil, nil
	}
	if st <= StageFitted {
		s.Engine, s.Fit, s.KInfo = nil, nil, nil
	}
	if st <= StageAnalyzed {
		s.Stats = nil
	}
	if st <= StageConcluded {
		s.Conclusion = nil
	}
}
