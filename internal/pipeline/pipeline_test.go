package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/export"
	"github.com/KaramelBytes/segmenta/internal/session"
)

func quietPipeline() *Pipeline {
	return New(DefaultOptions(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// surveyCSV has 100 rows of three numeric answers drawn around three profiles,
// an id column and a categorical region.
func surveyCSV() []byte {
	rng := rand.New(rand.NewPCG(3, 5))
	profiles := [][3]float64{{2, 3, 1}, {8, 7, 9}, {5, 1, 6}}
	regions := []string{"north", "south", "east"}
	var b bytes.Buffer
	b.WriteString("respondent,region,satisfaction,loyalty,spend\n")
	for i := 0; i < 100; i++ {
		p := profiles[i%3]
		fmt.Fprintf(&b, "r%03d,%s,%.3f,%.3f,%.3f\n", i, regions[i%3],
			p[0]+rng.NormFloat64()*0.5, p[1]+rng.NormFloat64()*0.5, p[2]+rng.NormFloat64()*0.5)
	}
	return b.Bytes()
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}

	lr, err := p.Load(st, "survey.csv", surveyCSV(), "")
	require.NoError(t, err)
	assert.Equal(t, "survey.csv", lr.Filename)
	assert.False(t, lr.HasSheets)
	assert.Equal(t, [2]int{100, 5}, lr.Description.Shape)
	assert.Len(t, lr.Description.Preview, 5)

	rep, err := p.Preprocess(st, []string{"satisfaction", "loyalty", "spend"})
	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 3}, rep.ProcessedShape)
	assert.Equal(t, session.StagePreprocessed, st.Stage())

	k := 3
	res, err := p.KMeans(st, KRequest{K: &k})
	require.NoError(t, err)
	assert.Equal(t, cluster.MethodManual, res.KInfo.Method)
	assert.Equal(t, 3, res.FitInfo.K)
	require.Len(t, res.Statistics, 3)
	size, pct := 0, 0.0
	for _, s := range res.Statistics {
		size += s.Size
		pct += s.Percentage
	}
	assert.Equal(t, 100, size)
	assert.InDelta(t, 100.0, pct, 1e-9)
	assert.Equal(t, session.StageAnalyzed, st.Stage())

	// The stored engine reports the same labels used for statistics.
	again, err := st.Engine.Results()
	require.NoError(t, err)
	assert.Equal(t, res.Clustering.Labels, again.Labels)

	sum, err := p.Conclude(st)
	require.NoError(t, err)
	assert.Contains(t, sum.Text, "Clusters found: 3")
	assert.Len(t, sum.Clusters, 3)
	assert.Equal(t, session.StageConcluded, st.Stage())

	out, err := p.Export(st)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Summary.NClusters)
	require.NotNil(t, out.Summary.Silhouette)
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatCSV, out))

	pairs, err := p.Assignments(st, "respondent")
	require.NoError(t, err)
	require.Len(t, pairs, 100)
	assert.Equal(t, "r000", pairs[0].RowID)
	assert.Equal(t, res.Clustering.Labels[99], pairs[99].Cluster)
}

func TestPipeline_AutoK(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}
	_, err := p.Load(st, "survey.csv", surveyCSV(), "")
	require.NoError(t, err)
	_, err = p.Preprocess(st, []string{"satisfaction", "loyalty", "spend"})
	require.NoError(t, err)

	res, err := p.KMeans(st, KRequest{AutoK: true})
	require.NoError(t, err)
	assert.Equal(t, cluster.MethodAuto, res.KInfo.Method)
	assert.Equal(t, 3, res.KInfo.K)
	assert.Len(t, res.KInfo.Scores, 4)
	assert.Equal(t, 3, res.FitInfo.K)

	_, err = p.KMeans(st, KRequest{AutoK: true, KMin: 1, KMax: 3})
	assert.ErrorIs(t, err, apperr.ErrInvalidK)
}

func TestPipeline_DefaultK(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}
	_, err := p.Load(st, "survey.csv", surveyCSV(), "")
	require.NoError(t, err)
	_, err = p.Preprocess(st, nil)
	require.NoError(t, err)
	res, err := p.KMeans(st, KRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.KInfo.K)
}

func TestPipeline_Preconditions(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}

	_, err := p.Preprocess(st, nil)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.KMeans(st, KRequest{})
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.Conclude(st)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.Export(st)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.Assignments(st, "")
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.SelectSheet(st, "Sheet1")
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.Sheets(st)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
	_, err = p.Describe(st)
	assert.ErrorIs(t, err, apperr.ErrPrecondition)
}

func TestPipeline_FailuresKeepEarlierArtifacts(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}
	_, err := p.Load(st, "survey.csv", surveyCSV(), "")
	require.NoError(t, err)
	_, err = p.Preprocess(st, []string{"satisfaction", "spend"})
	require.NoError(t, err)
	k := 2
	_, err = p.KMeans(st, KRequest{K: &k})
	require.NoError(t, err)
	fit := st.Fit

	bad := 101
	_, err = p.KMeans(st, KRequest{K: &bad})
	assert.ErrorIs(t, err, apperr.ErrInvalidK)
	assert.Same(t, fit, st.Fit)

	_, err = p.Preprocess(st, []string{"nope"})
	assert.ErrorIs(t, err, apperr.ErrColumnSelection)
	assert.NotNil(t, st.Matrix)
	assert.Same(t, fit, st.Fit)

	_, err = p.Load(st, "survey.pdf", []byte("x"), "")
	assert.ErrorIs(t, err, apperr.ErrFormat)
	assert.NotNil(t, st.Dataset)
	assert.Same(t, fit, st.Fit)

	_, err = p.Assignments(st, "missing")
	assert.ErrorIs(t, err, apperr.ErrColumnSelection)
}

func TestPipeline_NewUploadInvalidatesDownstream(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}
	_, err := p.Load(st, "survey.csv", surveyCSV(), "")
	require.NoError(t, err)
	_, err = p.Preprocess(st, nil)
	require.NoError(t, err)

	_, err = p.SelectSheet(st, "ignored")
	require.NoError(t, err)
	assert.Nil(t, st.Matrix)
	assert.Equal(t, session.StageLoaded, st.Stage())

	sheets, err := p.Sheets(st)
	require.NoError(t, err)
	assert.Empty(t, sheets)
}

func TestPipeline_AssignmentsFallBackToIndex(t *testing.T) {
	p := quietPipeline()
	st := &session.State{}
	csv := "id,x\na,1\n,2\nc,10\nd,11\n"
	_, err := p.Load(st, "t.csv", []byte(csv), "")
	require.NoError(t, err)
	_, err = p.Preprocess(st, []string{"x"})
	require.NoError(t, err)
	k := 2
	_, err = p.KMeans(st, KRequest{K: &k})
	require.NoError(t, err)

	pairs, err := p.Assignments(st, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "1", "c", "d"}, []string{pairs[0].RowID, pairs[1].RowID, pairs[2].RowID, pairs[3].RowID})
	assert.Equal(t, pairs[0].Cluster, pairs[1].Cluster)
	assert.NotEqual(t, pairs[1].Cluster, pairs[2].Cluster)

	byIndex, err := p.Assignments(st, "")
	require.NoError(t, err)
	assert.Equal(t, "3", byIndex[3].RowID)
}
