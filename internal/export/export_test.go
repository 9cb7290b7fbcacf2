package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/segmenta/internal/cluster"
)

func ptr(v float64) *float64 { return &v }

func sampleStats() cluster.Statistics {
	nan := math.NaN()
	return cluster.Statistics{
		{ID: 0, Size: 3, Percentage: 100, Features: []string{"a", "b"},
			Centroid: []float64{1, 2}, Mean: []float64{1, 2}, Std: []float64{0.5, math.Inf(1)}},
		{ID: 1, Size: 0, Percentage: 0, Features: []string{"a", "b"},
			Centroid: []float64{4, 4}, Mean: []float64{nan, nan}, Std: []float64{nan, nan}},
	}
}

func TestFloat_MarshalJSON(t *testing.T) {
	b, err := json.Marshal([]Float{1.5, Float(math.NaN()), Float(math.Inf(-1)), 0})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, null, 0]`, string(b))
	assert.Equal(t, "", Float(math.NaN()).String())
	assert.Equal(t, "0.25", Float(0.25).String())
}

func TestWriteJSON_NormalizesNaN(t *testing.T) {
	var buf bytes.Buffer
	r := Build(sampleStats(), cluster.Metrics{Silhouette: ptr(0.42)})
	require.NoError(t, Write(&buf, FormatJSON, r))

	var got struct {
		Clusters []struct {
			ClusterID int        `json:"cluster_id"`
			Mean      []*float64 `json:"mean"`
			Std       []*float64 `json:"std"`
		} `json:"clusters"`
		Summary map[string]any `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Clusters, 2)
	assert.Nil(t, got.Clusters[0].Std[1])
	assert.Equal(t, 0.5, *got.Clusters[0].Std[0])
	assert.Nil(t, got.Clusters[1].Mean[0])
	assert.Equal(t, 0.42, got.Summary["silhouette_score"])
	assert.Nil(t, got.Summary["davies_bouldin_index"])
	assert.Contains(t, got.Summary, "davies_bouldin_index")
	assert.Equal(t, float64(2), got.Summary["n_clusters"])
}

func TestWriteYAML_NormalizesNaN(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, Build(sampleStats(), cluster.Metrics{})))
	assert.NotContains(t, strings.ToLower(buf.String()), ".nan")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	summary := got["summary"].(map[string]any)
	assert.Nil(t, summary["silhouette_score"])
	assert.Equal(t, 2, summary["n_clusters"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, Build(sampleStats(), cluster.Metrics{Silhouette: ptr(0.5), DaviesBouldin: ptr(0.75)})))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, csvHeader, recs[0])
	assert.Equal(t, []string{"0", "3", "100", "a", "1", "1", "0.5", "0.5", "0.75", "2"}, recs[1])
	assert.Equal(t, "", recs[2][6], "infinite std must be empty")
	assert.Equal(t, []string{"1", "0", "0", "b", "4", "", "", "0.5", "0.75", "2"}, recs[4])
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", &Report{}))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
	assert.Equal(t, "application/json", ContentType(""))
}

func TestViews(t *testing.T) {
	res := &cluster.Results{
		Labels:            []int{0, 1},
		Centroids:         [][]float64{{1}, {math.NaN()}},
		PCAPoints:         []cluster.Point{{X: 1, Y: 0, Label: 0}, {X: -1, Y: 0, Label: 1}},
		CentroidPositions: []cluster.CentroidPosition{{ID: 0, X: 1}, {ID: 1, X: -1}},
	}
	b, err := json.Marshal(ClusteringOf(res))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"centroids":[[1],[null]]`)
	assert.Contains(t, string(b), `"metrics":{"silhouette":null,"davies_bouldin":null}`)

	k := KInfoOf(&cluster.Selection{Method: cluster.MethodAuto, K: 3, Scores: map[int]float64{2: 0.4, 3: math.NaN()}})
	b, err = json.Marshal(k)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"auto","selected_k":3,"scores":{"2":0.4,"3":null}}`, string(b))
	assert.Equal(t, []int{2, 3}, SortedKs(map[int]float64{3: 1, 2: 1}))

	fi := FitInfoOf(&cluster.FitReport{K: 1, Inertia: 2.5, Status: "success"})
	b, err = json.Marshal(fi)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"silhouette_score":null`)
}

func TestWriteScatter(t *testing.T) {
	res := &cluster.Results{
		Centroids:         [][]float64{{0}, {1}, {2}},
		PCAPoints:         []cluster.Point{{X: 0, Y: 0, Label: 0}, {X: 1, Y: 1, Label: 1}, {X: 0.5, Y: 1, Label: 1}},
		CentroidPositions: []cluster.CentroidPosition{{ID: 0}, {ID: 1, X: 0.75, Y: 1}, {ID: 2, X: 2, Y: 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteScatter(&buf, res))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}
