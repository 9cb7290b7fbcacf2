package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/utils"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// ClusterRow is the flattened statistics of one cluster.
type ClusterRow struct {
	ClusterID  int      `json:"cluster_id" yaml:"cluster_id"`
	Size       int      `json:"size" yaml:"size"`
	Percentage Float    `json:"percentage" yaml:"percentage"`
	Features   []string `json:"features" yaml:"features"`
	Centroid   []Float  `json:"centroid" yaml:"centroid"`
	Mean       []Float  `json:"mean" yaml:"mean"`
	Std        []Float  `json:"std" yaml:"std"`
}

// Summary carries the global scores. Absent scores marshal as null.
type Summary struct {
	Silhouette    *Float `json:"silhouette_score" yaml:"silhouette_score"`
	DaviesBouldin *Float `json:"davies_bouldin_index" yaml:"davies_bouldin_index"`
	NClusters     int    `json:"n_clusters" yaml:"n_clusters"`
}

// Report is the export record tree.
type Report struct {
	Clusters []ClusterRow `json:"clusters" yaml:"clusters"`
	Summary  Summary      `json:"summary" yaml:"summary"`
}

// Build flattens statistics and metrics.
func Build(stats cluster.Statistics, m cluster.Metrics) *Report {
	r := &Report{
		Clusters: Statistics(stats),
		Summary: Summary{
			Silhouette:    Ptr(m.Silhouette),
			DaviesBouldin: Ptr(m.DaviesBouldin),
			NClusters:     len(stats),
		},
	}
	return r
}

// Statistics converts cluster statistics for serialization.
func Statistics(stats cluster.Statistics) []ClusterRow {
	out := make([]ClusterRow, len(stats))
	for i, s := range stats {
		out[i] = ClusterRow{
			ClusterID:  s.ID,
			Size:       s.Size,
			Percentage: Float(s.Percentage),
			Features:   s.Features,
			Centroid:   Floats(s.Centroid),
			Mean:       Floats(s.Mean),
			Std:        Floats(s.Std),
		}
	}
	return out
}

// Write serializes r in the named format.
func Write(w io.Writer, format string, r *Report) error {
	switch format {
	case FormatJSON, "":
		b, err := utils.PrettyJSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, r)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatYAML:
		return "application/yaml"
	}
	return "application/json"
}

var csvHeader = []string{
	"cluster_id", "size", "percentage", "feature", "centroid", "mean", "std",
	"silhouette_score", "davies_bouldin_index", "n_clusters",
}

// writeCSV emits one row per (cluster, feature), repeating the global scores so
// the file stays a single rectangular table.
func writeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	sil, db := optString(r.Summary.Silhouette), optString(r.Summary.DaviesBouldin)
	n := strconv.Itoa(r.Summary.NClusters)
	for _, c := range r.Clusters {
		id, size, pct := strconv.Itoa(c.ClusterID), strconv.Itoa(c.Size), c.Percentage.String()
		for j, f := range c.Features {
			rec := []string{id, size, pct, f, at(c.Centroid, j), at(c.Mean, j), at(c.Std, j), sil, db, n}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func at(xs []Float, j int) string {
	if j >= len(xs) {
		return ""
	}
	return xs[j].String()
}

func optString(f *Float) string {
	if f == nil {
		return ""
	}
	return f.String()
}
