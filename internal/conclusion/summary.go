package conclusion

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/cluster"
)

// Quality bands for interpretation rows.
const (
	QualityGood   = "good"
	QualityMedium = "medium"
	QualityWeak   = "weak"
)

// Silhouette band edges; Davies-Bouldin edges are upper bounds.
const (
	silhouetteGood   = 0.5
	silhouetteMedium = 0.25
	dbGood           = 1.0
	dbMedium         = 2.0
)

// Interpretation explains one quality score.
type Interpretation struct {
	Metric      string `json:"metric" yaml:"metric"`
	Value       string `json:"value" yaml:"value"`
	Quality     string `json:"quality" yaml:"quality"`
	Description string `json:"description" yaml:"description"`
	Range       string `json:"range" yaml:"range"`
}

// Interpret returns a row per defined score. Absent scores are skipped, so an
// empty Metrics yields an empty slice.
func Interpret(m cluster.Metrics) []Interpretation {
	out := []Interpretation{}
	if m.Silhouette != nil {
		s := *m.Silhouette
		row := Interpretation{Metric: "Silhouette Score", Value: fmt.Sprintf("%.4f", s), Range: "-1 to 1, higher is better"}
		switch {
		case s >= silhouetteGood:
			row.Quality, row.Description = QualityGood, "Clusters are clearly separated"
		case s >= silhouetteMedium:
			row.Quality, row.Description = QualityMedium, "Clusters overlap to some degree"
		default:
			row.Quality, row.Description = QualityWeak, "Cluster structure is not pronounced; common for survey data and not an error"
		}
		out = append(out, row)
	}
	if m.DaviesBouldin != nil {
		d := *m.DaviesBouldin
		row := Interpretation{Metric: "Davies-Bouldin Index", Value: fmt.Sprintf("%.4f", d), Range: "0 and up, lower is better"}
		switch {
		case d < dbGood:
			row.Quality, row.Description = QualityGood, "Clusters are well separated"
		case d < dbMedium:
			row.Quality, row.Description = QualityMedium, "Separation is acceptable"
		default:
			row.Quality, row.Description = QualityWeak, "Clusters overlap considerably"
		}
		out = append(out, row)
	}
	return out
}

// Summary is the narrative text plus the records it was built from.
type Summary struct {
	Text           string           `json:"summary" yaml:"summary"`
	Clusters       []Record         `json:"clusters" yaml:"clusters"`
	Interpretation []Interpretation `json:"metrics_interpretation" yaml:"metrics_interpretation"`
}

// Summarize renders the report. The output depends only on its inputs: numbers
// use fixed formats and nothing reads the clock or locale.
func Summarize(stats cluster.Statistics, metrics cluster.Metrics) Summary {
	records := Generate(stats)
	interp := Interpret(metrics)

	var b strings.Builder
	b.WriteString("=== K-MEANS CLUSTERING RESULTS ===\n\n")
	fmt.Fprintf(&b, "Clusters found: %d\n\n", len(stats))

	if len(interp) > 0 {
		b.WriteString("--- QUALITY ---\n")
		for _, row := range interp {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", row.Metric, row.Value, row.Quality)
			fmt.Fprintf(&b, "  -> %s\n", row.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("--- DISTRIBUTION ---\n")
	counts := map[Tier]int{}
	for _, r := range records {
		counts[r.Type]++
	}
	if n := counts[Favorable]; n > 0 {
		fmt.Fprintf(&b, "- %d favorable %s\n", n, plural(n, "cluster", "clusters"))
	}
	if n := counts[Neutral]; n > 0 {
		fmt.Fprintf(&b, "- %d neutral %s\n", n, plural(n, "cluster", "clusters"))
	}
	if n := counts[Weak]; n > 0 {
		fmt.Fprintf(&b, "- %d %s needing improvement\n", n, plural(n, "cluster", "clusters"))
	}
	b.WriteString("\n")

	b.WriteString("--- NOTES ---\n")
	switch {
	case metrics.Silhouette == nil && metrics.DaviesBouldin != nil:
		b.WriteString("- Silhouette undefined for this partition: each row forms its own cluster\n")
	case metrics.Silhouette == nil:
		b.WriteString("- Quality scores unavailable: fewer than two non-empty clusters\n")
	case *metrics.Silhouette < silhouetteMedium:
		b.WriteString("- A low silhouette (<0.25) is common for survey data\n")
		b.WriteString("- Typical causes: many categorical variables, no natural separation in the data\n")
		b.WriteString("- The segments remain useful for analysis; this is not an algorithm failure\n")
	default:
		b.WriteString("- Clustering quality is good\n")
		b.WriteString("- The groups are clearly separated\n")
	}

	return Summary{Text: b.String(), Clusters: records, Interpretation: interp}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
