// Package conclusion turns cluster statistics into ranked, tiered records and a
// deterministic narrative summary.
package conclusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/segmenta/internal/cluster"
)

// Tier is the ordinal class of a cluster within its ranking.
type Tier string

const (
	Favorable Tier = "favorable"
	Neutral   Tier = "neutral"
	Weak      Tier = "weak"
)

// Title returns the capitalized tier name used in prose.
func (t Tier) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// MaxProseInsights bounds the traits quoted in a description.
const MaxProseInsights = 3

// Ranked is one cluster's position in the score ordering.
type Ranked struct {
	ClusterID  int     `json:"cluster_id" yaml:"cluster_id"`
	Rank       int     `json:"rank" yaml:"rank"`
	Score      float64 `json:"score" yaml:"score"`
	Size       int     `json:"size" yaml:"size"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Rank orders clusters by the mean of their centroid coordinates, highest first;
// equal scores keep ascending cluster id. NaN scores sort last.
func Rank(stats cluster.Statistics) []Ranked {
	out := make([]Ranked, len(stats))
	for i, s := range stats {
		out[i] = Ranked{ClusterID: s.ID, Score: score(s.Centroid), Size: s.Size, Percentage: s.Percentage}
	}
	sort.SliceStable(out, func(a, b int) bool {
		sa, sb := out[a].Score, out[b].Score
		switch {
		case math.IsNaN(sa) || math.IsNaN(sb):
			if math.IsNaN(sa) != math.IsNaN(sb) {
				return !math.IsNaN(sa)
			}
		case sa != sb:
			return sa > sb
		}
		return out[a].ClusterID < out[b].ClusterID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func score(centroid []float64) float64 {
	if len(centroid) == 0 {
		return math.NaN()
	}
	return stat.Mean(centroid, nil)
}

// Classify maps a 1-based rank to a tier using integer thirds of total:
// rank <= total/3 is favorable, rank <= 2*total/3 neutral, otherwise weak.
// With total=2 that gives neutral then weak, and a lone cluster is weak.
func Classify(rank, total int) Tier {
	switch {
	case rank <= total/3:
		return Favorable
	case rank <= 2*total/3:
		return Neutral
	default:
		return Weak
	}
}

// FeatureInsights flags features whose centroid value is above 120% ("high") or
// below 80% ("low") of the centroid's own mean, in feature order. The thresholds
// are multiplied, not compared by magnitude, so a negative mean flips them.
func FeatureInsights(features []string, centroid []float64) []string {
	if len(centroid) == 0 {
		return nil
	}
	mean := stat.Mean(centroid, nil)
	var out []string
	for i, name := range features {
		if i >= len(centroid) {
			break
		}
		v := centroid[i]
		switch {
		case v > mean*1.2:
			out = append(out, name+" high")
		case v < mean*0.8:
			out = append(out, name+" low")
		}
	}
	return out
}

// Record is the conclusion for one cluster.
type Record struct {
	ClusterID   int      `json:"cluster_id" yaml:"cluster_id"`
	Rank        int      `json:"rank" yaml:"rank"`
	Type        Tier     `json:"type" yaml:"type"`
	Size        int      `json:"size" yaml:"size"`
	Percentage  float64  `json:"percentage" yaml:"percentage"`
	Score       float64  `json:"score" yaml:"score"`
	Description string   `json:"description" yaml:"description"`
	Insights    []string `json:"insights" yaml:"insights"`
}

// Generate builds one record per cluster in rank order.
func Generate(stats cluster.Statistics) []Record {
	ranked := Rank(stats)
	byID := make(map[int]cluster.ClusterStats, len(stats))
	for _, s := range stats {
		byID[s.ID] = s
	}
	out := make([]Record, 0, len(ranked))
	for _, r := range ranked {
		s := byID[r.ClusterID]
		tier := Classify(r.Rank, len(stats))
		insights := FeatureInsights(s.Features, s.Centroid)
		if insights == nil {
			insights = []string{}
		}
		out = append(out, Record{
			ClusterID:   r.ClusterID,
			Rank:        r.Rank,
			Type:        tier,
			Size:        s.Size,
			Percentage:  s.Percentage,
			Score:       r.Score,
			Description: describe(tier, insights, s),
			Insights:    insights,
		})
	}
	return out
}

func describe(tier Tier, insights []string, s cluster.ClusterStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s segment. ", tier.Title())
	if len(insights) > 0 {
		n := min(len(insights), MaxProseInsights)
		fmt.Fprintf(&b, "Notable traits: %s. ", strings.Join(insights[:n], ", "))
	}
	fmt.Fprintf(&b, "Covers %.1f%% of rows (%d samples).", s.Percentage, s.Size)
	return b.String()
}
