package export

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/segmenta/internal/cluster"
)

// ScatterSize is the edge length of the rendered PNG.
const ScatterSize = 6 * vg.Inch

// WriteScatter renders the 2-D projection as a PNG: one colored series per
// cluster, centroids drawn as black crosses.
func WriteScatter(w io.Writer, r *cluster.Results) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("K-Means clusters (k=%d), PCA projection", len(r.Centroids))
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	byLabel := make([]plotter.XYs, len(r.Centroids))
	for _, pt := range r.PCAPoints {
		byLabel[pt.Label] = append(byLabel[pt.Label], plotter.XY{X: pt.X, Y: pt.Y})
	}
	for k, pts := range byLabel {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("cluster %d scatter: %w", k, err)
		}
		s.Color = plotutil.Color(k)
		s.Shape = plotutil.Shape(k)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d", k), s)
	}

	cpts := make(plotter.XYs, len(r.CentroidPositions))
	for i, c := range r.CentroidPositions {
		cpts[i] = plotter.XY{X: c.X, Y: c.Y}
	}
	if len(cpts) > 0 {
		c, err := plotter.NewScatter(cpts)
		if err != nil {
			return fmt.Errorf("centroid scatter: %w", err)
		}
		c.Color = color.RGBA{A: 255}
		c.Shape = draw.CrossGlyph{}
		c.Radius = vg.Points(6)
		p.Add(c)
		p.Legend.Add("centroids", c)
	}

	wt, err := p.WriterTo(ScatterSize, ScatterSize, "png")
	if err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write scatter: %w", err)
	}
	return nil
}
