package stats

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotFitness draws the averaged mean (solid) and max (dashed) fitness per
// generation for every aggregate. withStd shades mean +/- std.
func PlotFitness(aggs []Aggregate, path string, withStd bool) error {
	if len(aggs) == 0 {
		return fmt.Errorf("no runs to plot")
	}
	p := plot.New()
	p.Title.Text = "Fitness over generations"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness averaged over runs"

	for i, agg := range aggs {
		colour := plotutil.Color(i)

		if withStd {
			band, err := stdBand(agg)
			if err != nil {
				return err
			}
			r, g, b, _ := colour.RGBA()
			band.Color = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 40}
			band.LineStyle.Width = 0
			p.Add(band)
		}

		meanLine, err := plotter.NewLine(series(agg.Generations, agg.Mean))
		if err != nil {
			return err
		}
		meanLine.LineStyle.Color = colour
		meanLine.LineStyle.Width = vg.Points(2)

		maxLine, err := plotter.NewLine(series(agg.Generations, agg.Max))
		if err != nil {
			return err
		}
		maxLine.LineStyle.Color = colour
		maxLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

		p.Add(meanLine, maxLine)
		p.Legend.Add(agg.Label+" mean", meanLine)
		p.Legend.Add(agg.Label+" max", maxLine)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// PlotFinal draws one box per aggregate over its runs' final mean fitness.
func PlotFinal(aggs []Aggregate, path string) error {
	if len(aggs) == 0 {
		return fmt.Errorf("no runs to plot")
	}
	p := plot.New()
	p.Title.Text = "Final generation mean fitness"
	p.X.Label.Text = "Run label"
	p.Y.Label.Text = "Fitness"

	names := make([]string, len(aggs))
	for i, agg := range aggs {
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(agg.FinalMeans))
		if err != nil {
			return err
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
		names[i] = agg.Label
	}
	p.NominalX(names...)

	width := vg.Length(len(aggs)) * 1.5 * vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	return p.Save(width, 5*vg.Inch, path)
}

func series(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func stdBand(agg Aggregate) (*plotter.Polygon, error) {
	n := len(agg.Generations)
	pts := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		pts = append(pts, plotter.XY{X: agg.Generations[i], Y: agg.Mean[i] + agg.Std[i]})
	}
	for i := n - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: agg.Generations[i], Y: agg.Mean[i] - agg.Std[i]})
	}
	return plotter.NewPolygon(pts)
}
