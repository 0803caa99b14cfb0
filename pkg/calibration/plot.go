package calibration

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	normalColor    = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	cheatColor     = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	thresholdColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
)

// Plot renders the confidence of each sample as a strip chart (normal on
// row 0, cheat on row 1) with the threshold as a vertical line. Pass a
// negative threshold to omit the line, e.g. after a failed calibration.
func Plot(normal, cheat []Sample, threshold float64, path string) error {
	p := plot.New()
	p.Title.Text = "Overlay calibration"
	p.X.Label.Text = "confidence"
	p.Y.Label.Text = "population"
	p.X.Min = 0
	p.X.Max = 1
	p.Y.Min = -0.5
	p.Y.Max = 1.5

	for _, pop := range []struct {
		name    string
		row     float64
		samples []Sample
		color   color.Color
	}{
		{"normal", 0, normal, normalColor},
		{"cheat", 1, cheat, cheatColor},
	} {
		if len(pop.samples) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(pop.samples))
		for _, s := range pop.samples {
			pts = append(pts, plotter.XY{X: s.Confidence, Y: pop.row})
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to plot %s samples: %w", pop.name, err)
		}
		sc.GlyphStyle.Color = pop.color
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%d)", pop.name, len(pop.samples)), sc)
	}

	if threshold >= 0 {
		line, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: -0.5}, {X: threshold, Y: 1.5}})
		if err != nil {
			return fmt.Errorf("failed to plot threshold: %w", err)
		}
		line.Color = thresholdColor
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("threshold %.3f", threshold), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
