package main

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotLoss writes the per-epoch loss history as a line chart.
func plotLoss(filename string, history []float64) error {
	p := plot.New()
	p.Title.Text = "Training loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	pts := make(plotter.XYs, len(history))
	for i, l := range history {
		pts[i].X = float64(i)
		pts[i].Y = l
	}
	if err := plotutil.AddLinePoints(p, "loss", pts); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
