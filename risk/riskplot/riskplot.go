// Package riskplot renders risk curves to PNG images.
package riskplot

import (
	"errors"
	"fmt"

	"github.com/inference-sim/collision-risk/risk/trace"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoRisks is returned when there is nothing to draw.
var ErrNoRisks = errors.New("no risk curves to plot")

// WriteRiskPNG draws the total risk curve of every vehicle of one tick over
// the prediction horizon and saves it to path. dt is the spacing of curve
// points in seconds.
func WriteRiskPNG(path string, tick int, risks []trace.RiskRecord, dt float64) error {
	if len(risks) == 0 {
		return ErrNoRisks
	}
	if dt <= 0 {
		return fmt.Errorf("timestep must be positive, got %f", dt)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tick %d - Collision Risk", tick)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "P(collision)"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	for i, vr := range risks {
		pts := make(plotter.XYs, len(vr.Total))
		for k, v := range vr.Total {
			pts[k] = plotter.XY{X: float64(k) * dt, Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("vehicle %d: %w", vr.VehicleID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%d %s (%s)", vr.VehicleID, vr.Role, vr.Behavior), line)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving risk plot: %w", err)
	}
	return nil
}
