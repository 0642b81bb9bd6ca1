package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	imageWidth  = 8 * vg.Inch
	imageHeight = 4 * vg.Inch
)

// Save draws every trace against the x axis. The format follows the file
// extension: png, svg, pdf, jpg and the other formats gonum/plot supports.
func (c *Chart) Save(file string) error {
	if len(c.Traces) == 0 {
		return fmt.Errorf("chart %q has no traces", c.Title)
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Time (s)"
	if c.IsSweep() {
		p.X.Label.Text = "Source value"
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	lines := make([]any, 0, 2*len(c.Traces))
	for _, tr := range c.Traces {
		xys := make(plotter.XYs, len(c.X))
		for i := range xys {
			xys[i].X = c.X[i]
			xys[i].Y = tr.Values[i]
		}
		lines = append(lines, tr.Name, xys)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("adding traces: %w", err)
	}

	if err := p.Save(imageWidth, imageHeight, file); err != nil {
		return fmt.Errorf("saving %s: %w", file, err)
	}
	return nil
}
