package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/vovakirdan/carlaview/internal/core"
)

// WritePNG renders speed and control inputs as two stacked line plots.
func WritePNG(w io.Writer, title string, ticks []core.TickSample) error {
	if len(ticks) == 0 {
		return fmt.Errorf("report: no ticks to plot")
	}
	t := FromTicks(ticks)

	pSpeed := plot.New()
	pSpeed.Title.Text = title
	pSpeed.X.Label.Text = t.XLabel
	pSpeed.Y.Label.Text = "km/h"
	if err := addLines(pSpeed, t.X, []Series{t.Speed}); err != nil {
		return err
	}

	pInputs := plot.New()
	pInputs.X.Label.Text = t.XLabel
	pInputs.Y.Label.Text = "Control"
	pInputs.Y.Min, pInputs.Y.Max = -1, 1
	if err := addLines(pInputs, t.X, t.Inputs); err != nil {
		return err
	}

	for _, p := range []*plot.Plot{pSpeed, pInputs} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
		p.Add(plotter.NewGrid())
	}

	width, height := 14*vg.Inch, 8*vg.Inch
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Points(8)}
	canvases := plot.Align([][]*plot.Plot{{pSpeed}, {pInputs}}, tiles, dc)
	pSpeed.Draw(canvases[0][0])
	pInputs.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("report: write png: %w", err)
	}
	return nil
}

func addLines(p *plot.Plot, x []float64, series []Series) error {
	for i, s := range series {
		pts := make(plotter.XYs, len(x))
		for j := range x {
			pts[j] = plotter.XY{X: x[j], Y: s.Y[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("report: %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return nil
}
