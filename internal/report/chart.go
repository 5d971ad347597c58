package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/storage"
)

// WriteHTML renders an interactive page with the session telemetry and,
// when present, the per-sensor processing times.
func WriteHTML(w io.Writer, sess storage.Session, ticks []core.TickSample, stats []storage.SensorStat) error {
	t := FromTicks(ticks)
	axis := make([]string, len(t.X))
	for i, x := range t.X {
		axis[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	subtitle := fmt.Sprintf("mode=%s backend=%s ticks=%d", sess.Mode, sess.Backend, len(ticks))

	speed := charts.NewLine()
	speed.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "carlaview " + sess.ID, Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Speed", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: t.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km/h"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	speed.SetXAxis(axis).AddSeries(t.Speed.Name, lineData(t.Speed.Y))

	inputs := charts.NewLine()
	inputs.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Control"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	inputs.SetXAxis(axis)
	for _, s := range t.Inputs {
		inputs.AddSeries(s.Name, lineData(s.Y))
	}

	page := components.NewPage()
	page.AddCharts(speed, inputs)

	if len(stats) > 0 {
		names := make([]string, len(stats))
		means := make([]opts.BarData, len(stats))
		for i, st := range stats {
			names[i] = st.Kind
			means[i] = opts.BarData{Value: st.MeanMS}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
			charts.WithTitleOpts(opts.Title{Title: "Sensor processing", Subtitle: "mean ms per measurement"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(names).
			AddSeries("mean", means,
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)
		page.AddCharts(bar)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

func lineData(ys []float64) []opts.LineData {
	data := make([]opts.LineData, len(ys))
	for i, y := range ys {
		data[i] = opts.LineData{Value: y}
	}
	return data
}
