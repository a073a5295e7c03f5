package plot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive line chart page: one series per curve,
// x = worker pool size, y = median, with the standard deviation in the
// point label.
func RenderHTML(curves []Curve, w io.Writer, opt Options) error {
	if len(curves) == 0 {
		return fmt.Errorf("nothing to plot for metric %s", opt.metric())
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: opt.title(), Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: opt.title(), Subtitle: fmt.Sprintf("%d file counts", len(curves))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Worker pool size", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Name: "Median " + opt.metric(), NameLocation: "middle", NameGap: 45}),
	)

	// Legend lists the largest file count first.
	for i := len(curves) - 1; i >= 0; i-- {
		c := curves[i]
		data := make([]opts.LineData, len(c.Points))
		for j, pt := range c.Points {
			data[j] = opts.LineData{
				Name:  fmt.Sprintf("std %.3g", pt.Std),
				Value: []interface{}{pt.Parallel, pt.Median},
			}
		}
		line.AddSeries(strconv.Itoa(c.NFiles)+" files", data)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
