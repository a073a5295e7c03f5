package plot

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// errorPoints pairs line coordinates with symmetric y errors.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// RenderPNG draws one line per curve with ±std error bars and writes a PNG.
// The y axis starts at zero.
func RenderPNG(curves []Curve, w io.Writer, opt Options) error {
	return RenderImage(curves, w, "png", opt)
}

// RenderImage is RenderPNG for any format gonum/plot supports ("png", "svg",
// "pdf", ...).
func RenderImage(curves []Curve, w io.Writer, format string, opt Options) error {
	if len(curves) == 0 {
		return fmt.Errorf("nothing to plot for metric %s", opt.metric())
	}

	p := plot.New()
	p.Title.Text = opt.title()
	p.X.Label.Text = "Worker pool size"
	p.Y.Label.Text = "Median " + opt.metric()
	p.Add(plotter.NewGrid())

	// Legend lists the largest file count first.
	type legendEntry struct {
		label  string
		thumbs []plot.Thumbnailer
	}
	legend := make([]legendEntry, 0, len(curves))

	for i, c := range curves {
		data := errorPoints{
			XYs:     make(plotter.XYs, len(c.Points)),
			YErrors: make(plotter.YErrors, len(c.Points)),
		}
		for j, pt := range c.Points {
			data.XYs[j] = plotter.XY{X: float64(pt.Parallel), Y: pt.Median}
			data.YErrors[j].Low = pt.Std
			data.YErrors[j].High = pt.Std
		}

		line, points, err := plotter.NewLinePoints(data)
		if err != nil {
			return fmt.Errorf("creating line for %d files: %w", c.NFiles, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		bars, err := plotter.NewYErrorBars(data)
		if err != nil {
			return fmt.Errorf("creating error bars for %d files: %w", c.NFiles, err)
		}
		bars.Color = plotutil.Color(i)
		bars.CapWidth = vg.Points(4)

		p.Add(line, points, bars)
		legend = append(legend, legendEntry{label: strconv.Itoa(c.NFiles), thumbs: []plot.Thumbnailer{line, points}})
	}

	p.Legend.Add("Number of files")
	for i := len(legend) - 1; i >= 0; i-- {
		p.Legend.Add(legend[i].label, legend[i].thumbs...)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	p.Y.Min = 0
	if p.Y.Max <= p.Y.Min {
		p.Y.Max = 1
	}

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing %s: %w", format, err)
	}
	return nil
}
