// Package plot renders a sweep report as median-versus-parallelism curves,
// one per file count, as a PNG (gonum/plot) or an interactive HTML page
// (go-echarts).
package plot

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/stats"
)

// DefaultMetric is the metric plotted when Options.Metric is empty.
const DefaultMetric = "time_ms"

// Options control what is plotted.
type Options struct {
	// Metric selects the report metric; DefaultMetric when empty.
	Metric string
	// FileCounts restricts the plotted series; nil plots every file count.
	FileCounts []int
	// Title overrides the chart title.
	Title string
}

func (o Options) metric() string {
	if o.Metric == "" {
		return DefaultMetric
	}
	return o.Metric
}

func (o Options) title() string {
	if o.Title != "" {
		return o.Title
	}
	return fmt.Sprintf("Median %s by worker pool size", o.metric())
}

// Point is one plotted grid point.
type Point struct {
	Parallel int
	Median   float64
	Std      float64 // 0 when the report has none
}

// Curve is every plotted point sharing one file count, ordered by parallelism.
type Curve struct {
	NFiles int
	Points []Point
}

// Series groups rows into curves, ascending by file count. Rows without a
// median for the metric (failed points) are left out; a curve left with no
// points is dropped.
func Series(rows []report.Row, opt Options) []Curve {
	metric := opt.metric()
	var keep map[int]bool
	if opt.FileCounts != nil {
		keep = make(map[int]bool, len(opt.FileCounts))
		for _, n := range opt.FileCounts {
			keep[n] = true
		}
	}

	byFiles := make(map[int][]Point)
	for _, r := range rows {
		if keep != nil && !keep[r.NFiles] {
			continue
		}
		median, ok := r.Summary.Get(metric, stats.Median)
		if !ok || math.IsNaN(median) {
			continue
		}
		std, _ := r.Summary.Get(metric, stats.Std)
		if math.IsNaN(std) {
			std = 0
		}
		byFiles[r.NFiles] = append(byFiles[r.NFiles], Point{Parallel: r.NParallel, Median: median, Std: std})
	}

	curves := make([]Curve, 0, len(byFiles))
	for n, pts := range byFiles {
		sort.Slice(pts, func(i, j int) bool { return pts[i].Parallel < pts[j].Parallel })
		curves = append(curves, Curve{NFiles: n, Points: pts})
	}
	sort.Slice(curves, func(i, j int) bool { return curves[i].NFiles < curves[j].NFiles })
	return curves
}
