package plot

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/stats"
)

func row(nFiles, nParallel int, median, std float64) report.Row {
	return report.Row{
		Summary: stats.Summary{
			{Key: stats.Key{Metric: "setup_ms", Statistic: stats.Median}, Value: median / 2},
			{Key: stats.Key{Metric: "time_ms", Statistic: stats.Median}, Value: median},
			{Key: stats.Key{Metric: "time_ms", Statistic: stats.Std}, Value: std},
		},
		Status:    "ok",
		NFiles:    nFiles,
		NParallel: nParallel,
	}
}

func sampleRows() []report.Row {
	return []report.Row{
		row(100, 200, 40, 2),
		row(100, 100, 30, 1),
		row(0, 100, 10, math.NaN()),
		row(0, 200, math.NaN(), math.NaN()), // failed point
		row(300, 100, 50, 5),
	}
}

func TestSeries(t *testing.T) {
	curves := Series(sampleRows(), Options{})
	require.Len(t, curves, 3)

	assert.Equal(t, 0, curves[0].NFiles)
	assert.Equal(t, []Point{{Parallel: 100, Median: 10, Std: 0}}, curves[0].Points)

	assert.Equal(t, 100, curves[1].NFiles)
	assert.Equal(t, []Point{{100, 30, 1}, {200, 40, 2}}, curves[1].Points)

	assert.Equal(t, 300, curves[2].NFiles)
}

func TestSeries_FilterAndMetric(t *testing.T) {
	curves := Series(sampleRows(), Options{FileCounts: []int{100, 300}, Metric: "setup_ms"})
	require.Len(t, curves, 2)
	assert.Equal(t, 15.0, curves[0].Points[0].Median)
	assert.Equal(t, 0.0, curves[0].Points[0].Std, "metric has no std column")

	assert.Empty(t, Series(sampleRows(), Options{Metric: "nope"}))
	assert.Empty(t, Series(sampleRows(), Options{FileCounts: []int{}}))
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(Series(sampleRows(), Options{}), &buf, Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")
}

func TestRenderImage_SVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderImage(Series(sampleRows(), Options{}), &buf, "svg", Options{Title: "custom"}))
	assert.Contains(t, buf.String(), "<svg")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderPNG(nil, &buf, Options{}))
	assert.Error(t, RenderHTML(nil, &buf, Options{}))
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(Series(sampleRows(), Options{}), &buf, Options{}))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<html"), "not an HTML page")
	assert.Contains(t, out, "300 files")
	assert.Contains(t, out, "Median time_ms by worker pool size")
	// Largest file count is listed first.
	assert.Less(t, strings.Index(out, "300 files"), strings.Index(out, "100 files"))
}
