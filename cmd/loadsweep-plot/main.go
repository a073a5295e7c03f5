// Command loadsweep-plot renders a loadsweep report as median curves per file
// count, as a PNG/SVG image and/or an interactive HTML page.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/banshee-data/loadsweep/internal/classify"
	"github.com/banshee-data/loadsweep/internal/config"
	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/plot"
	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// parseCSVIntSlice parses a comma-separated list of ints
func parseCSVIntSlice(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loadsweep-plot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "loadsweep config file; its known_errors extend the accepted row statuses")
	input := fs.String("input", report.Stdio, "Report to read: - (stdin), a file path, or a blob URL")
	imageOut := fs.String("png", "", "Write the chart image here; the extension picks the format (.png, .svg, .pdf)")
	htmlOut := fs.String("html", "", "Write an interactive HTML chart here (- for stdout)")
	metric := fs.String("metric", plot.DefaultMetric, "Metric to plot")
	fileList := fs.String("files", "", "Comma-separated file counts to plot (default all)")
	title := fs.String("title", "", "Chart title")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("loadsweep-plot"))
		return 0
	}
	if *imageOut == "" && *htmlOut == "" {
		fmt.Fprintln(stderr, "loadsweep-plot: nothing to do; pass -png and/or -html")
		return 2
	}
	fileCounts, err := parseCSVIntSlice(*fileList)
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-plot: -files: %v\n", err)
		return 2
	}

	monitoring.Setup(monitoring.Config{}, stderr)
	log := monitoring.Component("plot")

	classifier := classify.New()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "loadsweep-plot: %v\n", err)
			return 2
		}
		classifier = cfg.Classifier()
	}

	rows, err := report.ReadRows(ctx, report.Location{Path: *input, Stdin: stdin}, classifier.Outcomes())
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-plot: %v\n", err)
		return 1
	}
	opt := plot.Options{Metric: *metric, FileCounts: fileCounts, Title: *title}
	curves := plot.Series(rows, opt)
	log.Info("report loaded", "rows", len(rows), "curves", len(curves))

	if *imageOut != "" {
		format := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSuffix(*imageOut, report.CompressedSuffix))), ".")
		if format == "" {
			format = "png"
		}
		err := write(ctx, *imageOut, stdout, func(w io.Writer) error {
			return plot.RenderImage(curves, w, format, opt)
		})
		if err != nil {
			fmt.Fprintf(stderr, "loadsweep-plot: %v\n", err)
			return 1
		}
	}
	if *htmlOut != "" {
		err := write(ctx, *htmlOut, stdout, func(w io.Writer) error {
			return plot.RenderHTML(curves, w, opt)
		})
		if err != nil {
			fmt.Fprintf(stderr, "loadsweep-plot: %v\n", err)
			return 1
		}
	}
	return 0
}

// write renders into the named location, discarding it on render failure.
func write(ctx context.Context, dest string, stdout io.Writer, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	w, err := report.Location{Path: dest, Stdout: stdout}.Create(ctx)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return w.Close()
}
