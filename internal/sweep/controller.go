package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/banshee-data/loadsweep/internal/classify"
	"github.com/banshee-data/loadsweep/internal/fixture"
	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/stats"
	"github.com/banshee-data/loadsweep/internal/trial"
	"github.com/banshee-data/loadsweep/internal/worker"
)

// DefaultMetrics are the metric columns assumed for a failure that happens
// before any point has succeeded.
var DefaultMetrics = []string{"setup_ms", "time_ms"}

// Invoker runs the worker for one grid point.
type Invoker interface {
	Invoke(ctx context.Context, req worker.Request) (*trial.Table, error)
}

// Fixtures creates fixture directories.
type Fixtures interface {
	Create(n int) (*fixture.Dir, error)
}

// Sink receives the finished (or partial) report.
type Sink interface {
	WriteRows(ctx context.Context, rows []report.Row) error
}

// Recorder observes a sweep as it runs. Recorder errors are logged and never
// abort the sweep.
type Recorder interface {
	Begin(ctx context.Context, plan Plan) error
	Point(ctx context.Context, index int, row report.Row) error
	End(ctx context.Context, rows int, runErr error) error
}

// Controller visits every grid point in order, one worker at a time.
type Controller struct {
	Invoker    Invoker
	Fixtures   Fixtures
	Classifier *classify.Classifier
	Sink       Sink
	// Recorder is optional.
	Recorder Recorder
	// Statistics defaults to stats.Default.
	Statistics []stats.Statistic

	log *slog.Logger
}

func (c *Controller) logger() *slog.Logger {
	if c.log == nil {
		c.log = monitoring.Component("sweep")
	}
	return c.log
}

func (c *Controller) statistics() []stats.Statistic {
	if len(c.Statistics) == 0 {
		return stats.Default
	}
	return c.Statistics
}

// Run executes the plan and writes the report to the sink.
//
// A classified worker failure becomes a row with that outcome as its status
// and missing statistics. Any other error stops the sweep: the rows gathered
// so far (if any) are written to the sink and the original error is returned
// together with those rows.
func (c *Controller) Run(ctx context.Context, plan Plan) ([]report.Row, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if c.Classifier == nil {
		c.Classifier = classify.New()
	}

	log := c.logger()
	total := plan.Files.Len() * plan.Parallel.Len()
	log.Info("sweep starting",
		"files", plan.Files.String(),
		"parallel", plan.Parallel.String(),
		"points", total,
		"warmup", plan.Warmup,
		"duration", plan.Duration)
	c.record("begin", func() error { return c.Recorder.Begin(ctx, plan) })

	rows, err := c.sweep(ctx, plan, total)
	if err != nil {
		log.Error("sweep aborted", "rows", len(rows), "error", err)
		if len(rows) > 0 {
			// The sweep's context may already be cancelled; the partial
			// report is still written.
			if werr := c.Sink.WriteRows(context.WithoutCancel(ctx), rows); werr != nil {
				log.Error("failed to write partial report", "error", werr)
			}
		}
		c.record("end", func() error { return c.Recorder.End(context.WithoutCancel(ctx), len(rows), err) })
		return rows, err
	}

	if err := c.Sink.WriteRows(ctx, rows); err != nil {
		c.record("end", func() error { return c.Recorder.End(context.WithoutCancel(ctx), len(rows), err) })
		return rows, fmt.Errorf("writing report: %w", err)
	}
	c.record("end", func() error { return c.Recorder.End(ctx, len(rows), nil) })
	log.Info("sweep complete", "rows", len(rows))
	return rows, nil
}

func (c *Controller) record(what string, fn func() error) {
	if c.Recorder == nil {
		return
	}
	if err := fn(); err != nil {
		c.logger().Warn("sweep recorder failed", "event", what, "error", err)
	}
}

// sweep walks the grid and returns the rows completed so far alongside any
// fatal error.
func (c *Controller) sweep(ctx context.Context, plan Plan, total int) ([]report.Row, error) {
	rows := make([]report.Row, 0, total)
	metrics := append([]string(nil), DefaultMetrics...)

	for _, nFiles := range plan.Files.Values() {
		dir, err := c.Fixtures.Create(nFiles)
		if err != nil {
			return rows, fmt.Errorf("creating fixture for %d files: %w", nFiles, err)
		}

		err = func() error {
			defer func() {
				if rerr := dir.Release(); rerr != nil {
					c.logger().Warn("failed to release fixture", "dir", dir.Path, "error", rerr)
				}
			}()
			for _, nParallel := range plan.Parallel.Values() {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("sweep interrupted: %w", err)
				}
				pt := Point{NFiles: nFiles, NParallel: nParallel}
				row, cols, err := c.runPoint(ctx, plan, pt, dir.Path, metrics)
				if err != nil {
					return err
				}
				if cols != nil {
					metrics = cols
				}
				rows = append(rows, row)
				c.logger().Info("point complete",
					"point", len(rows),
					"of", total,
					"n_files", pt.NFiles,
					"n_parallel", pt.NParallel,
					"status", row.Status)
				c.record("point", func() error { return c.Recorder.Point(ctx, len(rows)-1, row) })
			}
			return nil
		}()
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

// runPoint invokes the worker for pt and reduces its trials. On success it
// also returns the metric columns the worker produced.
func (c *Controller) runPoint(ctx context.Context, plan Plan, pt Point, dir string, metrics []string) (report.Row, []string, error) {
	req := worker.Request{Dir: dir, Parallel: pt.NParallel, Warmup: plan.Warmup, Duration: plan.Duration}
	table, err := c.Invoker.Invoke(ctx, req)

	status := string(classify.OK)
	var seen []string
	if err != nil {
		var pf *worker.ProcessFailure
		if !errors.As(err, &pf) {
			return report.Row{}, nil, err
		}
		outcome := c.Classifier.Classify(pf.Stderr)
		if outcome == classify.Unrecognized {
			return report.Row{}, nil, err
		}
		c.logger().Warn("worker failed with known error",
			"n_files", pt.NFiles,
			"n_parallel", pt.NParallel,
			"outcome", string(outcome))
		status = string(outcome)
		table = trial.Missing(metrics, trial.SyntheticRows)
	} else {
		if err := checkEcho(table, pt); err != nil {
			return report.Row{}, nil, err
		}
		table = table.Drop(report.ColNFiles, report.ColNParallel)
		seen = table.Columns
	}

	return report.Row{
		Summary:   stats.Reduce(table, c.statistics()),
		Status:    status,
		NFiles:    pt.NFiles,
		NParallel: pt.NParallel,
	}, seen, nil
}

// checkEcho verifies that every trial echoes the point's parameters.
func checkEcho(t *trial.Table, pt Point) error {
	for _, want := range []struct {
		col string
		val int
	}{
		{report.ColNFiles, pt.NFiles},
		{report.ColNParallel, pt.NParallel},
	} {
		values, ok := t.Column(want.col)
		if !ok {
			return &ConsistencyError{Point: pt, Column: want.col, Got: math.NaN(), Missing: true}
		}
		for _, v := range values {
			if v != float64(want.val) {
				return &ConsistencyError{Point: pt, Column: want.col, Got: v}
			}
		}
	}
	return nil
}
