// Package worker runs the external benchmark worker for one grid point and
// parses its trial table.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/trial"
)

// ErrNotFound is returned by Resolve when no worker executable is available.
var ErrNotFound = errors.New("no worker executable found")

// ProcessFailure reports a worker that exited with a non-zero status.
type ProcessFailure struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ProcessFailure) Error() string {
	head, _, _ := strings.Cut(strings.TrimSpace(e.Stderr), "\n")
	if head == "" {
		return fmt.Sprintf("worker %q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("worker %q exited with status %d: %s", strings.Join(e.Args, " "), e.ExitCode, head)
}

// Spec identifies the worker executable and the fixed arguments placed before
// the per-point positional parameters.
type Spec struct {
	Path string
	Args []string
}

// Resolve finds the worker executable. An empty path is a configuration error.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", ErrNotFound
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return resolved, nil
}

// Request carries the per-point parameters passed to the worker.
type Request struct {
	Dir      string
	Parallel int
	Warmup   int
	Duration float64 // seconds
}

// Args renders the positional argument contract: dir, n_parallel, n_warmup, duration.
func (r Request) Args() []string {
	return []string{
		r.Dir,
		strconv.Itoa(r.Parallel),
		strconv.Itoa(r.Warmup),
		strconv.FormatFloat(r.Duration, 'f', -1, 64),
	}
}

// Invoker runs the worker synchronously, one child process per call.
type Invoker struct {
	spec    Spec
	builder CommandBuilder
	log     *slog.Logger
}

// NewInvoker creates an Invoker. A nil builder uses os/exec.
func NewInvoker(spec Spec, builder CommandBuilder) *Invoker {
	if builder == nil {
		builder = ExecCommandBuilder{}
	}
	return &Invoker{spec: spec, builder: builder, log: monitoring.Component("worker")}
}

// Invoke runs the worker for req and parses its standard output as a
// tab-separated trial table. A non-zero exit returns *ProcessFailure carrying
// the captured error stream; any other error is fatal and not classifiable.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*trial.Table, error) {
	args := append(append([]string(nil), inv.spec.Args...), req.Args()...)
	inv.log.Debug("invoking worker", "path", inv.spec.Path, "args", args)

	res, err := inv.builder.BuildCommand(ctx, inv.spec.Path, args...).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("worker interrupted: %w", ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("running worker %s: %w", inv.spec.Path, err)
	}

	stderr := string(res.Stderr)
	if res.ExitCode != 0 {
		return nil, &ProcessFailure{
			Args:     append([]string{inv.spec.Path}, args...),
			ExitCode: res.ExitCode,
			Stderr:   stderr,
		}
	}
	if strings.TrimSpace(stderr) != "" {
		monitoring.Logf("%s", strings.TrimRight(stderr, "\n"))
	}

	table, err := trial.ParseTSV(bytes.NewReader(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("parsing worker output: %w", err)
	}
	return table, nil
}
