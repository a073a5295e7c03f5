// Command loadsweep runs a worker benchmark over a grid of fixture file counts
// and worker pool sizes and writes a tab-separated summary report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/loadsweep/internal/config"
	"github.com/banshee-data/loadsweep/internal/fixture"
	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/store"
	"github.com/banshee-data/loadsweep/internal/sweep"
	"github.com/banshee-data/loadsweep/internal/version"
	"github.com/banshee-data/loadsweep/internal/worker"
)

// Exit statuses.
const (
	exitOK          = 0
	exitSweepFailed = 1
	exitConfig      = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loadsweep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML or JSON config file; flags override its values")
	output := fs.String("output", config.DefaultOutput, "Report destination: - (stdout), a file path, or a blob URL (s3://, gs://, file://); .zst compresses")
	fs.StringVar(output, "o", config.DefaultOutput, "Shorthand for -output")
	files := fs.String("files", config.DefaultFiles, "Iterate n_files over start:stop:stride (stop exclusive)")
	parallel := fs.String("parallel", "", "Iterate n_parallel over start:stop:stride (default same as -files)")
	warmup := fs.Int("warmup", config.DefaultWarmup, "Worker runs before measuring")
	duration := fs.Float64("duration", config.DefaultDuration, "Seconds to measure after warm-up")
	workerPath := fs.String("worker", config.DefaultWorker, "Worker executable (looked up on PATH)")
	workerArgs := fs.String("worker-args", strings.Join(config.DefaultWorkerArgs, " "), "Space-separated arguments placed before the per-point arguments")
	fixtureDir := fs.String("fixture-dir", fixture.DefaultBaseDir, "Directory in which fixture directories are created")
	dbPath := fs.String("db", "", "SQLite database recording sweep history (disabled when empty)")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("loadsweep"))
		return exitOK
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "loadsweep: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return exitConfig
	}

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "loadsweep: %v\n", err)
			return exitConfig
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output", "o":
			cfg.Output = config.String(*output)
		case "files":
			cfg.Files = config.String(*files)
		case "parallel":
			cfg.Parallel = config.String(*parallel)
		case "warmup":
			cfg.Warmup = config.Int(*warmup)
		case "duration":
			cfg.Duration = config.Float64(*duration)
		case "worker":
			cfg.Worker = config.String(*workerPath)
		case "worker-args":
			cfg.WorkerArgs = append([]string{}, strings.Fields(*workerArgs)...)
		case "fixture-dir":
			cfg.FixtureDir = config.String(*fixtureDir)
		case "db":
			cfg.Database = config.String(*dbPath)
		case "log-format":
			cfg.LogFormat = config.String(*logFormat)
		case "log-level":
			cfg.LogLevel = config.String(*logLevel)
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "loadsweep: invalid configuration: %v\n", err)
		return exitConfig
	}

	monitoring.Setup(cfg.GetLog(), stderr)
	// Worker diagnostics are echoed verbatim.
	monitoring.SetLogger(func(format string, v ...interface{}) {
		fmt.Fprintf(stderr, format+"\n", v...)
	})
	log := monitoring.Component("loadsweep")

	resolved, err := worker.Resolve(cfg.GetWorker())
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep: %s: %v\n", cfg.GetWorker(), err)
		return exitConfig
	}

	loc := report.Location{Path: cfg.GetOutput(), Stdout: stdout}
	if err := loc.Validate(); err != nil {
		fmt.Fprintf(stderr, "loadsweep: %v\n", err)
		return exitConfig
	}

	ctrl := &sweep.Controller{
		Invoker:    worker.NewInvoker(worker.Spec{Path: resolved, Args: cfg.GetWorkerArgs()}, nil),
		Fixtures:   cfg.FixtureManager(),
		Classifier: cfg.Classifier(),
		Sink:       report.NewSink(loc),
	}

	if path := cfg.GetDatabase(); path != "" {
		st, err := store.Open(path)
		if err != nil {
			fmt.Fprintf(stderr, "loadsweep: sweep history: %v\n", err)
			return exitConfig
		}
		defer st.Close()
		rec := st.NewRecorder(resolved)
		ctrl.Recorder = rec
		defer func() {
			if rec.ID != "" {
				log.Info("sweep recorded", "sweep_id", rec.ID, "db", path)
			}
		}()
	}

	rows, err := ctrl.Run(ctx, cfg.Plan())
	if err == nil {
		return exitOK
	}
	return reportFailure(stderr, err, rows, loc)
}

// reportFailure prints the diagnostic for a failed sweep and picks the exit status.
func reportFailure(stderr io.Writer, err error, rows []report.Row, loc report.Location) int {
	fmt.Fprintf(stderr, "loadsweep: %v\n", err)

	var cfgErr *sweep.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	if len(rows) > 0 {
		fmt.Fprintf(stderr, "loadsweep: %d completed rows written to %s\n", len(rows), loc)
	}

	var pf *worker.ProcessFailure
	if errors.As(err, &pf) {
		fmt.Fprintln(stderr, strings.Repeat("-", 30))
		fmt.Fprintln(stderr, "captured error output:")
		fmt.Fprint(stderr, pf.Stderr)
		if pf.Stderr != "" && !strings.HasSuffix(pf.Stderr, "\n") {
			fmt.Fprintln(stderr)
		}
	}
	return exitSweepFailed
}
