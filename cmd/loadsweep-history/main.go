// Command loadsweep-history reads back the sweep history that loadsweep -db
// records: it lists sweeps, shows one, re-emits a stored sweep as a report and
// manages the database schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/store"
	"github.com/banshee-data/loadsweep/internal/version"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: loadsweep-history -db PATH <command> [args]

Commands:
  list [-n N]            List the N most recent sweeps (default 20, 0 for all)
  show ID                Show one sweep
  export [-o DEST] ID    Write a stored sweep as a report (default stdout)
  migrate status|down    Show the schema version or roll back one migration
`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loadsweep-history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr); fs.PrintDefaults() }

	dbPath := fs.String("db", "", "SQLite database written by loadsweep -db")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("loadsweep-history"))
		return exitOK
	}
	if *dbPath == "" || fs.NArg() == 0 {
		printUsage(stderr)
		return exitUsage
	}

	monitoring.Setup(monitoring.Config{}, stderr)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		fmt.Fprintf(stderr, format+"\n", v...)
	})

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitUsage
	}
	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	defer st.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "list":
		return runList(ctx, st, rest, stdout, stderr)
	case "show":
		return runShow(ctx, st, rest, stdout, stderr)
	case "export":
		return runExport(ctx, st, rest, stdout, stderr)
	case "migrate":
		return runMigrate(st, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "loadsweep-history: unknown command %q\n\n", cmd)
		printUsage(stderr)
		return exitUsage
	}
}

func runList(ctx context.Context, st *store.Store, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 20, "Number of sweeps to list (0 for all)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	sweeps, err := st.ListSweeps(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tROWS\tFILES\tPARALLEL\tWORKER")
	for _, sw := range sweeps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			sw.ID, sw.StartedAt.Local().Format(time.DateTime), sw.Status, sw.Rows, sw.Files, sw.Parallel, sw.Worker)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	return exitOK
}

func runShow(ctx context.Context, st *store.Store, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: loadsweep-history -db PATH show ID")
		return exitUsage
	}
	sw, err := st.GetSweep(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}

	completed := "-"
	if sw.CompletedAt != nil {
		completed = sw.CompletedAt.Local().Format(time.DateTime)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, kv := range [][2]string{
		{"id", sw.ID},
		{"worker", sw.Worker},
		{"files", sw.Files},
		{"parallel", sw.Parallel},
		{"warmup", strconv.Itoa(sw.Warmup)},
		{"duration", report.FormatFloat(sw.Duration)},
		{"status", sw.Status},
		{"rows", strconv.Itoa(sw.Rows)},
		{"started", sw.StartedAt.Local().Format(time.DateTime)},
		{"completed", completed},
		{"error", sw.Error},
	} {
		if kv[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", kv[0], kv[1])
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	return exitOK
}

func runExport(ctx context.Context, st *store.Store, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", report.Stdio, "Report destination: - (stdout), a file path, or a blob URL")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: loadsweep-history -db PATH export [-o DEST] ID")
		return exitUsage
	}
	id := fs.Arg(0)

	loc := report.Location{Path: *output, Stdout: stdout}
	if err := loc.Validate(); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitUsage
	}
	if _, err := st.GetSweep(ctx, id); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	rows, err := st.ListPoints(ctx, id)
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	if len(rows) == 0 {
		fmt.Fprintf(stderr, "loadsweep-history: sweep %s recorded no points\n", id)
		return exitFailed
	}
	if err := report.NewSink(loc).WriteRows(ctx, rows); err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	return exitOK
}

func runMigrate(st *store.Store, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: loadsweep-history -db PATH migrate status|down")
		return exitUsage
	}
	switch args[0] {
	case "status":
	case "down":
		if err := st.MigrateDown(); err != nil {
			fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
			return exitFailed
		}
		fmt.Fprintln(stdout, "rolled back one migration")
	default:
		fmt.Fprintf(stderr, "loadsweep-history: unknown migrate action %q\n", args[0])
		return exitUsage
	}

	v, dirty, err := st.MigrateVersion()
	if err != nil {
		fmt.Fprintf(stderr, "loadsweep-history: %v\n", err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "schema version: %d (dirty: %v)\n", v, dirty)
	return exitOK
}
