package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/stats"
	"github.com/banshee-data/loadsweep/internal/trial"
)

func sampleReport(t *testing.T) string {
	t.Helper()
	var rows []report.Row
	for _, nFiles := range []int{100, 300} {
		for _, nParallel := range []int{1, 2, 4} {
			tbl := &trial.Table{Columns: []string{"setup_ms", "time_ms"}}
			for i := 0; i < 3; i++ {
				tbl.Rows = append(tbl.Rows, []float64{1, float64(nFiles/nParallel + i)})
			}
			rows = append(rows, report.Row{Summary: stats.Reduce(tbl, stats.Default), Status: "ok", NFiles: nFiles, NParallel: nParallel})
		}
	}
	var sb strings.Builder
	require.NoError(t, report.WriteTable(&sb, rows))
	return sb.String()
}

func TestParseCSVIntSlice(t *testing.T) {
	got, err := parseCSVIntSlice("100, 300,500")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 300, 500}, got)

	got, err = parseCSVIntSlice("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseCSVIntSlice("1,x")
	assert.Error(t, err)
}

func TestRun_NothingToDo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "nothing to do")
}

func TestRun_PNGAndHTMLFromStdin(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "chart.png")
	htmlPath := filepath.Join(dir, "chart.html")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-png", pngPath, "-html", htmlPath, "-files", "300"},
		strings.NewReader(sampleReport(t)), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "300 files")
	assert.NotContains(t, string(html), "100 files")
}

func TestRun_SVGFromFileToStdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "report.tsv")
	require.NoError(t, os.WriteFile(in, []byte(sampleReport(t)), 0644))
	out := filepath.Join(t.TempDir(), "chart.svg")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-input", in, "-png", out, "-html", "-"}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	svg, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, stdout.String(), "<html")
}

func TestRun_BadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-html", "-"}, strings.NewReader("garbage"), &stdout, &stderr)
	assert.Equal(t, 1, code)

	code = run(context.Background(), []string{"-html", "-", "-metric", "nope"}, strings.NewReader(sampleReport(t)), &stdout, &stderr)
	assert.Equal(t, 1, code, "no curves for an unknown metric")
}

func TestRun_StatusDomain(t *testing.T) {
	bogus := strings.Replace(sampleReport(t), "\tok\t", "\tbogus\t", 1)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-html", "-"}, strings.NewReader(bogus), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), `unknown status "bogus"`)

	cfgPath := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("known_errors:\n  - outcome: bogus\n    pattern: BOGUS\n"), 0644))
	stdout.Reset()
	stderr.Reset()
	code = run(context.Background(), []string{"-config", cfgPath, "-html", "-"}, strings.NewReader(bogus), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "<html")
}

func TestRun_BadConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", "missing.yaml", "-html", "-"}, strings.NewReader(sampleReport(t)), &stdout, &stderr)
	assert.Equal(t, 2, code)
}
