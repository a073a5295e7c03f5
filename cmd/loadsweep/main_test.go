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

	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/store"
	"github.com/banshee-data/loadsweep/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func baseArgs(t *testing.T, script string) []string {
	return []string{
		"-worker", script,
		"-worker-args", "",
		"-fixture-dir", t.TempDir(),
		"-warmup", "0",
		"-duration", "0.1",
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "loadsweep "))
}

func TestBadFlags(t *testing.T) {
	code, _, _ := runCLI(t, "-no-such-flag")
	assert.Equal(t, exitConfig, code)

	code, _, _ = runCLI(t, "-files", "0:10:0")
	assert.Equal(t, exitConfig, code)

	code, _, errOut := runCLI(t, "stray")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, errOut, "unexpected arguments")

	code, _, errOut = runCLI(t, "-log-level", "verbsoe")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, errOut, "log_level")
}

func TestMissingWorker(t *testing.T) {
	code, _, errOut := runCLI(t, "-worker", "definitely-not-a-real-worker-binary-xyz")
	assert.Equal(t, exitConfig, code)
	assert.Contains(t, errOut, "no worker executable found")
}

func TestEmptyGrid(t *testing.T) {
	script := testutil.WriteScript(t, testutil.EchoWorkerScript("1.0", "2.0"))
	args := append(baseArgs(t, script), "-files", "0:0:1")
	code, out, errOut := runCLI(t, args...)
	assert.Equal(t, exitConfig, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "no data")
}

func TestSuccessToStdout(t *testing.T) {
	script := testutil.WriteScript(t, testutil.EchoWorkerScript("1.0", "2.0"))
	args := append(baseArgs(t, script), "-files", "0:200:100")
	code, out, errOut := runCLI(t, args...)
	require.Equal(t, exitOK, code, errOut)

	rows, err := report.ReadTable(strings.NewReader(out), nil)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 100, rows[3].NFiles)
	assert.Equal(t, 100, rows[3].NParallel)
	assert.Equal(t, "ok", rows[3].Status)
}

func TestSuccessToFileWithHistory(t *testing.T) {
	script := testutil.WriteScript(t, testutil.EchoWorkerScript("1.0", "2.0"))
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out", "report.tsv.zst")
	dbPath := filepath.Join(dir, "history.db")

	args := append(baseArgs(t, script), "-files", "0:2:1", "-parallel", "1:3:1", "-o", outPath, "-db", dbPath)
	code, out, errOut := runCLI(t, args...)
	require.Equal(t, exitOK, code, errOut)
	assert.Empty(t, out, "report must not go to stdout")

	rows, err := report.ReadRows(context.Background(), report.Location{Path: outPath}, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	sweeps, err := st.ListSweeps(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	assert.Equal(t, store.StatusComplete, sweeps[0].Status)
	assert.Equal(t, 4, sweeps[0].Rows)
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	script := testutil.WriteScript(t, testutil.EchoWorkerScript("1.0", "2.0"))
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sweep.yaml")
	body := "worker: " + script + "\nworker_args: []\nfiles: \"0:500:100\"\nparallel: \"1:2:1\"\nwarmup: 0\nduration: 0.1\nfixture_dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))

	code, out, errOut := runCLI(t, "-config", cfgPath, "-files", "3:4:1")
	require.Equal(t, exitOK, code, errOut)
	rows, err := report.ReadTable(strings.NewReader(out), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].NFiles)
}

func TestKnownFailureIsARow(t *testing.T) {
	script := testutil.WriteScript(t, `if [ "$2" -ge 2 ]; then
  echo "Error: EMFILE: too many open files, open '$1/1.org'" >&2
  exit 1
fi
`+testutil.EchoWorkerScript("1.0", "2.0"))
	args := append(baseArgs(t, script), "-files", "1:2:1", "-parallel", "1:3:1")
	code, out, errOut := runCLI(t, args...)
	require.Equal(t, exitOK, code, errOut)

	rows, err := report.ReadTable(strings.NewReader(out), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ok", rows[0].Status)
	assert.Equal(t, "emfile", rows[1].Status)
	assert.Contains(t, out, "nan")
}

func TestUnknownFailureWritesPartialAndStderr(t *testing.T) {
	script := testutil.WriteScript(t, `if [ "$2" -ge 2 ]; then
  echo "lua: benchmark_dir.lua:12: attempt to index a nil value" >&2
  echo "stack traceback:" >&2
  exit 1
fi
`+testutil.EchoWorkerScript("1.0", "2.0"))
	args := append(baseArgs(t, script), "-files", "1:2:1", "-parallel", "1:4:1")
	code, out, errOut := runCLI(t, args...)
	assert.Equal(t, exitSweepFailed, code)

	rows, err := report.ReadTable(strings.NewReader(out), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "completed rows are still written")

	assert.Contains(t, errOut, strings.Repeat("-", 30)+"\ncaptured error output:\nlua: benchmark_dir.lua:12: attempt to index a nil value\nstack traceback:\n")
}
