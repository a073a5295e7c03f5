// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteScript writes an executable /bin/sh script with the given body into a
// fresh temp directory and returns its path. Tests that need a real worker
// process use it; it skips on platforms without a POSIX shell.
func WriteScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	path := filepath.Join(t.TempDir(), "worker.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

// EchoWorkerScript is a worker that counts the fixture entries in $1 and emits
// one trial row echoing the point, with the given setup and time values.
func EchoWorkerScript(setup, time string) string {
	return `n=$(ls "$1" | wc -l | tr -d ' ')
printf 'setup_ms\ttime_ms\tn_files\tn_parallel\n'
printf '` + setup + `\t` + time + `\t%s\t%s\n' "$n" "$2"`
}
