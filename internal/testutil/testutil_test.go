package testutil

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssertNoError_Pass(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError_Pass(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

func TestWriteScript(t *testing.T) {
	path := WriteScript(t, `echo "hello $1"`)

	info, err := os.Stat(path)
	AssertNoError(t, err)
	if info.Mode()&0111 == 0 {
		t.Errorf("script %s is not executable", path)
	}

	out, err := exec.Command(path, "world").Output()
	AssertNoError(t, err)
	if got := strings.TrimSpace(string(out)); got != "hello world" {
		t.Errorf("output = %q, want %q", got, "hello world")
	}
}

func TestEchoWorkerScript(t *testing.T) {
	path := WriteScript(t, EchoWorkerScript("1.0", "2.0"))

	dir := t.TempDir()
	for _, name := range []string{"1.org", "2.org"} {
		AssertNoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	out, err := exec.Command(path, dir, "7", "0", "1").Output()
	AssertNoError(t, err)
	want := "setup_ms\ttime_ms\tn_files\tn_parallel\n1.0\t2.0\t2\t7\n"
	if string(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
