package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op; it must not call the previous logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLookupLevel(t *testing.T) {
	for _, name := range []string{"", "debug", "Info", "warn", "warning", "ERROR"} {
		if _, ok := LookupLevel(name); !ok {
			t.Errorf("LookupLevel(%q) not accepted", name)
		}
	}
	for _, name := range []string{"verbsoe", "trace", "5"} {
		if l, ok := LookupLevel(name); ok || l != slog.LevelInfo {
			t.Errorf("LookupLevel(%q) = %v, %v; want info, false", name, l, ok)
		}
	}
}

func TestSetup_JSON(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	Setup(Config{Format: "json", Level: "debug"}, &buf)
	Component("sweep").Debug("point done", "n_files", 100)

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "sweep" {
		t.Errorf("component = %v, want sweep", rec["component"])
	}
	if rec["n_files"] != float64(100) {
		t.Errorf("n_files = %v, want 100", rec["n_files"])
	}
}

func TestSetup_TextFiltersLevel(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	Setup(Config{Format: "text", Level: "warn"}, &buf)
	slog.Info("hidden")
	slog.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}
