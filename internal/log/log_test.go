package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "JSON").With("component", "web").Info("listening", "addr", ":8000")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "listening" || entry["component"] != "web" || entry["addr"] != ":8000" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "text")
	l.Info("dropped")
	l.Warn("kept")

	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "msg=kept") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestComponentBeforeInit(t *testing.T) {
	if Component("hub") == nil {
		t.Fatal("Component returned nil")
	}
}

func TestInitWriter(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	prev := slog.Default()
	t.Cleanup(func() {
		current.Store(nil)
		slog.SetDefault(prev)
	})

	var buf bytes.Buffer
	InitWriter(&buf, "info", "text")

	Component("mcp.server").Info("serving", "transport", "stdio")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("production should force JSON, got %q", buf.String())
	}
	if entry["component"] != "mcp.server" || entry["transport"] != "stdio" {
		t.Errorf("unexpected entry %v", entry)
	}
}
