package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = SetLevel("warn") })
	return l, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_With(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.With("component", "session").Info("bootstrap finished")

	entry := decode(t, buf)
	if entry["component"] != "session" {
		t.Errorf("component = %v, want session", entry["component"])
	}
	if entry["msg"] != "bootstrap finished" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")

	l.Debug("debug")
	l.Info("info")
	if buf.Len() > 0 {
		t.Error("Debug/Info should be filtered at warn level")
	}

	l.Warn("warn")
	if buf.Len() == 0 {
		t.Error("Warn should be logged")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []Config{
		{Level: "loud"},
		{Level: "info", Format: "xml"},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("warn") })

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"debug", "debug", false},
		{"WARNING", "warn", false},
		{"error", "error", false},
		{"", "info", false},
		{"bogus", "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := SetLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got := Level(); got != tt.want {
				t.Errorf("Level() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetLevel_AppliesToExistingLoggers(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")

	l.Debug("hidden")
	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	l.Debug("shown")

	if !strings.Contains(buf.String(), "shown") || strings.Contains(buf.String(), "hidden") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	// Must not panic and must not write anywhere visible.
	Nop().With("k", "v").WithContext(context.Background()).Error("ignored")
}

func TestWithContext_RequestID(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	ctx := WithRequestID(context.Background(), "01JABCDEF")
	l.WithContext(ctx).With("method", "GET").Info("request sent")

	entry := decode(t, buf)
	if entry["request_id"] != "01JABCDEF" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v", entry["method"])
	}
}

func TestRequestID_Empty(t *testing.T) {
	if id := RequestID(context.Background()); id != "" {
		t.Errorf("RequestID() = %q, want empty", id)
	}
}

func TestDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	n := Nop()
	SetDefault(n)
	if Default() != n {
		t.Error("Default() should return the logger passed to SetDefault")
	}
	SetDefault(nil)
	if Default() != n {
		t.Error("SetDefault(nil) should be ignored")
	}
}

func TestText_Format(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = SetLevel("warn") })

	l.Info("hello", "n", 1)
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}
}
