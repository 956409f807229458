package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("dropped")
	l.With("conn", "conn-1").Info("accepted", "remote", "127.0.0.1:5000")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}
	e := lines[0]
	if e["msg"] != "accepted" || e["level"] != "INFO" {
		t.Errorf("entry = %v", e)
	}
	if e["conn"] != "conn-1" || e["remote"] != "127.0.0.1:5000" {
		t.Errorf("attrs = %v", e)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Warn("slow subscriber", "channel", "news")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "channel=news") {
		t.Errorf("text output = %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	child := Slog(l).With("component", "pubsub")

	child.Info("before")
	SetLevel("debug")
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel = %q", got)
	}
	child.Debug("after")

	SetLevel("nonsense")
	if got := GetLevel(); got != "debug" {
		t.Errorf("unknown level changed GetLevel to %q", got)
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "after" {
		t.Errorf("lines = %v", lines)
	}
	SetLevel("info")
}

func TestSetDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	SetDefault(l)
	slog.Info("via default")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "via default" {
		t.Errorf("lines = %v", lines)
	}
}
