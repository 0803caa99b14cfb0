package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

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
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", true).Info("frame analyzed", "room", "r1")
	if !strings.Contains(buf.String(), `"room":"r1"`) {
		t.Errorf("json output = %q, want room attribute", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "info", false).Info("frame analyzed", "room", "r1")
	if !strings.Contains(buf.String(), "room=r1") {
		t.Errorf("text output = %q, want room=r1", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "warn", false).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info below warn level should be dropped, got %q", buf.String())
	}
}
