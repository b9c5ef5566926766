package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeState string

func (s fakeState) String() string { return string(s) }

func TestNewLogger_WritesAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", Port(3001))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "port=3001") {
		t.Errorf("expected warn message with port attribute, got %q", out)
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

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	WithComponent(WithTool(WithOperation(logger, "calendar.list"), "list_meetings"), "authflow").Info("msg")

	out := buf.String()
	for _, want := range []string{"operation=calendar.list", "tool=list_meetings", "component=authflow"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("calendar.create"), KeyOperation, "calendar.create"},
		{"tool", Tool("create_meeting"), KeyTool, "create_meeting"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
		{"port", Port(3000), KeyPort, "3000"},
		{"flow state", FlowState(fakeState("listening")), KeyFlowState, "listening"},
		{"path", Path("/tmp/token.json"), KeyPath, "/tmp/token.json"},
		{"meeting id", MeetingID("evt1"), KeyMeetingID, "evt1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	hash := AnonymizeEmail("jane@example.com")
	if len(hash) != 21 || !strings.HasPrefix(hash, "user:") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if hash != AnonymizeEmail("Jane@Example.com") {
		t.Error("hash should be case-insensitive")
	}
	if hash == AnonymizeEmail("bob@example.com") {
		t.Error("different emails should produce different hashes")
	}
	if UserHash("jane@example.com").Value.String() != hash {
		t.Error("UserHash should carry the anonymized value")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"ya29.a_very_long_token", "[token:22 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}
