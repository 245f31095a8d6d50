package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestAttrHelpers(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("calendar.find_slots"), KeyOperation, "calendar.find_slots"},
		{"service", Service("gmail"), KeyService, "gmail"},
		{"account", Account("work"), KeyAccount, "work"},
		{"tool", Tool("email_send"), KeyTool, "email_send"},
		{"status", Status("success"), KeyStatus, "success"},
		{"thread", Thread("t-1"), KeyThread, "t-1"},
		{"draft", Draft(3), KeyDraft, "3"},
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
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError || attr.Value.String() != "test error" {
		t.Errorf("Err() = %v, want error attribute", attr)
	}

	// nil yields an empty group that slog omits
	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	got := AnonymizeEmail("jane@example.com")
	if len(got) != 21 || !strings.HasPrefix(got, "user:") {
		t.Errorf("AnonymizeEmail() = %q, want user: plus 16 hex chars", got)
	}
	if got != AnonymizeEmail("jane@example.com") {
		t.Error("AnonymizeEmail should be deterministic")
	}
	if got == AnonymizeEmail("other@example.com") {
		t.Error("different emails should produce different hashes")
	}
	if AnonymizeEmail("") != "" {
		t.Error("empty email should stay empty")
	}
	if UserHash("jane@example.com").Value.String() != got {
		t.Error("UserHash should use AnonymizeEmail")
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithAgent(WithOperation(base, "turn"), "supervisor").Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec[KeyOperation] != "turn" || rec[KeyAgent] != "supervisor" {
		t.Errorf("record = %v, want operation and agent attributes", rec)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(slog.LevelInfo, FormatJSON, &buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", Thread("t-1"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, `"thread":"t-1"`) {
		t.Errorf("output %q missing thread attribute", out)
	}

	buf.Reset()
	logger, err = NewLogger(slog.LevelDebug, "", &buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("text output = %q", buf.String())
	}

	if _, err := NewLogger(slog.LevelInfo, "xml", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
