package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/henrilopes1/log-analyzer/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupReturnsLogger(t *testing.T) {
	logger := Setup(config.LoggingConfig{Level: "debug", Format: "text"})
	if logger == nil {
		t.Fatal("Setup returned nil")
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug level not enabled")
	}
}

func TestHandlerMasksSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: maskSensitiveAttr,
	}))

	logger.Info("redis cache tier connected",
		"addr", "10.0.0.5:6379",
		"redis_password", "hunter2",
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("credential leaked into log output: %s", out)
	}
	if !strings.Contains(out, MaskedValue) {
		t.Errorf("expected %q in log output: %s", MaskedValue, out)
	}
	if !strings.Contains(out, "10.0.0.5:6379") {
		t.Errorf("non-sensitive attr was masked: %s", out)
	}
	if !strings.Contains(out, "redis cache tier connected") {
		t.Errorf("message missing from output: %s", out)
	}
}

func TestMaskSensitiveValue(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  string
	}{
		{"password", "hunter2", MaskedValue},
		{"redis_password", "hunter2", MaskedValue},
		{"X-API-Key", "abc123", MaskedValue},
		{"username", "admin", "admin"},
		{"password", "", ""},
	}
	for _, tt := range tests {
		if got := MaskSensitiveValue(tt.field, tt.value); got != tt.want {
			t.Errorf("MaskSensitiveValue(%q, %q) = %q, want %q", tt.field, tt.value, got, tt.want)
		}
	}
}

func TestIsSensitiveField(t *testing.T) {
	if !IsSensitiveField("clickhouse_password") {
		t.Error("clickhouse_password should be sensitive")
	}
	if IsSensitiveField("source_ip") {
		t.Error("source_ip should not be sensitive")
	}
}
