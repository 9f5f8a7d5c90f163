// Package logging configures the process-wide structured logger and keeps
// credentials out of log output.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/henrilopes1/log-analyzer/internal/config"
)

// Setup builds the root logger from configuration and installs it as the
// slog default.
func Setup(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: maskSensitiveAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskSensitiveAttr is the ReplaceAttr hook for every handler built by
// Setup. Attributes whose key names a credential are replaced wholesale.
func maskSensitiveAttr(groups []string, a slog.Attr) slog.Attr {
	if !IsSensitiveField(a.Key) {
		return a
	}
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(MaskSensitiveValue(a.Key, a.Value.String()))
	} else {
		a.Value = slog.StringValue(MaskedValue)
	}
	return a
}

// SensitiveFields lists field names whose values must never be logged.
var SensitiveFields = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"access_token":  true,
	"private_key":   true,
	"credentials":   true,
	"authorization": true,
	"x-api-key":     true,
}

// MaskedValue replaces sensitive values in log output.
const MaskedValue = "[REDACTED]"

// MaskSensitiveValue masks a value if the field name is sensitive.
func MaskSensitiveValue(fieldName, value string) string {
	if value == "" {
		return value
	}
	if IsSensitiveField(fieldName) {
		return MaskedValue
	}
	return value
}

// IsSensitiveField reports whether a field name names a credential.
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	if SensitiveFields[lower] {
		return true
	}
	for sensitive := range SensitiveFields {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
