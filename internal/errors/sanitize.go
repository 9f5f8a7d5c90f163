// Package errors keeps internal detail out of error messages that leave the
// process, such as API responses and exported reports.
package errors

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	filePathPattern = regexp.MustCompile(`(/[a-zA-Z0-9_\-./]+)|([A-Z]:\\[a-zA-Z0-9_\-\\ ./]+)`)

	addressPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	credentialPattern = regexp.MustCompile(`(?i)(sql:|database:|connection string|password=|secret=|token=|api[_-]?key=)`)
)

// ProductionMode enables sanitization. Development keeps original errors
// for debugging.
var ProductionMode = false

// Sanitize strips sensitive detail from an error before it is returned to
// a client. Returns the original error when ProductionMode is off.
func Sanitize(err error) error {
	if err == nil {
		return nil
	}
	if !ProductionMode {
		return err
	}
	return errors.New(SanitizeString(err.Error()))
}

// SanitizeString strips file paths, source addresses, and credential
// fragments from a message.
func SanitizeString(s string) string {
	if !ProductionMode {
		return s
	}

	s = filePathPattern.ReplaceAllStringFunc(s, func(match string) string {
		return filepath.Base(match)
	})

	// The first two octets stay for debugging context.
	s = addressPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := strings.Split(match, ".")
		if len(parts) == 4 {
			return fmt.Sprintf("%s.%s.x.x", parts[0], parts[1])
		}
		return "x.x.x.x"
	})

	if credentialPattern.MatchString(s) {
		s = "storage operation failed"
	}

	if strings.Contains(s, "goroutine") || strings.Count(s, "\n") > 3 {
		s = "internal error"
	}

	return s
}

// SetProductionMode toggles sanitization for the process.
func SetProductionMode(production bool) {
	ProductionMode = production
}

// WrapSanitized wraps an error with context and sanitizes the result.
func WrapSanitized(err error, message string) error {
	if err == nil {
		return nil
	}
	return Sanitize(fmt.Errorf("%s: %w", message, err))
}
