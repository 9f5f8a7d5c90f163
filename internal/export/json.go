package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/henrilopes1/log-analyzer/internal/detect"
)

// WriteResultJSON writes the full analysis result as indented JSON.
func WriteResultJSON(w io.Writer, result *detect.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("export: encode result: %w", err)
	}
	return nil
}

// WriteResultFile writes the result JSON to path, creating parent
// directories as needed.
func WriteResultFile(path string, result *detect.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create file: %w", err)
	}
	defer f.Close()

	if err := WriteResultJSON(f, result); err != nil {
		return err
	}
	return f.Close()
}
