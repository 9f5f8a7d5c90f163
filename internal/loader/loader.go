// Package loader reads firewall and authentication log files (CSV or JSON)
// into raw key/value rows for the normalizer. It is the boundary between
// file formats and the detection core; the normalizer, not the loader,
// decides which rows are valid records.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// requiredColumns lists the columns a file must carry per log kind. The
// auth outcome column may be named either status or action.
var requiredColumns = map[schema.Kind][]string{
	schema.KindFirewall:       {"timestamp", "source_ip", "destination_ip", "port", "protocol", "action"},
	schema.KindAuthentication: {"timestamp", "source_ip", "username", "service"},
}

// LoadFile reads a log file into raw rows, selecting the parser by file
// extension (.csv or .json).
func LoadFile(path string, kind schema.Kind) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, kind)
	case ".json":
		return ReadJSON(f, kind)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

// ReadCSV reads header-first CSV into raw rows and checks required columns.
func ReadCSV(r io.Reader, kind schema.Kind) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	if err := checkColumns(header, kind); err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadJSON reads an array of flat objects into raw rows. Numeric values are
// rendered back to strings so the normalizer sees one input shape.
func ReadJSON(r io.Reader, kind schema.Kind) ([]map[string]string, error) {
	var objects []map[string]any
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	columns := make([]string, 0, len(objects[0]))
	for k := range objects[0] {
		columns = append(columns, strings.ToLower(k))
	}
	if err := checkColumns(columns, kind); err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(objects))
	for _, obj := range objects {
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			row[strings.ToLower(k)] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; ports and counts are integral.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func checkColumns(have []string, kind schema.Kind) error {
	present := make(map[string]bool, len(have))
	for _, col := range have {
		present[col] = true
	}

	var missing []string
	for _, col := range requiredColumns[kind] {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if kind == schema.KindAuthentication && !present["status"] && !present["action"] {
		missing = append(missing, "status|action")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required %s columns: %s", kind, strings.Join(missing, ", "))
	}
	return nil
}
