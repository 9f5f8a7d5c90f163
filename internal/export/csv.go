// Package export writes analysis results to CSV and JSON files and
// publishes findings to Kafka for downstream consumers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/detect"
)

const timestampLayout = "2006-01-02 15:04:05"

// suspectColumns is the CSV header, one row per suspect per alert type.
var suspectColumns = []string{
	"ip",
	"alert_type",
	"occurrence_count",
	"first_detection",
	"last_detection",
	"services",
	"targets",
}

// WriteSuspectsCSV writes one row per suspect per alert type. Brute-force
// rows count authentication attempts, port-scan rows count unique ports,
// and high-volume rows carry the raw access count with no window.
func WriteSuspectsCSV(w io.Writer, result *detect.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(suspectColumns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i := range result.Suspects {
		for _, row := range suspectRows(&result.Suspects[i]) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("export: write row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

func suspectRows(p *detect.SuspectProfile) [][]string {
	var rows [][]string

	if bf := p.BruteForce; bf != nil {
		rows = append(rows, []string{
			p.Address,
			string(detect.AlertBruteForce),
			strconv.Itoa(bf.AttemptCount),
			bf.WindowStart.Format(timestampLayout),
			bf.WindowEnd.Format(timestampLayout),
			strings.Join(bf.TargetedServices, ";"),
			strings.Join(bf.TargetedUsernames, ";"),
		})
	}
	if ps := p.PortScan; ps != nil {
		rows = append(rows, []string{
			p.Address,
			string(detect.AlertPortScan),
			strconv.Itoa(ps.UniquePortCount),
			ps.WindowStart.Format(timestampLayout),
			ps.WindowEnd.Format(timestampLayout),
			strings.Join(ps.Protocols, ";"),
			strings.Join(ps.TargetHosts, ";"),
		})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{
			p.Address,
			string(detect.AlertHighVolume),
			strconv.Itoa(p.AccessCount),
			"", "", "", "",
		})
	}
	return rows
}

// SuspectRow is one decoded line of a suspects CSV.
type SuspectRow struct {
	Address         string
	AlertType       detect.AlertType
	OccurrenceCount int
	FirstDetection  time.Time
	LastDetection   time.Time
	Services        []string
	Targets         []string
}

// ReadSuspectsCSV decodes a file previously produced by WriteSuspectsCSV.
func ReadSuspectsCSV(r io.Reader) ([]SuspectRow, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("export: read header: %w", err)
	}
	if len(header) != len(suspectColumns) {
		return nil, fmt.Errorf("export: unexpected header %v", header)
	}

	var rows []SuspectRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read row: %w", err)
		}

		count, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("export: bad occurrence count %q: %w", record[2], err)
		}

		row := SuspectRow{
			Address:         record[0],
			AlertType:       detect.AlertType(record[1]),
			OccurrenceCount: count,
			Services:        splitList(record[5]),
			Targets:         splitList(record[6]),
		}
		if record[3] != "" {
			if row.FirstDetection, err = time.Parse(timestampLayout, record[3]); err != nil {
				return nil, fmt.Errorf("export: bad first detection %q: %w", record[3], err)
			}
		}
		if record[4] != "" {
			if row.LastDetection, err = time.Parse(timestampLayout, record[4]); err != nil {
				return nil, fmt.Errorf("export: bad last detection %q: %w", record[4], err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

// WriteSuspectsFile writes the suspects CSV to path, creating parent
// directories as needed.
func WriteSuspectsFile(path string, result *detect.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create file: %w", err)
	}
	defer f.Close()

	if err := WriteSuspectsCSV(f, result); err != nil {
		return err
	}
	return f.Close()
}

// TimestampedFilename inserts a timestamp before the extension, so repeated
// exports never overwrite each other.
func TimestampedFilename(name string, now time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext)
}
