package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/detect"
)

func sampleResult() *detect.Result {
	windowStart := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	bf := detect.BruteForceFinding{
		Address:           "203.0.113.5",
		WindowStart:       windowStart,
		WindowEnd:         windowStart.Add(40 * time.Second),
		AttemptCount:      7,
		TargetedUsernames: []string{"admin", "root"},
		TargetedServices:  []string{"ssh"},
	}
	ps := detect.PortScanFinding{
		Address:         "198.51.100.7",
		WindowStart:     windowStart,
		WindowEnd:       windowStart.Add(30 * time.Second),
		UniquePortCount: 12,
		TargetHosts:     []string{"10.0.0.1"},
		Protocols:       []string{"TCP"},
	}
	return &detect.Result{
		Suspects: []detect.SuspectProfile{
			{Address: "203.0.113.5", BruteForce: &bf, AccessCount: 7, RiskTier: detect.RiskMedium},
			{Address: "198.51.100.7", PortScan: &ps, AccessCount: 13, RiskTier: detect.RiskHigh},
			{Address: "192.0.2.33", AccessCount: 25, RiskTier: detect.RiskHigh},
		},
	}
}

func TestWriteSuspectsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSuspectsCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteSuspectsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), buf.String())
	}
	if lines[0] != "ip,alert_type,occurrence_count,first_detection,last_detection,services,targets" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "203.0.113.5,BRUTE_FORCE,7,2024-03-15 10:00:00,2024-03-15 10:00:40,ssh,admin;root") {
		t.Errorf("brute force row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "198.51.100.7,PORT_SCAN,12,") {
		t.Errorf("port scan row = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "192.0.2.33,HIGH_VOLUME,25,,,,") {
		t.Errorf("high volume row = %q", lines[3])
	}
}

func TestSuspectsCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	result := sampleResult()
	if err := WriteSuspectsCSV(&buf, result); err != nil {
		t.Fatalf("WriteSuspectsCSV: %v", err)
	}

	rows, err := ReadSuspectsCSV(&buf)
	if err != nil {
		t.Fatalf("ReadSuspectsCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	bf := rows[0]
	if bf.Address != "203.0.113.5" || bf.AlertType != detect.AlertBruteForce {
		t.Errorf("row 0 = %+v", bf)
	}
	if bf.OccurrenceCount != 7 {
		t.Errorf("occurrence count = %d, want 7", bf.OccurrenceCount)
	}
	if got := bf.LastDetection.Sub(bf.FirstDetection); got != 40*time.Second {
		t.Errorf("detection span = %v, want 40s", got)
	}
	if len(bf.Targets) != 2 || bf.Targets[0] != "admin" {
		t.Errorf("targets = %v", bf.Targets)
	}

	hv := rows[2]
	if hv.AlertType != detect.AlertHighVolume {
		t.Errorf("row 2 alert type = %q", hv.AlertType)
	}
	if !hv.FirstDetection.IsZero() || len(hv.Services) != 0 {
		t.Errorf("high volume row carried window data: %+v", hv)
	}
}

func TestWriteSuspectsCSVEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSuspectsCSV(&buf, &detect.Result{}); err != nil {
		t.Fatalf("WriteSuspectsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("empty result produced %d lines, want header only", len(lines))
	}
}

func TestTimestampedFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		want string
	}{
		{"suspects.csv", "suspects_20240315_103045.csv"},
		{"result.json", "result_20240315_103045.json"},
		{"noext", "noext_20240315_103045"},
	}
	for _, tt := range tests {
		if got := TimestampedFilename(tt.name, now); got != tt.want {
			t.Errorf("TimestampedFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
