package report

import (
	"strings"
	"testing"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/detect"
	"github.com/henrilopes1/log-analyzer/internal/geo"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{time.Minute, "1m"},
		{150 * time.Second, "2m 30s"},
		{59*time.Minute + 59*time.Second, "59m 59s"},
		{time.Hour, "1h"},
		{time.Hour + 5*time.Minute, "1h 5m"},
		{0, "0s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderIncludesAllSections(t *testing.T) {
	result := &detect.Result{
		GeneratedAt: time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC),
		Stats:       detect.RecordStats{Total: 100, Firewall: 60, Auth: 40},
		BruteForce: []detect.BruteForceFinding{
			{Address: "203.0.113.5", AttemptCount: 7, DurationSeconds: 40, TargetedUsernames: []string{"admin"}, TargetedServices: []string{"ssh"}},
		},
		PortScans: []detect.PortScanFinding{
			{Address: "198.51.100.7", UniquePortCount: 12, TotalAttempts: 13, ScanRate: 24, Risk: detect.RiskLow, TargetHosts: []string{"10.0.0.1"}},
		},
		AccessCounts: []detect.AccessCount{
			{Address: "198.51.100.7", Count: 13, Tier: detect.RiskHigh},
			{Address: "203.0.113.5", Count: 7, Tier: detect.RiskMedium},
		},
	}

	var b strings.Builder
	if err := NewRenderer(10).Render(&b, result); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"SECURITY LOG ANALYSIS REPORT",
		"BRUTE FORCE ATTACKS",
		"PORT SCANS",
		"ACCESS VOLUME",
		"RECOMMENDATIONS",
		"203.0.113.5",
		"198.51.100.7",
		"40s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderEmptyResult(t *testing.T) {
	var b strings.Builder
	if err := NewRenderer(10).Render(&b, &detect.Result{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, "none detected") {
		t.Error("empty report should say none detected")
	}
	if !strings.Contains(out, "No suspicious activity detected") {
		t.Error("empty report should carry the no-action recommendation")
	}
}

func TestRenderCapsRowsNotData(t *testing.T) {
	counts := make([]detect.AccessCount, 0, 25)
	for i := 0; i < 25; i++ {
		counts = append(counts, detect.AccessCount{
			Address: "192.0.2.1",
			Count:   100 - i,
			Tier:    detect.RiskHigh,
		})
	}
	result := &detect.Result{AccessCounts: counts}

	var b strings.Builder
	if err := NewRenderer(5).Render(&b, result); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.Contains(b.String(), "20 more not shown") {
		t.Error("report should note omitted rows")
	}
	if len(result.AccessCounts) != 25 {
		t.Errorf("rendering truncated the result: %d counts", len(result.AccessCounts))
	}
}

func TestRenderFlagsHighRiskCountries(t *testing.T) {
	result := &detect.Result{
		Suspects: []detect.SuspectProfile{
			{Address: "203.0.113.5", AccessCount: 18, RiskTier: detect.RiskHigh},
			{Address: "198.51.100.7", AccessCount: 13, RiskTier: detect.RiskHigh},
		},
	}
	locations := map[string]*geo.Location{
		"203.0.113.5":  {Country: "Belarus", CountryCode: "BY", City: "Minsk", ISP: "Example ISP"},
		"198.51.100.7": {Country: "Portugal", CountryCode: "PT", City: "Lisbon", ISP: "Example ISP"},
	}

	var b strings.Builder
	renderer := NewRenderer(10).WithLocations(locations, []string{"CN", "RU", "BY"})
	if err := renderer.Render(&b, result); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	if !strings.Contains(out, "GEOGRAPHY") {
		t.Fatal("report missing geography section")
	}
	minskLine := lineContaining(out, "Minsk")
	if !strings.Contains(minskLine, "HIGH RISK REGION") {
		t.Errorf("Belarus suspect not flagged: %q", minskLine)
	}
	lisbonLine := lineContaining(out, "Lisbon")
	if strings.Contains(lisbonLine, "HIGH RISK REGION") {
		t.Errorf("Portugal suspect wrongly flagged: %q", lisbonLine)
	}
}

func lineContaining(s, substr string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}

func TestBruteForceRowsSortedByAttempts(t *testing.T) {
	result := &detect.Result{
		BruteForce: []detect.BruteForceFinding{
			{Address: "192.0.2.1", AttemptCount: 5},
			{Address: "192.0.2.2", AttemptCount: 50},
			{Address: "192.0.2.3", AttemptCount: 20},
		},
	}

	var b strings.Builder
	if err := NewRenderer(10).Render(&b, result); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	first := strings.Index(out, "192.0.2.2")
	second := strings.Index(out, "192.0.2.3")
	third := strings.Index(out, "192.0.2.1")
	if !(first < second && second < third) {
		t.Errorf("rows not sorted by attempts desc: positions %d %d %d", first, second, third)
	}
}
