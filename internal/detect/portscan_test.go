package detect

import (
	"testing"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

func fwRecord(addr string, offset time.Duration, port int, action schema.FirewallAction) schema.Record {
	return schema.Record{
		Timestamp: testBase.Add(offset),
		SourceIP:  addr,
		Kind:      schema.KindFirewall,
		Firewall: &schema.FirewallFields{
			DestinationIP: "10.0.0.1",
			Port:          port,
			Protocol:      "TCP",
			Action:        action,
		},
	}
}

func deniedScan(addr string, ports int, spacing time.Duration) []schema.Record {
	records := make([]schema.Record, 0, ports)
	for i := 0; i < ports; i++ {
		records = append(records, fwRecord(addr, time.Duration(i)*spacing, 1000+i, schema.ActionDeny))
	}
	return records
}

func TestPortScanDetector_MinPortsBoundary(t *testing.T) {
	tests := []struct {
		name  string
		ports int
		want  int
	}{
		{"exactly min_ports", 10, 1},
		{"one below min_ports", 9, 0},
		{"above min_ports", 25, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewPortScanDetector(10, 1)
			findings := d.Detect(deniedScan("203.0.113.50", tt.ports, time.Second))

			if len(findings) != tt.want {
				t.Fatalf("got %d findings, want %d", len(findings), tt.want)
			}
			if tt.want == 1 && findings[0].UniquePortCount != tt.ports {
				t.Errorf("unique_port_count = %d, want %d", findings[0].UniquePortCount, tt.ports)
			}
		})
	}
}

func TestPortScanDetector_RepeatPortsCountOnce(t *testing.T) {
	// 20 attempts across only 5 distinct ports stays below min_ports.
	var records []schema.Record
	for i := 0; i < 20; i++ {
		records = append(records, fwRecord("198.51.100.3", time.Duration(i)*time.Second, 1000+i%5, schema.ActionDeny))
	}

	d := NewPortScanDetector(10, 1)
	if findings := d.Detect(records); len(findings) != 0 {
		t.Fatalf("got %d findings, want 0", len(findings))
	}
}

func TestPortScanDetector_SlowScanOutsideWindow(t *testing.T) {
	// 12 ports over 22 minutes exceeds the 1 minute window.
	d := NewPortScanDetector(10, 1)
	if findings := d.Detect(deniedScan("198.51.100.3", 12, 2*time.Minute)); len(findings) != 0 {
		t.Fatalf("got %d findings, want 0", len(findings))
	}
}

func TestPortScanDetector_DenyOnlyDefault(t *testing.T) {
	// 12 allowed connections to distinct ports are not a scan signal by
	// default.
	var records []schema.Record
	for i := 0; i < 12; i++ {
		records = append(records, fwRecord("192.0.2.8", time.Duration(i)*time.Second, 2000+i, schema.ActionAllow))
	}

	d := NewPortScanDetector(10, 1)
	if findings := d.Detect(records); len(findings) != 0 {
		t.Fatalf("default detector got %d findings from ALLOW records, want 0", len(findings))
	}

	all := NewPortScanDetector(10, 1).WithAllActions()
	findings := all.Detect(records)
	if len(findings) != 1 {
		t.Fatalf("all-actions detector got %d findings, want 1", len(findings))
	}
	if findings[0].ActionTally.Allowed != 12 || findings[0].ActionTally.Denied != 0 {
		t.Errorf("action_tally = %+v, want 12 allowed / 0 denied", findings[0].ActionTally)
	}
}

func TestPortScanDetector_ZeroDurationScanRate(t *testing.T) {
	// All events share one timestamp; scan_rate must not divide by zero.
	var records []schema.Record
	for i := 0; i < 15; i++ {
		records = append(records, fwRecord("203.0.113.80", 0, 3000+i, schema.ActionDeny))
	}

	d := NewPortScanDetector(10, 1)
	findings := d.Detect(records)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if got, want := findings[0].ScanRate, float64(15*60); got != want {
		t.Errorf("scan_rate = %v, want %v", got, want)
	}
	if findings[0].WindowStart != findings[0].WindowEnd {
		t.Error("zero-duration scan must have equal window bounds")
	}
}

func TestPortScanDetector_ScanRate(t *testing.T) {
	// 12 ports in 30 seconds is 24 ports/minute.
	d := NewPortScanDetector(10, 1)
	// spacing chosen so the last event lands at 30s: 12 events, ~2.727s apart
	var records []schema.Record
	for i := 0; i < 12; i++ {
		offset := time.Duration(i) * 30 * time.Second / 11
		records = append(records, fwRecord("203.0.113.81", offset, 4000+i, schema.ActionDeny))
	}

	findings := d.Detect(records)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.UniquePortCount != 12 {
		t.Errorf("unique_port_count = %d, want 12", f.UniquePortCount)
	}
	want := 12 / f.WindowEnd.Sub(f.WindowStart).Seconds() * 60
	if f.ScanRate != want {
		t.Errorf("scan_rate = %v, want %v", f.ScanRate, want)
	}
}

func TestPortScanDetector_RiskBuckets(t *testing.T) {
	tests := []struct {
		ports int
		want  RiskTier
	}{
		{12, RiskLow},
		{15, RiskLow},
		{16, RiskMedium},
		{20, RiskMedium},
		{21, RiskHigh},
		{40, RiskHigh},
	}

	d := NewPortScanDetector(10, 1)
	for _, tt := range tests {
		findings := d.Detect(deniedScan("198.51.100.60", tt.ports, 100*time.Millisecond))
		if len(findings) != 1 {
			t.Fatalf("ports=%d: got %d findings, want 1", tt.ports, len(findings))
		}
		if findings[0].Risk != tt.want {
			t.Errorf("ports=%d: risk = %s, want %s", tt.ports, findings[0].Risk, tt.want)
		}
	}
}

func TestPortScanDetector_PortsSortedAndDeduped(t *testing.T) {
	var records []schema.Record
	ports := []int{80, 22, 443, 22, 8080, 21, 3306, 80, 5432, 25, 53, 110, 143}
	for i, p := range ports {
		records = append(records, fwRecord("203.0.113.90", time.Duration(i)*time.Second, p, schema.ActionDeny))
	}

	d := NewPortScanDetector(10, 1)
	findings := d.Detect(records)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	got := findings[0].PortsScanned
	if len(got) != 11 {
		t.Fatalf("ports_scanned has %d entries, want 11 distinct", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("ports_scanned not strictly ascending: %v", got)
		}
	}
	if findings[0].TotalAttempts != len(ports) {
		t.Errorf("total_attempts = %d, want %d", findings[0].TotalAttempts, len(ports))
	}
}

func TestPortScanDetector_EmptyInput(t *testing.T) {
	d := NewPortScanDetector(10, 1)
	if findings := d.Detect(nil); findings != nil {
		t.Errorf("got %v, want nil for empty input", findings)
	}
}
