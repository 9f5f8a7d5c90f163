package detect

import (
	"sort"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// PortScanDetector finds addresses that touch many distinct destination
// ports within a rolling time window.
type PortScanDetector struct {
	minPorts   int
	window     time.Duration
	allActions bool

	highPorts   int
	mediumPorts int
}

// NewPortScanDetector creates a detector with the given minimum distinct
// port count and window length in minutes. By default only DENY records are
// analyzed, the stronger scanning signal.
func NewPortScanDetector(minPorts, windowMinutes int) *PortScanDetector {
	return &PortScanDetector{
		minPorts:    minPorts,
		window:      time.Duration(windowMinutes) * time.Minute,
		highPorts:   20,
		mediumPorts: 15,
	}
}

// WithAllActions widens the detector to analyze ALLOW records as well.
// This is an optional mode producing a materially different finding set.
func (d *PortScanDetector) WithAllActions() *PortScanDetector {
	d.allActions = true
	return d
}

// WithRiskBuckets overrides the informational risk bucket boundaries:
// unique ports > high is tier high, > medium is tier medium, else low.
func (d *PortScanDetector) WithRiskBuckets(high, medium int) *PortScanDetector {
	d.highPorts = high
	d.mediumPorts = medium
	return d
}

// Detect scans the batch for port-scan patterns and returns at most one
// finding per source address. Empty input yields an empty slice.
//
// Distinct ports across all of an address's records is computed first as a
// cheap pre-filter; only addresses passing it get the span check. Scan
// bursts are typically dense, so the whole span is treated as the window
// when it fits, rather than sliding as the brute-force detector does.
func (d *PortScanDetector) Detect(records []schema.Record) []PortScanFinding {
	var denied []schema.Record
	for _, r := range records {
		if r.Kind != schema.KindFirewall || r.Firewall == nil {
			continue
		}
		if d.allActions || r.Firewall.Action == schema.ActionDeny {
			denied = append(denied, r)
		}
	}
	if len(denied) == 0 {
		return nil
	}

	groups, addrs := groupBySource(denied)

	var findings []PortScanFinding
	for _, addr := range addrs {
		attempts := groups[addr]

		ports := make(map[int]bool)
		for _, a := range attempts {
			ports[a.Firewall.Port] = true
		}
		if len(ports) < d.minPorts {
			continue
		}

		start := attempts[0].Timestamp
		end := attempts[len(attempts)-1].Timestamp
		duration := end.Sub(start)
		if duration > d.window {
			continue
		}

		findings = append(findings, d.buildFinding(addr, attempts, ports, start, end))
	}
	return findings
}

func (d *PortScanDetector) buildFinding(addr string, attempts []schema.Record, ports map[int]bool, start, end time.Time) PortScanFinding {
	sortedPorts := make([]int, 0, len(ports))
	for p := range ports {
		sortedPorts = append(sortedPorts, p)
	}
	sort.Ints(sortedPorts)

	var hosts, protocols []string
	var tally Tally
	for _, a := range attempts {
		hosts = append(hosts, a.Firewall.DestinationIP)
		protocols = append(protocols, a.Firewall.Protocol)
		switch a.Firewall.Action {
		case schema.ActionAllow:
			tally.Allowed++
		case schema.ActionDeny:
			tally.Denied++
		}
	}

	durationSeconds := end.Sub(start).Seconds()

	return PortScanFinding{
		Address:         addr,
		WindowStart:     start,
		WindowEnd:       end,
		UniquePortCount: len(ports),
		PortsScanned:    sortedPorts,
		TotalAttempts:   len(attempts),
		TargetHosts:     sortedSet(hosts),
		Protocols:       sortedSet(protocols),
		ScanRate:        scanRate(len(ports), durationSeconds),
		ActionTally:     tally,
		Risk:            d.riskBucket(len(ports)),
	}
}

// scanRate returns distinct ports per minute. A zero-duration burst (all
// events on one timestamp) must not divide by zero; the whole scan is
// treated as one second of activity.
func scanRate(uniquePorts int, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return float64(uniquePorts) * 60
	}
	return float64(uniquePorts) / durationSeconds * 60
}

func (d *PortScanDetector) riskBucket(uniquePorts int) RiskTier {
	switch {
	case uniquePorts > d.highPorts:
		return RiskHigh
	case uniquePorts > d.mediumPorts:
		return RiskMedium
	default:
		return RiskLow
	}
}
