// Package detect implements the threshold-based detection engine: the
// brute-force and port-scan detectors, the access counter, and the
// aggregator that merges their findings into per-address suspect profiles.
package detect

import "fmt"

// Params holds the tunable thresholds and windows for all detection passes.
type Params struct {
	BruteForceThreshold     int `json:"brute_force_threshold" yaml:"brute_force_threshold"`
	BruteForceWindowMinutes int `json:"brute_force_window_minutes" yaml:"brute_force_window_minutes"`
	PortScanMinPorts        int `json:"port_scan_min_ports" yaml:"port_scan_min_ports"`
	PortScanWindowMinutes   int `json:"port_scan_window_minutes" yaml:"port_scan_window_minutes"`
	RiskHighThreshold       int `json:"risk_high_threshold" yaml:"risk_high_threshold"`
	RiskMediumThreshold     int `json:"risk_medium_threshold" yaml:"risk_medium_threshold"`

	// PortScanAllActions widens the port-scan detector to all firewall
	// actions instead of DENY only. Off by default; DENY is the stronger
	// scanning signal.
	PortScanAllActions bool `json:"port_scan_all_actions,omitempty" yaml:"port_scan_all_actions"`
}

// DefaultParams returns the default detection parameters.
func DefaultParams() Params {
	return Params{
		BruteForceThreshold:     5,
		BruteForceWindowMinutes: 1,
		PortScanMinPorts:        10,
		PortScanWindowMinutes:   1,
		RiskHighThreshold:       10,
		RiskMediumThreshold:     5,
	}
}

// Validate rejects non-positive thresholds and windows. Invalid parameters
// are a configuration error, never silently clamped.
func (p Params) Validate() error {
	if p.BruteForceThreshold <= 0 {
		return fmt.Errorf("brute_force_threshold must be positive, got %d", p.BruteForceThreshold)
	}
	if p.BruteForceWindowMinutes <= 0 {
		return fmt.Errorf("brute_force_window_minutes must be positive, got %d", p.BruteForceWindowMinutes)
	}
	if p.PortScanMinPorts <= 0 {
		return fmt.Errorf("port_scan_min_ports must be positive, got %d", p.PortScanMinPorts)
	}
	if p.PortScanWindowMinutes <= 0 {
		return fmt.Errorf("port_scan_window_minutes must be positive, got %d", p.PortScanWindowMinutes)
	}
	if p.RiskHighThreshold <= 0 {
		return fmt.Errorf("risk_high_threshold must be positive, got %d", p.RiskHighThreshold)
	}
	if p.RiskMediumThreshold <= 0 {
		return fmt.Errorf("risk_medium_threshold must be positive, got %d", p.RiskMediumThreshold)
	}
	if p.RiskMediumThreshold > p.RiskHighThreshold {
		return fmt.Errorf("risk_medium_threshold (%d) must not exceed risk_high_threshold (%d)",
			p.RiskMediumThreshold, p.RiskHighThreshold)
	}
	return nil
}
