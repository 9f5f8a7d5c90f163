package detect

import (
	"time"

	"github.com/google/uuid"
)

// RiskTier is a coarse classification derived from event-count thresholds.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// AlertType identifies which detector produced a finding.
type AlertType string

const (
	AlertBruteForce AlertType = "BRUTE_FORCE"
	AlertPortScan   AlertType = "PORT_SCAN"
	AlertHighVolume AlertType = "HIGH_VOLUME"
)

// BruteForceFinding is the brute-force detector's output for one address.
// At most one finding exists per address per run.
type BruteForceFinding struct {
	Address           string    `json:"address"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	AttemptCount      int       `json:"attempt_count"`
	TargetedUsernames []string  `json:"targeted_usernames"`
	TargetedServices  []string  `json:"targeted_services"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// PortScanFinding is the port-scan detector's output for one address.
// At most one finding exists per address per run.
type PortScanFinding struct {
	Address         string    `json:"address"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	UniquePortCount int       `json:"unique_port_count"`
	PortsScanned    []int     `json:"ports_scanned"`
	TotalAttempts   int       `json:"total_attempts"`
	TargetHosts     []string  `json:"target_hosts"`
	Protocols       []string  `json:"protocols"`
	ScanRate        float64   `json:"scan_rate"`
	ActionTally     Tally     `json:"action_tally"`
	Risk            RiskTier  `json:"risk"`
}

// Tally counts ALLOW vs DENY actions observed in a scan window.
type Tally struct {
	Allowed int `json:"allowed"`
	Denied  int `json:"denied"`
}

// AccessCount is the per-address event tally with its derived risk tier.
type AccessCount struct {
	Address string   `json:"address"`
	Count   int      `json:"count"`
	Tier    RiskTier `json:"tier"`
}

// SuspectProfile aggregates everything known about one suspect address.
// An address may carry zero, one, or both finding types.
type SuspectProfile struct {
	Address     string             `json:"address"`
	BruteForce  *BruteForceFinding `json:"brute_force,omitempty"`
	PortScan    *PortScanFinding   `json:"port_scan,omitempty"`
	AccessCount int                `json:"access_count"`
	RiskTier    RiskTier           `json:"risk_tier"`
}

// AlertTypes lists the alert types that flagged this profile.
func (p *SuspectProfile) AlertTypes() []AlertType {
	var types []AlertType
	if p.BruteForce != nil {
		types = append(types, AlertBruteForce)
	}
	if p.PortScan != nil {
		types = append(types, AlertPortScan)
	}
	if len(types) == 0 {
		types = append(types, AlertHighVolume)
	}
	return types
}

// RecordStats counts the records that entered an analysis run.
type RecordStats struct {
	Total    int `json:"total"`
	Firewall int `json:"firewall"`
	Auth     int `json:"auth"`
	Dropped  int `json:"dropped"`
}

// Result is the machine-readable output of one analysis run, suitable for
// serialization and for the report/export layers.
type Result struct {
	AnalysisID   uuid.UUID           `json:"analysis_id"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Params       Params              `json:"params"`
	Stats        RecordStats         `json:"stats"`
	BruteForce   []BruteForceFinding `json:"brute_force"`
	PortScans    []PortScanFinding   `json:"port_scans"`
	AccessCounts []AccessCount       `json:"access_counts"`
	Suspects     []SuspectProfile    `json:"suspects"`
}

// Suspect returns the profile for an address, or nil if it is not a suspect.
func (r *Result) Suspect(address string) *SuspectProfile {
	for i := range r.Suspects {
		if r.Suspects[i].Address == address {
			return &r.Suspects[i]
		}
	}
	return nil
}
