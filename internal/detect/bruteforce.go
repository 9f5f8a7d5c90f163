package detect

import (
	"time"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// BruteForceDetector finds addresses with repeated failed authentication
// attempts inside a rolling time window.
type BruteForceDetector struct {
	threshold int
	window    time.Duration
}

// NewBruteForceDetector creates a detector with the given minimum attempt
// count and window length in minutes. Parameters are assumed validated by
// the configuration layer.
func NewBruteForceDetector(threshold, windowMinutes int) *BruteForceDetector {
	return &BruteForceDetector{
		threshold: threshold,
		window:    time.Duration(windowMinutes) * time.Minute,
	}
}

// Detect scans the batch for brute-force patterns and returns at most one
// finding per source address. Empty input yields an empty slice, not an
// error.
//
// For each address the scan opens a window [t_i, t_i+window] at every
// failure i in chronological order and counts failures inside it, both ends
// inclusive. The first window reaching the threshold wins and scanning for
// that address stops, so one sustained attack never produces overlapping
// findings. Worst case is O(n^2) per address; acceptable for batch sizes
// this engine targets.
func (d *BruteForceDetector) Detect(records []schema.Record) []BruteForceFinding {
	var failures []schema.Record
	for _, r := range records {
		if r.IsFailedAuth() {
			failures = append(failures, r)
		}
	}
	if len(failures) == 0 {
		return nil
	}

	groups, addrs := groupBySource(failures)

	var findings []BruteForceFinding
	for _, addr := range addrs {
		attempts := groups[addr]

		// An address with fewer total failures than the threshold can
		// never fill a window.
		if len(attempts) < d.threshold {
			continue
		}

		if f, ok := d.scanAddress(addr, attempts); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func (d *BruteForceDetector) scanAddress(addr string, attempts []schema.Record) (BruteForceFinding, bool) {
	for i := 0; i+d.threshold <= len(attempts); i++ {
		windowStart := attempts[i].Timestamp
		windowEnd := windowStart.Add(d.window)

		var inWindow []schema.Record
		for _, a := range attempts[i:] {
			if a.Timestamp.After(windowEnd) {
				break
			}
			inWindow = append(inWindow, a)
		}

		if len(inWindow) >= d.threshold {
			last := inWindow[len(inWindow)-1].Timestamp

			var users, services []string
			for _, a := range inWindow {
				users = append(users, a.Auth.Username)
				services = append(services, a.Auth.Service)
			}

			return BruteForceFinding{
				Address:           addr,
				WindowStart:       windowStart,
				WindowEnd:         last,
				AttemptCount:      len(inWindow),
				TargetedUsernames: sortedSet(users),
				TargetedServices:  sortedSet(services),
				// Span of the events actually inside the winning
				// window, not the configured window length.
				DurationSeconds: last.Sub(windowStart).Seconds(),
			}, true
		}
	}
	return BruteForceFinding{}, false
}
