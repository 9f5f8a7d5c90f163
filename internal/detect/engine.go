package detect

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// Engine runs the three detection passes over a normalized record batch and
// aggregates their findings. It holds no mutable state across runs; one
// engine may serve concurrent Analyze calls as long as each call gets its
// own batch.
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given parameters. Validate the
// parameters at configuration load; the engine assumes them sane.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine's detection parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Analyze runs the brute-force, port-scan, and access-count passes over the
// batch and merges the outputs into a Result. The passes are pure functions
// over the input with disjoint outputs, so they run concurrently without
// coordination. Empty input is a valid run yielding empty finding sets.
//
// The dropped count reported by the normalizer is carried into the result
// stats by the caller via WithDropped.
func (e *Engine) Analyze(records []schema.Record) *Result {
	result := &Result{
		AnalysisID:  uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Params:      e.params,
		Stats:       recordStats(records),
	}

	bf := NewBruteForceDetector(e.params.BruteForceThreshold, e.params.BruteForceWindowMinutes)
	ps := NewPortScanDetector(e.params.PortScanMinPorts, e.params.PortScanWindowMinutes)
	if e.params.PortScanAllActions {
		ps = ps.WithAllActions()
	}
	ac := NewAccessCounter(e.params.RiskHighThreshold, e.params.RiskMediumThreshold)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		result.BruteForce = bf.Detect(records)
	}()
	go func() {
		defer wg.Done()
		result.PortScans = ps.Detect(records)
	}()
	go func() {
		defer wg.Done()
		result.AccessCounts = ac.Count(records)
	}()
	wg.Wait()

	result.Suspects = e.aggregate(result)
	return result
}

// aggregate merges detector outputs into the suspect set: every address in
// a brute-force finding, a port-scan finding, or a medium/high access-count
// bucket. Profiles combine whichever findings exist for the address.
func (e *Engine) aggregate(result *Result) []SuspectProfile {
	profiles := make(map[string]*SuspectProfile)

	get := func(addr string) *SuspectProfile {
		if p, ok := profiles[addr]; ok {
			return p
		}
		p := &SuspectProfile{Address: addr, RiskTier: RiskLow}
		profiles[addr] = p
		return p
	}

	for i := range result.BruteForce {
		get(result.BruteForce[i].Address).BruteForce = &result.BruteForce[i]
	}
	for i := range result.PortScans {
		get(result.PortScans[i].Address).PortScan = &result.PortScans[i]
	}
	for _, ac := range result.AccessCounts {
		if ac.Tier == RiskMedium || ac.Tier == RiskHigh {
			get(ac.Address)
		}
	}

	// Fill access counts and tiers for every suspect, including those
	// flagged only by a detector.
	for _, ac := range result.AccessCounts {
		if p, ok := profiles[ac.Address]; ok {
			p.AccessCount = ac.Count
			p.RiskTier = ac.Tier
		}
	}

	out := make([]SuspectProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccessCount != out[j].AccessCount {
			return out[i].AccessCount > out[j].AccessCount
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// WithDropped records how many raw rows the normalizer discarded before
// this run.
func (r *Result) WithDropped(n int) *Result {
	r.Stats.Dropped = n
	return r
}

func recordStats(records []schema.Record) RecordStats {
	stats := RecordStats{Total: len(records)}
	for _, r := range records {
		switch r.Kind {
		case schema.KindFirewall:
			stats.Firewall++
		case schema.KindAuthentication:
			stats.Auth++
		}
	}
	return stats
}
