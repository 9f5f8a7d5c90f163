package detect

import (
	"sort"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// AccessCounter tallies total events per source address across both log
// kinds and classifies each address into a risk tier. It is independent of
// the two pattern detectors and runs even when they find nothing, acting as
// the fallback volume-based suspicion signal.
type AccessCounter struct {
	highThreshold   int
	mediumThreshold int
}

// NewAccessCounter creates a counter with the given tier thresholds.
func NewAccessCounter(highThreshold, mediumThreshold int) *AccessCounter {
	return &AccessCounter{
		highThreshold:   highThreshold,
		mediumThreshold: mediumThreshold,
	}
}

// Count tallies the batch and returns one entry per address, sorted by
// count descending, ties broken by address for determinism.
func (c *AccessCounter) Count(records []schema.Record) []AccessCount {
	tallies := make(map[string]int)
	for _, r := range records {
		tallies[r.SourceIP]++
	}

	counts := make([]AccessCount, 0, len(tallies))
	for addr, n := range tallies {
		counts = append(counts, AccessCount{
			Address: addr,
			Count:   n,
			Tier:    c.Classify(n),
		})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Address < counts[j].Address
	})

	return counts
}

// Classify maps an event count to a risk tier. Classification is monotonic
// in the count for fixed thresholds.
func (c *AccessCounter) Classify(count int) RiskTier {
	switch {
	case count >= c.highThreshold:
		return RiskHigh
	case count >= c.mediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
