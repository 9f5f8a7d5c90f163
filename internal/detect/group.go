package detect

import (
	"sort"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// groupBySource buckets records by source address and sorts each bucket
// chronologically. Detectors iterate addresses in sorted order so output
// is deterministic for a given input batch.
func groupBySource(records []schema.Record) (map[string][]schema.Record, []string) {
	groups := make(map[string][]schema.Record)
	for _, r := range records {
		groups[r.SourceIP] = append(groups[r.SourceIP], r)
	}

	addrs := make([]string, 0, len(groups))
	for addr, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	return groups, addrs
}

// sortedSet deduplicates and sorts a list of strings, dropping empties.
func sortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
