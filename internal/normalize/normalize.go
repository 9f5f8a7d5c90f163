// Package normalize validates and cleans raw structured records before they
// reach the detection engine. Malformed rows (bad address, unparseable
// timestamp) are dropped and counted, never propagated.
package normalize

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/schema"
)

// TimestampFormats is the ordered list of accepted timestamp layouts.
// Parsing tries each in order; first match wins.
var TimestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

// DropStats counts rows discarded during normalization, by reason.
type DropStats struct {
	InvalidAddress   int `json:"invalid_address"`
	InvalidTimestamp int `json:"invalid_timestamp"`
	InvalidFields    int `json:"invalid_fields"`
}

// Total returns the total number of dropped rows.
func (s DropStats) Total() int {
	return s.InvalidAddress + s.InvalidTimestamp + s.InvalidFields
}

// Normalizer converts raw key/value rows into validated records.
type Normalizer struct {
	validator *schema.Validator
	logger    *slog.Logger
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		validator: schema.NewValidator(),
		logger:    logger,
	}
}

// Normalize converts raw rows of the given kind into records, dropping
// malformed rows silently (counted in the returned stats). The output is
// sorted ascending by timestamp, which keeps each source address group
// chronologically ordered as the detectors require.
func (n *Normalizer) Normalize(rows []map[string]string, kind schema.Kind) ([]schema.Record, DropStats) {
	var stats DropStats
	records := make([]schema.Record, 0, len(rows))

	for _, row := range rows {
		record, reason := n.buildRecord(row, kind)
		switch reason {
		case dropNone:
			records = append(records, record)
		case dropAddress:
			stats.InvalidAddress++
		case dropTimestamp:
			stats.InvalidTimestamp++
		case dropFields:
			stats.InvalidFields++
		}
	}

	if stats.Total() > 0 {
		n.logger.Debug("dropped malformed rows",
			"kind", kind,
			"invalid_address", stats.InvalidAddress,
			"invalid_timestamp", stats.InvalidTimestamp,
			"invalid_fields", stats.InvalidFields,
		)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, stats
}

// SortRecords sorts records ascending by timestamp, preserving input order
// for equal timestamps. Use it after merging records from multiple sources.
func SortRecords(records []schema.Record) []schema.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

type dropReason int

const (
	dropNone dropReason = iota
	dropAddress
	dropTimestamp
	dropFields
)

func (n *Normalizer) buildRecord(row map[string]string, kind schema.Kind) (schema.Record, dropReason) {
	sourceIP := CleanAddress(row["source_ip"])
	if sourceIP == "" {
		return schema.Record{}, dropAddress
	}

	ts, ok := ParseTimestamp(row["timestamp"])
	if !ok {
		return schema.Record{}, dropTimestamp
	}

	record := schema.Record{
		Timestamp: ts,
		SourceIP:  sourceIP,
		Kind:      kind,
	}

	switch kind {
	case schema.KindFirewall:
		port, err := strconv.Atoi(strings.TrimSpace(row["port"]))
		if err != nil {
			return schema.Record{}, dropFields
		}
		record.Firewall = &schema.FirewallFields{
			DestinationIP: CleanAddress(row["destination_ip"]),
			Port:          port,
			Protocol:      strings.TrimSpace(row["protocol"]),
			Action:        schema.FirewallAction(strings.ToUpper(strings.TrimSpace(row["action"]))),
		}
	case schema.KindAuthentication:
		// Some feeds label the outcome column "status", others "action".
		outcome := row["status"]
		if outcome == "" {
			outcome = row["action"]
		}
		record.Auth = &schema.AuthFields{
			Username: strings.TrimSpace(row["username"]),
			Service:  strings.TrimSpace(row["service"]),
			Action:   normalizeAuthAction(outcome),
		}
	default:
		return schema.Record{}, dropFields
	}

	if err := n.validator.Validate(&record); err != nil {
		return schema.Record{}, dropFields
	}
	return record, dropNone
}

// normalizeAuthAction maps outcome spellings seen in real feeds onto the
// canonical SUCCESS/FAIL pair.
func normalizeAuthAction(raw string) schema.AuthAction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "SUCCEEDED", "OK":
		return schema.AuthSuccess
	case "FAIL", "FAILED", "FAILURE":
		return schema.AuthFail
	}
	return schema.AuthAction(strings.ToUpper(strings.TrimSpace(raw)))
}

// CleanAddress trims an address and returns it only if it is a strictly
// valid dotted-quad IPv4, otherwise the empty string.
func CleanAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !schema.ValidIPv4(addr) {
		return ""
	}
	return addr
}

// ParseTimestamp parses a timestamp against the known layouts in order.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range TimestampFormats {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
