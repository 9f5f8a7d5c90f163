// Package report renders an analysis result as a styled console report:
// a summary panel, per-detector tables, and recommendations.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/henrilopes1/log-analyzer/internal/detect"
	"github.com/henrilopes1/log-analyzer/internal/geo"
)

var (
	primary    = lipgloss.Color("#7C3AED")
	secondary  = lipgloss.Color("#10B981")
	warning    = lipgloss.Color("#F59E0B")
	danger     = lipgloss.Color("#EF4444")
	mutedColor = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	riskStyles = map[detect.RiskTier]lipgloss.Style{
		detect.RiskLow:    lipgloss.NewStyle().Foreground(secondary),
		detect.RiskMedium: lipgloss.NewStyle().Foreground(warning).Bold(true),
		detect.RiskHigh:   lipgloss.NewStyle().Foreground(danger).Bold(true),
	}
)

// Renderer writes console reports. TopN caps how many rows each table
// shows; the underlying result is never truncated.
type Renderer struct {
	TopN int

	locations map[string]*geo.Location
	highRisk  map[string]bool
}

// NewRenderer creates a renderer with the given table row cap.
func NewRenderer(topN int) *Renderer {
	if topN <= 0 {
		topN = 10
	}
	return &Renderer{TopN: topN}
}

// WithLocations adds a geolocation section to the report. Suspects whose
// country code appears in highRiskCountries are flagged.
func (r *Renderer) WithLocations(locations map[string]*geo.Location, highRiskCountries []string) *Renderer {
	r.locations = locations
	r.highRisk = make(map[string]bool, len(highRiskCountries))
	for _, cc := range highRiskCountries {
		r.highRisk[strings.ToUpper(cc)] = true
	}
	return r
}

// Render writes the full report.
func (r *Renderer) Render(w io.Writer, result *detect.Result) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SECURITY LOG ANALYSIS REPORT"))
	b.WriteString("\n")
	b.WriteString(r.renderSummary(result))
	b.WriteString("\n")

	b.WriteString(r.renderBruteForce(result.BruteForce))
	b.WriteString(r.renderPortScans(result.PortScans))
	b.WriteString(r.renderAccessCounts(result.AccessCounts))
	if len(r.locations) > 0 {
		b.WriteString(r.renderGeography(result))
	}
	b.WriteString(r.renderRecommendations(result))

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderSummary(result *detect.Result) string {
	lines := []string{
		fmt.Sprintf("Analysis ID:      %s", result.AnalysisID),
		fmt.Sprintf("Generated:        %s", result.GeneratedAt.Format(time.RFC3339)),
		fmt.Sprintf("Records analyzed: %d (%d firewall, %d auth, %d dropped)",
			result.Stats.Total, result.Stats.Firewall, result.Stats.Auth, result.Stats.Dropped),
		fmt.Sprintf("Brute force:      %d address(es)", len(result.BruteForce)),
		fmt.Sprintf("Port scans:       %d address(es)", len(result.PortScans)),
		fmt.Sprintf("Suspects:         %d", len(result.Suspects)),
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func (r *Renderer) renderBruteForce(findings []detect.BruteForceFinding) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("BRUTE FORCE ATTACKS"))
	b.WriteString("\n")

	if len(findings) == 0 {
		b.WriteString(mutedStyle.Render("  none detected"))
		b.WriteString("\n")
		return b.String()
	}

	sorted := make([]detect.BruteForceFinding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AttemptCount != sorted[j].AttemptCount {
			return sorted[i].AttemptCount > sorted[j].AttemptCount
		}
		return sorted[i].Address < sorted[j].Address
	})

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-16s %9s %10s  %-20s %s",
		"ADDRESS", "ATTEMPTS", "DURATION", "USERNAMES", "SERVICES")))
	b.WriteString("\n")

	for _, f := range capRows(sorted, r.TopN) {
		b.WriteString(fmt.Sprintf("  %-16s %9d %10s  %-20s %s\n",
			f.Address,
			f.AttemptCount,
			formatDuration(time.Duration(f.DurationSeconds*float64(time.Second))),
			truncate(strings.Join(f.TargetedUsernames, ", "), 20),
			strings.Join(f.TargetedServices, ", "),
		))
	}
	b.WriteString(r.omittedNote(len(sorted)))
	return b.String()
}

func (r *Renderer) renderPortScans(findings []detect.PortScanFinding) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("PORT SCANS"))
	b.WriteString("\n")

	if len(findings) == 0 {
		b.WriteString(mutedStyle.Render("  none detected"))
		b.WriteString("\n")
		return b.String()
	}

	sorted := make([]detect.PortScanFinding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UniquePortCount != sorted[j].UniquePortCount {
			return sorted[i].UniquePortCount > sorted[j].UniquePortCount
		}
		return sorted[i].Address < sorted[j].Address
	})

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-16s %6s %9s %12s  %-8s %s",
		"ADDRESS", "PORTS", "ATTEMPTS", "RATE/MIN", "RISK", "TARGETS")))
	b.WriteString("\n")

	for _, f := range capRows(sorted, r.TopN) {
		risk := riskStyles[f.Risk].Render(strings.ToUpper(string(f.Risk)))
		b.WriteString(fmt.Sprintf("  %-16s %6d %9d %12.1f  %-8s %s\n",
			f.Address,
			f.UniquePortCount,
			f.TotalAttempts,
			f.ScanRate,
			risk,
			strings.Join(f.TargetHosts, ", "),
		))
	}
	b.WriteString(r.omittedNote(len(sorted)))
	return b.String()
}

func (r *Renderer) renderAccessCounts(counts []detect.AccessCount) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("ACCESS VOLUME"))
	b.WriteString("\n")

	if len(counts) == 0 {
		b.WriteString(mutedStyle.Render("  no records"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-16s %8s  %s", "ADDRESS", "EVENTS", "RISK")))
	b.WriteString("\n")

	for _, c := range capRows(counts, r.TopN) {
		b.WriteString(fmt.Sprintf("  %-16s %8d  %s\n",
			c.Address, c.Count, riskStyles[c.Tier].Render(strings.ToUpper(string(c.Tier)))))
	}
	b.WriteString(r.omittedNote(len(counts)))
	return b.String()
}

func (r *Renderer) renderGeography(result *detect.Result) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("GEOGRAPHY"))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-16s %-24s %-20s %s", "ADDRESS", "LOCATION", "ISP", "")))
	b.WriteString("\n")

	shown := 0
	for i := range result.Suspects {
		s := &result.Suspects[i]
		loc, ok := r.locations[s.Address]
		if !ok {
			continue
		}
		if shown >= r.TopN {
			break
		}
		shown++

		flag := ""
		if r.highRisk[strings.ToUpper(loc.CountryCode)] {
			flag = riskStyles[detect.RiskHigh].Render("HIGH RISK REGION")
		}
		place := loc.Country
		if loc.City != "" {
			place = loc.City + ", " + loc.Country
		}
		b.WriteString(fmt.Sprintf("  %-16s %-24s %-20s %s\n",
			s.Address, truncate(place, 24), truncate(loc.ISP, 20), flag))
	}
	if shown == 0 {
		b.WriteString(mutedStyle.Render("  no geographic data"))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) renderRecommendations(result *detect.Result) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("RECOMMENDATIONS"))
	b.WriteString("\n")

	var recs []string
	if len(result.BruteForce) > 0 {
		recs = append(recs, "Block or rate limit the brute force source addresses and enforce account lockout on the targeted services.")
	}
	if len(result.PortScans) > 0 {
		recs = append(recs, "Review firewall rules for the scanned hosts and alert on further probes from the scanning addresses.")
	}
	for i := range result.Suspects {
		s := &result.Suspects[i]
		if s.BruteForce == nil && s.PortScan == nil && s.RiskTier == detect.RiskHigh {
			recs = append(recs, "Investigate high volume addresses that triggered no detector; they may be misconfigured hosts or slow attackers.")
			break
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "No suspicious activity detected. No action required.")
	}

	for _, rec := range recs {
		b.WriteString(fmt.Sprintf("  - %s\n", rec))
	}
	return b.String()
}

func (r *Renderer) omittedNote(total int) string {
	if total <= r.TopN {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("  (%d more not shown)", total-r.TopN)) + "\n"
}

func capRows[T any](rows []T, n int) []T {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// formatDuration renders spans the way an analyst reads them: seconds under
// a minute, minutes and seconds under an hour, hours and minutes above.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
