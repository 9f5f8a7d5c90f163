// Package tui provides an interactive terminal browser for suspect profiles.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/henrilopes1/log-analyzer/internal/detect"
	"github.com/henrilopes1/log-analyzer/internal/geo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7C3AED"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			MarginTop(1)

	tierStyles = map[detect.RiskTier]lipgloss.Style{
		detect.RiskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		detect.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true),
		detect.RiskHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
)

// Model is the suspect browser. It is read-only over an already computed
// result; no detector runs inside the TUI.
type Model struct {
	result    *detect.Result
	locations map[string]*geo.Location

	cursor   int
	width    int
	height   int
	quitting bool
}

// New creates the browser model. locations may be nil.
func New(result *detect.Result, locations map[string]*geo.Location) *Model {
	return &Model{
		result:    result,
		locations: locations,
	}
}

// Run starts the interactive browser and blocks until the user quits.
func Run(result *detect.Result, locations map[string]*geo.Location) error {
	_, err := tea.NewProgram(New(result, locations), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles key events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.result.Suspects)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			if n := len(m.result.Suspects); n > 0 {
				m.cursor = n - 1
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the suspect list and the detail pane for the selection.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("SUSPECTS (%d)", len(m.result.Suspects))))
	b.WriteString("\n")

	if len(m.result.Suspects) == 0 {
		b.WriteString("  no suspects in this analysis\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	for i := range m.result.Suspects {
		s := &m.result.Suspects[i]
		line := fmt.Sprintf("  %-16s %-10s %6d events  %s",
			s.Address,
			strings.ToUpper(string(s.RiskTier)),
			s.AccessCount,
			alertTypeList(s),
		)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.detailView(&m.result.Suspects[m.cursor]))
	b.WriteString(helpStyle.Render("up/down move   g/G first/last   q quit"))
	return b.String()
}

func (m *Model) detailView(s *detect.SuspectProfile) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("Address:   %s", s.Address))
	lines = append(lines, fmt.Sprintf("Risk:      %s", tierStyles[s.RiskTier].Render(strings.ToUpper(string(s.RiskTier)))))
	lines = append(lines, fmt.Sprintf("Events:    %d", s.AccessCount))

	if loc, ok := m.locations[s.Address]; ok {
		lines = append(lines, fmt.Sprintf("Location:  %s, %s (%s)", loc.City, loc.Country, loc.ISP))
	}

	if bf := s.BruteForce; bf != nil {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("Brute force: %d attempts in %s",
			bf.AttemptCount, bf.WindowEnd.Sub(bf.WindowStart).Round(time.Second)))
		lines = append(lines, fmt.Sprintf("  usernames: %s", strings.Join(bf.TargetedUsernames, ", ")))
		lines = append(lines, fmt.Sprintf("  services:  %s", strings.Join(bf.TargetedServices, ", ")))
	}

	if ps := s.PortScan; ps != nil {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("Port scan: %d unique ports, %.1f ports/min",
			ps.UniquePortCount, ps.ScanRate))
		lines = append(lines, fmt.Sprintf("  targets:   %s", strings.Join(ps.TargetHosts, ", ")))
		lines = append(lines, fmt.Sprintf("  protocols: %s", strings.Join(ps.Protocols, ", ")))
	}

	return detailStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func alertTypeList(s *detect.SuspectProfile) string {
	types := s.AlertTypes()
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, "+")
}
