// Package tui provides a Bubble Tea viewer for a persisted log part.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/edulog/edulog/internal/record"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright, underlined
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	kindEditStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	kindErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	kindOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabEdits
	tabErrors
	tabExecutions
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Edits", "Errors", "Executions",
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the log-part viewer.
type Model struct {
	snap      *record.Snapshot
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
}

// New creates a viewer model for the given snapshot and source filename.
func New(snap *record.Snapshot, filename string) Model {
	return Model{snap: snap, filename: filepath.Base(filename)}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  edulog  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

// ── Tab renderers ─────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabEdits:
		return m.renderEdits()
	case tabErrors:
		return m.renderErrors()
	case tabExecutions:
		return m.renderExecutions()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func ts(t time.Time) string {
	return timeStyle.Render(t.Format("15:04:05"))
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	sb.WriteString(heading("Log Part Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-12s", label)) + "  " + value + "\n")
	}
	row("Student:", m.snap.StudentID)
	row("Session:", m.snap.SessionID)
	row("File:", m.snap.FileName)

	edits, keys := 0, 0
	for _, e := range m.snap.EditLog {
		if e.Key != nil {
			keys++
		} else {
			edits++
		}
	}
	row("Edits:", fmt.Sprint(edits))
	row("Keystrokes:", fmt.Sprint(keys))
	row("Errors:", fmt.Sprint(len(m.snap.ErrorLog)))
	row("Executions:", fmt.Sprint(len(m.snap.ExecutionLog)))
	return sb.String()
}

func (m *Model) renderEdits() string {
	var sb strings.Builder
	sb.WriteString(heading("Edit Log"))
	if len(m.snap.EditLog) == 0 {
		sb.WriteString(dimStyle.Render("  (no edits recorded)") + "\n")
		return sb.String()
	}
	for _, e := range m.snap.EditLog {
		switch {
		case e.Edit != nil:
			r := e.Edit
			sb.WriteString(fmt.Sprintf("  [%s] %s %d:%d-%d:%d  %s\n",
				ts(r.Timestamp), kindEditStyle.Render(strings.ToUpper(string(r.Kind))),
				r.Range.Start.Line, r.Range.Start.Column,
				r.Range.End.Line, r.Range.End.Column,
				r.LineText))
		case e.Key != nil:
			r := e.Key
			sb.WriteString(fmt.Sprintf("  [%s] %s %q at %d:%d\n",
				ts(r.Timestamp), kindKeyStyle.Render("KEY"),
				r.Key, r.Position.Line, r.Position.Column))
		}
	}
	return sb.String()
}

func (m *Model) renderErrors() string {
	var sb strings.Builder
	sb.WriteString(heading("Error Log"))
	if len(m.snap.ErrorLog) == 0 {
		sb.WriteString(dimStyle.Render("  (no errors recorded)") + "\n")
		return sb.String()
	}
	for _, e := range m.snap.ErrorLog {
		sb.WriteString(fmt.Sprintf("  [%s] %s %s\n",
			ts(e.Timestamp), kindErrorStyle.Render("ERROR"), e.Message))
		if e.Stack != nil {
			for _, line := range strings.Split(*e.Stack, "\n") {
				sb.WriteString(dimStyle.Render("      "+line) + "\n")
			}
		}
	}
	return sb.String()
}

func (m *Model) renderExecutions() string {
	var sb strings.Builder
	sb.WriteString(heading("Execution Log"))
	if len(m.snap.ExecutionLog) == 0 {
		sb.WriteString(dimStyle.Render("  (no executions recorded)") + "\n")
		return sb.String()
	}
	for _, e := range m.snap.ExecutionLog {
		switch e.Event {
		case record.ExecutionStart:
			sb.WriteString(fmt.Sprintf("  [%s] %s %s\n",
				ts(e.Timestamp), kindKeyStyle.Render("START"), e.File))
		case record.ExecutionEnd:
			status := kindOKStyle.Render("OK")
			if e.ExitCode != nil && *e.ExitCode != 0 {
				status = kindErrorStyle.Render(fmt.Sprintf("EXIT %d", *e.ExitCode))
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s %s  (%dms)\n",
				ts(e.Timestamp), status, e.File, e.DurationMS))
			if e.Stderr != "" {
				for _, line := range strings.Split(strings.TrimRight(e.Stderr, "\n"), "\n") {
					sb.WriteString(dimStyle.Render("      "+line) + "\n")
				}
			}
		}
	}
	return sb.String()
}

// Run launches the TUI for the given snapshot.
func Run(snap *record.Snapshot, filename string) error {
	p := tea.NewProgram(New(snap, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
