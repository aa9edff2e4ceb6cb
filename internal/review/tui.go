// Package review provides the interactive TUI for auditing duplicate
// candidates surfaced by batch discovery.
package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danilopena0/canopy/internal/ingest"
)

// Lines per group item in the list view (headline + subtitle + blank separator).
const groupItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("35")) // green

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("35"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	groupTitleStyle = lipgloss.NewStyle().
			Bold(true)

	groupSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedGroupTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("22"))

	selectedGroupSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("22"))

	exactBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	fuzzyBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("35")).
				Width(12)

	detailValueStyle = lipgloss.NewStyle()

	memberDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	selectedMemberStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15"))
)

type reviewModel struct {
	groups []ingest.DuplicateGroup

	listViewport   viewport.Model
	detailViewport viewport.Model
	cursor         int
	memberCursor   int
	width          int
	height         int
	ready          bool
	view           viewState
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "tab":
		members := m.groups[m.cursor].Jobs
		m.memberCursor = (m.memberCursor + 1) % len(members)
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	case "o":
		members := m.groups[m.cursor].Jobs
		openURL(members[m.memberCursor].URL)
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.groups)-1, 0))
}

func (m *reviewModel) ensureCursorVisible() {
	cursorTop := m.cursor * groupItemHeight
	cursorBottom := cursorTop + groupItemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.groups) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.memberCursor = 0
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	paneWidth := max(m.width-2, 20)
	// Header (1 line) + border top/bottom (2) + status bar (1).
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = paneWidth
		m.listViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.listViewport.SetContent(renderGroups(m.groups, m.cursor))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	exact, fuzzy := 0, 0
	for _, g := range m.groups {
		if g.Kind == ingest.MatchExact {
			exact++
		} else {
			fuzzy++
		}
	}

	header := headerStyle.Render(fmt.Sprintf(" Duplicate Candidates (%d)", len(m.groups)))
	pane := activeBorderStyle.Width(m.listViewport.Width).Render(m.listViewport.View())

	statusText := fmt.Sprintf(" %d exact | %d fuzzy    ↑/↓ cursor  Enter compare  q quit", exact, fuzzy)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	header := headerStyle.Render(" Compare Group")
	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " tab next member  o open URL  esc back  ↑/↓ scroll  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	g := m.groups[m.cursor]
	var b strings.Builder

	badge := string(g.Kind)
	if g.Kind == ingest.MatchFuzzy {
		badge = fmt.Sprintf("%s (similarity %.2f)", g.Kind, g.Similarity)
	}
	b.WriteString(detailLabelStyle.Render("Match"))
	b.WriteString(detailValueStyle.Render(badge))
	b.WriteString("\n\n")

	wrapWidth := max(m.width-8, 20)

	for i, j := range g.Jobs {
		marker := fmt.Sprintf("── Member %d/%d ", i+1, len(g.Jobs))
		if i == m.memberCursor {
			marker = selectedMemberStyle.Render("▶ ") + marker
		} else {
			marker = "  " + marker
		}
		fill := strings.Repeat("─", max(wrapWidth-len(marker), 3))
		b.WriteString(memberDividerStyle.Render(marker+fill) + "\n\n")

		addField := func(label, value string) {
			if value == "" {
				return
			}
			b.WriteString(detailLabelStyle.Render(label))
			b.WriteString(detailValueStyle.Render(value))
			b.WriteByte('\n')
		}

		addField("Title", j.Title)
		addField("Company", j.Company)
		addField("Location", j.Location)
		addField("Source", j.Source)
		addField("Job ID", j.ID)
		addField("URL", j.URL)
		if !j.ScrapedAt.IsZero() {
			addField("Scraped", j.ScrapedAt.Format("2006-01-02 15:04"))
		}
		if j.PostedDate != nil {
			addField("Posted", j.PostedDate.Format("2006-01-02"))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func renderGroups(groups []ingest.DuplicateGroup, cursor int) string {
	if len(groups) == 0 {
		return "  (no duplicate candidates)"
	}

	var b strings.Builder
	for i, g := range groups {
		isSelected := i == cursor

		titleSt := groupTitleStyle
		subtitleSt := groupSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedGroupTitleStyle
			subtitleSt = selectedGroupSubtitleStyle
			prefix = "> "
		}

		badgeSt := exactBadgeStyle
		if g.Kind == ingest.MatchFuzzy {
			badgeSt = fuzzyBadgeStyle
		}

		lead := g.Jobs[0]
		b.WriteString(prefix)
		b.WriteString(badgeSt.Render("["+string(g.Kind)+"] "))
		b.WriteString(titleSt.Render(lead.Title))
		b.WriteByte('\n')

		sources := make([]string, 0, len(g.Jobs))
		for _, j := range g.Jobs {
			sources = append(sources, j.Source)
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", lead.Company, strings.Join(sources, " / "))))
		b.WriteByte('\n')

		if i < len(groups)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the interactive duplicate-review TUI over the given groups.
func Run(groups []ingest.DuplicateGroup) error {
	m := reviewModel{groups: groups}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Summarize renders a plain-text listing of the groups for non-interactive
// output.
func Summarize(groups []ingest.DuplicateGroup) string {
	if len(groups) == 0 {
		return "no duplicate candidates found\n"
	}

	var b strings.Builder
	for i, g := range groups {
		if g.Kind == ingest.MatchFuzzy {
			fmt.Fprintf(&b, "%d. [fuzzy %.2f]\n", i+1, g.Similarity)
		} else {
			fmt.Fprintf(&b, "%d. [exact]\n", i+1)
		}
		for _, j := range g.Jobs {
			fmt.Fprintf(&b, "   %-12s %s — %s (%s)\n", j.Source, j.Title, j.Company, j.URL)
		}
	}
	return b.String()
}
