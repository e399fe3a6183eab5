package header

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/deemkeen/thrive/util"
)

type Model struct {
	Width  int
	Acc    *domain.Account
	Host   string
	Banner string
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case common.BannerMsg:
		m.Banner = msg.Text
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	}
	return m, nil
}

func (m Model) View() string {
	s := GetHeaderStyle(m.Acc, m.Host, m.Width)
	if m.Banner != "" {
		s += "\n" + common.BannerStyle.Width(max(m.Width, 20)).Render("! "+m.Banner)
	}
	return s
}

func GetHeaderStyle(acc *domain.Account, host string, width int) string {
	// Two boxes with padding(1) on each side.
	overhead := 4
	availableWidth := max(width-overhead, 40)
	accountWidth := availableWidth / 2
	versionWidth := availableWidth - accountWidth

	handle := "not logged in"
	if acc != nil {
		handle = acc.Name() + " (" + acc.Handle(host) + ")"
	}

	account := lipgloss.
		NewStyle().
		SetString(handle).
		Align(lipgloss.Left).
		Foreground(common.Colors.Accent).
		Bold(true).
		Padding(0, 1).
		Width(accountWidth).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(common.Colors.Border).
		String()

	version := lipgloss.
		NewStyle().
		SetString(util.GetNameAndVersion()).
		Align(lipgloss.Right).
		Foreground(common.Colors.Muted).
		Padding(0, 1).
		Width(versionWidth).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(common.Colors.Border).
		String()

	return lipgloss.JoinHorizontal(lipgloss.Top, account, version)
}
