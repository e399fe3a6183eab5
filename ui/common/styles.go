package common

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	COLOR_GREY      = "241"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
	COLOR_PURPLE    = "#7D56F4"
	COLOR_GREEN     = "42"
	COLOR_RED       = "196"
	COLOR_DARK_GREY = "238"
)

// Palette holds the colours every view draws with.
type Palette struct {
	Accent   lipgloss.TerminalColor
	Muted    lipgloss.TerminalColor
	Selected lipgloss.TerminalColor
	Error    lipgloss.TerminalColor
	Banner   lipgloss.TerminalColor
	Border   lipgloss.TerminalColor
}

var (
	DefaultPalette = Palette{
		Accent:   lipgloss.Color(COLOR_MAGENTA),
		Muted:    lipgloss.Color(COLOR_GREY),
		Selected: lipgloss.Color(COLOR_GREEN),
		Error:    lipgloss.Color(COLOR_RED),
		Banner:   lipgloss.Color(COLOR_PURPLE),
		Border:   lipgloss.Color(COLOR_LIGHTBLUE),
	}

	// HighContrastPalette only uses the 16 base ANSI colours so the
	// terminal's own theme decides the exact shades.
	HighContrastPalette = Palette{
		Accent:   lipgloss.Color("15"),
		Muted:    lipgloss.Color("15"),
		Selected: lipgloss.Color("11"),
		Error:    lipgloss.Color("9"),
		Banner:   lipgloss.Color("11"),
		Border:   lipgloss.Color("15"),
	}
)

var (
	Colors       = DefaultPalette
	HighContrast bool

	HelpStyle     lipgloss.Style
	CaptionStyle  lipgloss.Style
	SelectedStyle lipgloss.Style
	RowStyle      lipgloss.Style
	EmptyStyle    lipgloss.Style
	ErrorStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	BannerStyle   lipgloss.Style
	FocusedBorder lipgloss.Style
)

func init() {
	SetHighContrast(false)
}

// SetHighContrast rebuilds the shared styles. High contrast drops faint and
// italic text and marks the selection with reverse video as well as colour.
func SetHighContrast(on bool) {
	HighContrast = on
	Colors = DefaultPalette
	if on {
		Colors = HighContrastPalette
		lipgloss.SetColorProfile(termenv.ANSI)
	} else {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	}

	HelpStyle = lipgloss.NewStyle().Foreground(Colors.Muted).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(Colors.Accent).Bold(true).PaddingLeft(1)
	RowStyle = lipgloss.NewStyle().PaddingLeft(2)
	SelectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(Colors.Selected).Bold(true).Reverse(on)
	EmptyStyle = lipgloss.NewStyle().Foreground(Colors.Muted).Italic(!on)
	ErrorStyle = lipgloss.NewStyle().Foreground(Colors.Error).Bold(true)
	StatusStyle = lipgloss.NewStyle().Foreground(Colors.Selected)
	BannerStyle = lipgloss.NewStyle().Foreground(Colors.Banner).Bold(true)
	FocusedBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Colors.Border).
		Padding(0, 1)
}

func DefaultWindowWidth(width int) int {
	if width <= 0 {
		return 80
	}
	return width
}

func DefaultWindowHeight(height int) int {
	if height <= 0 {
		return 24
	}
	return height
}
