package common

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/timeline"
)

type SessionState uint

const (
	TimelineView SessionState = iota
	ComposeView
	ReplyView
	DetailView
	SettingsView
)

// ChangeMsg carries one store change onto the UI goroutine.
type ChangeMsg struct {
	Change timeline.Change
}

// ErrorMsg reports a failure from a background goroutine or a command.
type ErrorMsg struct {
	Err error
}

// BannerMsg sets the persistent connection banner. An empty Text clears it.
type BannerMsg struct {
	Text string
}

// StatusMsg is a short confirmation shown in the status line.
type StatusMsg struct {
	Text string
}

type ClearStatusMsg struct{}

// OpenReplyMsg asks the main model to open the reply form for Post.
type OpenReplyMsg struct {
	Post *domain.Post
}

// OpenDetailMsg asks the main model to show the details of Item.
type OpenDetailMsg struct {
	Item domain.Item
}

// PostedMsg follows a successful post or reply.
type PostedMsg struct {
	Post  *domain.Post
	Reply bool
}

// ThemeMsg is sent after the high-contrast setting changes.
type ThemeMsg struct {
	HighContrast bool
}

func ClearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

func Back() tea.Msg {
	return TimelineView
}
