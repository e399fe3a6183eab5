package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/format"
	"github.com/deemkeen/thrive/ui/common"
)

const MaxLetters = 500

type Model struct {
	Textarea   textarea.Model
	Target     *domain.Post
	Visibility domain.Visibility
	Err        error
	sending    bool
	actions    common.Actions
	width      int
}

func InitialModel(actions common.Actions, width int) Model {
	ta := textarea.New()
	ta.CharLimit = MaxLetters
	ta.ShowLineNumbers = false
	ta.SetWidth(max(width-10, 20))
	return Model{Textarea: ta, actions: actions, width: width}
}

// Open prepares the form for a reply to post. The body starts with the
// handles of everyone in the conversation and the privacy follows the
// original post.
func (m Model) Open(post *domain.Post) (Model, tea.Cmd) {
	target := post.Target()
	m.Target = target
	m.Err = nil
	m.sending = false
	m.Visibility = target.Visibility
	if !m.Visibility.Valid() {
		m.Visibility = domain.VisibilityPublic
	}
	m.Textarea.SetValue(m.actions.SuggestReply(target))
	m.Textarea.CursorEnd()
	return m, m.Textarea.Focus()
}

func (m Model) Draft() engine.ReplyDraft {
	d := engine.ReplyDraft{
		Body:       strings.TrimSpace(m.Textarea.Value()),
		Visibility: m.Visibility,
	}
	if m.Target != nil {
		d.InReplyToId = m.Target.Id
		d.SpoilerText = m.Target.SpoilerText
	}
	return d
}

type sendFailedMsg struct {
	err error
}

func submitCmd(a common.Actions, d engine.ReplyDraft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		post, err := a.SubmitReply(ctx, d)
		if err != nil {
			return sendFailedMsg{err: err}
		}
		return common.PostedMsg{Post: post, Reply: true}
	}
}

func nextVisibility(v domain.Visibility) domain.Visibility {
	for i, vis := range domain.Visibilities {
		if vis == v {
			return domain.Visibilities[(i+1)%len(domain.Visibilities)]
		}
	}
	return domain.VisibilityPublic
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case common.PostedMsg:
		if msg.Reply {
			m.sending = false
			m.Target = nil
			m.Textarea.Reset()
			m.Textarea.Blur()
		}
		return m, nil

	case sendFailedMsg:
		m.sending = false
		m.Err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			if m.sending {
				return m, nil
			}
			d := m.Draft()
			if err := d.Validate(); err != nil {
				m.Err = err
				return m, nil
			}
			m.Err = nil
			m.sending = true
			return m, submitCmd(m.actions, d)
		case "ctrl+v":
			m.Visibility = nextVisibility(m.Visibility)
			return m, nil
		case "esc":
			m.Textarea.Blur()
			return m, common.Back
		}
	}

	m.Textarea, cmd = m.Textarea.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("reply"))
	s.WriteString("\n\n")
	if m.Target != nil {
		quote := format.Truncate(format.OneLine(format.PlainText(m.Target.Content)), max(m.width-10, 20))
		s.WriteString(common.HelpStyle.Render(fmt.Sprintf("%s: %s", m.Target.Account.Name(), quote)))
		s.WriteString("\n\n")
	}
	s.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.Textarea.View()))
	s.WriteString("\n\n")
	s.WriteString(common.HelpStyle.Render("privacy: " + m.Visibility.Label()))
	s.WriteString("\n\n")
	switch {
	case m.sending:
		s.WriteString(common.StatusStyle.Render("Sending..."))
	case m.Err != nil:
		s.WriteString(common.ErrorStyle.Render("Error: " + m.Err.Error()))
	}
	return s.String()
}
