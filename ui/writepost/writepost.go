package writepost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/ui/common"
)

const (
	MaxLetters  = 500
	PollOptions = 4
)

// Focus order: body, content warning, media path, media description, then
// the poll options when the poll is enabled.
const (
	fieldBody = iota
	fieldSpoiler
	fieldMediaPath
	fieldMediaDesc
	fieldPollStart
)

type Model struct {
	Textarea   textarea.Model
	Spoiler    textinput.Model
	MediaPath  textinput.Model
	MediaDesc  textinput.Model
	Options    []textinput.Model
	Visibility domain.Visibility
	Poll       bool
	Multiple   bool
	duration   int
	focus      int
	sending    bool
	Err        error
	actions    common.Actions
	width      int
}

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = width
	return ti
}

func defaultDuration() int {
	for i, d := range engine.PollDurations {
		if d == engine.DefaultPollDuration {
			return i
		}
	}
	return 0
}

func InitialModel(actions common.Actions, visibility domain.Visibility, width int) Model {
	inputWidth := max(width-10, 20)

	ta := textarea.New()
	ta.Placeholder = "What's on your mind?"
	ta.CharLimit = MaxLetters
	ta.ShowLineNumbers = false
	ta.SetWidth(inputWidth)
	ta.Focus()

	options := make([]textinput.Model, PollOptions)
	for i := range options {
		options[i] = newInput(fmt.Sprintf("option %d", i+1), inputWidth)
	}

	return Model{
		Textarea:   ta,
		Spoiler:    newInput("content warning (optional)", inputWidth),
		MediaPath:  newInput("attach file (optional path)", inputWidth),
		MediaDesc:  newInput("media description", inputWidth),
		Options:    options,
		Visibility: visibility,
		duration:   defaultDuration(),
		actions:    actions,
		width:      width,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) fields() int {
	if m.Poll {
		return fieldPollStart + PollOptions
	}
	return fieldPollStart
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.Textarea.Blur()
	m.Spoiler.Blur()
	m.MediaPath.Blur()
	m.MediaDesc.Blur()
	for j := range m.Options {
		m.Options[j].Blur()
	}

	m.focus = i
	switch {
	case i == fieldBody:
		return m.Textarea.Focus()
	case i == fieldSpoiler:
		return m.Spoiler.Focus()
	case i == fieldMediaPath:
		return m.MediaPath.Focus()
	case i == fieldMediaDesc:
		return m.MediaDesc.Focus()
	default:
		return m.Options[i-fieldPollStart].Focus()
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

// Draft builds the post from the form.
func (m Model) Draft() engine.Draft {
	d := engine.Draft{
		Body:        strings.TrimSpace(m.Textarea.Value()),
		Visibility:  m.Visibility,
		SpoilerText: strings.TrimSpace(m.Spoiler.Value()),
	}
	if path := strings.TrimSpace(m.MediaPath.Value()); path != "" {
		d.Media = []engine.MediaDraft{{Path: path, Description: strings.TrimSpace(m.MediaDesc.Value())}}
	}
	if m.Poll {
		p := &engine.PollDraft{ExpiresIn: engine.PollDurations[m.duration], Multiple: m.Multiple}
		for _, o := range m.Options {
			p.Options = append(p.Options, o.Value())
		}
		d.Poll = p
	}
	return d
}

func (m *Model) reset() {
	m.Textarea.Reset()
	m.Spoiler.Reset()
	m.MediaPath.Reset()
	m.MediaDesc.Reset()
	for i := range m.Options {
		m.Options[i].Reset()
	}
	m.Poll = false
	m.Multiple = false
	m.duration = defaultDuration()
	m.Err = nil
}

// sendFailedMsg reports a failed submit back to the form that sent it.
type sendFailedMsg struct {
	err error
}

func submitCmd(a common.Actions, d engine.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		post, err := a.SubmitPost(ctx, d)
		if err != nil {
			return sendFailedMsg{err: err}
		}
		return common.PostedMsg{Post: post}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case common.PostedMsg:
		if !msg.Reply {
			m.sending = false
			m.reset()
			cmd = m.setFocus(fieldBody)
		}
		return m, cmd

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
		case "tab":
			return m, m.setFocus((m.focus + 1) % m.fields())
		case "shift+tab":
			return m, m.setFocus((m.focus + m.fields() - 1) % m.fields())
		case "ctrl+v":
			m.Visibility = nextVisibility(m.Visibility)
			return m, nil
		case "ctrl+p":
			m.Poll = !m.Poll
			if !m.Poll && m.focus >= fieldPollStart {
				cmd = m.setFocus(fieldBody)
			}
			return m, cmd
		case "ctrl+d":
			if m.Poll {
				m.duration = (m.duration + 1) % len(engine.PollDurations)
			}
			return m, nil
		case "ctrl+t":
			if m.Poll {
				m.Multiple = !m.Multiple
			}
			return m, nil
		case "esc":
			return m, common.Back
		}
	}

	switch {
	case m.focus == fieldBody:
		m.Textarea, cmd = m.Textarea.Update(msg)
	case m.focus == fieldSpoiler:
		m.Spoiler, cmd = m.Spoiler.Update(msg)
	case m.focus == fieldMediaPath:
		m.MediaPath, cmd = m.MediaPath.Update(msg)
	case m.focus == fieldMediaDesc:
		m.MediaDesc, cmd = m.MediaDesc.Update(msg)
	default:
		i := m.focus - fieldPollStart
		m.Options[i], cmd = m.Options[i].Update(msg)
	}
	return m, cmd
}

func (m Model) CharsLeft() int {
	return m.Textarea.CharLimit - m.Textarea.Length()
}

func durationLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("new post"))
	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.Textarea.View()))
	s.WriteString("\n")
	s.WriteString(common.HelpStyle.Render(fmt.Sprintf("characters left: %d", m.CharsLeft())))
	s.WriteString("\n\n  ")
	s.WriteString(m.Spoiler.View())
	s.WriteString("\n  ")
	s.WriteString(m.MediaPath.View())
	if strings.TrimSpace(m.MediaPath.Value()) != "" || m.focus == fieldMediaDesc {
		s.WriteString("\n  ")
		s.WriteString(m.MediaDesc.View())
	}
	s.WriteString("\n\n")
	s.WriteString(common.HelpStyle.Render("privacy: " + m.Visibility.Label()))

	if m.Poll {
		s.WriteString("\n\n")
		kind := "single choice"
		if m.Multiple {
			kind = "multiple choice"
		}
		s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("poll, %s, ends in %s",
			kind, durationLabel(engine.PollDurations[m.duration]))))
		for _, o := range m.Options {
			s.WriteString("\n  ")
			s.WriteString(o.View())
		}
	}

	s.WriteString("\n\n")
	switch {
	case m.sending:
		s.WriteString(common.StatusStyle.Render("Posting..."))
	case m.Err != nil:
		s.WriteString(common.ErrorStyle.Render("Error: " + m.Err.Error()))
	}
	return s.String()
}
