package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/deemkeen/thrive/ui/details"
	"github.com/deemkeen/thrive/ui/header"
	"github.com/deemkeen/thrive/ui/listposts"
	"github.com/deemkeen/thrive/ui/preferences"
	"github.com/deemkeen/thrive/ui/reply"
	"github.com/deemkeen/thrive/ui/writepost"
)

const (
	statusTimeout = 3 * time.Second
	errorTimeout  = 6 * time.Second
)

type Config struct {
	Store    *timeline.Store
	Actions  common.Actions
	Cues     engine.CuePlayer
	Settings preferences.Store
	Packs    []string
	Me       *domain.Account
	Host     string
	Width    int
	Height   int
}

type MainModel struct {
	width        int
	height       int
	state        common.SessionState
	headerModel  header.Model
	listModel    listposts.Model
	createModel  writepost.Model
	replyModel   reply.Model
	detailsModel details.Model
	prefsModel   preferences.Model
	status       string
	err          string
}

func NewModel(cfg Config) MainModel {
	width := common.DefaultWindowWidth(cfg.Width)
	height := common.DefaultWindowHeight(cfg.Height)

	visibility := domain.VisibilityPublic
	if cfg.Settings != nil {
		visibility = cfg.Settings.DefaultVisibility()
	}

	m := MainModel{state: common.TimelineView}
	m.headerModel = header.Model{Width: width, Acc: cfg.Me, Host: cfg.Host}
	m.listModel = listposts.InitialModel(cfg.Store, cfg.Actions, cfg.Cues, cfg.Me, width, height-4)
	m.createModel = writepost.InitialModel(cfg.Actions, visibility, width)
	m.replyModel = reply.InitialModel(cfg.Actions, width)
	m.detailsModel = details.InitialModel(cfg.Actions, width, height)
	m.prefsModel = preferences.InitialModel(cfg.Settings, cfg.Packs)
	m.width = width
	m.height = height
	return m
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.listModel.Init(), m.createModel.Init())
}

func (m MainModel) State() common.SessionState {
	return m.state
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.listModel.Width = msg.Width
		m.listModel.Height = msg.Height - 4

	case common.SessionState:
		m.state = msg

	case common.ErrorMsg:
		log := logging.Component("ui")
		log.Warn().Err(msg.Err).Msg("error shown")
		m.err = msg.Err.Error()
		m.status = ""
		cmds = append(cmds, common.ClearStatusAfter(errorTimeout))

	case common.StatusMsg:
		m.status = msg.Text
		m.err = ""
		cmds = append(cmds, common.ClearStatusAfter(statusTimeout))

	case common.ClearStatusMsg:
		m.status = ""
		m.err = ""

	case preferences.SavedMsg:
		m.status = fmt.Sprintf("%s set to %s", msg.Key, msg.Value)
		if msg.Key == "default privacy" && m.prefsModel.Store() != nil {
			m.createModel.Visibility = m.prefsModel.Store().DefaultVisibility()
		}
		cmds = append(cmds, common.ClearStatusAfter(statusTimeout))

	case common.ThemeMsg:
		common.SetHighContrast(msg.HighContrast)
		m.status = "high contrast off"
		if msg.HighContrast {
			m.status = "high contrast on"
		}
		cmds = append(cmds, common.ClearStatusAfter(statusTimeout))

	case common.OpenReplyMsg:
		m.state = common.ReplyView
		m.replyModel, cmd = m.replyModel.Open(msg.Post)
		return m, cmd

	case common.OpenDetailMsg:
		m.state = common.DetailView
		m.detailsModel = m.detailsModel.Open(m.listModel.Category(), msg.Item)
		return m, nil

	case common.PostedMsg:
		m.state = common.TimelineView
		m.status = "Posted"
		if msg.Reply {
			m.status = "Reply sent"
		}
		cmds = append(cmds, common.ClearStatusAfter(statusTimeout))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
		if m.state == common.TimelineView {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "n":
				m.state = common.ComposeView
				return m, nil
			case "s":
				m.state = common.SettingsView
				return m, nil
			case "esc":
				// dismiss the connection banner; the next state change sets it again
				m.headerModel.Banner = ""
				return m, nil
			}
		}
	}

	// Non-keyboard messages reach every view; keys only the active one.
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.headerModel, _ = m.headerModel.Update(msg)
		m.listModel, cmd = m.listModel.Update(msg)
		cmds = append(cmds, cmd)
		m.createModel, cmd = m.createModel.Update(msg)
		cmds = append(cmds, cmd)
		m.replyModel, cmd = m.replyModel.Update(msg)
		cmds = append(cmds, cmd)
		m.detailsModel, cmd = m.detailsModel.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	switch m.state {
	case common.TimelineView:
		m.listModel, cmd = m.listModel.Update(msg)
	case common.ComposeView:
		m.createModel, cmd = m.createModel.Update(msg)
	case common.ReplyView:
		m.replyModel, cmd = m.replyModel.Update(msg)
	case common.DetailView:
		m.detailsModel, cmd = m.detailsModel.Update(msg)
	case common.SettingsView:
		m.prefsModel, cmd = m.prefsModel.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m MainModel) currentFocusedModel() string {
	switch m.state {
	case common.ComposeView:
		return "new post"
	case common.ReplyView:
		return "reply"
	case common.DetailView:
		return "post details"
	case common.SettingsView:
		return "settings"
	default:
		return "timeline"
	}
}

func (m MainModel) help() string {
	switch m.state {
	case common.ComposeView:
		return "ctrl+s: post • tab: next field • ctrl+v: privacy • ctrl+p: poll • ctrl+d: poll length • ctrl+t: multiple choice • esc: back"
	case common.ReplyView:
		return "ctrl+s: send • ctrl+v: privacy • esc: back"
	case common.DetailView:
		return "↑/↓: scroll • p: profile • r: reply • 1-9: pick poll option • v: vote • esc: back"
	case common.SettingsView:
		return "↑/↓: select • ←/→: change • esc: back"
	default:
		return "↑/↓: select • 1-4, ←/→: timeline • enter: details • r: reply • b: boost • f: favourite • d: delete • n: new post • s: settings • ctrl+r: refresh • esc: dismiss banner • q: quit"
	}
}

func (m MainModel) View() string {
	var body string
	switch m.state {
	case common.ComposeView:
		body = m.createModel.View()
	case common.ReplyView:
		body = m.replyModel.View()
	case common.DetailView:
		body = m.detailsModel.View()
	case common.SettingsView:
		body = m.prefsModel.View()
	default:
		body = m.listModel.View()
	}

	var line string
	switch {
	case m.err != "":
		line = common.ErrorStyle.Render("Error: " + m.err)
	case m.status != "":
		line = common.StatusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerModel.View(),
		lipgloss.NewStyle().MaxHeight(max(m.height-6, 3)).Render(body),
		line,
		common.HelpStyle.Render(fmt.Sprintf("focused > %s\t%s", m.currentFocusedModel(), m.help())),
	)
}

// Run starts the program and forwards the bridge's messages into it until
// the user quits.
func Run(m MainModel, bridge *Bridge, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		bridge.Run(p)
	}()

	_, err := p.Run()
	bridge.Close()
	<-done
	return err
}
