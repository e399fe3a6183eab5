package details

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/format"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
)

var ErrCannotVote = errors.New("this poll is closed or already voted")

type Model struct {
	Viewport viewport.Model
	Category domain.Category
	Item     domain.Item
	Profile  bool
	choices  map[int]bool
	actions  common.Actions
	loc      *time.Location
	width    int
}

func InitialModel(actions common.Actions, width, height int) Model {
	vp := viewport.New(max(width-4, 20), max(height-8, 5))
	return Model{Viewport: vp, actions: actions, loc: time.Local, width: width}
}

func (m Model) Open(cat domain.Category, item domain.Item) Model {
	m.Category = cat
	m.Item = item
	m.Profile = false
	m.choices = map[int]bool{}
	m.refresh()
	m.Viewport.GotoTop()
	return m
}

func (m *Model) post() *domain.Post {
	if m.Item == nil {
		return nil
	}
	return engine.PostOf(m.Item)
}

func (m *Model) poll() *domain.Poll {
	p := m.post()
	if p == nil {
		return nil
	}
	return p.Target().Poll
}

func (m *Model) canVote() bool {
	poll := m.poll()
	return poll != nil && !poll.Expired && !poll.Voted
}

// Body is the text the viewport shows.
func (m Model) Body() string {
	if m.Item == nil {
		return ""
	}
	post := m.post()

	var text string
	switch {
	case m.Profile && post != nil:
		text = format.Profile(&post.Target().Account)
	case m.Profile:
		if n, ok := m.Item.(*domain.Notification); ok {
			text = format.Profile(&n.Account)
		}
	case post != nil:
		text = fmt.Sprintf("%s (%s)\n\n%s", post.Target().Account.Name(), post.Target().Account.Acct,
			format.PostDetails(post, m.loc))
		if post.IsBoost() {
			text = fmt.Sprintf("Boosted by %s\n\n%s", post.Account.Name(), text)
		}
	default:
		text = format.ItemRow(m.Item, time.Now()).String()
	}

	if !m.Profile && m.canVote() {
		var picked []string
		for _, i := range m.selected() {
			picked = append(picked, fmt.Sprintf("%d", i+1))
		}
		text += "\n\nSelected: " + strings.Join(picked, ", ")
	}
	return format.Wrap(text, m.Viewport.Width)
}

func (m *Model) refresh() {
	m.Viewport.SetContent(m.Body())
}

func (m Model) selected() []int {
	var out []int
	for i, on := range m.choices {
		if on {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func voteCmd(a common.Actions, cat domain.Category, id string, choices []int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.Vote(ctx, cat, id, choices); err != nil {
			return common.ErrorMsg{Err: err}
		}
		return common.StatusMsg{Text: "Vote sent"}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Viewport.Width = max(msg.Width-4, 20)
		m.Viewport.Height = max(msg.Height-8, 5)
		m.refresh()
		return m, nil

	case common.ChangeMsg:
		c := msg.Change
		if m.Item != nil && c.Kind == timeline.ChangeUpdate && c.Category == m.Category &&
			c.Item.ItemID() == m.Item.ItemID() {
			m.Item = c.Item
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		if m.Item == nil {
			return m, nil
		}
		key := msg.String()
		switch key {
		case "esc", "q":
			return m, common.Back
		case "p":
			m.Profile = !m.Profile
			m.refresh()
			m.Viewport.GotoTop()
			return m, nil
		case "r":
			if post := m.post(); post != nil {
				return m, func() tea.Msg { return common.OpenReplyMsg{Post: post} }
			}
			return m, nil
		case "v", "enter":
			if !m.canVote() {
				if key == "v" {
					return m, common.ShowError(ErrCannotVote)
				}
				return m, nil
			}
			choices := m.selected()
			if len(choices) == 0 {
				return m, common.ShowError(engine.ErrInvalidChoice)
			}
			m.choices = map[int]bool{}
			return m, voteCmd(m.actions, m.Category, m.Item.ItemID(), choices)
		}

		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' && m.canVote() {
			i := int(key[0] - '1')
			if poll := m.poll(); i < len(poll.Options) {
				if !poll.Multiple {
					m.choices = map[int]bool{}
				}
				m.choices[i] = !m.choices[i]
				m.refresh()
			}
			return m, nil
		}
	}

	m.Viewport, cmd = m.Viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	title := "post details"
	if m.Profile {
		title = "profile"
	}
	return common.CaptionStyle.Render(title) + "\n\n" + m.Viewport.View()
}
