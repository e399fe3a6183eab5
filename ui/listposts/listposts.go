package listposts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/format"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/muesli/reflow/truncate"
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true)
)

var ErrNoPost = errors.New("this item has no post")

// cursor keeps the focused row on the same item while rows are inserted
// or removed around it.
type cursor struct {
	selected int
	p        *timeline.Projector
}

func (c *cursor) RowInserted(i int) {
	if c.p.Len() > 1 && i <= c.selected {
		c.selected++
	}
}

func (c *cursor) RowUpdated(int) {}

func (c *cursor) RowRemoved(i int) {
	if i < c.selected {
		c.selected--
	}
	c.clamp()
}

func (c *cursor) CategoryReset() {
	c.clamp()
}

func (c *cursor) clamp() {
	if n := c.p.Len(); c.selected >= n {
		c.selected = n - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

type pendingDelete struct {
	cat    domain.Category
	id     string
	intent engine.Intent
}

type Model struct {
	projector *timeline.Projector
	cursor    *cursor
	actions   common.Actions
	cues      engine.CuePlayer
	me        *domain.Account
	confirm   *pendingDelete
	Width     int
	Height    int
	now       func() time.Time
}

func InitialModel(store *timeline.Store, actions common.Actions, cues engine.CuePlayer, me *domain.Account, width, height int) Model {
	c := &cursor{}
	p := timeline.NewProjector(store, c)
	c.p = p
	return Model{
		projector: p,
		cursor:    c,
		actions:   actions,
		cues:      cues,
		me:        me,
		Width:     width,
		Height:    height,
		now:       time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	m.projector.Select(domain.Home)
	return nil
}

func (m Model) Category() domain.Category {
	return m.projector.Category()
}

func (m Model) Selected() int {
	return m.cursor.selected
}

// Current returns the focused item.
func (m Model) Current() (domain.Item, bool) {
	return m.projector.At(m.cursor.selected)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case common.ChangeMsg:
		m.projector.Apply(msg.Change)
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	pending := m.confirm
	m.confirm = nil
	switch msg.String() {
	case "y", "Y":
		return m, deleteCmd(m.actions, *pending)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		return m, m.moveTo(m.cursor.selected - 1)
	case "down", "j":
		return m, m.moveTo(m.cursor.selected + 1)
	case "home", "g":
		return m, m.moveTo(0)
	case "end", "G":
		return m, m.moveTo(m.projector.Len() - 1)
	case "1", "2", "3", "4":
		m.selectCategory(domain.AllCategories[int(msg.String()[0]-'1')])
	case "right", "]":
		m.selectCategory(m.shiftCategory(1))
	case "left", "[":
		m.selectCategory(m.shiftCategory(-1))
	case "f5", "ctrl+r":
		return m, refreshCmd(m.actions, m.Category())
	}

	item, ok := m.Current()
	if !ok {
		return m, nil
	}
	cat := m.Category()

	switch msg.String() {
	case "enter":
		return m, func() tea.Msg { return common.OpenDetailMsg{Item: item} }
	case "r":
		post := engine.PostOf(item)
		if post == nil {
			return m, common.ShowError(ErrNoPost)
		}
		return m, func() tea.Msg { return common.OpenReplyMsg{Post: post} }
	case "b":
		return m, boostCmd(m.actions, cat, item.ItemID())
	case "f":
		return m, favouriteCmd(m.actions, cat, item.ItemID())
	case "d", "delete":
		intent, err := m.actions.DeleteIntent(cat, item.ItemID())
		if err != nil {
			return m, common.ShowError(err)
		}
		m.confirm = &pendingDelete{cat: cat, id: item.ItemID(), intent: intent}
	}
	return m, nil
}

func (m Model) shiftCategory(step int) domain.Category {
	cats := domain.AllCategories
	for i, c := range cats {
		if c == m.Category() {
			return cats[(i+step+len(cats))%len(cats)]
		}
	}
	return domain.Home
}

func (m Model) selectCategory(cat domain.Category) {
	m.cursor.selected = 0
	m.projector.Select(cat)
}

// moveTo focuses row i and plays its selection cue.
func (m Model) moveTo(i int) tea.Cmd {
	if i < 0 || i >= m.projector.Len() || i == m.cursor.selected {
		return nil
	}
	m.cursor.selected = i
	item, _ := m.projector.At(i)
	if c, ok := engine.SelectionCue(item, m.me); ok && m.cues != nil {
		m.cues.Play(c)
	}
	return nil
}

func status(text string) tea.Msg {
	return common.StatusMsg{Text: text}
}

func boostCmd(a common.Actions, cat domain.Category, id string) tea.Cmd {
	return func() tea.Msg {
		on, err := a.ToggleBoost(context.Background(), cat, id)
		if err != nil {
			return common.ErrorMsg{Err: err}
		}
		if on {
			return status("Boosted")
		}
		return status("Unboosted")
	}
}

func favouriteCmd(a common.Actions, cat domain.Category, id string) tea.Cmd {
	return func() tea.Msg {
		on, err := a.ToggleFavourite(context.Background(), cat, id)
		if err != nil {
			return common.ErrorMsg{Err: err}
		}
		if on {
			return status("Favourited")
		}
		return status("Unfavourited")
	}
}

func deleteCmd(a common.Actions, p pendingDelete) tea.Cmd {
	return func() tea.Msg {
		if err := a.Delete(context.Background(), p.cat, p.id); err != nil {
			return common.ErrorMsg{Err: err}
		}
		if p.intent == engine.IntentUnboost {
			return status("Unboosted")
		}
		return status("Deleted")
	}
}

func refreshCmd(a common.Actions, cat domain.Category) tea.Cmd {
	return func() tea.Msg {
		if err := a.Refresh(context.Background(), cat); err != nil {
			// the loader already reported it
			log := logging.Component("ui")
			log.Debug().Err(err).Msg("refresh failed")
			return nil
		}
		return status(cat.Title() + " refreshed")
	}
}

func (m Model) tabs() string {
	var parts []string
	for i, cat := range domain.AllCategories {
		label := fmt.Sprintf("%d %s", i+1, cat.Title())
		if cat == m.Category() {
			parts = append(parts, activeTabStyle.Foreground(common.Colors.Accent).Render(label))
		} else {
			parts = append(parts, tabStyle.Foreground(common.Colors.Muted).Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(m.tabs())
	s.WriteString("\n")
	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("%s (%d)", m.Category().Title(), m.projector.Len())))
	s.WriteString("\n\n")

	if m.projector.Len() == 0 {
		if m.projector.State() == timeline.StateLoading {
			s.WriteString(common.EmptyStyle.Render("Loading..."))
		} else {
			s.WriteString(common.EmptyStyle.Render("Nothing here yet."))
		}
		return s.String()
	}

	rows := m.Height - 6
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.cursor.selected >= rows {
		start = m.cursor.selected - rows + 1
	}
	end := min(start+rows, m.projector.Len())

	now := m.now()
	width := uint(max(m.Width-4, 10))
	for i := start; i < end; i++ {
		item, _ := m.projector.At(i)
		line := truncate.StringWithTail(format.ItemRow(item, now).String(), width, "...")
		if i == m.cursor.selected {
			s.WriteString(common.SelectedStyle.Render("> " + line))
		} else {
			s.WriteString(common.RowStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	if m.confirm != nil {
		s.WriteString("\n")
		question := "Are you sure you want to delete this post?"
		if m.confirm.intent == engine.IntentUnboost {
			question = "Are you sure you want to unboost this post?"
		}
		s.WriteString(common.ErrorStyle.Render(question + " (y/n)"))
	}
	return s.String()
}
