package preferences

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/ui/common"
)

// Store is the persisted user settings. *settings.Store implements it.
type Store interface {
	SoundPack() string
	SetSoundPack(pack string) error
	DefaultVisibility() domain.Visibility
	SetDefaultVisibility(v domain.Visibility) error
	HighContrast() bool
	SetHighContrast(on bool) error
	Muted() bool
	SetMuted(on bool) error
}

const (
	rowSoundPack = iota
	rowVisibility
	rowContrast
	rowSounds
	rowCount
)

// SavedMsg reports a setting that was changed and saved.
type SavedMsg struct {
	Key   string
	Value string
}

type Model struct {
	store    Store
	Packs    []string
	Selected int
}

func InitialModel(store Store, packs []string) Model {
	return Model{store: store, Packs: packs}
}

func (m Model) Store() Store {
	return m.store
}

func (m Model) Init() tea.Cmd {
	return nil
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func cycle[T comparable](list []T, current T, step int) T {
	i := indexOf(list, current)
	if i < 0 {
		return list[0]
	}
	return list[(i+step+len(list))%len(list)]
}

func (m Model) change(step int) tea.Cmd {
	store := m.store
	if store == nil {
		return nil
	}
	switch m.Selected {
	case rowSoundPack:
		if len(m.Packs) == 0 {
			return nil
		}
		pack := cycle(m.Packs, store.SoundPack(), step)
		return func() tea.Msg {
			if err := store.SetSoundPack(pack); err != nil {
				return common.ErrorMsg{Err: fmt.Errorf("sound pack %s: %w", pack, err)}
			}
			return SavedMsg{Key: "sound pack", Value: pack}
		}
	case rowVisibility:
		v := cycle(domain.Visibilities, store.DefaultVisibility(), step)
		return func() tea.Msg {
			if err := store.SetDefaultVisibility(v); err != nil {
				return common.ErrorMsg{Err: err}
			}
			return SavedMsg{Key: "default privacy", Value: v.Label()}
		}
	case rowContrast:
		on := !store.HighContrast()
		return func() tea.Msg {
			if err := store.SetHighContrast(on); err != nil {
				return common.ErrorMsg{Err: err}
			}
			return common.ThemeMsg{HighContrast: on}
		}
	case rowSounds:
		muted := !store.Muted()
		return func() tea.Msg {
			if err := store.SetMuted(muted); err != nil {
				return common.ErrorMsg{Err: err}
			}
			return SavedMsg{Key: "sounds", Value: onOff(!muted)}
		}
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.Selected > 0 {
				m.Selected--
			}
		case "down", "j":
			if m.Selected < rowCount-1 {
				m.Selected++
			}
		case "right", "l", "enter", " ":
			return m, m.change(1)
		case "left", "h":
			return m, m.change(-1)
		case "esc":
			return m, common.Back
		}
	}
	return m, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(common.CaptionStyle.Render("settings"))
	s.WriteString("\n\n")
	if m.store == nil {
		s.WriteString(common.EmptyStyle.Render("Settings are not available."))
		return s.String()
	}

	rows := []string{
		"Sound pack: " + m.store.SoundPack(),
		"Default privacy: " + m.store.DefaultVisibility().Label(),
		"High contrast: " + onOff(m.store.HighContrast()),
		"Sounds: " + onOff(!m.store.Muted()),
	}
	for i, r := range rows {
		if i == m.Selected {
			s.WriteString(common.SelectedStyle.Render("> " + r))
		} else {
			s.WriteString(common.RowStyle.Render("  " + r))
		}
		s.WriteString("\n")
	}
	return s.String()
}
