package preferences

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	pack       string
	visibility domain.Visibility
	contrast   bool
	muted      bool
	err        error
}

func (s *memStore) SoundPack() string { return s.pack }

func (s *memStore) SetSoundPack(pack string) error {
	if s.err != nil {
		return s.err
	}
	s.pack = pack
	return nil
}

func (s *memStore) DefaultVisibility() domain.Visibility { return s.visibility }

func (s *memStore) SetDefaultVisibility(v domain.Visibility) error {
	s.visibility = v
	return nil
}

func (s *memStore) HighContrast() bool { return s.contrast }

func (s *memStore) SetHighContrast(on bool) error {
	s.contrast = on
	return nil
}

func (s *memStore) Muted() bool { return s.muted }

func (s *memStore) SetMuted(on bool) error {
	s.muted = on
	return nil
}

func press(m Model, k string) (Model, tea.Msg) {
	var msg tea.KeyMsg
	switch k {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	}
	m, cmd := m.Update(msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestCycleSoundPack(t *testing.T) {
	s := &memStore{pack: "default", visibility: domain.VisibilityPublic}
	m := InitialModel(s, []string{"default", "soft", "none"})

	_, msg := press(m, "right")
	require.Equal(t, SavedMsg{Key: "sound pack", Value: "soft"}, msg)
	require.Equal(t, "soft", s.pack)

	_, msg = press(m, "left")
	require.Equal(t, SavedMsg{Key: "sound pack", Value: "default"}, msg)
	_, msg = press(m, "left")
	require.Equal(t, SavedMsg{Key: "sound pack", Value: "none"}, msg)
}

func TestCycleDefaultPrivacy(t *testing.T) {
	s := &memStore{visibility: domain.VisibilityDirect}
	m := InitialModel(s, nil)

	m, _ = press(m, "down")
	_, msg := press(m, "right")
	require.Equal(t, SavedMsg{Key: "default privacy", Value: "Public"}, msg)
	require.Contains(t, m.View(), "Default privacy: Public")
}

func TestToggleHighContrast(t *testing.T) {
	s := &memStore{visibility: domain.VisibilityPublic}
	m := InitialModel(s, nil)

	m, _ = press(m, "down")
	m, _ = press(m, "down")
	require.Equal(t, 2, m.Selected)

	_, msg := press(m, "right")
	require.Equal(t, common.ThemeMsg{HighContrast: true}, msg)
	require.Contains(t, m.View(), "High contrast: on")
}

func TestToggleSounds(t *testing.T) {
	s := &memStore{visibility: domain.VisibilityPublic}
	m := InitialModel(s, nil)
	require.Contains(t, m.View(), "Sounds: on")

	for i := 0; i < 4; i++ {
		m, _ = press(m, "down")
	}
	require.Equal(t, 3, m.Selected)

	_, msg := press(m, "right")
	require.Equal(t, SavedMsg{Key: "sounds", Value: "off"}, msg)
	require.True(t, s.muted)
	require.Contains(t, m.View(), "Sounds: off")

	_, msg = press(m, "left")
	require.Equal(t, SavedMsg{Key: "sounds", Value: "on"}, msg)
	require.False(t, s.muted)
}

func TestSaveErrorIsReported(t *testing.T) {
	boom := errors.New("disk full")
	s := &memStore{pack: "default", visibility: domain.VisibilityPublic, err: boom}
	m := InitialModel(s, []string{"default", "soft"})

	_, msg := press(m, "right")
	require.ErrorIs(t, msg.(common.ErrorMsg).Err, boom)
}

func TestWithoutStore(t *testing.T) {
	m := InitialModel(nil, nil)

	_, msg := press(m, "right")
	require.Nil(t, msg)
	require.Contains(t, m.View(), "Settings are not available.")

	_, msg = press(m, "esc")
	require.Equal(t, common.TimelineView, msg)
}
