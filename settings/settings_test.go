package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "default", s.SoundPack())
	require.Equal(t, domain.VisibilityPublic, s.DefaultVisibility())
	require.False(t, s.HighContrast())
	require.False(t, s.Muted())
}

func TestSettingsPersist(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	var changed []string
	s.OnChange(func(key string) { changed = append(changed, key) })

	require.NoError(t, s.SetDefaultVisibility(domain.VisibilityUnlisted))
	require.NoError(t, s.SetHighContrast(true))
	require.Equal(t, []string{KeyDefaultVisibility, KeyHighContrast}, changed)

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, domain.VisibilityUnlisted, reopened.DefaultVisibility())
	require.True(t, reopened.HighContrast())
}

func TestRejectsUnknownVisibility(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.Error(t, s.SetDefaultVisibility("friends"))
	require.Equal(t, domain.VisibilityPublic, s.DefaultVisibility())
}

func TestBrokenFileIsReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("soundpack: [unclosed"), 0644))

	_, err := Open(dir)
	require.Error(t, err)
}

type fakeReloader struct {
	loaded []string
	bad    string
	muted  bool
}

func (f *fakeReloader) SetMuted(m bool) {
	f.muted = m
}

func (f *fakeReloader) Reload(pack string) error {
	f.loaded = append(f.loaded, pack)
	if pack == f.bad {
		return errors.New("no such pack")
	}
	return nil
}

func TestSetSoundPackReloads(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	r := &fakeReloader{bad: "missing"}
	require.NoError(t, s.ApplyCues(r))

	require.NoError(t, s.SetSoundPack("retro"))
	require.Equal(t, "retro", s.SoundPack())

	require.Error(t, s.SetSoundPack("missing"))
	require.Equal(t, "retro", s.SoundPack())
	require.Equal(t, []string{"default", "retro", "missing", "retro"}, r.loaded)

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, "retro", reopened.SoundPack())
}

func TestSetSoundPackWithPlayer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, cue.PackPrefix+"soft"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, cue.PackPrefix+"soft", cue.SendPost.File()), []byte("RIFF"), 0644))

	s, err := Open(t.TempDir())
	require.NoError(t, err)
	p := cue.NewPlayer(root, cue.NopSink{})
	s.BindCues(p)

	require.NoError(t, s.SetSoundPack("soft"))
	require.Equal(t, "soft", p.Pack())
	_, ok := p.Path(cue.SendPost)
	require.True(t, ok)
}

func TestMutedIsAppliedAndSaved(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	r := &fakeReloader{}
	require.NoError(t, s.ApplyCues(r))
	require.False(t, r.muted)

	require.NoError(t, s.SetMuted(true))
	require.True(t, r.muted)

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.True(t, reopened.Muted())
	next := &fakeReloader{}
	require.NoError(t, reopened.ApplyCues(next))
	require.True(t, next.muted)
}

func TestMutedSilencesPlayer(t *testing.T) {
	sink := &recordingSink{}
	p := cue.NewPlayer(t.TempDir(), sink).WithFallback(sink)

	s, err := Open(t.TempDir())
	require.NoError(t, err)
	s.BindCues(p)
	require.NoError(t, s.SetMuted(true))

	p.Play(cue.SendPost)
	require.Empty(t, sink.played)

	require.NoError(t, s.SetMuted(false))
	p.Play(cue.SendPost)
	require.Len(t, sink.played, 1)
}

type recordingSink struct {
	played []string
}

func (r *recordingSink) Play(path string) error {
	r.played = append(r.played, path)
	return nil
}
