// Package settings holds the preferences a user changes from inside the
// client. They live in settings.yaml next to config.yaml.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/util"
	"github.com/spf13/viper"
)

const FileName = "settings.yaml"

const (
	KeySoundPack         = "soundpack"
	KeyDefaultVisibility = "defaultVisibility"
	KeyHighContrast      = "highContrast"
	KeyMuted             = "muted"
)

// Reloader switches the active sound pack and silences it. *cue.Player
// implements it.
type Reloader interface {
	Reload(pack string) error
	SetMuted(m bool)
}

type Store struct {
	mu       sync.Mutex
	v        *viper.Viper
	path     string
	cues     Reloader
	onChange []func(key string)
}

// Open reads dir/settings.yaml. A missing file is not an error; defaults
// apply until the first change is saved.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating settings dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, FileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("THRIVE")
	v.AutomaticEnv()

	v.SetDefault(KeySoundPack, util.DefaultSoundPack)
	v.SetDefault(KeyDefaultVisibility, string(domain.VisibilityPublic))
	v.SetDefault(KeyHighContrast, false)
	v.SetDefault(KeyMuted, false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	}

	return &Store{v: v, path: filepath.Join(dir, FileName)}, nil
}

func (s *Store) Path() string {
	return s.path
}

// BindCues attaches the player SetSoundPack reloads.
func (s *Store) BindCues(r Reloader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = r
}

// OnChange registers fn to run after a setting is saved.
func (s *Store) OnChange(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) SoundPack() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(KeySoundPack)
}

// SetSoundPack switches the bound player to pack and saves the choice. If
// the pack cannot be loaded the previous one is restored and nothing is
// saved.
func (s *Store) SetSoundPack(pack string) error {
	s.mu.Lock()
	if s.cues != nil {
		prev := s.v.GetString(KeySoundPack)
		if err := s.cues.Reload(pack); err != nil {
			_ = s.cues.Reload(prev)
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()
	return s.set(KeySoundPack, pack)
}

func (s *Store) DefaultVisibility() domain.Visibility {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := domain.Visibility(s.v.GetString(KeyDefaultVisibility))
	if !v.Valid() {
		return domain.VisibilityPublic
	}
	return v
}

func (s *Store) SetDefaultVisibility(v domain.Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("unknown visibility %q", v)
	}
	return s.set(KeyDefaultVisibility, string(v))
}

func (s *Store) HighContrast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(KeyHighContrast)
}

func (s *Store) SetHighContrast(on bool) error {
	return s.set(KeyHighContrast, on)
}

func (s *Store) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(KeyMuted)
}

// SetMuted silences the bound player and saves the choice.
func (s *Store) SetMuted(on bool) error {
	s.mu.Lock()
	if s.cues != nil {
		s.cues.SetMuted(on)
	}
	s.mu.Unlock()
	return s.set(KeyMuted, on)
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	s.v.Set(key, value)
	err := s.v.WriteConfigAs(s.path)
	hooks := append([]func(string){}, s.onChange...)
	s.mu.Unlock()

	if err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("could not save settings")
		return fmt.Errorf("saving %s: %w", FileName, err)
	}
	for _, fn := range hooks {
		fn(key)
	}
	return nil
}

// ApplyCues loads the saved sound pack and mute state into r and binds it.
func (s *Store) ApplyCues(r Reloader) error {
	s.BindCues(r)
	r.SetMuted(s.Muted())
	return r.Reload(s.SoundPack())
}
