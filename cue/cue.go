// Package cue plays the short sounds that announce events and actions.
//
// A sound pack is a directory named Mastodon-<pack> below the sounds root
// holding one wav file per cue. Missing files fall back to the fallback sink
// (the terminal bell by default).
package cue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/deemkeen/thrive/logging"
	"github.com/rs/zerolog"
)

type Cue string

const (
	SendPost    Cue = "send_toot"
	SendReply   Cue = "send_reply"
	Boost       Cue = "send_boost"
	Favourite   Cue = "favorite"
	Unfavourite Cue = "unfavorite"
	Vote        Cue = "vote"

	NewPost    Cue = "new_toot"
	NewDM      Cue = "new_dm"
	NewMention Cue = "new_mention"
	// Notification announces favourites, boosts and follows of my posts.
	Notification Cue = "notification"

	// Played when a row gains focus.
	SelectMention Cue = "mention"
	Image         Cue = "image"
	Media         Cue = "media"
	Poll          Cue = "poll"
)

var All = []Cue{
	SendPost, SendReply, Boost, Favourite, Unfavourite, Vote,
	NewPost, NewDM, NewMention, Notification,
	SelectMention, Image, Media, Poll,
}

// fallbacks name the file to use when a pack lacks a cue's own file.
var fallbacks = map[Cue]Cue{
	Notification: NewPost,
}

const PackPrefix = "Mastodon-"

func (c Cue) File() string {
	return string(c) + ".wav"
}

// Sink turns a sound file into audio.
type Sink interface {
	Play(path string) error
}

// Player is safe for concurrent use. Play never blocks on audio.
type Player struct {
	mu       sync.RWMutex
	root     string
	pack     string
	files    map[Cue]string
	sink     Sink
	fallback Sink
	muted    bool
	log      zerolog.Logger
}

func NewPlayer(root string, sink Sink) *Player {
	return &Player{
		root:     root,
		files:    map[Cue]string{},
		sink:     sink,
		fallback: NopSink{},
		log:      logging.Component("cue"),
	}
}

// WithFallback sets the sink used for cues that have no file.
func (p *Player) WithFallback(s Sink) *Player {
	p.fallback = s
	return p
}

// Reload switches to another sound pack. Cues the pack lacks play through
// the fallback sink; a missing pack directory is reported but still selected.
func (p *Player) Reload(pack string) error {
	if pack == "" {
		pack = "default"
	}
	dir := filepath.Join(p.root, PackPrefix+pack)

	files := make(map[Cue]string, len(All))
	for _, c := range All {
		path := filepath.Join(dir, c.File())
		if _, err := os.Stat(path); err == nil {
			files[c] = path
		}
	}
	for c, alt := range fallbacks {
		if _, ok := files[c]; !ok {
			if path, ok := files[alt]; ok {
				files[c] = path
			}
		}
	}

	p.mu.Lock()
	p.pack = pack
	p.files = files
	p.mu.Unlock()

	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return fmt.Errorf("sound pack %q not found in %s", pack, p.root)
	}
	p.log.Info().Str("pack", pack).Int("cues", len(files)).Msg("sound pack loaded")
	return nil
}

func (p *Player) Pack() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pack
}

func (p *Player) SetMuted(m bool) {
	p.mu.Lock()
	p.muted = m
	p.mu.Unlock()
}

// Path returns the file backing c in the current pack.
func (p *Player) Path(c Cue) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	path, ok := p.files[c]
	return path, ok
}

func (p *Player) Play(c Cue) {
	p.mu.RLock()
	path, ok := p.files[c]
	muted := p.muted
	sink, fallback := p.sink, p.fallback
	p.mu.RUnlock()

	if muted {
		return
	}
	var err error
	if ok && sink != nil {
		err = sink.Play(path)
	} else if fallback != nil {
		err = fallback.Play(path)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("cue", string(c)).Msg("cue playback failed")
	}
}

// Packs lists the sound packs available below root.
func Packs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var packs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), PackPrefix) {
			packs = append(packs, strings.TrimPrefix(e.Name(), PackPrefix))
		}
	}
	sort.Strings(packs)
	return packs, nil
}
