// Package engine keeps the timeline store in step with the server: bulk
// loads, live stream events and the user's own actions.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/deemkeen/thrive/metrics"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/util"
)

// Remote is the server API the engine needs. *mastodon.Client implements it.
type Remote interface {
	VerifyCredentials(ctx context.Context) (*domain.Account, error)
	HomeTimeline(ctx context.Context, limit int) ([]*domain.Post, error)
	AccountStatuses(ctx context.Context, accountId string, limit int) ([]*domain.Post, error)
	Notifications(ctx context.Context, limit int, types ...string) ([]*domain.Notification, error)
	PostStatus(ctx context.Context, params mastodon.StatusParams) (*domain.Post, error)
	DeleteStatus(ctx context.Context, id string) error
	Reblog(ctx context.Context, id string) (*domain.Post, error)
	Unreblog(ctx context.Context, id string) (*domain.Post, error)
	Favourite(ctx context.Context, id string) (*domain.Post, error)
	Unfavourite(ctx context.Context, id string) (*domain.Post, error)
	UploadMedia(ctx context.Context, path, description string) (*domain.MediaAttachment, error)
	Vote(ctx context.Context, pollId string, choices []int) (*domain.Poll, error)
	StreamUser(ctx context.Context, handler func(mastodon.Event)) error
}

// Notifier surfaces background problems to the user. Implementations must
// not block.
type Notifier interface {
	ShowError(err error)
	// SetBanner shows a persistent status line; an empty message clears it.
	SetBanner(msg string)
}

type CuePlayer interface {
	Play(c cue.Cue)
}

// Journal persists a record of received stream events. PruneStreamEvents
// drops all but the newest keep records.
type Journal interface {
	RecordStreamEvent(kind, itemId string, at time.Time) error
	PruneStreamEvents(keep int) error
}

// Cache persists timeline contents between runs.
type Cache interface {
	SaveTimeline(cat domain.Category, items []domain.Item) error
	ReadTimeline(cat domain.Category) ([]domain.Item, error)
}

// Deps are the collaborators shared by every engine component.
type Deps struct {
	Store    *timeline.Store
	Remote   Remote
	Me       *domain.Account
	Notifier Notifier
	Cues     CuePlayer
	Metrics  metrics.MetricsCollector
	Journal  Journal
	// JournalKeep bounds the journal; it is pruned every journalPruneEvery
	// records.
	JournalKeep int
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = logNotifier{}
	}
	if d.Cues == nil {
		d.Cues = silent{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Me == nil {
		d.Me = &domain.Account{}
	}
	if d.JournalKeep <= 0 {
		d.JournalKeep = util.DefaultStreamJournalKeep
	}
	return d
}

type logNotifier struct{}

func (logNotifier) ShowError(err error) {
	logging.Logger.Error().Err(err).Msg("unreported error")
}

func (logNotifier) SetBanner(msg string) {
	if msg != "" {
		logging.Logger.Warn().Str("banner", msg).Msg("status banner")
	}
}

type silent struct{}

func (silent) Play(cue.Cue) {}

var (
	ErrEmptyPost         = errors.New("the post is empty; write something or add a poll")
	ErrEmptyReply        = errors.New("the reply is empty")
	ErrNoReplyTarget     = errors.New("no post to reply to")
	ErrPollOptions       = errors.New("a poll must have at least two options")
	ErrInvalidVisibility = errors.New("unknown visibility")
	ErrNotOwner          = errors.New("you can only delete your own posts")
	ErrNoPoll            = errors.New("this post has no poll")
	ErrInvalidChoice     = errors.New("invalid poll choice")
	ErrNotInTimeline     = errors.New("the post is no longer in this timeline")
)

// ValidationError is returned when an action is rejected before any remote
// call is made.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// PostOf returns the post behind a timeline item: the post itself, or the
// status a notification refers to.
func PostOf(item domain.Item) *domain.Post {
	switch v := item.(type) {
	case *domain.Post:
		return v
	case *domain.Notification:
		return v.Status
	}
	return nil
}
