package engine

import (
	"errors"
	"time"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/deemkeen/thrive/timeline"
	"github.com/rs/zerolog"
)

// Processor applies live stream events to the store. Handle is called from
// the stream goroutine, one event at a time.
type Processor struct {
	deps Deps
	// refreshEchoes replaces a locally inserted post with its stream echo.
	refreshEchoes bool
	journaled     int
	log           zerolog.Logger
}

const journalPruneEvery = 100

func NewProcessor(deps Deps, refreshEchoes bool) *Processor {
	return &Processor{deps: deps.withDefaults(), refreshEchoes: refreshEchoes, log: logging.Component("processor")}
}

func (p *Processor) Handle(ev mastodon.Event) {
	switch e := ev.(type) {
	case mastodon.OpenEvent:
	case mastodon.UpdateEvent:
		p.record("update", e.Post.Id)
		p.onUpdate(e.Post)
	case mastodon.DeleteEvent:
		p.record("delete", e.Id)
		p.onDelete(e.Id)
	case mastodon.StatusUpdateEvent:
		p.record("status.update", e.Post.Id)
		p.onStatusUpdate(e.Post)
	case mastodon.NotificationEvent:
		p.record("notification", e.Notification.Id)
		p.onNotification(e.Notification)
	default:
		p.log.Debug().Type("event", ev).Msg("unhandled stream event")
	}
}

func (p *Processor) record(kind, id string) {
	p.deps.Metrics.RecordStreamEvent(kind)
	if p.deps.Journal == nil {
		return
	}
	if err := p.deps.Journal.RecordStreamEvent(kind, id, time.Now()); err != nil {
		p.log.Warn().Err(err).Str("kind", kind).Msg("could not journal stream event")
		return
	}
	p.journaled++
	if p.journaled%journalPruneEvery == 0 {
		if err := p.deps.Journal.PruneStreamEvents(p.deps.JournalKeep); err != nil {
			p.log.Warn().Err(err).Msg("could not prune stream journal")
		}
	}
}

// PostCue picks the single cue announcing a new post, checked in priority
// order: direct message, mention of me, someone else's post. My own posts
// get no cue here; the send cue already played.
func PostCue(post *domain.Post, me *domain.Account) (cue.Cue, bool) {
	switch {
	case post.Visibility == domain.VisibilityDirect:
		return cue.NewDM, true
	case post.MentionsAccount(me.Id):
		return cue.NewMention, true
	case post.Account.Id != me.Id:
		return cue.NewPost, true
	}
	return "", false
}

// NotificationCue picks the cue for a notification kind.
func NotificationCue(kind domain.NotificationKind) (cue.Cue, bool) {
	switch kind {
	case domain.KindFavourite, domain.KindReblog, domain.KindFollow, domain.KindFollowRequest:
		return cue.Notification, true
	case domain.KindMention:
		return cue.NewMention, true
	case domain.KindPoll, domain.KindUpdate, domain.KindUnknown:
		return "", false
	}
	return "", false
}

// SelectionCue picks the cue played when a row gains focus: a poll first,
// then a mention of me, then time-based media, then images.
func SelectionCue(item domain.Item, me *domain.Account) (cue.Cue, bool) {
	post := PostOf(item)
	if post == nil {
		return "", false
	}
	src := post.Target()
	if src.Poll != nil {
		return cue.Poll, true
	}
	if me != nil && src.MentionsAccount(me.Id) {
		return cue.SelectMention, true
	}
	for _, m := range src.MediaAttachments {
		if m.IsPlayable() {
			return cue.Media, true
		}
	}
	for _, m := range src.MediaAttachments {
		if m.Type == "image" {
			return cue.Image, true
		}
	}
	return "", false
}

func (p *Processor) prepend(cat domain.Category, post *domain.Post) {
	err := p.deps.Store.Prepend(cat, post)
	if errors.Is(err, timeline.ErrDuplicate) {
		if p.refreshEchoes {
			p.deps.Store.ReplaceByID(cat, post.Id, post)
		}
		p.log.Debug().Str("category", string(cat)).Str("id", post.Id).Msg("duplicate post skipped")
	}
}

func (p *Processor) onUpdate(post *domain.Post) {
	me := p.deps.Me
	if c, ok := PostCue(post, me); ok {
		p.deps.Cues.Play(c)
	}

	p.prepend(domain.Home, post)
	if post.Account.Id == me.Id && !post.IsBoost() {
		p.prepend(domain.Sent, post)
	}
}

func (p *Processor) onDelete(id string) {
	for _, cat := range domain.PostTimelines {
		p.deps.Store.RemoveByID(cat, id)
	}
}

func (p *Processor) onStatusUpdate(post *domain.Post) {
	for _, cat := range domain.PostTimelines {
		p.deps.Store.ReplaceByID(cat, post.Id, post)
	}
}

func (p *Processor) onNotification(n *domain.Notification) {
	kind := n.Kind()
	if c, ok := NotificationCue(kind); ok {
		p.deps.Cues.Play(c)
	}

	if err := p.deps.Store.Prepend(domain.Notifications, n); err != nil {
		p.log.Debug().Str("id", n.Id).Msg("duplicate notification skipped")
	}
	if kind == domain.KindMention && n.Status != nil {
		p.prepend(domain.Mentions, n.Status)
	}
}
