package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/format"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPollDuration is used when a poll draft does not name one.
const DefaultPollDuration = 24 * time.Hour

// PollDurations are the choices offered when composing a poll.
var PollDurations = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
}

type MediaDraft struct {
	Path        string
	Description string
}

type PollDraft struct {
	Options   []string
	ExpiresIn time.Duration
	Multiple  bool
}

// Draft is a new top-level post as composed by the user.
type Draft struct {
	Body        string
	Visibility  domain.Visibility
	SpoilerText string
	Language    string
	Poll        *PollDraft
	Media       []MediaDraft
}

type ReplyDraft struct {
	Body        string
	Visibility  domain.Visibility
	InReplyToId string
	SpoilerText string
}

type Intent int

const (
	IntentDelete Intent = iota
	IntentUnboost
)

func (i Intent) String() string {
	if i == IntentUnboost {
		return "unboost"
	}
	return "delete"
}

// Coordinator performs the user's write actions against the server and
// mirrors their effect into the store. Methods block and are meant to be
// called off the UI goroutine.
type Coordinator struct {
	deps       Deps
	optimistic bool
	log        zerolog.Logger
}

func NewCoordinator(deps Deps, optimistic bool) *Coordinator {
	return &Coordinator{deps: deps.withDefaults(), optimistic: optimistic, log: logging.Component("coordinator")}
}

func pollOptions(opts []string) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks a draft without contacting the server.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Body) == "" && d.Poll == nil {
		return invalid("body", ErrEmptyPost)
	}
	if d.Poll != nil && len(pollOptions(d.Poll.Options)) < 2 {
		return invalid("poll", ErrPollOptions)
	}
	if d.Visibility != "" && !d.Visibility.Valid() {
		return invalid("visibility", fmt.Errorf("%w %q", ErrInvalidVisibility, d.Visibility))
	}
	return nil
}

func (d ReplyDraft) Validate() error {
	if strings.TrimSpace(d.Body) == "" {
		return invalid("body", ErrEmptyReply)
	}
	if d.InReplyToId == "" {
		return invalid("in_reply_to_id", ErrNoReplyTarget)
	}
	if d.Visibility != "" && !d.Visibility.Valid() {
		return invalid("visibility", fmt.Errorf("%w %q", ErrInvalidVisibility, d.Visibility))
	}
	return nil
}

func orPublic(v domain.Visibility) domain.Visibility {
	if v == "" {
		return domain.VisibilityPublic
	}
	return v
}

func (c *Coordinator) SubmitPost(ctx context.Context, d Draft) (*domain.Post, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	params := mastodon.StatusParams{
		Status:         strings.TrimSpace(d.Body),
		Visibility:     orPublic(d.Visibility),
		SpoilerText:    d.SpoilerText,
		Sensitive:      d.SpoilerText != "",
		Language:       d.Language,
		IdempotencyKey: uuid.NewString(),
	}
	for _, m := range d.Media {
		att, err := c.deps.Remote.UploadMedia(ctx, m.Path, m.Description)
		c.deps.Metrics.RecordMutation("upload", err)
		if err != nil {
			c.log.Error().Err(err).Str("path", m.Path).Msg("media upload failed")
			return nil, fmt.Errorf("uploading %s: %w", m.Path, err)
		}
		params.MediaIds = append(params.MediaIds, att.Id)
	}
	if d.Poll != nil {
		expires := d.Poll.ExpiresIn
		if expires <= 0 {
			expires = DefaultPollDuration
		}
		params.Poll = &mastodon.PollParams{
			Options:   pollOptions(d.Poll.Options),
			ExpiresIn: int(expires.Seconds()),
			Multiple:  d.Poll.Multiple,
		}
	}

	post, err := c.deps.Remote.PostStatus(ctx, params)
	c.deps.Metrics.RecordMutation("post", err)
	if err != nil {
		c.log.Error().Err(err).Msg("post failed")
		return nil, err
	}
	c.deps.Cues.Play(cue.SendPost)
	c.insertOwn(post)
	return post, nil
}

func (c *Coordinator) SubmitReply(ctx context.Context, d ReplyDraft) (*domain.Post, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	post, err := c.deps.Remote.PostStatus(ctx, mastodon.StatusParams{
		Status:         strings.TrimSpace(d.Body),
		InReplyToId:    d.InReplyToId,
		Visibility:     orPublic(d.Visibility),
		SpoilerText:    d.SpoilerText,
		Sensitive:      d.SpoilerText != "",
		IdempotencyKey: uuid.NewString(),
	})
	c.deps.Metrics.RecordMutation("reply", err)
	if err != nil {
		c.log.Error().Err(err).Str("in_reply_to", d.InReplyToId).Msg("reply failed")
		return nil, err
	}
	c.deps.Cues.Play(cue.SendReply)
	c.insertOwn(post)
	return post, nil
}

func (c *Coordinator) insertOwn(post *domain.Post) {
	if !c.optimistic || post == nil {
		return
	}
	_ = c.deps.Store.Prepend(domain.Home, post)
	_ = c.deps.Store.Prepend(domain.Sent, post)
}

// SuggestReply builds the text a reply starts with: the author's handle,
// then every other handle mentioned in the post, never including me.
func SuggestReply(post *domain.Post, me *domain.Account) string {
	if post == nil {
		return ""
	}
	target := post.Target()

	seen := map[string]bool{}
	if me != nil && me.Acct != "" {
		seen[me.Acct] = true
	}
	var handles []string
	add := func(h string) {
		if h == "" || seen[h] {
			return
		}
		seen[h] = true
		handles = append(handles, "@"+h)
	}

	add(target.Account.Acct)
	for _, tok := range strings.Fields(format.PlainText(target.Content)) {
		if !strings.HasPrefix(tok, "@") {
			continue
		}
		add(strings.TrimRight(strings.TrimPrefix(tok, "@"), ".,:;!?)\"'"))
	}

	if len(handles) == 0 {
		return ""
	}
	return strings.Join(handles, " ") + " "
}

func (c *Coordinator) SuggestReply(post *domain.Post) string {
	return SuggestReply(post, c.deps.Me)
}

func (c *Coordinator) lookup(cat domain.Category, id string) (*domain.Post, error) {
	item, ok := c.deps.Store.FindByID(cat, id)
	if !ok {
		return nil, ErrNotInTimeline
	}
	post := PostOf(item)
	if post == nil {
		return nil, ErrNotInTimeline
	}
	return post, nil
}

// setOnTarget rewrites every stored copy of the post targetId, including
// boosts of it and notifications about it. set receives a private copy.
func (c *Coordinator) setOnTarget(targetId string, set func(*domain.Post)) {
	store := c.deps.Store
	for _, cat := range domain.AllCategories {
		for _, item := range store.Snapshot(cat).Items {
			post := PostOf(item)
			if post == nil || post.Target().Id != targetId {
				continue
			}
			store.UpdateByID(cat, item.ItemID(), func(cur domain.Item) domain.Item {
				return rewrite(cur, targetId, set)
			})
		}
	}
}

func rewrite(item domain.Item, targetId string, set func(*domain.Post)) domain.Item {
	switch v := item.(type) {
	case *domain.Post:
		return rewritePost(v, targetId, set)
	case *domain.Notification:
		if v.Status == nil {
			return nil
		}
		status := rewritePost(v.Status, targetId, set)
		if status == nil {
			return nil
		}
		n := *v
		n.Status = status
		return &n
	}
	return nil
}

func rewritePost(p *domain.Post, targetId string, set func(*domain.Post)) *domain.Post {
	switch {
	case p.Id == targetId:
		cp := p.Clone()
		set(cp)
		return cp
	case p.Reblog != nil && p.Reblog.Id == targetId:
		cp := p.Clone()
		cp.Reblog = p.Reblog.Clone()
		set(cp.Reblog)
		return cp
	}
	return nil
}

func adjust(n *int, on bool) {
	if on {
		*n++
	} else if *n > 0 {
		*n--
	}
}

// ToggleBoost boosts or unboosts the post behind the row and reports the new
// state. On error nothing in the store changes.
func (c *Coordinator) ToggleBoost(ctx context.Context, cat domain.Category, id string) (bool, error) {
	post, err := c.lookup(cat, id)
	if err != nil {
		return false, err
	}
	target := post.Target()
	boost := !target.Reblogged

	op := "boost"
	if boost {
		_, err = c.deps.Remote.Reblog(ctx, target.Id)
	} else {
		op = "unboost"
		_, err = c.deps.Remote.Unreblog(ctx, target.Id)
	}
	c.deps.Metrics.RecordMutation(op, err)
	if err != nil {
		c.log.Error().Err(err).Str("id", target.Id).Str("op", op).Msg("toggle boost failed")
		return target.Reblogged, err
	}

	c.setOnTarget(target.Id, func(p *domain.Post) {
		if p.Reblogged != boost {
			adjust(&p.ReblogsCount, boost)
		}
		p.Reblogged = boost
	})
	if boost {
		c.deps.Cues.Play(cue.Boost)
	}
	return boost, nil
}

func (c *Coordinator) ToggleFavourite(ctx context.Context, cat domain.Category, id string) (bool, error) {
	post, err := c.lookup(cat, id)
	if err != nil {
		return false, err
	}
	target := post.Target()
	fav := !target.Favourited

	op := "favourite"
	if fav {
		_, err = c.deps.Remote.Favourite(ctx, target.Id)
	} else {
		op = "unfavourite"
		_, err = c.deps.Remote.Unfavourite(ctx, target.Id)
	}
	c.deps.Metrics.RecordMutation(op, err)
	if err != nil {
		c.log.Error().Err(err).Str("id", target.Id).Str("op", op).Msg("toggle favourite failed")
		return target.Favourited, err
	}

	c.setOnTarget(target.Id, func(p *domain.Post) {
		if p.Favourited != fav {
			adjust(&p.FavouritesCount, fav)
		}
		p.Favourited = fav
	})
	if fav {
		c.deps.Cues.Play(cue.Favourite)
	} else {
		c.deps.Cues.Play(cue.Unfavourite)
	}
	return fav, nil
}

// DeleteIntent decides what deleting the row would do. Only rows I authored
// can be deleted; my boost of another post is undone instead.
func (c *Coordinator) DeleteIntent(cat domain.Category, id string) (Intent, error) {
	post, err := c.lookup(cat, id)
	if err != nil {
		return IntentDelete, err
	}
	return intentFor(post, c.deps.Me)
}

func intentFor(post *domain.Post, me *domain.Account) (Intent, error) {
	if me == nil || post.Account.Id != me.Id {
		return IntentDelete, invalid("account", ErrNotOwner)
	}
	if post.IsBoost() {
		return IntentUnboost, nil
	}
	return IntentDelete, nil
}

// Delete carries out the row's delete intent. A post the server no longer
// knows counts as deleted.
func (c *Coordinator) Delete(ctx context.Context, cat domain.Category, id string) error {
	post, err := c.lookup(cat, id)
	if err != nil {
		return err
	}
	intent, err := intentFor(post, c.deps.Me)
	if err != nil {
		return err
	}

	switch intent {
	case IntentUnboost:
		_, err = c.deps.Remote.Unreblog(ctx, post.Reblog.Id)
	default:
		err = c.deps.Remote.DeleteStatus(ctx, post.Id)
	}
	c.deps.Metrics.RecordMutation(intent.String(), err)
	if err != nil && !mastodon.IsNotFound(err) {
		c.log.Error().Err(err).Str("id", post.Id).Str("intent", intent.String()).Msg("delete failed")
		return err
	}

	for _, cat := range domain.PostTimelines {
		c.deps.Store.RemoveByID(cat, post.Id)
	}
	if intent == IntentUnboost {
		c.setOnTarget(post.Reblog.Id, func(p *domain.Post) {
			if p.Reblogged {
				adjust(&p.ReblogsCount, false)
			}
			p.Reblogged = false
		})
	}
	return nil
}

// Vote answers the poll of the post behind the row. choices are option
// indexes.
func (c *Coordinator) Vote(ctx context.Context, cat domain.Category, id string, choices []int) error {
	post, err := c.lookup(cat, id)
	if err != nil {
		return err
	}
	target := post.Target()
	poll := target.Poll
	if poll == nil {
		return invalid("poll", ErrNoPoll)
	}
	if len(choices) == 0 || (!poll.Multiple && len(choices) > 1) {
		return invalid("choices", ErrInvalidChoice)
	}
	for _, ch := range choices {
		if ch < 0 || ch >= len(poll.Options) {
			return invalid("choices", fmt.Errorf("%w: %d", ErrInvalidChoice, ch))
		}
	}

	updated, err := c.deps.Remote.Vote(ctx, poll.Id, choices)
	c.deps.Metrics.RecordMutation("vote", err)
	if err != nil {
		c.log.Error().Err(err).Str("poll", poll.Id).Msg("vote failed")
		return err
	}
	if updated == nil {
		return errors.New("server returned no poll")
	}

	c.setOnTarget(target.Id, func(p *domain.Post) {
		p.Poll = updated
	})
	c.deps.Cues.Play(cue.Vote)
	return nil
}
