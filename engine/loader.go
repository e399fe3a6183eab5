package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/util"
	"github.com/rs/zerolog"
)

// Loader fetches whole categories from the server.
type Loader struct {
	deps  Deps
	limit int
	log   zerolog.Logger
}

func NewLoader(deps Deps, limit int) *Loader {
	if limit <= 0 {
		limit = util.DefaultTimelineLimit
	}
	return &Loader{deps: deps.withDefaults(), limit: limit, log: logging.Component("loader")}
}

// Load replaces cat with a fresh fetch. On failure the previous contents stay
// and the error is reported to the Notifier as well as returned.
func (l *Loader) Load(ctx context.Context, cat domain.Category) error {
	return l.run(ctx, l.deps.Store.BeginLoad(cat))
}

func (l *Loader) run(ctx context.Context, ticket timeline.Ticket) error {
	store := l.deps.Store
	cat := ticket.Category

	start := time.Now()
	items, err := l.fetch(ctx, cat)
	l.deps.Metrics.RecordLoad(string(cat), time.Since(start), err)

	if err != nil {
		store.AbortLoad(ticket)
		l.log.Error().Err(err).Str("category", string(cat)).Msg("load failed")
		err = fmt.Errorf("loading %s: %w", cat.Title(), err)
		if !errors.Is(err, context.Canceled) {
			l.deps.Notifier.ShowError(err)
		}
		return err
	}

	if err := store.CompleteLoad(ticket, items); err != nil {
		return err
	}
	n := store.Len(cat)
	l.deps.Metrics.SetCategorySize(string(cat), n)
	l.log.Debug().Str("category", string(cat)).Int("items", n).Dur("took", time.Since(start)).Msg("loaded")
	return nil
}

// Refresh reloads a single category on request.
func (l *Loader) Refresh(ctx context.Context, cat domain.Category) error {
	return l.Load(ctx, cat)
}

// LoadAll loads every category concurrently and waits for all of them.
func (l *Loader) LoadAll(ctx context.Context) error {
	return l.runAll(ctx, l.beginAll())
}

// beginAll opens a load ticket for every category. Live events applied from
// then on survive the loads.
func (l *Loader) beginAll() []timeline.Ticket {
	tickets := make([]timeline.Ticket, 0, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		tickets = append(tickets, l.deps.Store.BeginLoad(cat))
	}
	return tickets
}

func (l *Loader) runAll(ctx context.Context, tickets []timeline.Ticket) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tickets))
	for i, t := range tickets {
		wg.Add(1)
		go func(i int, t timeline.Ticket) {
			defer wg.Done()
			errs[i] = l.run(ctx, t)
		}(i, t)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (l *Loader) fetch(ctx context.Context, cat domain.Category) ([]domain.Item, error) {
	remote := l.deps.Remote
	switch cat {
	case domain.Home:
		posts, err := remote.HomeTimeline(ctx, l.limit)
		if err != nil {
			return nil, err
		}
		return postItems(posts), nil
	case domain.Sent:
		posts, err := remote.AccountStatuses(ctx, l.deps.Me.Id, l.limit)
		if err != nil {
			return nil, err
		}
		return postItems(OwnPosts(posts)), nil
	case domain.Notifications:
		ns, err := remote.Notifications(ctx, l.limit)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Item, 0, len(ns))
		for _, n := range ns {
			if n != nil {
				items = append(items, n)
			}
		}
		return items, nil
	case domain.Mentions:
		ns, err := remote.Notifications(ctx, l.limit, "mention")
		if err != nil {
			return nil, err
		}
		return postItems(MentionedPosts(ns)), nil
	}
	return nil, fmt.Errorf("unknown category %q", cat)
}

// OwnPosts drops boosts, keeping what the account wrote itself.
func OwnPosts(posts []*domain.Post) []*domain.Post {
	out := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil && p.Reblog == nil {
			out = append(out, p)
		}
	}
	return out
}

// MentionedPosts unwraps mention notifications into their posts. Mentions
// without a post are dropped.
func MentionedPosts(ns []*domain.Notification) []*domain.Post {
	out := make([]*domain.Post, 0, len(ns))
	for _, n := range ns {
		if n != nil && n.Status != nil {
			out = append(out, n.Status)
		}
	}
	return out
}

// postItems skips nil entries, which would otherwise become non-nil items
// holding a nil pointer.
func postItems(posts []*domain.Post) []domain.Item {
	items := make([]domain.Item, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			items = append(items, p)
		}
	}
	return items
}
