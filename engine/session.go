package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/metrics"
	"github.com/deemkeen/thrive/timeline"
	"github.com/rs/zerolog"
)

type Options struct {
	Limit           int
	OptimisticPosts bool
	Stream          SupervisorConfig

	Notifier Notifier
	Cues     CuePlayer
	Metrics  metrics.MetricsCollector
	Journal  Journal
	// JournalKeep is how many journaled events survive a prune.
	JournalKeep int
	// Cache, when set, seeds the store at start and is written on Close.
	Cache Cache
}

// Session is one logged-in account: the store and the components that keep
// it current.
type Session struct {
	Me          *domain.Account
	Store       *timeline.Store
	Loader      *Loader
	Processor   *Processor
	Coordinator *Coordinator
	Supervisor  *Supervisor

	cache  Cache
	deps   Deps
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// Open verifies the credentials and builds the session around a fresh
// store. Nothing runs until Start.
func Open(ctx context.Context, remote Remote, store *timeline.Store, opts Options) (*Session, error) {
	me, err := remote.VerifyCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	if store == nil {
		store = timeline.NewStore()
	}

	deps := Deps{
		Store:       store,
		Remote:      remote,
		Me:          me,
		Notifier:    opts.Notifier,
		Cues:        opts.Cues,
		Metrics:     opts.Metrics,
		Journal:     opts.Journal,
		JournalKeep: opts.JournalKeep,
	}.withDefaults()

	s := &Session{
		Me:          me,
		Store:       store,
		Loader:      NewLoader(deps, opts.Limit),
		Processor:   NewProcessor(deps, opts.OptimisticPosts),
		Coordinator: NewCoordinator(deps, opts.OptimisticPosts),
		cache:       opts.Cache,
		deps:        deps,
		log:         logging.Component("session"),
	}
	s.Supervisor = NewSupervisor(deps, opts.Stream, s.Processor.Handle, s.refill)

	s.log.Info().Str("account", me.Acct).Msg("session opened")
	return s, nil
}

// Start seeds the store from the cache, then loads every category and
// connects the stream in the background.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.restore()

	// Tickets are taken before the stream connects so that no early event
	// is overwritten by the first load.
	tickets := s.Loader.beginAll()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		_ = s.Loader.runAll(ctx, tickets)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.Supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("stream supervisor stopped")
		}
	}()
}

// refill reloads every category after the stream reconnects. Close waits
// for it before saving the cache.
func (s *Session) refill(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Loader.LoadAll(ctx)
	}()
}

func (s *Session) pruneJournal() {
	if s.deps.Journal == nil {
		return
	}
	if err := s.deps.Journal.PruneStreamEvents(s.deps.JournalKeep); err != nil {
		s.log.Warn().Err(err).Msg("could not prune stream journal")
	}
}

func (s *Session) restore() {
	if s.cache == nil {
		return
	}
	for _, cat := range domain.AllCategories {
		items, err := s.cache.ReadTimeline(cat)
		if err != nil {
			s.log.Warn().Err(err).Str("category", string(cat)).Msg("could not read cached timeline")
			continue
		}
		if len(items) > 0 {
			s.Store.Replace(cat, items)
		}
	}
}

// Close stops background work and saves the timelines to the cache.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.pruneJournal()

	if s.cache == nil {
		return nil
	}
	var errs []error
	for _, cat := range domain.AllCategories {
		if err := s.cache.SaveTimeline(cat, s.Store.Snapshot(cat).Items); err != nil {
			errs = append(errs, fmt.Errorf("caching %s: %w", cat, err))
		}
	}
	return errors.Join(errs...)
}
