package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/deemkeen/thrive/util"
	"github.com/rs/zerolog"
)

type SupervisorConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxAttempts bounds consecutive failures; 0 retries forever.
	MaxAttempts      int
	FailureThreshold int
}

func (c SupervisorConfig) withDefaults() SupervisorConfig {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = util.DefaultStreamMaxBackoffSec * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = util.DefaultStreamFailureThreshold
	}
	return c
}

// Supervisor keeps the user stream connected. Events go to handler; after
// a reconnect onReconnect is called so the gap can be refilled. It runs on
// the stream goroutine and must hand long work off rather than block.
type Supervisor struct {
	deps        Deps
	cfg         SupervisorConfig
	handler     func(mastodon.Event)
	onReconnect func(ctx context.Context)
	sleep       func(ctx context.Context, d time.Duration) error
	log         zerolog.Logger
}

func NewSupervisor(deps Deps, cfg SupervisorConfig, handler func(mastodon.Event), onReconnect func(ctx context.Context)) *Supervisor {
	return &Supervisor{
		deps:        deps.withDefaults(),
		cfg:         cfg.withDefaults(),
		handler:     handler,
		onReconnect: onReconnect,
		sleep:       sleepCtx,
		log:         logging.Component("stream"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run blocks until ctx is cancelled, the server rejects the credentials or
// MaxAttempts consecutive attempts fail.
func (s *Supervisor) Run(ctx context.Context) error {
	var (
		failures  int
		connected bool
		banner    bool
		backoff   = s.cfg.InitialBackoff
	)

	for {
		err := s.deps.Remote.StreamUser(ctx, func(ev mastodon.Event) {
			if _, ok := ev.(mastodon.OpenEvent); ok {
				s.log.Info().Bool("reconnect", connected).Msg("stream connected")
				if banner {
					s.deps.Notifier.SetBanner("")
					banner = false
				}
				failures = 0
				backoff = s.cfg.InitialBackoff
				if connected && s.onReconnect != nil {
					s.onReconnect(ctx)
				}
				connected = true
			}
			if s.handler != nil {
				s.handler(ev)
			}
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if mastodon.IsUnauthorized(err) {
			s.log.Error().Err(err).Msg("stream rejected")
			s.deps.Notifier.SetBanner("Live updates rejected by the server; log in again")
			return err
		}

		failures++
		s.deps.Metrics.RecordReconnect()
		s.log.Warn().Err(err).Int("failures", failures).Dur("backoff", backoff).Msg("stream lost")

		if s.cfg.MaxAttempts > 0 && failures >= s.cfg.MaxAttempts {
			s.deps.Notifier.SetBanner(fmt.Sprintf("Live updates stopped after %d failed attempts", failures))
			return err
		}
		if failures >= s.cfg.FailureThreshold {
			s.deps.Notifier.SetBanner(fmt.Sprintf("Live updates disconnected, retrying (attempt %d)", failures+1))
			banner = true
		}

		if err := s.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}
