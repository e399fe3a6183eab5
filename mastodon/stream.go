package mastodon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/util"
	"github.com/rs/zerolog"
)

var (
	// ErrStreamClosed is returned when the server ends the stream.
	ErrStreamClosed = errors.New("stream closed by server")
	ErrStreamIdle   = errors.New("stream went silent")
)

// DefaultStreamIdleTimeout is three missed heartbeats; servers send one
// about every ten seconds.
const DefaultStreamIdleTimeout = util.DefaultStreamIdleTimeoutSec * time.Second

// Event is one decoded streaming event. The concrete types are OpenEvent,
// UpdateEvent, DeleteEvent, StatusUpdateEvent and NotificationEvent.
type Event interface {
	event()
}

// OpenEvent is delivered once the server accepted the stream.
type OpenEvent struct{}

// UpdateEvent carries a new post for the home timeline.
type UpdateEvent struct {
	Post *domain.Post
}

type DeleteEvent struct {
	Id string
}

// StatusUpdateEvent carries an edited post.
type StatusUpdateEvent struct {
	Post *domain.Post
}

type NotificationEvent struct {
	Notification *domain.Notification
}

func (OpenEvent) event()         {}
func (UpdateEvent) event()       {}
func (DeleteEvent) event()       {}
func (StatusUpdateEvent) event() {}
func (NotificationEvent) event() {}

const maxEventSize = 1 << 20

// StreamUser follows the user stream until ctx is cancelled or the
// connection drops. handler is called serially from the calling goroutine.
func (c *Client) StreamUser(ctx context.Context, handler func(Event)) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := c.newRequest(streamCtx, http.MethodGet, "/api/v1/streaming/user", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("stream: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError("stream", resp)
	}

	c.log.Info().Msg("user stream connected")
	handler(OpenEvent{})

	body := newIdleReader(resp.Body, c.idle, cancel)
	defer body.stop()

	err = ParseStream(body, c.log, handler)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if body.expired() {
		c.log.Warn().Dur("idle", c.idle).Msg("user stream silent, dropping it")
		return fmt.Errorf("stream: %w", ErrStreamIdle)
	}
	if err == nil {
		return ErrStreamClosed
	}
	return fmt.Errorf("stream: %w", err)
}

// idleReader cancels the stream when no bytes arrive for d. Heartbeat
// comments count as traffic.
type idleReader struct {
	r     io.Reader
	d     time.Duration
	timer *time.Timer
	fired atomic.Bool
}

func newIdleReader(r io.Reader, d time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, d: d}
	ir.timer = time.AfterFunc(d, func() {
		ir.fired.Store(true)
		cancel()
	})
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 && !ir.fired.Load() {
		ir.timer.Reset(ir.d)
	}
	return n, err
}

func (ir *idleReader) expired() bool {
	return ir.fired.Load()
}

func (ir *idleReader) stop() {
	ir.timer.Stop()
}

// ParseStream reads server-sent events from r until EOF. Comment lines
// (heartbeats) and unknown event names are skipped; malformed payloads are
// logged and dropped.
func ParseStream(r io.Reader, log zerolog.Logger, handler func(Event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var name string
	var data []string

	dispatch := func() {
		if name != "" && len(data) > 0 {
			ev, err := decodeEvent(name, strings.Join(data, "\n"))
			if err != nil {
				log.Warn().Err(err).Str("event", name).Msg("dropping malformed stream event")
			} else if ev != nil {
				handler(ev)
			} else {
				log.Debug().Str("event", name).Msg("ignoring stream event")
			}
		}
		name = ""
		data = data[:0]
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// heartbeat
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}

func decodeEvent(name, payload string) (Event, error) {
	switch name {
	case "update":
		var p domain.Post
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		return UpdateEvent{Post: &p}, nil
	case "status.update":
		var p domain.Post
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		return StatusUpdateEvent{Post: &p}, nil
	case "notification":
		var n domain.Notification
		if err := json.Unmarshal([]byte(payload), &n); err != nil {
			return nil, err
		}
		return NotificationEvent{Notification: &n}, nil
	case "delete":
		id := strings.Trim(strings.TrimSpace(payload), `"`)
		if id == "" {
			return nil, errors.New("empty delete payload")
		}
		return DeleteEvent{Id: id}, nil
	}
	return nil, nil
}
