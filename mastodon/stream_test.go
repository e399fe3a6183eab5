package mastodon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const sample = `:)
event: update
data: {"id":"1","account":{"id":"9","acct":"alice"},"content":"<p>hi</p>","visibility":"public"}

:thump
event: delete
data: 1

event: status.update
data: {"id":"2","content":"<p>edited</p>"}

event: notification
data: {"id":"n1","type":"favourite","account":{"id":"3"},"status":{"id":"2"}}

event: filters_changed
data: undefined

event: update
data: {not json

`

func collect(t *testing.T, input string) []Event {
	t.Helper()
	var got []Event
	err := ParseStream(strings.NewReader(input), zerolog.Nop(), func(e Event) { got = append(got, e) })
	require.NoError(t, err)
	return got
}

func TestParseStream(t *testing.T) {
	got := collect(t, sample)

	require.Len(t, got, 4)

	up, ok := got[0].(UpdateEvent)
	require.True(t, ok)
	require.Equal(t, "1", up.Post.Id)
	require.Equal(t, "alice", up.Post.Account.Acct)

	require.Equal(t, DeleteEvent{Id: "1"}, got[1])

	edit, ok := got[2].(StatusUpdateEvent)
	require.True(t, ok)
	require.Equal(t, "<p>edited</p>", edit.Post.Content)

	n, ok := got[3].(NotificationEvent)
	require.True(t, ok)
	require.Equal(t, "favourite", n.Notification.Type)
}

func TestParseStreamMultilineData(t *testing.T) {
	got := collect(t, "event: update\ndata: {\"id\":\ndata: \"7\"}\n\n")

	require.Len(t, got, 1)
	require.Equal(t, "7", got[0].(UpdateEvent).Post.Id)
}

func TestParseStreamDispatchesTrailingEventAtEOF(t *testing.T) {
	got := collect(t, "event: delete\ndata: \"55\"")

	require.Equal(t, []Event{DeleteEvent{Id: "55"}}, got)
}

func TestStreamUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/streaming/user", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: delete\ndata: 3\n\n")
	}))

	var got []Event
	err := c.StreamUser(context.Background(), func(e Event) { got = append(got, e) })

	require.ErrorIs(t, err, ErrStreamClosed)
	require.Equal(t, []Event{OpenEvent{}, DeleteEvent{Id: "3"}}, got)
}

func TestStreamUserRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"The access token is invalid"}`))
	}))

	opened := false
	err := c.StreamUser(context.Background(), func(e Event) {
		if _, ok := e.(OpenEvent); ok {
			opened = true
		}
	})

	require.True(t, IsUnauthorized(err))
	require.False(t, opened)
}

func TestStreamUserCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))

	err := c.StreamUser(ctx, func(e Event) {
		if _, ok := e.(OpenEvent); ok {
			cancel()
		}
	})

	require.True(t, errors.Is(err, context.Canceled))
}

func TestStreamUserDropsSilentStream(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ":thump\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	c.idle = 50 * time.Millisecond

	err := c.StreamUser(context.Background(), func(Event) {})

	require.ErrorIs(t, err, ErrStreamIdle)
	require.False(t, IsUnauthorized(err))
}

func TestStreamUserHeartbeatsKeepStreamAlive(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 10; i++ {
			fmt.Fprint(w, ":thump\n")
			w.(http.Flusher).Flush()
			time.Sleep(20 * time.Millisecond)
		}
		fmt.Fprint(w, "event: delete\ndata: 4\n\n")
	}))
	c.idle = 80 * time.Millisecond

	var got []Event
	err := c.StreamUser(context.Background(), func(e Event) { got = append(got, e) })

	require.ErrorIs(t, err, ErrStreamClosed)
	require.Equal(t, []Event{OpenEvent{}, DeleteEvent{Id: "4"}}, got)
}
