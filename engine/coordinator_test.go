package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/stretchr/testify/require"
)

func TestToggleBoost(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("2"), post("1")))
	_, view, flush := f.watch(domain.Home)
	c := NewCoordinator(f.deps, false)

	boosted, err := c.ToggleBoost(context.Background(), domain.Home, "1")
	flush()

	require.NoError(t, err)
	require.True(t, boosted)
	got, _ := f.store.FindByID(domain.Home, "1")
	require.True(t, got.(*domain.Post).Reblogged)
	require.Equal(t, 1, got.(*domain.Post).ReblogsCount)
	require.Equal(t, []string{"update:1"}, view.events)
	require.Equal(t, []cue.Cue{cue.Boost}, f.cues.Played())
	require.Equal(t, []string{"reblog:1"}, f.remote.Calls())
}

func TestToggleBoostDoesNotMutateStoredRecord(t *testing.T) {
	f := newFixture()
	original := post("1")
	f.store.Replace(domain.Home, items(original))

	_, err := NewCoordinator(f.deps, false).ToggleBoost(context.Background(), domain.Home, "1")

	require.NoError(t, err)
	require.False(t, original.Reblogged)
}

func TestUnboostPlaysNoCue(t *testing.T) {
	f := newFixture()
	p := post("1")
	p.Reblogged = true
	p.ReblogsCount = 3
	f.store.Replace(domain.Home, items(p))

	boosted, err := NewCoordinator(f.deps, false).ToggleBoost(context.Background(), domain.Home, "1")

	require.NoError(t, err)
	require.False(t, boosted)
	got, _ := f.store.FindByID(domain.Home, "1")
	require.False(t, got.(*domain.Post).Reblogged)
	require.Equal(t, 2, got.(*domain.Post).ReblogsCount)
	require.Empty(t, f.cues.Played())
	require.Equal(t, []string{"unreblog:1"}, f.remote.Calls())
}

func TestToggleBoostFailureLeavesStore(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("1")))
	before := f.store.Snapshot(domain.Home).Version
	f.remote.writeErr = &mastodon.APIError{StatusCode: 404, Message: "Record not found", Op: "boost"}

	_, err := NewCoordinator(f.deps, false).ToggleBoost(context.Background(), domain.Home, "1")

	require.Error(t, err)
	require.True(t, mastodon.IsNotFound(err))
	require.Equal(t, before, f.store.Snapshot(domain.Home).Version)
	require.Empty(t, f.cues.Played())
}

func TestToggleBoostOnWrapperUpdatesEveryCopy(t *testing.T) {
	f := newFixture()
	target := post("1")
	carol := domain.Account{Id: "3", Acct: "carol"}
	f.store.Replace(domain.Home, items(boostOf("w1", carol, target), target))
	f.store.Replace(domain.Mentions, items(target))
	f.store.Replace(domain.Notifications, []domain.Item{
		&domain.Notification{Id: "n1", Type: "mention", Status: target},
		&domain.Notification{Id: "n2", Type: "follow"},
	})

	_, err := NewCoordinator(f.deps, false).ToggleBoost(context.Background(), domain.Home, "w1")
	require.NoError(t, err)

	require.Equal(t, []string{"reblog:1"}, f.remote.Calls())

	wrapper, _ := f.store.FindByID(domain.Home, "w1")
	require.True(t, wrapper.(*domain.Post).Reblog.Reblogged)
	require.False(t, wrapper.(*domain.Post).Reblogged)

	plain, _ := f.store.FindByID(domain.Home, "1")
	require.True(t, plain.(*domain.Post).Reblogged)

	mention, _ := f.store.FindByID(domain.Mentions, "1")
	require.True(t, mention.(*domain.Post).Reblogged)

	n, _ := f.store.FindByID(domain.Notifications, "n1")
	require.True(t, n.(*domain.Notification).Status.Reblogged)

	require.False(t, target.Reblogged)
}

func TestToggleUnknownRow(t *testing.T) {
	f := newFixture()

	_, err := NewCoordinator(f.deps, false).ToggleFavourite(context.Background(), domain.Home, "nope")

	require.ErrorIs(t, err, ErrNotInTimeline)
	require.Empty(t, f.remote.Calls())
}

func TestToggleFavouriteCues(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("1")))
	c := NewCoordinator(f.deps, false)

	fav, err := c.ToggleFavourite(context.Background(), domain.Home, "1")
	require.NoError(t, err)
	require.True(t, fav)

	fav, err = c.ToggleFavourite(context.Background(), domain.Home, "1")
	require.NoError(t, err)
	require.False(t, fav)

	require.Equal(t, []cue.Cue{cue.Favourite, cue.Unfavourite}, f.cues.Played())
	require.Equal(t, []string{"favourite:1", "unfavourite:1"}, f.remote.Calls())
	got, _ := f.store.FindByID(domain.Home, "1")
	require.Equal(t, 0, got.(*domain.Post).FavouritesCount)
}

func TestEmptyReplyIsRejectedLocally(t *testing.T) {
	f := newFixture()

	_, err := NewCoordinator(f.deps, false).SubmitReply(context.Background(), ReplyDraft{Body: "  \n", InReplyToId: "1"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorIs(t, err, ErrEmptyReply)
	require.Empty(t, f.remote.Calls())
	require.Empty(t, f.cues.Played())
}

func TestDraftValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"empty", Draft{Body: "   "}, ErrEmptyPost},
		{"poll with one option", Draft{Poll: &PollDraft{Options: []string{"yes", " ", ""}}}, ErrPollOptions},
		{"bad visibility", Draft{Body: "hi", Visibility: "friends"}, ErrInvalidVisibility},
		{"poll only", Draft{Poll: &PollDraft{Options: []string{"yes", "no"}}}, nil},
		{"plain", Draft{Body: "hi"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestSubmitPostInvalidMakesNoCall(t *testing.T) {
	f := newFixture()

	_, err := NewCoordinator(f.deps, false).SubmitPost(context.Background(), Draft{Body: ""})

	require.ErrorIs(t, err, ErrEmptyPost)
	require.Empty(t, f.remote.Calls())
}

func TestSubmitPost(t *testing.T) {
	f := newFixture()

	p, err := NewCoordinator(f.deps, false).SubmitPost(context.Background(), Draft{
		Body:  "  hello  ",
		Media: []MediaDraft{{Path: "cat.png", Description: "a cat"}},
		Poll:  &PollDraft{Options: []string{"a", "", "b"}},
	})

	require.NoError(t, err)
	require.Equal(t, "hello", p.Content)
	require.Equal(t, []string{"upload:cat.png", "post"}, f.remote.Calls())

	sent := f.remote.posted[0]
	require.Equal(t, domain.VisibilityPublic, sent.Visibility)
	require.Equal(t, []string{"m-cat.png"}, sent.MediaIds)
	require.NotEmpty(t, sent.IdempotencyKey)
	require.Equal(t, []string{"a", "b"}, sent.Poll.Options)
	require.Equal(t, int((24 * time.Hour).Seconds()), sent.Poll.ExpiresIn)

	require.Equal(t, []cue.Cue{cue.SendPost}, f.cues.Played())
	require.Empty(t, ids(f.store, domain.Home))
	require.Empty(t, ids(f.store, domain.Sent))
}

func TestSubmitPostOptimistic(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("1")))

	_, err := NewCoordinator(f.deps, true).SubmitPost(context.Background(), Draft{Body: "hello"})
	require.NoError(t, err)

	require.Equal(t, []string{"new", "1"}, ids(f.store, domain.Home))
	require.Equal(t, []string{"new"}, ids(f.store, domain.Sent))

	// the stream echo must not duplicate it
	NewProcessor(f.deps, true).Handle(mastodon.UpdateEvent{Post: ownPost("new")})
	require.Equal(t, []string{"new", "1"}, ids(f.store, domain.Home))
	require.Equal(t, []string{"new"}, ids(f.store, domain.Sent))
}

func TestSubmitPostUploadFailure(t *testing.T) {
	f := newFixture()
	f.remote.writeErr = errors.New("too large")

	_, err := NewCoordinator(f.deps, false).SubmitPost(context.Background(), Draft{
		Body:  "hello",
		Media: []MediaDraft{{Path: "big.mp4"}},
	})

	require.Error(t, err)
	require.Equal(t, []string{"upload:big.mp4"}, f.remote.Calls())
	require.Empty(t, f.cues.Played())
}

func TestSubmitReply(t *testing.T) {
	f := newFixture()

	p, err := NewCoordinator(f.deps, false).SubmitReply(context.Background(), ReplyDraft{
		Body:        "@bob sure",
		InReplyToId: "7",
		Visibility:  domain.VisibilityUnlisted,
	})

	require.NoError(t, err)
	require.Equal(t, "7", p.InReplyToId)
	require.Equal(t, domain.VisibilityUnlisted, f.remote.posted[0].Visibility)
	require.Equal(t, []cue.Cue{cue.SendReply}, f.cues.Played())
}

func TestSubmitReplyNeedsTarget(t *testing.T) {
	f := newFixture()

	_, err := NewCoordinator(f.deps, false).SubmitReply(context.Background(), ReplyDraft{Body: "hi"})

	require.ErrorIs(t, err, ErrNoReplyTarget)
	require.Empty(t, f.remote.Calls())
}

func TestSuggestReply(t *testing.T) {
	withMentions := post("1")
	withMentions.Content = `<p><span class="h-card"><a href="https://x/@carol">@carol</a></span> <a href="https://x/@alice">@alice</a> and @dave@other.example, hi @carol!</p>`

	mine := ownPost("2")
	mine.Content = "<p>@bob thanks</p>"

	carol := domain.Account{Id: "3", Acct: "carol"}

	tests := []struct {
		name string
		post *domain.Post
		want string
	}{
		{"author then mentions", withMentions, "@bob @carol @dave@other.example "},
		{"own post", mine, "@bob "},
		{"boost uses the boosted post", boostOf("w", carol, post("9")), "@bob "},
		{"nothing to mention", ownPost("3"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SuggestReply(tt.post, me))
		})
	}
}

func TestDeleteIntent(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(ownPost("1"), boostOf("2", *me, post("9")), post("3")))
	c := NewCoordinator(f.deps, false)

	intent, err := c.DeleteIntent(domain.Home, "1")
	require.NoError(t, err)
	require.Equal(t, IntentDelete, intent)

	intent, err = c.DeleteIntent(domain.Home, "2")
	require.NoError(t, err)
	require.Equal(t, IntentUnboost, intent)

	_, err = c.DeleteIntent(domain.Home, "3")
	require.ErrorIs(t, err, ErrNotOwner)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("2"), ownPost("1")))
	f.store.Replace(domain.Sent, items(ownPost("1")))

	require.NoError(t, NewCoordinator(f.deps, false).Delete(context.Background(), domain.Sent, "1"))

	require.Equal(t, []string{"delete:1"}, f.remote.Calls())
	require.Equal(t, []string{"2"}, ids(f.store, domain.Home))
	require.Empty(t, ids(f.store, domain.Sent))

	// the echo is harmless
	NewProcessor(f.deps, false).Handle(mastodon.DeleteEvent{Id: "1"})
	require.Equal(t, []string{"2"}, ids(f.store, domain.Home))
}

func TestDeleteNotFoundCountsAsSuccess(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(ownPost("1")))
	f.remote.writeErr = &mastodon.APIError{StatusCode: 404, Message: "Record not found", Op: "delete"}

	require.NoError(t, NewCoordinator(f.deps, false).Delete(context.Background(), domain.Home, "1"))
	require.Empty(t, ids(f.store, domain.Home))
}

func TestDeleteFailureKeepsRow(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(ownPost("1")))
	f.remote.writeErr = &mastodon.APIError{StatusCode: 500, Message: "oops", Op: "delete"}

	require.Error(t, NewCoordinator(f.deps, false).Delete(context.Background(), domain.Home, "1"))
	require.Equal(t, []string{"1"}, ids(f.store, domain.Home))
}

func TestDeleteBoostUnreblogs(t *testing.T) {
	f := newFixture()
	target := post("9")
	target.Reblogged = true
	target.ReblogsCount = 1
	f.store.Replace(domain.Home, items(boostOf("2", *me, target), target))

	require.NoError(t, NewCoordinator(f.deps, false).Delete(context.Background(), domain.Home, "2"))

	require.Equal(t, []string{"unreblog:9"}, f.remote.Calls())
	require.Equal(t, []string{"9"}, ids(f.store, domain.Home))
	got, _ := f.store.FindByID(domain.Home, "9")
	require.False(t, got.(*domain.Post).Reblogged)
	require.Equal(t, 0, got.(*domain.Post).ReblogsCount)
}

func TestVote(t *testing.T) {
	f := newFixture()
	p := post("1")
	p.Poll = &domain.Poll{Id: "p1", Options: []domain.PollOption{{Title: "a"}, {Title: "b"}}}
	f.store.Replace(domain.Home, items(p))
	f.remote.poll = &domain.Poll{Id: "p1", Voted: true, OwnVotes: []int{1}, Options: p.Poll.Options}
	c := NewCoordinator(f.deps, false)

	require.ErrorIs(t, c.Vote(context.Background(), domain.Home, "1", nil), ErrInvalidChoice)
	require.ErrorIs(t, c.Vote(context.Background(), domain.Home, "1", []int{0, 1}), ErrInvalidChoice)
	require.ErrorIs(t, c.Vote(context.Background(), domain.Home, "1", []int{5}), ErrInvalidChoice)
	require.Empty(t, f.remote.Calls())

	require.NoError(t, c.Vote(context.Background(), domain.Home, "1", []int{1}))
	got, _ := f.store.FindByID(domain.Home, "1")
	require.True(t, got.(*domain.Post).Poll.Voted)
	require.Equal(t, []cue.Cue{cue.Vote}, f.cues.Played())
}

func TestVoteWithoutPoll(t *testing.T) {
	f := newFixture()
	f.store.Replace(domain.Home, items(post("1")))

	err := NewCoordinator(f.deps, false).Vote(context.Background(), domain.Home, "1", []int{0})

	require.ErrorIs(t, err, ErrNoPoll)
}
