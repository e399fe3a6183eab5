package listposts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/stretchr/testify/require"
)

var me = &domain.Account{Id: "1", Username: "alice", Acct: "alice"}

func post(id string) *domain.Post {
	return &domain.Post{
		Id:        id,
		Account:   domain.Account{Id: "2", Username: "bob", Acct: "bob"},
		Content:   "<p>post " + id + "</p>",
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeActions struct {
	mu     sync.Mutex
	calls  []string
	intent engine.Intent
	err    error
}

func (f *fakeActions) call(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeActions) SubmitPost(ctx context.Context, d engine.Draft) (*domain.Post, error) {
	f.call("post")
	return post("new"), f.err
}

func (f *fakeActions) SubmitReply(ctx context.Context, d engine.ReplyDraft) (*domain.Post, error) {
	f.call("reply:" + d.InReplyToId)
	return post("new"), f.err
}

func (f *fakeActions) SuggestReply(p *domain.Post) string {
	return "@" + p.Account.Acct + " "
}

func (f *fakeActions) ToggleBoost(ctx context.Context, cat domain.Category, id string) (bool, error) {
	f.call("boost:" + id)
	return true, f.err
}

func (f *fakeActions) ToggleFavourite(ctx context.Context, cat domain.Category, id string) (bool, error) {
	f.call("favourite:" + id)
	return false, f.err
}

func (f *fakeActions) DeleteIntent(cat domain.Category, id string) (engine.Intent, error) {
	return f.intent, f.err
}

func (f *fakeActions) Delete(ctx context.Context, cat domain.Category, id string) error {
	f.call("delete:" + id)
	return f.err
}

func (f *fakeActions) Vote(ctx context.Context, cat domain.Category, id string, choices []int) error {
	f.call("vote:" + id)
	return f.err
}

func (f *fakeActions) Refresh(ctx context.Context, cat domain.Category) error {
	f.call("refresh:" + string(cat))
	return f.err
}

type cueRecorder struct {
	played []cue.Cue
}

func (r *cueRecorder) Play(c cue.Cue) {
	r.played = append(r.played, c)
}

type harness struct {
	store   *timeline.Store
	actions *fakeActions
	cues    *cueRecorder
	model   Model
	queue   []timeline.Change
}

func newHarness(t *testing.T, home ...*domain.Post) *harness {
	t.Helper()
	h := &harness{store: timeline.NewStore(), actions: &fakeActions{}, cues: &cueRecorder{}}
	var items []domain.Item
	for _, p := range home {
		items = append(items, p)
	}
	h.store.Replace(domain.Home, items)
	h.store.Observe(func(c timeline.Change) { h.queue = append(h.queue, c) })

	h.model = InitialModel(h.store, h.actions, h.cues, me, 80, 20)
	h.model.Init()
	return h
}

// flush delivers queued store changes the way the bridge would.
func (h *harness) flush() {
	pending := h.queue
	h.queue = nil
	for _, c := range pending {
		h.model, _ = h.model.Update(common.ChangeMsg{Change: c})
	}
}

func (h *harness) key(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func currentID(t *testing.T, m Model) string {
	t.Helper()
	item, ok := m.Current()
	require.True(t, ok)
	return item.ItemID()
}

func TestInitShowsHome(t *testing.T) {
	h := newHarness(t, post("1"), post("2"))

	require.Equal(t, domain.Home, h.model.Category())
	require.Equal(t, "1", currentID(t, h.model))
	require.Contains(t, h.model.View(), "Home (2)")
}

func TestFocusStaysOnItemWhenNewPostArrives(t *testing.T) {
	h := newHarness(t, post("1"), post("2"), post("3"))
	h.key(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "2", currentID(t, h.model))

	require.NoError(t, h.store.Prepend(domain.Home, post("0")))
	h.flush()

	require.Equal(t, 2, h.model.Selected())
	require.Equal(t, "2", currentID(t, h.model))
}

func TestFocusMovesUpWhenRowAboveIsRemoved(t *testing.T) {
	h := newHarness(t, post("1"), post("2"), post("3"))
	h.key(tea.KeyMsg{Type: tea.KeyEnd})
	require.Equal(t, "3", currentID(t, h.model))

	h.store.RemoveByID(domain.Home, "1")
	h.flush()
	require.Equal(t, "3", currentID(t, h.model))

	h.store.RemoveByID(domain.Home, "3")
	h.flush()
	require.Equal(t, "2", currentID(t, h.model))
}

func TestChangesForOtherCategoriesAreIgnored(t *testing.T) {
	h := newHarness(t, post("1"))

	require.NoError(t, h.store.Prepend(domain.Sent, post("9")))
	h.flush()

	require.Equal(t, "1", currentID(t, h.model))
	require.Contains(t, h.model.View(), "Home (1)")
}

func TestSwitchCategory(t *testing.T) {
	h := newHarness(t, post("1"))
	h.store.Replace(domain.Mentions, []domain.Item{post("7"), post("8")})
	h.flush()

	h.key(runes("4"))
	require.Equal(t, domain.Mentions, h.model.Category())
	require.Equal(t, "7", currentID(t, h.model))

	h.key(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, domain.Home, h.model.Category())

	h.key(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, domain.Mentions, h.model.Category())
}

func TestSelectionPlaysCue(t *testing.T) {
	withPoll := post("2")
	withPoll.Poll = &domain.Poll{Id: "p"}
	h := newHarness(t, post("1"), withPoll)

	h.key(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, []cue.Cue{cue.Poll}, h.cues.played)

	h.key(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, []cue.Cue{cue.Poll}, h.cues.played)
}

func TestBoostAndFavouriteRunActions(t *testing.T) {
	h := newHarness(t, post("1"))

	msg := h.key(runes("b"))()
	require.Equal(t, common.StatusMsg{Text: "Boosted"}, msg)

	msg = h.key(runes("f"))()
	require.Equal(t, common.StatusMsg{Text: "Unfavourited"}, msg)

	require.Equal(t, []string{"boost:1", "favourite:1"}, h.actions.calls)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t, post("1"))
	h.actions.intent = engine.IntentUnboost

	require.Nil(t, h.key(runes("d")))
	require.Contains(t, h.model.View(), "unboost this post? (y/n)")

	require.Nil(t, h.key(runes("n")))
	require.NotContains(t, h.model.View(), "(y/n)")
	require.Empty(t, h.actions.calls)

	h.key(runes("d"))
	msg := h.key(runes("y"))()
	require.Equal(t, common.StatusMsg{Text: "Unboosted"}, msg)
	require.Equal(t, []string{"delete:1"}, h.actions.calls)
}

func TestDeleteIntentErrorIsShown(t *testing.T) {
	h := newHarness(t, post("1"))
	h.actions.err = engine.ErrNotOwner

	msg := h.key(runes("d"))()
	require.ErrorIs(t, msg.(common.ErrorMsg).Err, engine.ErrNotOwner)
	require.NotContains(t, h.model.View(), "(y/n)")
}

func TestReplyToFollowNotificationFails(t *testing.T) {
	h := newHarness(t)
	h.store.Replace(domain.Notifications, []domain.Item{&domain.Notification{Id: "n1", Type: "follow"}})
	h.flush()
	h.key(runes("3"))

	msg := h.key(runes("r"))()
	require.ErrorIs(t, msg.(common.ErrorMsg).Err, ErrNoPost)
}

func TestReplyOpensForNotificationStatus(t *testing.T) {
	h := newHarness(t)
	target := post("5")
	h.store.Replace(domain.Notifications, []domain.Item{&domain.Notification{Id: "n1", Type: "mention", Status: target}})
	h.flush()
	h.key(runes("3"))

	msg := h.key(runes("r"))()
	require.Equal(t, common.OpenReplyMsg{Post: target}, msg)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, post("1"))

	msg := h.key(tea.KeyMsg{Type: tea.KeyCtrlR})()
	require.Equal(t, common.StatusMsg{Text: "Home refreshed"}, msg)
	require.Equal(t, []string{"refresh:home"}, h.actions.calls)
}

func TestEmptyView(t *testing.T) {
	h := newHarness(t)
	h.store.BeginLoad(domain.Home)
	h.flush()

	require.True(t, strings.Contains(h.model.View(), "Loading..."))
}
