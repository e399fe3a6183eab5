package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) all() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestBridgeDeliversInOrder(t *testing.T) {
	b := NewBridge()
	c := timeline.Change{Category: domain.Home, Kind: timeline.ChangeInsert, Index: 0, Version: 1}
	boom := errors.New("boom")

	b.Observe(c)
	b.ShowError(boom)
	b.SetBanner("reconnecting")
	b.Post(common.StatusMsg{Text: "hi"})
	require.Equal(t, 4, b.Len())
	b.Close()

	r := &recorder{}
	b.Run(r)

	require.Equal(t, []tea.Msg{
		common.ChangeMsg{Change: c},
		common.ErrorMsg{Err: boom},
		common.BannerMsg{Text: "reconnecting"},
		common.StatusMsg{Text: "hi"},
	}, r.all())
	require.Zero(t, b.Len())
}

func TestBridgeRunWaitsForMessages(t *testing.T) {
	b := NewBridge()
	r := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(r)
	}()

	b.Post(common.StatusMsg{Text: "one"})
	require.Eventually(t, func() bool { return len(r.all()) == 1 }, time.Second, 5*time.Millisecond)

	b.Post(common.StatusMsg{Text: "two"})
	b.Close()
	<-done
	require.Len(t, r.all(), 2)
}

func TestBridgeDropsAfterClose(t *testing.T) {
	b := NewBridge()
	b.Close()
	b.Post(common.StatusMsg{Text: "late"})
	require.Zero(t, b.Len())
}

func TestStoreObserverNeverBlocks(t *testing.T) {
	b := NewBridge()
	s := timeline.NewStore()
	s.Observe(b.Observe)

	for i := 0; i < 1000; i++ {
		s.Replace(domain.Home, nil)
	}
	require.Equal(t, 1000, b.Len())
}
