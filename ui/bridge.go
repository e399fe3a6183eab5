package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui/common"
)

// Sender delivers messages to the UI goroutine. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge is the mailbox between background goroutines and the TUI. Posting
// never blocks, so it is safe to call from a store observer while the
// category lock is held. Run drains the queue in order.
type Bridge struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []tea.Msg
	closed bool
}

func NewBridge() *Bridge {
	b := &Bridge{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, msg)
	b.cond.Signal()
}

// Observe is a timeline.Observer.
func (b *Bridge) Observe(c timeline.Change) {
	b.post(common.ChangeMsg{Change: c})
}

func (b *Bridge) ShowError(err error) {
	b.post(common.ErrorMsg{Err: err})
}

func (b *Bridge) SetBanner(msg string) {
	b.post(common.BannerMsg{Text: msg})
}

// Post queues an arbitrary message.
func (b *Bridge) Post(msg tea.Msg) {
	b.post(msg)
}

// Len is the number of queued messages.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Run forwards queued messages to s until Close is called and the queue is
// empty.
func (b *Bridge) Run(s Sender) {
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, msg := range batch {
			s.Send(msg)
		}
	}
}

// Close stops accepting messages. Run returns once the backlog is sent.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
