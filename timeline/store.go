// Package timeline holds the authoritative ordered contents of each timeline
// category and projects them onto the single visible view.
package timeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/deemkeen/thrive/domain"
)

var (
	ErrDuplicate     = errors.New("timeline: item already present")
	ErrUnknownTicket = errors.New("timeline: load ticket is not in flight")
)

type ChangeKind int

const (
	// ChangeReset means the whole category changed; consumers re-read it.
	ChangeReset ChangeKind = iota
	ChangeInsert
	ChangeUpdate
	ChangeRemove
	// ChangeState reports a load state transition. Contents and version are
	// unchanged.
	ChangeState
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeReset:
		return "reset"
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeRemove:
		return "remove"
	case ChangeState:
		return "state"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

type LoadState int

const (
	StateEmpty LoadState = iota
	StateLoading
	StatePopulated
)

func (s LoadState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StatePopulated:
		return "populated"
	}
	return "unknown"
}

// Change describes one applied mutation. Version is the category version
// after the mutation.
type Change struct {
	Category domain.Category
	Kind     ChangeKind
	Index    int
	Item     domain.Item
	Version  uint64
	State    LoadState
}

// Observer receives every change in application order. It runs while the
// category lock is held and must not block or call back into the store.
type Observer func(Change)

type Snapshot struct {
	Category domain.Category
	Items    []domain.Item
	Version  uint64
	State    LoadState
}

// Ticket identifies one in-flight bulk load.
type Ticket struct {
	Category domain.Category
	id       uint64
	start    int
}

type opKind int

const (
	opReplace opKind = iota
	opPrepend
	opReplaceByID
	opUpdateByID
	opRemoveByID
)

// op is a journaled live mutation, replayed on top of a completed load.
type op struct {
	kind  opKind
	id    string
	item  domain.Item
	items []domain.Item
	fn    func(domain.Item) domain.Item
}

type list struct {
	mu        sync.Mutex
	items     []domain.Item
	version   uint64
	state     LoadState
	populated bool

	nextTicket  uint64
	open        map[uint64]struct{}
	journal     []op
	journalBase int
}

// Store is safe for concurrent use. Each category has its own lock, so work
// on different categories never contends.
type Store struct {
	lists map[domain.Category]*list

	obsMu    sync.RWMutex
	observer Observer
}

func NewStore() *Store {
	s := &Store{lists: make(map[domain.Category]*list, len(domain.AllCategories))}
	for _, c := range domain.AllCategories {
		s.lists[c] = &list{open: make(map[uint64]struct{})}
	}
	return s
}

// Observe registers the change observer, replacing any previous one.
func (s *Store) Observe(o Observer) {
	s.obsMu.Lock()
	s.observer = o
	s.obsMu.Unlock()
}

func (s *Store) list(cat domain.Category) *list {
	l, ok := s.lists[cat]
	if !ok {
		panic(fmt.Sprintf("timeline: unknown category %q", cat))
	}
	return l
}

func (s *Store) emit(c Change) {
	s.obsMu.RLock()
	o := s.observer
	s.obsMu.RUnlock()
	if o != nil {
		o(c)
	}
}

// record journals op when a load is in flight.
func (l *list) record(o op) {
	if len(l.open) > 0 {
		l.journal = append(l.journal, o)
	}
}

func (l *list) indexOf(id string) int {
	for i, it := range l.items {
		if it.ItemID() == id {
			return i
		}
	}
	return -1
}

func dedupe(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := seen[it.ItemID()]; ok {
			continue
		}
		seen[it.ItemID()] = struct{}{}
		out = append(out, it)
	}
	return out
}

// apply performs o on the list and returns the resulting change, or false
// when o was a no-op.
func (l *list) apply(o op) (Change, bool) {
	switch o.kind {
	case opReplace:
		l.items = dedupe(o.items)
		l.populated = true
		l.version++
		return Change{Kind: ChangeReset, Index: -1, Version: l.version}, true

	case opPrepend:
		if l.indexOf(o.item.ItemID()) >= 0 {
			return Change{}, false
		}
		l.items = append(l.items, nil)
		copy(l.items[1:], l.items)
		l.items[0] = o.item
		l.version++
		return Change{Kind: ChangeInsert, Index: 0, Item: o.item, Version: l.version}, true

	case opReplaceByID, opUpdateByID:
		i := l.indexOf(o.id)
		if i < 0 {
			return Change{}, false
		}
		next := o.item
		if o.kind == opUpdateByID {
			next = o.fn(l.items[i])
			if next == nil {
				return Change{}, false
			}
		}
		l.items[i] = next
		l.version++
		return Change{Kind: ChangeUpdate, Index: i, Item: next, Version: l.version}, true

	case opRemoveByID:
		i := l.indexOf(o.id)
		if i < 0 {
			return Change{}, false
		}
		removed := l.items[i]
		l.items = append(l.items[:i], l.items[i+1:]...)
		l.version++
		return Change{Kind: ChangeRemove, Index: i, Item: removed, Version: l.version}, true
	}
	return Change{}, false
}

// mutate applies o under the category lock, journals it and notifies.
func (s *Store) mutate(cat domain.Category, o op) (Change, bool) {
	l := s.list(cat)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.record(o)
	c, ok := l.apply(o)
	if !ok {
		return c, false
	}
	if o.kind == opReplace && len(l.open) == 0 {
		l.state = StatePopulated
	}
	c.Category = cat
	c.State = l.state
	s.emit(c)
	return c, true
}

// Replace swaps the whole category. It always succeeds.
func (s *Store) Replace(cat domain.Category, items []domain.Item) {
	s.mutate(cat, op{kind: opReplace, items: append([]domain.Item(nil), items...)})
}

// Prepend inserts item at index 0. It returns ErrDuplicate and leaves the
// category untouched when an item with the same id is already present.
func (s *Store) Prepend(cat domain.Category, item domain.Item) error {
	if _, ok := s.mutate(cat, op{kind: opPrepend, item: item}); !ok {
		return ErrDuplicate
	}
	return nil
}

// ReplaceByID overwrites the item with the given id at its current index.
// It reports false if the id is absent.
func (s *Store) ReplaceByID(cat domain.Category, id string, item domain.Item) bool {
	_, ok := s.mutate(cat, op{kind: opReplaceByID, id: id, item: item})
	return ok
}

// UpdateByID replaces the item with fn(item). fn receives the stored record
// and must return a new value rather than modify it; returning nil cancels.
func (s *Store) UpdateByID(cat domain.Category, id string, fn func(domain.Item) domain.Item) bool {
	_, ok := s.mutate(cat, op{kind: opUpdateByID, id: id, fn: fn})
	return ok
}

// RemoveByID deletes the item with the given id. Removing an absent id is a
// no-op that reports false.
func (s *Store) RemoveByID(cat domain.Category, id string) bool {
	_, ok := s.mutate(cat, op{kind: opRemoveByID, id: id})
	return ok
}

func (s *Store) FindByID(cat domain.Category, id string) (domain.Item, bool) {
	l := s.list(cat)
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(id); i >= 0 {
		return l.items[i], true
	}
	return nil, false
}

func (s *Store) Len(cat domain.Category) int {
	l := s.list(cat)
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Snapshot copies the current ordered contents.
func (s *Store) Snapshot(cat domain.Category) Snapshot {
	l := s.list(cat)
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		Category: cat,
		Items:    append([]domain.Item(nil), l.items...),
		Version:  l.version,
		State:    l.state,
	}
}

// BeginLoad marks the category as loading. Live mutations applied until the
// ticket completes are journaled and replayed over the loaded contents.
func (s *Store) BeginLoad(cat domain.Category) Ticket {
	l := s.list(cat)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextTicket++
	t := Ticket{Category: cat, id: l.nextTicket, start: l.journalBase + len(l.journal)}
	l.open[t.id] = struct{}{}
	l.state = StateLoading
	s.emit(Change{Category: cat, Kind: ChangeState, Index: -1, Version: l.version, State: l.state})
	return t
}

// CompleteLoad replaces the contents with items, then replays every live
// mutation journaled since the ticket began. Replayed prepends of ids the
// load already returned are skipped.
func (s *Store) CompleteLoad(t Ticket, items []domain.Item) error {
	l := s.list(t.Category)
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[t.id]; !ok {
		return ErrUnknownTicket
	}
	delete(l.open, t.id)

	l.items = dedupe(items)
	for _, o := range l.journal[t.start-l.journalBase:] {
		l.apply(o)
	}
	l.populated = true
	l.closeJournal()
	l.version++

	s.emit(Change{Category: t.Category, Kind: ChangeReset, Index: -1, Version: l.version, State: l.state})
	return nil
}

// AbortLoad ends a failed load. The category keeps its previous contents.
func (s *Store) AbortLoad(t Ticket) {
	l := s.list(t.Category)
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[t.id]; !ok {
		return
	}
	delete(l.open, t.id)
	l.closeJournal()
	s.emit(Change{Category: t.Category, Kind: ChangeState, Index: -1, Version: l.version, State: l.state})
}

// closeJournal settles the load state once a ticket ends and drops the
// journal when nothing is in flight any more.
func (l *list) closeJournal() {
	if len(l.open) > 0 {
		l.state = StateLoading
		return
	}
	l.journalBase += len(l.journal)
	l.journal = nil
	if l.populated {
		l.state = StatePopulated
	} else {
		l.state = StateEmpty
	}
}
