package timeline

import "github.com/deemkeen/thrive/domain"

// ViewListener is told how the visible rows changed.
type ViewListener interface {
	RowInserted(index int)
	RowUpdated(index int)
	RowRemoved(index int)
	CategoryReset()
}

// Projector mirrors one category of a Store for the UI. It is owned by the
// UI goroutine and is not safe for concurrent use.
type Projector struct {
	store    *Store
	listener ViewListener

	category domain.Category
	items    []domain.Item
	version  uint64
	state    LoadState
}

func NewProjector(store *Store, listener ViewListener) *Projector {
	return &Projector{store: store, listener: listener}
}

func (p *Projector) SetListener(l ViewListener) {
	p.listener = l
}

// Select switches the visible category and redraws it from the store.
func (p *Projector) Select(cat domain.Category) {
	p.category = cat
	p.resync()
}

func (p *Projector) resync() {
	snap := p.store.Snapshot(p.category)
	p.items = snap.Items
	p.version = snap.Version
	p.state = snap.State
	if p.listener != nil {
		p.listener.CategoryReset()
	}
}

// Apply folds a store change into the view. Changes for other categories and
// changes already reflected by the last snapshot are ignored; a gap in the
// version sequence forces a full redraw.
func (p *Projector) Apply(c Change) {
	if p.category == "" || c.Category != p.category {
		return
	}

	if c.Kind == ChangeState {
		p.state = c.State
		return
	}
	if c.Version <= p.version {
		return
	}
	if c.Kind == ChangeReset || c.Version != p.version+1 {
		p.resync()
		return
	}

	switch c.Kind {
	case ChangeInsert:
		if c.Index < 0 || c.Index > len(p.items) {
			p.resync()
			return
		}
		p.items = append(p.items, nil)
		copy(p.items[c.Index+1:], p.items[c.Index:])
		p.items[c.Index] = c.Item
		p.commit(c)
		if p.listener != nil {
			p.listener.RowInserted(c.Index)
		}
	case ChangeUpdate:
		if c.Index < 0 || c.Index >= len(p.items) {
			p.resync()
			return
		}
		p.items[c.Index] = c.Item
		p.commit(c)
		if p.listener != nil {
			p.listener.RowUpdated(c.Index)
		}
	case ChangeRemove:
		if c.Index < 0 || c.Index >= len(p.items) {
			p.resync()
			return
		}
		p.items = append(p.items[:c.Index], p.items[c.Index+1:]...)
		p.commit(c)
		if p.listener != nil {
			p.listener.RowRemoved(c.Index)
		}
	}
}

func (p *Projector) commit(c Change) {
	p.version = c.Version
	p.state = c.State
}

func (p *Projector) Category() domain.Category {
	return p.category
}

func (p *Projector) State() LoadState {
	return p.state
}

func (p *Projector) Version() uint64 {
	return p.version
}

func (p *Projector) Len() int {
	return len(p.items)
}

// Items returns the visible rows. The slice must not be modified.
func (p *Projector) Items() []domain.Item {
	return p.items
}

func (p *Projector) At(i int) (domain.Item, bool) {
	if i < 0 || i >= len(p.items) {
		return nil, false
	}
	return p.items[i], true
}

func (p *Projector) IndexOf(id string) int {
	for i, it := range p.items {
		if it.ItemID() == id {
			return i
		}
	}
	return -1
}
