package timeline

import (
	"fmt"
	"testing"

	"github.com/deemkeen/thrive/domain"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

func (r *recorder) RowInserted(i int) { r.events = append(r.events, fmt.Sprintf("insert %d", i)) }
func (r *recorder) RowUpdated(i int)  { r.events = append(r.events, fmt.Sprintf("update %d", i)) }
func (r *recorder) RowRemoved(i int)  { r.events = append(r.events, fmt.Sprintf("remove %d", i)) }
func (r *recorder) CategoryReset()    { r.events = append(r.events, "reset") }

// queued collects changes like the UI mailbox does, for later delivery.
func queued(s *Store) *[]Change {
	var q []Change
	s.Observe(func(c Change) { q = append(q, c) })
	return &q
}

func projectedIds(p *Projector) []string {
	out := make([]string, 0, p.Len())
	for _, it := range p.Items() {
		out = append(out, it.ItemID())
	}
	return out
}

func TestProjectorSelectRedraws(t *testing.T) {
	s := NewStore()
	s.Replace(domain.Sent, items("2", "1"))
	rec := &recorder{}
	proj := NewProjector(s, rec)

	proj.Select(domain.Sent)

	require.Equal(t, []string{"reset"}, rec.events)
	require.Equal(t, []string{"2", "1"}, projectedIds(proj))
	require.Equal(t, domain.Sent, proj.Category())
	require.Equal(t, StatePopulated, proj.State())
}

func TestProjectorAppliesRowChanges(t *testing.T) {
	s := NewStore()
	s.Replace(domain.Home, items("2", "1"))
	rec := &recorder{}
	proj := NewProjector(s, rec)
	proj.Select(domain.Home)
	q := queued(s)

	require.NoError(t, s.Prepend(domain.Home, p("3")))
	s.ReplaceByID(domain.Home, "1", p("1"))
	s.RemoveByID(domain.Home, "2")
	for _, c := range *q {
		proj.Apply(c)
	}

	require.Equal(t, []string{"reset", "insert 0", "update 2", "remove 1"}, rec.events)
	require.Equal(t, []string{"3", "1"}, projectedIds(proj))
	require.Equal(t, s.Snapshot(domain.Home).Version, proj.Version())
}

func TestProjectorIgnoresOtherCategories(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	proj := NewProjector(s, rec)
	proj.Select(domain.Home)
	q := queued(s)

	require.NoError(t, s.Prepend(domain.Mentions, p("m")))
	for _, c := range *q {
		proj.Apply(c)
	}

	require.Equal(t, []string{"reset"}, rec.events)
	require.Zero(t, proj.Len())
}

// Changes queued before a Select are already part of its snapshot.
func TestProjectorIgnoresStaleChanges(t *testing.T) {
	s := NewStore()
	q := queued(s)
	require.NoError(t, s.Prepend(domain.Home, p("1")))
	require.NoError(t, s.Prepend(domain.Home, p("2")))

	rec := &recorder{}
	proj := NewProjector(s, rec)
	proj.Select(domain.Home)
	for _, c := range *q {
		proj.Apply(c)
	}

	require.Equal(t, []string{"reset"}, rec.events)
	require.Equal(t, []string{"2", "1"}, projectedIds(proj))
}

func TestProjectorResyncsOnGap(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	proj := NewProjector(s, rec)
	proj.Select(domain.Home)
	q := queued(s)

	require.NoError(t, s.Prepend(domain.Home, p("1")))
	require.NoError(t, s.Prepend(domain.Home, p("2")))
	// Deliver only the second change: version 2 after version 0.
	proj.Apply((*q)[1])

	require.Equal(t, []string{"reset", "reset"}, rec.events)
	require.Equal(t, []string{"2", "1"}, projectedIds(proj))
}

func TestProjectorLoadStates(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	proj := NewProjector(s, rec)
	proj.Select(domain.Notifications)
	q := queued(s)

	ticket := s.BeginLoad(domain.Notifications)
	proj.Apply((*q)[0])
	require.Equal(t, StateLoading, proj.State())

	require.NoError(t, s.CompleteLoad(ticket, []domain.Item{&domain.Notification{Id: "n1", Type: "follow"}}))
	proj.Apply((*q)[1])

	require.Equal(t, StatePopulated, proj.State())
	require.Equal(t, []string{"n1"}, projectedIds(proj))
	require.Equal(t, 0, proj.IndexOf("n1"))
	require.Equal(t, -1, proj.IndexOf("zz"))
	_, ok := proj.At(1)
	require.False(t, ok)
}
