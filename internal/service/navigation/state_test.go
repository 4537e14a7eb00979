package navigation

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"HandsFreeReader/internal/service/events"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestRequestZoomClamps(t *testing.T) {
	t.Parallel()

	s := New(nil)
	for _, z := range []int{-100, 0, 24, 25, 26, 100, 499, 500, 501, 10000} {
		got := s.RequestZoom(z)
		want := min(500, max(25, z))
		require.Equal(t, want, got, "requested %d", z)
		require.Equal(t, want, s.Zoom())
	}
}

func TestResetZoom(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.RequestZoom(250)
	require.Equal(t, 100, s.ResetZoom())
	require.Equal(t, 100, s.Zoom())
}

func TestStepZoomClamps(t *testing.T) {
	t.Parallel()

	s := New(nil)
	require.Equal(t, 125, s.StepZoom(25))
	s.RequestZoom(490)
	require.Equal(t, 500, s.StepZoom(25))
	s.RequestZoom(30)
	require.Equal(t, 25, s.StepZoom(-25))
}

func TestRequestPageBounds(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.SetDocument(10)
	for p := range 10 {
		require.True(t, s.RequestPage(p))
		require.Equal(t, p, s.Page())
	}
	s.RequestPage(3)
	for _, p := range []int{-1, 10, 11, 100} {
		require.False(t, s.RequestPage(p), "page %d", p)
		require.Equal(t, 3, s.Page())
	}
}

func TestEmptyDocumentNoOps(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.SetDocument(0)
	require.False(t, s.RequestPage(0))
	require.False(t, s.Move(Next).OK)
	require.False(t, s.Move(Previous).OK)
	require.False(t, s.Move(Last).OK)
	require.Equal(t, 0, s.Page())
}

func TestSetDocumentResets(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.SetDocument(5)
	s.RequestPage(4)
	s.RequestZoom(200)
	s.SetDocument(3)
	require.Equal(t, Snapshot{Page: 0, Total: 3, Zoom: 100}, s.Snapshot())

	s.SetDocument(-2)
	require.Equal(t, 0, s.Total())
}

func TestMoveResolvers(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.SetDocument(4)

	m := s.Move(Next)
	require.Equal(t, Move{From: 0, To: 1, OK: true, Changed: true}, m)
	s.Move(Last)
	require.Equal(t, 3, s.Page())

	m = s.Move(Next)
	require.True(t, m.OK)
	require.False(t, m.Changed)

	s.Move(First)
	m = s.Move(Previous)
	require.True(t, m.OK)
	require.False(t, m.Changed)

	s.Move(Offset(10))
	require.Equal(t, 3, s.Page())
	s.Move(Offset(-2))
	require.Equal(t, 1, s.Page())
}

func TestOffsetSaturatesHugeDeltas(t *testing.T) {
	t.Parallel()

	require.Equal(t, 9, Offset(math.MaxInt)(3, 10), "сдвиг не переполняется и упирается в последнюю страницу")
	require.Equal(t, 0, Offset(math.MinInt)(3, 10))
	require.Equal(t, 9, Offset(6)(3, 10))
	require.Equal(t, 8, Offset(5)(3, 10))
	require.Equal(t, 0, Offset(-3)(3, 10))
	require.Equal(t, 1, Offset(-2)(3, 10))
	require.Equal(t, 3, Offset(0)(3, 10))
}

func TestEventsOnlyOnCommittedChange(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := New(rec)
	s.SetDocument(3)
	s.RequestPage(0)   // без изменения
	s.RequestPage(7)   // вне диапазона
	s.RequestPage(2)   // изменение
	s.RequestZoom(100) // без изменения
	s.RequestZoom(150)

	require.Equal(t, []events.Type{events.DocumentLoaded, events.PageChanged, events.ZoomChanged}, rec.types())
	require.Equal(t, 3, rec.events[1].Page)
	require.Equal(t, 3, rec.events[1].TotalPages)
	require.Equal(t, 150, rec.events[2].Zoom)
	require.Less(t, rec.events[0].Seq, rec.events[2].Seq)
}

func TestConcurrentMovesStayInBounds(t *testing.T) {
	t.Parallel()

	s := New(nil)
	s.SetDocument(7)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				if i%2 == 0 {
					s.Move(Next)
				} else {
					s.Move(Previous)
				}
				s.StepZoom(25 * (1 - 2*(i%2)))
				snap := s.Snapshot()
				if snap.Page < 0 || snap.Page >= 7 || snap.Zoom < MinZoom || snap.Zoom > MaxZoom {
					t.Errorf("out of bounds: %+v", snap)
					return
				}
			}
		}()
	}
	wg.Wait()
}
