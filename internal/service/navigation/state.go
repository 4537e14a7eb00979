package navigation

import (
	"sync"
	"time"

	"HandsFreeReader/internal/service/events"
)

const (
	MinZoom     = 25
	MaxZoom     = 500
	DefaultZoom = 100
)

// Snapshot согласованный срез состояния, прочитанный под одной блокировкой.
type Snapshot struct {
	Page  int // 0-based
	Total int
	Zoom  int
}

// Move результат атомарного перехода по странице.
type Move struct {
	From    int
	To      int  // запрошенная цель (может быть вне диапазона, если OK=false)
	OK      bool // цель в диапазоне и зафиксирована
	Changed bool // страница действительно сменилась
}

// State единственный источник правды о текущей странице, числе страниц и масштабе.
// Все поля защищены одним мьютексом; события отправляются уже после его освобождения.
type State struct {
	mu    sync.Mutex
	page  int
	total int
	zoom  int
	seq   uint64

	sink events.Sink
	now  func() time.Time
}

// New создаёт состояние без документа. sink может быть nil.
func New(sink events.Sink) *State {
	if sink == nil {
		sink = events.Discard
	}
	return &State{zoom: DefaultZoom, sink: sink, now: time.Now}
}

// SetDocument загружает новый документ: страница 0, масштаб 100.
// total=0: документа нет, навигация ничего не делает.
func (s *State) SetDocument(total int) {
	if total < 0 {
		total = 0
	}
	s.mu.Lock()
	s.total = total
	s.page = 0
	s.zoom = DefaultZoom
	ev := s.event(events.DocumentLoaded)
	s.mu.Unlock()
	s.sink.Emit(ev)
}

func (s *State) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *State) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *State) Zoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Page: s.page, Total: s.total, Zoom: s.zoom}
}

// RequestPage фиксирует target, только если 0 <= target < total. Без ограничения по краям:
// вызывающий сам приводит "следующую" к последней странице и т.п.
func (s *State) RequestPage(target int) bool {
	return s.Move(func(int, int) int { return target }).OK
}

// Move вычисляет цель по текущему состоянию и фиксирует её под той же блокировкой,
// чтобы относительные переходы разных источников не перемешивались.
// resolve должен быть чистой и быстрой функцией.
func (s *State) Move(resolve func(current, total int) int) Move {
	s.mu.Lock()
	m := Move{From: s.page}
	m.To = resolve(s.page, s.total)
	if m.To < 0 || m.To >= s.total {
		s.mu.Unlock()
		return m
	}
	m.OK = true
	m.Changed = m.To != s.page
	if !m.Changed {
		s.mu.Unlock()
		return m
	}
	s.page = m.To
	ev := s.event(events.PageChanged)
	s.mu.Unlock()
	s.sink.Emit(ev)
	return m
}

// RequestZoom ограничивает target диапазоном [25, 500], фиксирует и возвращает итог.
func (s *State) RequestZoom(target int) int {
	return s.setZoom(func(int) int { return target })
}

// StepZoom меняет масштаб на delta относительно текущего.
func (s *State) StepZoom(delta int) int {
	return s.setZoom(func(cur int) int { return cur + delta })
}

// ResetZoom возвращает масштаб 100%.
func (s *State) ResetZoom() int { return s.RequestZoom(DefaultZoom) }

func (s *State) setZoom(resolve func(current int) int) int {
	s.mu.Lock()
	z := ClampZoom(resolve(s.zoom))
	if z == s.zoom {
		s.mu.Unlock()
		return z
	}
	s.zoom = z
	ev := s.event(events.ZoomChanged)
	s.mu.Unlock()
	s.sink.Emit(ev)
	return z
}

// event собирает событие из текущих полей. Вызывать под s.mu.
func (s *State) event(t events.Type) events.Event {
	s.seq++
	ev := events.Event{Seq: s.seq, Type: t, At: s.now()}
	switch t {
	case events.ZoomChanged:
		ev.Zoom = s.zoom
	default:
		ev.Page = s.page + 1
		ev.TotalPages = s.total
		ev.Zoom = s.zoom
	}
	return ev
}

func ClampZoom(z int) int { return max(MinZoom, min(MaxZoom, z)) }

// Next, Previous, First, Last: готовые резолверы для Move.

func Next(current, total int) int { return min(total-1, current+1) }
func Previous(current, _ int) int { return max(0, current-1) }
func First(_, _ int) int          { return 0 }
func Last(_, total int) int       { return total - 1 }

// Offset сдвиг на delta страниц с ограничением по краям документа.
// Сравнение идёт до сложения, поэтому delta вплоть до math.MaxInt не переполняется.
func Offset(delta int) func(int, int) int {
	return func(current, total int) int {
		if delta >= 0 {
			if delta >= total-1-current {
				return max(0, total-1)
			}
			return current + delta
		}
		if delta <= -current {
			return 0
		}
		return min(total-1, current+delta)
	}
}
