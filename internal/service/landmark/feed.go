package landmark

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrFeedBusy кадры уже читает другой контроллер.
var ErrFeedBusy = errors.New("landmark: feed already claimed")

// Ensure interface compliance
var _ Source = (*Feed)(nil)

// Feed почтовый ящик на один кадр для внешнего детектора (websocket).
// Publish никогда не блокируется: новый кадр заменяет непрочитанный, замена считается дропом.
// Читать кадры одновременно может только один контроллер.
type Feed struct {
	wait time.Duration

	mu      sync.Mutex
	frame   *Frame
	claimed bool
	closed  bool
	notify  chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Stats счётчики почтового ящика.
type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// NewFeed создаёт почтовый ящик. wait: максимальное ожидание кадра в Next.
func NewFeed(wait time.Duration) *Feed {
	if wait <= 0 {
		wait = 200 * time.Millisecond
	}
	return &Feed{wait: wait, notify: make(chan struct{}, 1)}
}

// Publish кладёт кадр, вытесняя непрочитанный.
func (f *Feed) Publish(fr Frame) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if f.frame != nil {
		f.dropped.Add(1)
	}
	f.frame = &fr
	f.mu.Unlock()
	f.published.Add(1)
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *Feed) Open(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	if f.claimed {
		return ErrFeedBusy
	}
	f.claimed = true
	// Кадр, пришедший до старта, уже неактуален
	f.frame = nil
	return nil
}

func (f *Feed) Next(ctx context.Context) (Frame, bool, error) {
	if fr, ok, err := f.take(); ok || err != nil {
		return fr, ok, err
	}
	t := time.NewTimer(f.wait)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return Frame{}, false, context.Cause(ctx)
		case <-t.C:
			return Frame{}, false, nil
		case <-f.notify:
			if fr, ok, err := f.take(); ok || err != nil {
				return fr, ok, err
			}
		}
	}
}

func (f *Feed) take() (Frame, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Frame{}, false, ErrFeedClosed
	}
	if f.frame == nil {
		return Frame{}, false, nil
	}
	fr := *f.frame
	f.frame = nil
	return fr, true, nil
}

// Close отпускает ящик для следующего контроллера.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.claimed = false
	f.frame = nil
	f.mu.Unlock()
	return nil
}

// Shutdown закрывает ящик навсегда; ожидающий Next получит ErrFeedClosed.
func (f *Feed) Shutdown() {
	f.mu.Lock()
	f.closed = true
	f.frame = nil
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Claimed читает ли кто-то кадры прямо сейчас.
func (f *Feed) Claimed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimed
}

func (f *Feed) Stats() Stats {
	return Stats{Published: f.published.Load(), Dropped: f.dropped.Load()}
}
