package handy

import (
	"context"
	"errors"
	"sync"
	"time"
)

type coordinator struct {
	cfg Config
	wl  winListener

	// входящие от платформенных слушателей
	clipIn   chan Event
	hotkeyIn chan Event

	// исходящие для потребителей
	out chan Event

	mu         sync.Mutex
	lastText   string
	lastTextAt time.Time
}

func (c *coordinator) Events() <-chan Event { return c.out }

// Run завершается по отмене ctx или когда платформенный слушатель вышел сам
// (например, Ctrl+Enter уже занят другим приложением). Events закрывается после выхода.
func (c *coordinator) Run(ctx context.Context) error {
	listened := make(chan error, 1)
	go func() { listened <- c.wl.run(ctx, c.clipIn, c.hotkeyIn) }()

	var pending sync.WaitGroup
	defer func() {
		// отложенные реакции на хоткей пишут в out, закрываем только после них
		pending.Wait()
		close(c.out)
	}()

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case err := <-listened:
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if err == nil {
				err = errListenerExited
			}
			return err
		case ev := <-c.clipIn:
			// Ретранслируем событие буфера только если текст изменился
			c.mu.Lock()
			changed := ev.Text != c.lastText
			if changed {
				c.lastText, c.lastTextAt = ev.Text, ev.At
			}
			c.mu.Unlock()
			if changed {
				c.safeSend(ev)
			}
		case ev := <-c.hotkeyIn:
			c.safeSend(ev)
			pending.Add(1)
			go func(hkAt time.Time) {
				defer pending.Done()
				c.settle(ctx, hkAt)
			}(ev.At)
		}
	}
}

// settle ждёт HotkeyDelay и публикует финальный текст, если буфер менялся
// недалеко от момента хоткея (до или после) в пределах окна и задержки.
func (c *coordinator) settle(ctx context.Context, hkAt time.Time) {
	if c.cfg.HotkeyDelay > 0 {
		t := time.NewTimer(c.cfg.HotkeyDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
	c.mu.Lock()
	txt, lastAt := c.lastText, c.lastTextAt
	c.mu.Unlock()
	if txt == "" || lastAt.IsZero() {
		return
	}
	d := hkAt.Sub(lastAt)
	if d < 0 {
		d = -d
	}
	if d < c.cfg.HandyWindow+c.cfg.HotkeyDelay {
		c.safeSend(Event{Type: EventHandyFinalText, Text: txt, At: time.Now()})
	}
}

func (c *coordinator) safeSend(ev Event) {
	select {
	case c.out <- ev:
	default:
		// в случае переполнения: дроп, чтобы не блокировать
	}
}

var errListenerExited = errors.New("handy: platform listener exited")

// winListener платформенный источник событий буфера и хоткея; run блокируется
// до отмены ctx или ошибки. Реализация под Windows в windows_listener_windows.go.
type winListener interface {
	run(ctx context.Context, clipOut chan<- Event, hotkeyOut chan<- Event) error
}
