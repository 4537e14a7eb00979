package handy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recognizer реплики из диктовки Handy: финальный текст, пойманный по Ctrl+Enter.
// Реализует voice.Recognizer.
type Recognizer struct {
	cfg     Config
	timeout time.Duration
	logger  *zap.SugaredLogger

	factory func(Config) (Service, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	final  chan string
}

func NewRecognizer(cfg Config, listenTimeout time.Duration, logger *zap.SugaredLogger) *Recognizer {
	if listenTimeout <= 0 {
		listenTimeout = 6 * time.Second
	}
	return &Recognizer{cfg: cfg, timeout: listenTimeout, logger: logger, factory: New}
}

// Open поднимает слушатель буфера и хоткея. Ошибка: источник недоступен.
func (r *Recognizer) Open(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("handy: recognizer already open")
	}
	svc, err := r.factory(r.cfg)
	if err != nil {
		return fmt.Errorf("handy: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.final = make(chan string, 8)

	go func(done chan struct{}) {
		defer close(done)
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warnw("Handy listener stopped", "error", err)
		}
	}(r.done)
	go r.forward(svc.Events(), r.final)
	r.logger.Infow("Handy recognizer opened", "window", r.cfg.HandyWindow, "hotkey_delay", r.cfg.HotkeyDelay)
	return nil
}

func (r *Recognizer) forward(events <-chan Event, final chan<- string) {
	defer close(final)
	for ev := range events {
		switch ev.Type {
		case EventHandyFinalText:
			select {
			case final <- strings.TrimSpace(ev.Text):
			default:
				r.logger.Warnw("Handy final text dropped, consumer is busy")
			}
		case EventCtrlEnter:
			r.logger.Debugw("Handy hotkey", "at", ev.At)
		}
	}
}

// Listen ждёт финальный текст не дольше таймаута прослушивания; по таймауту: тишина.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	final := r.final
	r.mu.Unlock()
	if final == nil {
		return "", errors.New("handy: recognizer is not open")
	}

	t := time.NewTimer(r.timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", context.Cause(ctx)
	case <-t.C:
		return "", nil
	case text, ok := <-final:
		if !ok {
			return "", errors.New("handy: listener stopped")
		}
		return text, nil
	}
}

// Close останавливает слушатель и ждёт его выхода.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done, r.final = nil, nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
