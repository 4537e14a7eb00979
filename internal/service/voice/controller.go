package voice

import (
	"context"
	"errors"
	"io"
	"time"

	"HandsFreeReader/internal/service/tts"

	"go.uber.org/zap"
)

// ErrQuit возвращает Run, когда пользователь сам остановил голосовое управление.
var ErrQuit = errors.New("voice: quit requested")

// Controller модальность "голос": одна реплика за итерацию.
type Controller struct {
	rec      Recognizer
	nav      Navigator
	speaker  tts.Speaker // nil: ответы только в лог
	zoomStep int
	backoff  time.Duration
	logger   *zap.SugaredLogger
}

func NewController(rec Recognizer, nav Navigator, speaker tts.Speaker, zoomStep int, logger *zap.SugaredLogger) *Controller {
	return &Controller{rec: rec, nav: nav, speaker: speaker, zoomStep: zoomStep, backoff: time.Second, logger: logger}
}

func (c *Controller) Open(ctx context.Context) error { return c.rec.Open(ctx) }

func (c *Controller) Close() error { return c.rec.Close() }

// Run слушает реплики до отмены ctx, конца ввода или команды выхода (ErrQuit).
// Ошибки распознавания не останавливают цикл: пауза и следующая попытка.
func (c *Controller) Run(ctx context.Context) error {
	in := NewInterpreter(c.nav, c.zoomStep)
	c.logger.Infow("Voice controller running")
	defer c.logger.Infow("Voice controller loop ended")

	for {
		if ctx.Err() != nil {
			return nil
		}
		text, err := c.rec.Listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			c.logger.Infow("Voice input closed")
			return nil
		}
		if err != nil {
			c.logger.Warnw("Voice recognition error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		out := in.Apply(text)
		if out.Command.Kind == KindSilence {
			c.logger.Debugw("Voice silence")
			continue
		}
		c.logger.Infow("Voice command",
			"heard", out.Command.Text,
			"kind", out.Command.Kind,
			"page", out.Page,
			"zoom", out.Zoom,
			"changed", out.Changed,
			"reply", out.Reply,
		)
		c.say(ctx, out.Reply)
		if out.Command.Kind == KindQuit {
			return ErrQuit
		}
	}
}

func (c *Controller) say(ctx context.Context, reply string) {
	if c.speaker == nil || reply == "" {
		return
	}
	if err := c.speaker.Speak(ctx, reply); err != nil && ctx.Err() == nil {
		c.logger.Warnw("Voice reply failed", "error", err)
	}
}
