package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"HandsFreeReader/internal/service/events"
	"HandsFreeReader/internal/service/tts/player"

	"go.uber.org/zap"
)

// TryPlayer проигрыватель, который умеет отказаться, если устройство занято.
type TryPlayer interface {
	TryPlay(ctx context.Context, format string, r io.ReadCloser) error
}

var _ events.Sink = (*Chime)(nil)

// Chime короткий звук перелистывания на каждое page_changed.
// Emit не блокирует: звук играет в отдельной горутине, а пока он звучит, новые пропускаются.
type Chime struct {
	logger  *zap.SugaredLogger
	ply     TryPlayer
	data    []byte
	format  string
	ctx     context.Context
	playing atomic.Bool
}

// NewChime читает звуковой файл один раз. Пустой путь: sound/page.mp3 рядом с бинарём,
// затем от текущей директории. ctx ограничивает время жизни воспроизведения.
func NewChime(ctx context.Context, logger *zap.SugaredLogger, path string, ply TryPlayer) (*Chime, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("sound", "page.mp3")
	}
	path = resolve(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		ext = "mp3" // по умолчанию
	}
	return &Chime{logger: logger, ply: ply, data: data, format: ext, ctx: ctx}, nil
}

// resolve относительный путь сначала ищется рядом с бинарём.
func resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), path)
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	return filepath.FromSlash(path)
}

func (c *Chime) Emit(ev events.Event) {
	if ev.Type != events.PageChanged || c.ctx.Err() != nil {
		return
	}
	if !c.playing.CompareAndSwap(false, true) {
		c.logger.Debugw("Chime skipped, previous one still playing", "page", ev.Page)
		return
	}
	go func() {
		defer c.playing.Store(false)
		err := c.ply.TryPlay(c.ctx, c.format, io.NopCloser(bytes.NewReader(c.data)))
		switch {
		case err == nil:
		case errors.Is(err, player.ErrBusy):
			c.logger.Debugw("Chime skipped, audio device busy", "page", ev.Page)
		case c.ctx.Err() != nil:
		default:
			c.logger.Warnw("Не удалось воспроизвести звук перелистывания", "error", err)
		}
	}()
}
