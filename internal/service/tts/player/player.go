package player

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// ErrBusy возвращает TryPlay, если устройство уже занято.
var ErrBusy = errors.New("player: playback in progress")

// Player воспроизводит аудио потоком в зависимости от формата.
type Player interface {
	Play(ctx context.Context, format string, r io.ReadCloser) error
}

var _ Player = (*Default)(nil)

// Default поддерживает mp3 и wav. Одновременно звучит только один поток:
// ответы ассистента и звук перелистывания не накладываются.
type Default struct {
	volumeDB float64
	mu       sync.Mutex
}

// New создаёт плеер без изменения громкости (0 dB).
func New() *Default { return &Default{} }

// NewWithVolume создаёт плеер с предустановленной громкостью в dB (отрицательные: тише).
func NewWithVolume(db float64) *Default { return &Default{volumeDB: db} }

// Play ждёт освобождения устройства и проигрывает поток до конца или до отмены ctx.
func (d *Default) Play(ctx context.Context, format string, r io.ReadCloser) error {
	defer r.Close()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.play(ctx, format, r)
}

// TryPlay как Play, но сразу возвращает ErrBusy, если что-то уже играет.
func (d *Default) TryPlay(ctx context.Context, format string, r io.ReadCloser) error {
	defer r.Close()
	if !d.mu.TryLock() {
		return ErrBusy
	}
	defer d.mu.Unlock()
	return d.play(ctx, format, r)
}

func (d *Default) play(ctx context.Context, format string, r io.ReadCloser) error {
	streamer, f, err := decode(format, r)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10)); err != nil {
		return err
	}
	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   d.volumeDB,
		Silent:   false,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return context.Cause(ctx)
	}
}

func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(format) {
	case "wav":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, errors.New("player: unsupported format, use mp3 or wav")
	}
}
