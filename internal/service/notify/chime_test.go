package notify

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"HandsFreeReader/internal/service/events"
)

type blockingPlayer struct {
	plays   atomic.Int32
	release chan struct{}
}

func (b *blockingPlayer) TryPlay(ctx context.Context, format string, r io.ReadCloser) error {
	defer r.Close()
	b.plays.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestChimePlaysOnlyPageChangesAndSkipsWhileBusy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "page.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o600))

	ply := &blockingPlayer{release: make(chan struct{})}
	ch, err := NewChime(context.Background(), zaptest.NewLogger(t).Sugar(), path, ply)
	require.NoError(t, err)
	require.Equal(t, "wav", ch.format)

	ch.Emit(events.Event{Type: events.ZoomChanged})
	ch.Emit(events.Event{Type: events.PageChanged, Page: 2})
	require.Eventually(t, func() bool { return ply.plays.Load() == 1 }, time.Second, 5*time.Millisecond)

	ch.Emit(events.Event{Type: events.PageChanged, Page: 3})
	ch.Emit(events.Event{Type: events.PageChanged, Page: 4})

	close(ply.release)
	require.Eventually(t, func() bool { return !ch.playing.Load() }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, ply.plays.Load())

	ch.Emit(events.Event{Type: events.PageChanged, Page: 5})
	require.Eventually(t, func() bool { return ply.plays.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestChimeMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewChime(context.Background(), zaptest.NewLogger(t).Sugar(), filepath.Join(t.TempDir(), "none.mp3"), &blockingPlayer{})
	require.Error(t, err)
}
