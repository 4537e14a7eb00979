package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"HandsFreeReader/internal/service/navigation"
	"HandsFreeReader/internal/service/tts"
)

func TestLineReaderAliasesAndEOF(t *testing.T) {
	t.Parallel()

	r := NewLineReader(strings.NewReader("n\n  page 3 \nQ\n"))
	ctx := context.Background()
	require.NoError(t, r.Open(ctx))
	require.NoError(t, r.Open(ctx), "повторный запуск не создаёт второго читателя")

	for _, want := range []string{"next", "page 3", "quit"} {
		got, err := r.Listen(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := r.Listen(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestLineReaderHonoursCancel(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewLineReader(pr)
	require.NoError(t, r.Open(context.Background()))

	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("stopped")
	cancel(cause)
	_, err := r.Listen(ctx)
	require.ErrorIs(t, err, cause)
}

func TestQueueTimeoutOverflowAndOpen(t *testing.T) {
	t.Parallel()

	q := NewQueue(2, 20*time.Millisecond)
	ctx := context.Background()

	text, err := q.Listen(ctx)
	require.NoError(t, err)
	require.Empty(t, text, "таймаут: тишина")

	q.Push("one")
	q.Push("  ")
	q.Push("two")
	q.Push("three")
	require.Equal(t, 2, q.Len())
	require.EqualValues(t, 1, q.Dropped())

	text, _ = q.Listen(ctx)
	require.Equal(t, "two", text)

	require.NoError(t, q.Open(ctx))
	require.Zero(t, q.Len(), "старые реплики не переходят в новый сеанс")
}

func TestQueueWakesListener(t *testing.T) {
	t.Parallel()

	q := NewQueue(4, time.Second)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("next page")
	}()
	text, err := q.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, "next page", text)
}

type spoken struct {
	mu    sync.Mutex
	lines []string
}

func (s *spoken) speaker() tts.Speaker {
	return tts.SpeakerFunc(func(_ context.Context, text string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lines = append(s.lines, text)
		return nil
	})
}

func TestControllerAppliesUntilQuit(t *testing.T) {
	t.Parallel()

	nav := navigation.New(nil)
	nav.SetDocument(10)
	q := NewQueue(10, 50*time.Millisecond)
	sp := &spoken{}
	c := NewController(q, nav, sp.speaker(), 25, zaptest.NewLogger(t).Sugar())

	require.NoError(t, c.Open(context.Background()))
	q.Push("next page")
	q.Push("zoom 150%")
	q.Push("quit")

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrQuit)
	require.Equal(t, 1, nav.Page())
	require.Equal(t, 150, nav.Zoom())
	require.Equal(t, []string{"Page 2 of 10.", "Zoom 150%.", "Voice control stopped."}, sp.lines)
	require.NoError(t, c.Close())
}

type failingRecognizer struct {
	calls int
}

func (f *failingRecognizer) Open(context.Context) error { return nil }
func (f *failingRecognizer) Close() error               { return nil }
func (f *failingRecognizer) Listen(ctx context.Context) (string, error) {
	f.calls++
	if f.calls == 1 {
		return "", errors.New("microphone glitch")
	}
	return "quit", nil
}

func TestControllerSurvivesRecognizerErrors(t *testing.T) {
	t.Parallel()

	nav := navigation.New(nil)
	rec := &failingRecognizer{}
	c := NewController(rec, nav, nil, 25, zaptest.NewLogger(t).Sugar())
	c.backoff = time.Millisecond

	require.ErrorIs(t, c.Run(context.Background()), ErrQuit)
	require.Equal(t, 2, rec.calls)
}

func TestControllerStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := NewQueue(1, time.Hour)
	c := NewController(q, navigation.New(nil), nil, 25, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("voice loop did not exit after cancel")
	}
}
