package hand

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/landmark"
	"HandsFreeReader/internal/service/navigation"
)

// frameScript источник кадров по списку; after вызывается внутри Next перед возвратом кадра i.
type frameScript struct {
	frames []landmark.Frame
	after  map[int]func()
	next   int
}

func (s *frameScript) Open(context.Context) error { return nil }
func (s *frameScript) Close() error               { return nil }

func (s *frameScript) Next(context.Context) (landmark.Frame, bool, error) {
	if s.next >= len(s.frames) {
		return landmark.Frame{}, false, io.EOF
	}
	i := s.next
	s.next++
	if fn := s.after[i]; fn != nil {
		fn()
	}
	return s.frames[i], true, nil
}

func newTestController(t *testing.T, src landmark.Source) (*Controller, *navigation.State) {
	t.Helper()
	nav := navigation.New(nil)
	nav.SetDocument(10)
	nav.RequestPage(4)
	return NewController(config.HandConfig{}, src, nav, zaptest.NewLogger(t).Sugar()), nav
}

func asFace(f landmark.Frame) landmark.Frame {
	f.Kind = landmark.KindFace
	return f
}

func TestControllerSkipsForeignFrames(t *testing.T) {
	t.Parallel()

	c, nav := newTestController(t, &frameScript{})
	t0 := time.Unix(0, 0)

	c.step(asFace(turnPose(0, 0)), t0)
	c.step(asFace(turnPose(-70, 0)), t0.Add(50*time.Millisecond))
	require.Equal(t, ModeNone, c.cls.Mode(), "кадр лица не меняет режим руки")
	require.Equal(t, 4, nav.Page())

	c.step(turnPose(0, 0), t0.Add(100*time.Millisecond))
	c.step(turnPose(-70, 0), t0.Add(150*time.Millisecond))
	require.Equal(t, 5, nav.Page())
}

func TestControllerRunSwipes(t *testing.T) {
	t.Parallel()

	c, nav := newTestController(t, &frameScript{frames: []landmark.Frame{turnPose(0, 0), turnPose(-70, 0)}})
	require.NoError(t, c.Run(context.Background()))
	require.Equal(t, 5, nav.Page())
}

func TestControllerRunIgnoresFrameAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &frameScript{
		frames: []landmark.Frame{turnPose(0, 0), turnPose(-70, 0)},
		after:  map[int]func(){1: cancel},
	}
	c, nav := newTestController(t, src)
	require.NoError(t, c.Run(ctx))
	require.Equal(t, ModeTurn, c.cls.Mode())
	require.Equal(t, 4, nav.Page(), "свайп, прочитанный после отмены, не листает")
}
