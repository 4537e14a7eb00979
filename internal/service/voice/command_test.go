package voice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "page 7", Normalize("  Page SEVEN! "))
	require.Equal(t, "page 7", Normalize("ｐａｇｅ　７"))
	require.Equal(t, "jump back 2 pages", Normalize("Jump back two pages."))
	require.Equal(t, "zoom 150%", Normalize("Zoom 150%"))
	require.Empty(t, Normalize("   "))
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text      string
		canRepeat bool
		kind      Kind
		nav       Nav
		n         int
	}{
		{"", false, KindSilence, "", 0},
		{"stop", false, KindQuit, "", 0},
		{"please stop listening", false, KindQuit, "", 0},
		{"exit", false, KindQuit, "", 0},
		{"help me", false, KindHelp, "", 0},
		{"where am i", false, KindStatus, "", 0},
		{"status", false, KindStatus, "", 0},
		{"zoom 150%", false, KindZoomSet, "", 150},
		{"zoom 100", false, KindZoomReset, "", 0},
		{"zoom 100%", false, KindZoomReset, "", 0},
		{"zoom 1000", false, KindZoomInvalid, "", 0},
		{"zoom 20", false, KindZoomInvalid, "", 0},
		{"back to normal zoom", false, KindZoomReset, "", 0},
		{"zoom please", false, KindZoomUnknown, "", 0},
		{"repeat", true, KindRepeat, "", 0},
		{"next page", false, KindNavigate, NavNext, 0},
		{"forward", false, KindNavigate, NavNext, 0},
		{"go back", false, KindNavigate, NavPrevious, 0},
		{"beginning", false, KindNavigate, NavFirst, 0},
		{"go to end", false, KindNavigate, NavLast, 0},
		{"halfway", false, KindNavigate, NavMiddle, 0},
		{"jump forward 3 pages", false, KindNavigate, NavForward, 3},
		{"jump ahead 2", false, KindNavigate, NavForward, 2},
		{"jump back 2 pages", false, KindNavigate, NavBack, 2},
		{"jump backward 1 page", false, KindNavigate, NavBack, 1},
		{"jump", false, KindRejected, "", 0},
		{"jump forward pages", false, KindRejected, "", 0},
		{"jump ahead pages", false, KindRejected, "", 0},
		{"jump back", false, KindRejected, "", 0},
		{"next 1", false, KindNavigate, NavNext, 0},
		{"previous 1", false, KindNavigate, NavPrevious, 0},
		{"back 1 page", false, KindNavigate, NavPrevious, 0},
		{"go forward 1 page", false, KindNavigate, NavNext, 0},
		{"jump forward 9223372036854775807 pages", false, KindNavigate, NavForward, math.MaxInt},
		{"jump ahead 99999999999999999999 pages", false, KindNavigate, NavForward, math.MaxInt},
		{"page 7", false, KindNavigate, NavPage, 7},
		{"go to page 10", false, KindNavigate, NavPage, 10},
		{"go to 5", false, KindNavigate, NavPage, 5},
		{"12", false, KindNavigate, NavPage, 12},
		{"page", false, KindRejected, "", 0},
		{"nextdoor neighbour", false, KindUnknown, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			c := Parse(tc.text, tc.canRepeat)
			require.Equal(t, tc.kind, c.Kind)
			require.Equal(t, tc.nav, c.Nav)
			require.Equal(t, tc.n, c.N)
		})
	}
}

func TestParseZoomStepSign(t *testing.T) {
	t.Parallel()

	require.Equal(t, +1, Parse("zoom in", false).ZoomSign)
	require.Equal(t, -1, Parse("zoom out a bit", false).ZoomSign)
}

func TestRepeatWithoutTargetFallsThrough(t *testing.T) {
	t.Parallel()

	c := Parse("repeat", false)
	require.Equal(t, KindUnknown, c.Kind)
	require.Empty(t, c.Suggestion)

	c = Parse("repeat page 3", false)
	require.Equal(t, NavPage, c.Nav)
	require.Equal(t, 3, c.N)
}

func TestUnknownSuggestsClosestCommand(t *testing.T) {
	t.Parallel()

	require.Equal(t, "help", Parse("hepl", false).Suggestion)
	require.Empty(t, Parse("open the window", false).Suggestion)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	p, ok := Command{Nav: NavPage, N: 11}.Resolve(4, 10)
	require.False(t, ok)
	require.Equal(t, 10, p)

	p, ok = Command{Nav: NavPage, N: 0}.Resolve(4, 10)
	require.False(t, ok)

	p, ok = Command{Nav: NavForward, N: 30}.Resolve(4, 10)
	require.True(t, ok)
	require.Equal(t, 9, p, "прыжок ограничен краем документа")

	p, _ = Command{Nav: NavMiddle}.Resolve(0, 7)
	require.Equal(t, 3, p)
}

func TestResolveSaturatedJump(t *testing.T) {
	t.Parallel()

	c := Parse("jump forward 99999999999999999999 pages", false)
	p, ok := c.Resolve(3, 10)
	require.True(t, ok)
	require.Equal(t, 9, p)

	c = Parse("jump back 99999999999999999999 pages", false)
	p, ok = c.Resolve(3, 10)
	require.True(t, ok)
	require.Equal(t, 0, p)
}
