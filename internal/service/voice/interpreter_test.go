package voice

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"HandsFreeReader/internal/service/navigation"
)

func newDoc(t *testing.T) (*navigation.State, *Interpreter) {
	t.Helper()
	nav := navigation.New(nil)
	nav.SetDocument(10)
	require.True(t, nav.RequestPage(4))
	return nav, NewInterpreter(nav, 25)
}

func TestInterpreterScenarios(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		wantPage int
		wantZoom int
	}{
		{"page 7", 6, 100},
		{"next page", 5, 100},
		{"jump back 2 pages", 2, 100},
		{"zoom 150", 4, 150},
		{"zoom out", 4, 75},
		{"zoom in", 4, 125},
		{"middle", 5, 100},
		{"last page", 9, 100},
		{"Go to page TWO", 1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			nav, in := newDoc(t)
			out := in.Apply(tc.text)
			require.Equal(t, tc.wantPage, nav.Page())
			require.Equal(t, tc.wantZoom, nav.Zoom())
			require.Equal(t, tc.wantPage+1, out.Page)
			require.NotEmpty(t, out.Reply)
		})
	}
}

func TestRepeatReissuesLastTarget(t *testing.T) {
	t.Parallel()

	nav, in := newDoc(t)
	in.Apply("page 7")
	require.Equal(t, 6, nav.Page())

	in.Apply("first page")
	require.Equal(t, 0, nav.Page())
	last, ok := in.LastTarget()
	require.True(t, ok)
	require.Equal(t, 0, last)

	in.Apply("page 7")
	nav.RequestPage(3)
	out := in.Apply("repeat")
	require.Equal(t, KindRepeat, out.Command.Kind)
	require.Equal(t, 6, nav.Page())
}

func TestNoOpAndRejectionsDoNotMutate(t *testing.T) {
	t.Parallel()

	nav, in := newDoc(t)

	out := in.Apply("page 5")
	require.False(t, out.Changed)
	require.Contains(t, out.Reply, "Already on page 5")
	_, ok := in.LastTarget()
	require.False(t, ok, "пустой ход не становится целью для repeat")

	out = in.Apply("page 11")
	require.False(t, out.Changed)
	require.Contains(t, out.Reply, "out of range")
	require.Equal(t, 4, nav.Page())

	out = in.Apply("zoom 1000")
	require.Equal(t, KindZoomInvalid, out.Command.Kind)
	require.Equal(t, 100, nav.Zoom())

	out = in.Apply("sing a song")
	require.Equal(t, KindUnknown, out.Command.Kind)
	require.Equal(t, 4, nav.Page())
}

func TestStatusAndHelpAreReadOnly(t *testing.T) {
	t.Parallel()

	nav, in := newDoc(t)
	nav.RequestZoom(150)

	out := in.Apply("where am I")
	require.Equal(t, "You are on page 5 of 10, zoom 150%.", out.Reply)
	require.False(t, out.Changed)

	out = in.Apply("help")
	require.Equal(t, HelpText(), out.Reply)
	require.Equal(t, 4, nav.Page())
}

func TestZoomClampsAtBounds(t *testing.T) {
	t.Parallel()

	nav, in := newDoc(t)
	nav.RequestZoom(490)
	out := in.Apply("zoom in")
	require.Equal(t, 500, out.Zoom)
	require.True(t, out.Changed)

	out = in.Apply("zoom in")
	require.Equal(t, 500, out.Zoom)
	require.False(t, out.Changed)

	out = in.Apply("normal zoom")
	require.Equal(t, 100, nav.Zoom())
	require.True(t, out.Changed)
}

func TestEmptyDocument(t *testing.T) {
	t.Parallel()

	nav := navigation.New(nil)
	in := NewInterpreter(nav, 25)
	out := in.Apply("next page")
	require.False(t, out.Changed)
	require.Equal(t, "No document is loaded.", out.Reply)
}

func TestNumberWordsKeepRelativePhrases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		wantPage int
	}{
		{"next one", 5},
		{"previous one", 3},
		{"back one page", 3},
		{"go forward one page", 5},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			nav, in := newDoc(t)
			out := in.Apply(tc.text)
			require.Equal(t, KindNavigate, out.Command.Kind)
			require.Equal(t, tc.wantPage, nav.Page())
			require.Equal(t, fmt.Sprintf("Page %d of 10.", tc.wantPage+1), out.Reply)
		})
	}
}

func TestHugeJumpClampsToDocumentEdge(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"jump forward 9223372036854775807 pages", "jump ahead 99999999999999999999 pages"} {
		nav, in := newDoc(t)
		out := in.Apply(text)
		require.Equal(t, 9, nav.Page(), text)
		require.Equal(t, "Page 10 of 10.", out.Reply)
	}

	nav, in := newDoc(t)
	in.Apply("jump back 99999999999999999999 pages")
	require.Equal(t, 0, nav.Page())

	out := in.Apply("page 99999999999999999999")
	require.Contains(t, out.Reply, "out of range")
	require.Equal(t, 0, nav.Page())
}

func TestLastCommandTracksEveryUtterance(t *testing.T) {
	t.Parallel()

	_, in := newDoc(t)
	require.Empty(t, in.LastCommand())

	in.Apply("Next Page!")
	require.Equal(t, "next page", in.LastCommand())

	in.Apply("sing a song")
	require.Equal(t, "sing a song", in.LastCommand(), "нераспознанная реплика тоже запоминается")

	in.Apply("   ")
	require.Equal(t, "sing a song", in.LastCommand(), "тишина не затирает последнюю команду")
}
