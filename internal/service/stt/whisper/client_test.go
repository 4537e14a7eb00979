package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"HandsFreeReader/internal/config"
)

func TestTranscribeSendsClipAndTrimsText(t *testing.T) {
	t.Parallel()

	var gotModel, gotLang, gotAudio string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotAudio = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Next page. "}`)
	}))
	defer srv.Close()

	api := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	c := New(&api, config.WhisperConfig{Language: "en"}, zaptest.NewLogger(t).Sugar())

	text, err := c.Transcribe(context.Background(), "clip.wav", strings.NewReader("RIFF-fake"))
	require.NoError(t, err)
	require.Equal(t, "Next page.", text)
	require.Equal(t, "whisper-1", gotModel)
	require.Equal(t, "en", gotLang)
	require.Equal(t, "RIFF-fake", gotAudio)
}

func TestTranscribeWrapsAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	api := openai.NewClient(option.WithBaseURL(srv.URL+"/"), option.WithAPIKey("test"), option.WithMaxRetries(0))
	c := New(&api, config.WhisperConfig{}, zaptest.NewLogger(t).Sugar())

	_, err := c.Transcribe(context.Background(), "clip.mp3", strings.NewReader("x"))
	require.ErrorContains(t, err, "whisper: transcription failed")

	_, err = c.Transcribe(context.Background(), "clip.mp3", nil)
	require.ErrorIs(t, err, ErrEmptyAudio)
}
