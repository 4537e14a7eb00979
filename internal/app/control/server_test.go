package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"HandsFreeReader/internal/app/supervisor"
	"HandsFreeReader/internal/service/navigation"
)

type idleController struct{}

func (idleController) Open(context.Context) error { return nil }
func (idleController) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
func (idleController) Close() error { return nil }

type brokenCamera struct{ idleController }

func (brokenCamera) Open(context.Context) error { return errors.New("camera not found") }

type utterances struct {
	mu    sync.Mutex
	texts []string
}

func (u *utterances) Push(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.texts = append(u.texts, text)
}

type fixedTranscriber struct {
	text string
	got  []byte
}

func (f *fixedTranscriber) Transcribe(_ context.Context, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	f.got = b
	return f.text, err
}

type fixture struct {
	srv   *httptest.Server
	nav   *navigation.State
	sup   *supervisor.Supervisor
	queue *utterances
	tr    *fixedTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	f := &fixture{
		nav:   navigation.New(nil),
		sup:   supervisor.New(nil, time.Second, logger),
		queue: &utterances{},
		tr:    &fixedTranscriber{text: "next page"},
	}
	f.sup.Register(supervisor.Hand, idleController{})
	f.sup.Register(supervisor.Gaze, brokenCamera{})
	s := New("", Deps{Nav: f.nav, Modalities: f.sup, Utterances: f.queue, Transcriber: f.tr}, logger)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		f.srv.Close()
		_ = f.sup.Stop()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestDocumentAndPageRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, out := f.do(t, http.MethodPost, "/document", `{"total_pages": 10}`)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 10, out["total_pages"])
	require.EqualValues(t, 1, out["page_number"])

	_, out = f.do(t, http.MethodGet, "/page_count", "")
	require.EqualValues(t, 10, out["page_count"])

	_, out = f.do(t, http.MethodPost, "/goto_page", `{"page_num": 4}`)
	require.Equal(t, true, out["success"])
	require.EqualValues(t, 5, out["page_number"])

	_, out = f.do(t, http.MethodPost, "/goto_page", `{"page": 7}`)
	require.EqualValues(t, 6, out["current_page"])

	_, out = f.do(t, http.MethodPost, "/goto_page", `{"page_num": 10}`)
	require.Equal(t, false, out["success"], "вне диапазона отклоняется")
	require.EqualValues(t, 6, out["current_page"])

	_, out = f.do(t, http.MethodGet, "/current_page", "")
	require.EqualValues(t, 7, out["page_number"])
	require.EqualValues(t, 10, out["total_pages"])
}

func TestZoomRoutesClamp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, out := f.do(t, http.MethodPost, "/zoom", `{"level": 900}`)
	require.EqualValues(t, 500, out["zoom_percent"])
	_, out = f.do(t, http.MethodPost, "/zoom", `{"level": 10}`)
	require.EqualValues(t, 25, out["zoom_percent"])
	_, out = f.do(t, http.MethodPost, "/reset_zoom", "")
	require.EqualValues(t, 100, out["zoom_percent"])
	require.Equal(t, 100, f.nav.Zoom())
}

func TestBadRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, tc := range []struct{ path, body string }{
		{"/document", `{"total_pages": -1}`},
		{"/document", `{}`},
		{"/document", `not json`},
		{"/goto_page", `{}`},
		{"/zoom", `{"level": "big"}`},
		{"/start_control", `{"control_type": "telepathy"}`},
	} {
		code, out := f.do(t, http.MethodPost, tc.path, tc.body)
		require.Equal(t, http.StatusBadRequest, code, tc.path+" "+tc.body)
		require.Equal(t, false, out["success"])
	}

	code, _ := f.do(t, http.MethodGet, "/zoom", "")
	require.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestControlLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, out := f.do(t, http.MethodPost, "/start_control", `{"control_type": "hand_gesture"}`)
	require.Equal(t, http.StatusConflict, code, "без документа управление не запускается")
	require.Equal(t, "load a document first", out["error"])

	f.nav.SetDocument(5)
	code, out = f.do(t, http.MethodPost, "/start_control", `{"control_type": "hand_gesture"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "hand_gesture started", out["message"])

	_, out = f.do(t, http.MethodGet, "/control_status", "")
	require.Equal(t, true, out["active"])
	require.Equal(t, "hand_gesture", out["modality"])

	code, out = f.do(t, http.MethodPost, "/start_control", `{"control_type": "eye_gaze"}`)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Contains(t, out["error"], "camera not found")
	require.False(t, f.sup.Status().Active, "прежний контроллер остановлен, новый не стартовал")

	code, _ = f.do(t, http.MethodPost, "/stop_control", "")
	require.Equal(t, http.StatusOK, code)
	_, out = f.do(t, http.MethodGet, "/control_status", "")
	require.Equal(t, false, out["active"])
}

func TestVoiceUtteranceAndAudio(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, _ := f.do(t, http.MethodPost, "/voice/utterance", `{"text": "page 3"}`)
	require.Equal(t, http.StatusAccepted, code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	_, _ = part.Write([]byte("RIFF....WAVE"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.srv.URL+"/voice/audio", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "RIFF....WAVE", string(f.tr.got))

	f.queue.mu.Lock()
	defer f.queue.mu.Unlock()
	require.Equal(t, []string{"page 3", "next page"}, f.queue.texts)
}

func TestOptionalRoutesDisabled(t *testing.T) {
	t.Parallel()

	s := New("", Deps{Nav: navigation.New(nil)}, zaptest.NewLogger(t).Sugar())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/voice/utterance", "application/json", strings.NewReader(`{"text":"next"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	s := New("127.0.0.1:0", Deps{Nav: navigation.New(nil)}, zaptest.NewLogger(t).Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx), "повторный старт ничего не делает")
	require.Equal(t, "127.0.0.1:0", s.Addr())
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
