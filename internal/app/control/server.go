package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"HandsFreeReader/internal/app/supervisor"
	"HandsFreeReader/internal/service/navigation"

	"go.uber.org/zap"
)

const (
	maxJSONBody  = 64 << 10
	maxAudioBody = 25 << 20 // предел Whisper API на один файл
)

// Navigator операции над состоянием документа, доступные интерфейсу напрямую.
type Navigator interface {
	SetDocument(total int)
	Snapshot() navigation.Snapshot
	RequestPage(target int) bool
	RequestZoom(target int) int
	ResetZoom() int
}

// Modalities переключение способа управления.
type Modalities interface {
	Start(ctx context.Context, m supervisor.Modality) error
	Stop() error
	Status() supervisor.Status
}

// Utterances куда складываются реплики для голосового контроллера.
type Utterances interface {
	Push(text string)
}

// Transcriber распознаёт загруженный аудиоклип.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Deps зависимости сервера. Необязательные поля могут быть nil: соответствующие
// маршруты тогда отвечают 503.
type Deps struct {
	Nav         Navigator
	Modalities  Modalities
	Utterances  Utterances
	Transcriber Transcriber
	Events      http.Handler // websocket для интерфейса
	Landmarks   http.Handler // websocket для детектора ключевых точек
}

// Server HTTP поверхность управления читалкой.
type Server struct {
	deps    Deps
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
}

func New(addr string, deps Deps, logger *zap.SugaredLogger) *Server {
	if addr == "" {
		addr = "127.0.0.1:5000"
	}
	s := &Server{deps: deps, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// без ReadTimeout/WriteTimeout: websocket соединения живут долго
	}
	return s
}

// Handler маршруты сервера; отдельно от Start, чтобы тестировать через httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /document", s.handleDocument)
	mux.HandleFunc("GET /page_count", s.handlePageCount)
	mux.HandleFunc("GET /current_page", s.handleCurrentPage)
	mux.HandleFunc("POST /start_control", s.handleStartControl)
	mux.HandleFunc("POST /stop_control", s.handleStopControl)
	mux.HandleFunc("GET /control_status", s.handleControlStatus)
	mux.HandleFunc("POST /goto_page", s.handleGotoPage)
	mux.HandleFunc("POST /zoom", s.handleZoom)
	mux.HandleFunc("POST /reset_zoom", s.handleResetZoom)
	mux.HandleFunc("POST /voice/utterance", s.handleUtterance)
	mux.HandleFunc("POST /voice/audio", s.handleAudio)
	if s.deps.Events != nil {
		mux.Handle("GET /ws", s.deps.Events)
	}
	if s.deps.Landmarks != nil {
		mux.Handle("GET /ws/landmarks", s.deps.Landmarks)
	}
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("Control server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("Control server stopped with error", "error", err)
		} else {
			s.logger.Infow("Control server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("control server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.srv.Addr }

type pageView struct {
	Success     bool `json:"success"`
	CurrentPage int  `json:"current_page"` // 0-based, как в запросе goto_page
	PageNumber  int  `json:"page_number"`  // 1-based
	TotalPages  int  `json:"total_pages"`
	Zoom        int  `json:"zoom_percent"`
}

func view(snap navigation.Snapshot, ok bool) pageView {
	v := pageView{Success: ok, CurrentPage: snap.Page, TotalPages: snap.Total, Zoom: snap.Zoom}
	if snap.Total > 0 {
		v.PageNumber = snap.Page + 1
	}
	return v
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalPages *int `json:"total_pages"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.TotalPages == nil || *req.TotalPages < 0 {
		writeError(w, http.StatusBadRequest, "total_pages must be a non-negative integer")
		return
	}
	s.deps.Nav.SetDocument(*req.TotalPages)
	s.logger.Infow("Document loaded", "total_pages", *req.TotalPages)
	writeJSON(w, http.StatusOK, view(s.deps.Nav.Snapshot(), true))
}

func (s *Server) handlePageCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"page_count": s.deps.Nav.Snapshot().Total})
}

func (s *Server) handleCurrentPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, view(s.deps.Nav.Snapshot(), true))
}

func (s *Server) handleStartControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ControlType string `json:"control_type"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := supervisor.ParseModality(req.ControlType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid control type")
		return
	}
	if s.deps.Nav.Snapshot().Total == 0 {
		writeError(w, http.StatusConflict, "load a document first")
		return
	}
	if err := s.deps.Modalities.Start(r.Context(), m); err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, supervisor.ErrUnknownModality) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%s started", m),
		"status":  s.deps.Modalities.Status(),
	})
}

func (s *Server) handleStopControl(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Modalities.Stop(); err != nil {
		// цикл брошен, но состояние уже Idle: для клиента это успешная остановка
		s.logger.Warnw("Stop control finished with error", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Control stopped"})
}

func (s *Server) handleControlStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Modalities.Status())
}

func (s *Server) handleGotoPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageNum *int `json:"page_num"` // 0-based
		Page    *int `json:"page"`     // 1-based
	}
	if !s.decode(w, r, &req) {
		return
	}
	var target int
	switch {
	case req.PageNum != nil:
		target = *req.PageNum
	case req.Page != nil:
		target = *req.Page - 1
	default:
		writeError(w, http.StatusBadRequest, "page_num or page is required")
		return
	}
	ok := s.deps.Nav.RequestPage(target)
	writeJSON(w, http.StatusOK, view(s.deps.Nav.Snapshot(), ok))
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level *int `json:"level"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Level == nil {
		writeError(w, http.StatusBadRequest, "level is required")
		return
	}
	z := s.deps.Nav.RequestZoom(*req.Level)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "zoom_percent": z})
}

func (s *Server) handleResetZoom(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "zoom_percent": s.deps.Nav.ResetZoom()})
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Utterances == nil {
		writeError(w, http.StatusServiceUnavailable, "voice input over HTTP is disabled")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.deps.Utterances.Push(req.Text)
	s.logger.Debugw("Utterance queued", "text", req.Text)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transcriber == nil || s.deps.Utterances == nil {
		writeError(w, http.StatusServiceUnavailable, "audio transcription is disabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)
	file, hdr, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"audio\" is required")
		return
	}
	defer file.Close()

	started := time.Now()
	text, err := s.deps.Transcriber.Transcribe(r.Context(), hdr.Filename, file)
	if err != nil {
		s.logger.Warnw("Audio transcription failed", "file", hdr.Filename, "size", hdr.Size, "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.logger.Infow("Audio transcribed", "file", hdr.Filename, "size", hdr.Size, "text", text, "took", time.Since(started).String())
	s.deps.Utterances.Push(text)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "text": text})
}

// decode читает JSON тело; при ошибке уже ответил клиенту.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.logger.Debugw("Bad request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
