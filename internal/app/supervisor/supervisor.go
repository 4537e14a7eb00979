package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"HandsFreeReader/internal/service/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Modality способ управления. Значения совпадают с control_type HTTP API.
type Modality string

const (
	Gaze  Modality = "eye_gaze"
	Hand  Modality = "hand_gesture"
	Voice Modality = "voice"
)

var (
	ErrUnknownModality = errors.New("supervisor: unknown modality")
	ErrStopTimeout     = errors.New("supervisor: controller did not stop in time")
	// ErrStillStopping брошенный по таймауту цикл этой модальности ещё не вышел.
	ErrStillStopping = errors.New("supervisor: previous run is still stopping")
	errSwitch        = errors.New("supervisor: switching modality")
	errStop          = errors.New("supervisor: stop requested")
)

// ParseModality принимает имена HTTP API и короткие синонимы.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eye_gaze", "gaze", "eye":
		return Gaze, nil
	case "hand_gesture", "hand", "gesture":
		return Hand, nil
	case "voice":
		return Voice, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModality, s)
}

// Controller одна модальность. Open захватывает сенсор (ошибка: сенсор недоступен),
// Run крутит цикл до отмены ctx или собственного завершения, Close освобождает сенсор.
type Controller interface {
	Open(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
}

// Status текущее состояние супервизора.
type Status struct {
	Active   bool      `json:"active"`
	Modality Modality  `json:"modality,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
}

type run struct {
	id       string
	modality Modality
	ctrl     Controller
	since    time.Time
	cancel   context.CancelCauseFunc
	done     chan struct{}
}

// Supervisor держит не больше одного запущенного контроллера.
// Start и Stop сериализованы одним мьютексом; переключение полностью останавливает прежний цикл.
// modality_changed отправляется под тем же мьютексом, поэтому порядок событий совпадает с переходами.
type Supervisor struct {
	controllers map[Modality]Controller
	sink        events.Sink
	stopTimeout time.Duration
	logger      *zap.SugaredLogger

	mu  sync.Mutex
	cur *run
	// abandoned done-каналы циклов, брошенных по таймауту остановки.
	// Контроллер не запускается повторно, пока его прежний Run не вернулся.
	abandoned map[Modality]chan struct{}
}

func New(sink events.Sink, stopTimeout time.Duration, logger *zap.SugaredLogger) *Supervisor {
	if sink == nil {
		sink = events.Discard
	}
	if stopTimeout <= 0 {
		stopTimeout = 3 * time.Second
	}
	return &Supervisor{
		controllers: make(map[Modality]Controller),
		abandoned:   make(map[Modality]chan struct{}),
		sink:        sink,
		stopTimeout: stopTimeout,
		logger:      logger,
	}
}

// Register задаёт контроллер модальности. Вызывать до первого Start.
func (s *Supervisor) Register(m Modality, c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controllers[m] = c
}

// Start останавливает текущий контроллер (любой, включая тот же) и запускает m.
// Если сенсор m недоступен, возвращает ошибку и остаётся в Idle.
// ErrStillStopping: прежний цикл m брошен по таймауту и ещё работает, запуск отклонён.
func (s *Supervisor) Start(ctx context.Context, m Modality) error {
	s.mu.Lock()
	c, ok := s.controllers[m]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownModality, m)
	}
	stopped, err := s.stopLocked(errSwitch)
	s.emit(stopped)
	if err != nil {
		s.logger.Warnw("Previous controller abandoned while switching", "modality", m, "error", err)
	}
	if s.stillRunning(m) {
		s.mu.Unlock()
		s.logger.Warnw("Controller start refused, previous run has not exited", "modality", m)
		return fmt.Errorf("%w: %s", ErrStillStopping, m)
	}

	if err := c.Open(ctx); err != nil {
		s.mu.Unlock()
		s.logger.Errorw("Controller start failed", "modality", m, "error", err)
		return fmt.Errorf("supervisor: %s unavailable: %w", m, err)
	}

	runCtx, cancel := context.WithCancelCause(context.Background())
	r := &run{
		id:       uuid.NewString(),
		modality: m,
		ctrl:     c,
		since:    time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.cur = r
	go func() {
		err := c.Run(runCtx)
		close(r.done)
		s.finished(r, err)
	}()
	s.emit(s.event(r.modality, true))
	s.mu.Unlock()

	s.logger.Infow("Controller started", "modality", m, "run_id", r.id)
	return nil
}

// Stop останавливает текущий контроллер; в Idle ничего не делает.
// Возвращает ErrStopTimeout, если цикл не вышел за отведённое время: он брошен,
// а сенсор всё равно закрыт. Состояние в любом случае становится Idle.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, err := s.stopLocked(errStop)
	s.emit(ev)
	return err
}

// stopLocked вызывать под s.mu.
func (s *Supervisor) stopLocked(cause error) (*events.Event, error) {
	r := s.cur
	if r == nil {
		return nil, nil
	}
	r.cancel(cause)

	waitCtx, cancel := context.WithTimeoutCause(context.Background(), s.stopTimeout, ErrStopTimeout)
	defer cancel()
	var err error
	select {
	case <-r.done:
	case <-waitCtx.Done():
		err = context.Cause(waitCtx)
		s.abandoned[r.modality] = r.done
		s.logger.Warnw("Controller loop abandoned", "modality", r.modality, "run_id", r.id, "reason", err)
	}
	if cerr := r.ctrl.Close(); cerr != nil {
		s.logger.Warnw("Controller close failed", "modality", r.modality, "error", cerr)
	}
	s.cur = nil
	s.logger.Infow("Controller stopped", "modality", r.modality, "run_id", r.id, "took", time.Since(r.since).String())
	return s.event(r.modality, false), err
}

// stillRunning вызывать под s.mu. Вышедший брошенный цикл забывается.
func (s *Supervisor) stillRunning(m Modality) bool {
	done, ok := s.abandoned[m]
	if !ok {
		return false
	}
	select {
	case <-done:
		delete(s.abandoned, m)
		return false
	default:
		return true
	}
}

// finished цикл вышел сам (голосовой выход, конец ввода, ошибка).
// Если это всё ещё текущий запуск, супервизор возвращается в Idle.
func (s *Supervisor) finished(r *run, err error) {
	s.mu.Lock()
	if s.cur != r {
		s.mu.Unlock()
		return
	}
	s.cur = nil
	if cerr := r.ctrl.Close(); cerr != nil {
		s.logger.Warnw("Controller close failed", "modality", r.modality, "error", cerr)
	}
	s.emit(s.event(r.modality, false))
	s.mu.Unlock()

	s.logger.Infow("Controller exited by itself", "modality", r.modality, "run_id", r.id, "reason", err)
}

// Status согласованный снимок под тем же мьютексом.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return Status{}
	}
	return Status{Active: true, Modality: s.cur.modality, Since: s.cur.since, RunID: s.cur.id}
}

func (s *Supervisor) event(m Modality, active bool) *events.Event {
	return &events.Event{Type: events.ModalityChanged, Modality: string(m), Active: active, At: time.Now()}
}

func (s *Supervisor) emit(ev *events.Event) {
	if ev != nil {
		s.sink.Emit(*ev)
	}
}
