package events

import (
	"time"

	"go.uber.org/zap"
)

// Type тип исходящего уведомления для слоя представления.
type Type string

const (
	PageChanged     Type = "page_changed"
	ZoomChanged     Type = "zoom_changed"
	DocumentLoaded  Type = "document_loaded"
	ModalityChanged Type = "modality_changed"
	Snapshot        Type = "snapshot" // текущее состояние для только что подключившегося клиента
)

// Event уведомление о зафиксированном изменении состояния.
// Page всегда 1-based, как его показывает интерфейс.
type Event struct {
	Seq        uint64    `json:"seq"`
	Type       Type      `json:"type"`
	Page       int       `json:"page_number,omitempty"`
	TotalPages int       `json:"total_pages,omitempty"`
	Zoom       int       `json:"zoom_percent,omitempty"`
	Modality   string    `json:"modality,omitempty"`
	Active     bool      `json:"active,omitempty"`
	At         time.Time `json:"at"`
}

// Sink получатель событий. Emit не должен блокироваться надолго:
// его вызывают из циклов контроллеров.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc адаптер обычной функции к Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Multi раздаёт событие нескольким получателям по порядку.
type Multi []Sink

func (m Multi) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// Discard игнорирует все события.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink пишет каждое событие в лог.
type LogSink struct {
	logger *zap.SugaredLogger
}

func NewLogSink(logger *zap.SugaredLogger) *LogSink { return &LogSink{logger: logger} }

func (l *LogSink) Emit(ev Event) {
	switch ev.Type {
	case PageChanged, DocumentLoaded:
		l.logger.Infow("Page changed", "event", ev.Type, "page", ev.Page, "total", ev.TotalPages, "seq", ev.Seq)
	case ZoomChanged:
		l.logger.Infow("Zoom changed", "zoom", ev.Zoom, "seq", ev.Seq)
	case ModalityChanged:
		l.logger.Infow("Modality changed", "modality", ev.Modality, "active", ev.Active)
	default:
		l.logger.Debugw("Event", "event", ev)
	}
}
