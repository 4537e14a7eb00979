package handy

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable платформенный слушатель буфера и хоткея недоступен (не Windows).
var ErrUnavailable = errors.New("handy: windows listener unavailable on this platform")

// EventType описывает типы событий, публикуемых сервисом.
type EventType int

const (
	EventClipboardChanged EventType = iota + 1
	EventCtrlEnter
	EventHandyFinalText
)

// Event универсальное событие сервиса Handy STT.
type Event struct {
	Type EventType
	Text string
	At   time.Time
}

// Service минимальный интерфейс сервиса Handy STT.
type Service interface {
	Run(ctx context.Context) error
	Events() <-chan Event
}

const (
	defaultHotkeyID    = 1
	defaultWindowClass = "HandsFreeReaderHandyWindow"
)

// Config параметры связывания буфера и хоткея и платформенного слушателя.
type Config struct {
	// Окно времени для связывания буфера и Ctrl+Enter
	HandyWindow time.Duration
	// Задержка реакции на Ctrl+Enter перед определением финального текста
	HotkeyDelay time.Duration
	// Идентификатор глобального хоткея Ctrl+Enter в RegisterHotKey
	HotkeyID int32
	// Класс скрытого окна, которое получает WM_CLIPBOARDUPDATE и WM_HOTKEY
	WindowClass string
}

func (c Config) withDefaults() Config {
	if c.HandyWindow <= 0 {
		c.HandyWindow = time.Second
	}
	if c.HotkeyDelay < 0 {
		c.HotkeyDelay = 0
	}
	if c.HotkeyID <= 0 {
		c.HotkeyID = defaultHotkeyID
	}
	if c.WindowClass == "" {
		c.WindowClass = defaultWindowClass
	}
	return c
}

// New создаёт сервис поверх платформенного слушателя. На не-Windows возвращает ErrUnavailable.
func New(cfg Config) (Service, error) {
	cfg = cfg.withDefaults()
	wl, err := newWinListener(cfg)
	if err != nil {
		return nil, err
	}
	return newCoordinator(cfg, wl), nil
}

func newCoordinator(cfg Config, wl winListener) *coordinator {
	cfg = cfg.withDefaults()
	return &coordinator{
		cfg:      cfg,
		wl:       wl,
		out:      make(chan Event, 64),
		clipIn:   make(chan Event, 64),
		hotkeyIn: make(chan Event, 64),
	}
}
