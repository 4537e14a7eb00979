package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HandsFreeReader/internal/service/events"
	"HandsFreeReader/internal/service/navigation"
	"HandsFreeReader/internal/service/stt/handy"
	"HandsFreeReader/internal/service/tts"
	"HandsFreeReader/internal/service/voice"

	"go.uber.org/zap"
)

// Голосовой ассистент в терминале: команды печатаются с клавиатуры (или диктуются
// через Handy), документ существует только в памяти.
func main() {
	pages := flag.Int("pages", 10, "число страниц документа")
	source := flag.String("source", "stdin", "источник команд: stdin|handy")
	winDur := flag.Duration("window", time.Second, "окно времени для совпадения буфера и Ctrl+Enter (например, 1s)")
	hkDelay := flag.Duration("hotkey-delay", 100*time.Millisecond, "задержка реакции на Ctrl+Enter перед фиксацией текста (например, 500ms)")
	debug := flag.Bool("debug", false, "подробные логи")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	if !*debug {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), osInterruptSignals()...)
	defer stop()

	state := navigation.New(events.SinkFunc(func(ev events.Event) {
		switch ev.Type {
		case events.PageChanged:
			fmt.Printf("[страница %d/%d]\n", ev.Page, ev.TotalPages)
		case events.ZoomChanged:
			fmt.Printf("[масштаб %d%%]\n", ev.Zoom)
		}
	}))
	state.SetDocument(*pages)

	var rec voice.Recognizer
	switch *source {
	case "handy":
		rec = handy.NewRecognizer(handy.Config{HandyWindow: *winDur, HotkeyDelay: *hkDelay}, 6*time.Second, sugar)
	default:
		rec = voice.NewLineReader(os.Stdin)
	}
	// Ответы ассистента печатаются в консоль
	speaker := tts.SpeakerFunc(func(_ context.Context, text string) error {
		fmt.Println(text)
		return nil
	})

	ctrl := voice.NewController(rec, state, speaker, 25, sugar)
	if err := ctrl.Open(ctx); err != nil {
		fmt.Printf("Источник команд недоступен: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	fmt.Printf("Документ на %d страниц. Команды: next, previous, page N, zoom in, status, help, quit\n", *pages)
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, voice.ErrQuit) {
		fmt.Printf("Ассистент завершился с ошибкой: %v\n", err)
	}
}

func osInterruptSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
