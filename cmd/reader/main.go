package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"HandsFreeReader/internal/app/control"
	"HandsFreeReader/internal/app/supervisor"
	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/events"
	"HandsFreeReader/internal/service/events/ws"
	"HandsFreeReader/internal/service/gaze"
	"HandsFreeReader/internal/service/hand"
	"HandsFreeReader/internal/service/landmark"
	"HandsFreeReader/internal/service/navigation"
	"HandsFreeReader/internal/service/notify"
	"HandsFreeReader/internal/service/stt/handy"
	"HandsFreeReader/internal/service/stt/whisper"
	"HandsFreeReader/internal/service/tts"
	"HandsFreeReader/internal/service/tts/gemini"
	"HandsFreeReader/internal/service/tts/google"
	"HandsFreeReader/internal/service/tts/player"
	"HandsFreeReader/internal/service/tts/yandex"
	"HandsFreeReader/internal/service/voice"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sugar.Infow(
		"Starting reader",
		"DebugMode", cfg.DebugMode,
		"BindAddr", cfg.BindAddr,
		"VoiceSource", cfg.Voice.Source,
		"ReplayFile", cfg.Landmark.ReplayFile,
	)

	ply := player.NewWithVolume(cfg.GoogleTTS.VolumeGainDb)

	// Получатели событий. Hub нужен снимку состояния, поэтому state создаётся позже
	// и подставляется через замыкание.
	var state *navigation.State
	hub := ws.NewHub(sugar, func() events.Event {
		snap := state.Snapshot()
		ev := events.Event{Type: events.Snapshot, TotalPages: snap.Total, Zoom: snap.Zoom}
		if snap.Total > 0 {
			ev.Page = snap.Page + 1
		}
		return ev
	})
	sinks := events.Multi{events.NewLogSink(sugar), hub}
	if cfg.ChimeEnabled {
		chime, err := notify.NewChime(ctx, sugar, cfg.ChimeSoundPath, ply)
		if err != nil {
			sugar.Warnw("Page chime disabled", "error", err)
		} else {
			sinks = append(sinks, chime)
		}
	}
	state = navigation.New(sinks)
	sup := supervisor.New(sinks, cfg.StopTimeout, sugar)

	// Кадры: живой поток от детектора или запись.
	feed := landmark.NewFeed(cfg.Landmark.FrameWait)
	source := func() landmark.Source {
		if cfg.Landmark.ReplayFile != "" {
			return landmark.NewReplay(cfg.Landmark.ReplayFile, cfg.Landmark.ReplayFPS)
		}
		return feed
	}
	sup.Register(supervisor.Gaze, gaze.NewController(cfg.Gaze, source(), state, sugar.Named("gaze")))
	sup.Register(supervisor.Hand, hand.NewController(cfg.Hand, source(), state, sugar.Named("hand")))

	// Голос
	queue := voice.NewQueue(cfg.Voice.QueueMax, cfg.Voice.ListenTimeout)
	var rec voice.Recognizer
	httpVoice := false
	switch strings.ToLower(strings.TrimSpace(cfg.Voice.Source)) {
	case "stdin":
		rec = voice.NewLineReader(os.Stdin)
	case "handy":
		hcfg := handy.Config{
			HandyWindow: cfg.Voice.HandyWindow,
			HotkeyDelay: cfg.Voice.HotkeyDelay,
			HotkeyID:    int32(cfg.Voice.HotkeyID),
			WindowClass: cfg.Voice.HandyWindowClass,
		}
		rec = handy.NewRecognizer(hcfg, cfg.Voice.ListenTimeout, sugar.Named("handy"))
	default:
		rec, httpVoice = queue, true
	}
	var speaker tts.Speaker
	if cfg.Voice.SpeakReplies {
		switch cfg.TTSService {
		case "yandex":
			speaker = yandex.New(cfg.YandexTTS, ply, sugar.Named("tts"))
		case "gemini":
			speaker = gemini.New(cfg.GeminiTTS, ply, sugar.Named("tts"))
		default:
			gtts := google.New(cfg.GoogleTTS, ply, sugar.Named("tts"))
			defer func() {
				if err := gtts.Close(); err != nil {
					sugar.Warnw("Failed to close TTS client", "error", err)
				}
			}()
			speaker = gtts
		}
		sugar.Infow("Voice replies enabled", "service", cfg.TTSService)
	}
	sup.Register(supervisor.Voice, voice.NewController(rec, state, speaker, cfg.Voice.ZoomStep, sugar.Named("voice")))

	deps := control.Deps{
		Nav:        state,
		Modalities: sup,
		Events:     hub,
		Landmarks:  ws.NewIngest(feed, sugar.Named("ingest")),
	}
	if httpVoice {
		deps.Utterances = queue
	}
	if cfg.Whisper.Enabled && httpVoice {
		// создаём реального клиента OpenAI (использует переменные окружения, напр. OPENAI_API_KEY)
		oClient := openai.NewClient()
		deps.Transcriber = whisper.New(&oClient, cfg.Whisper, sugar.Named("whisper"))
	}

	srv := control.New(cfg.BindAddr, deps, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Fatalw("Failed to start control server", "error", err)
	}

	<-ctx.Done()
	sugar.Infow("Shutting down", "reason", context.Cause(ctx))

	if err := sup.Stop(); err != nil {
		sugar.Warnw("Controller stop failed", "error", err)
	}
	feed.Shutdown()
	hub.Close()
	if err := srv.Stop(context.Background()); err != nil {
		sugar.Warnw("Control server stop failed", "error", err)
	}
	st := feed.Stats()
	sugar.Infow("Reader stopped", "frames_published", st.Published, "frames_dropped", st.Dropped, "utterances_dropped", queue.Dropped())
}

// newLogger в режиме дебага: человекочитаемый вывод с Debug уровнем.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
