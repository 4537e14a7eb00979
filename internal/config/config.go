package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode   bool          `env:"DEBUG_MODE"`     //Режим дебага
	BindAddr    string        `env:"HTTP_BIND_ADDR"` // Адрес HTTP сервера управления, напр. 127.0.0.1:5000
	StopTimeout time.Duration `env:"STOP_TIMEOUT"`   // Сколько ждать завершения цикла контроллера при остановке

	Gaze     GazeConfig
	Hand     HandConfig
	Landmark LandmarkConfig
	Voice    VoiceConfig
	Whisper  WhisperConfig

	// Озвучивание ответов голосового ассистента
	TTSService string `env:"TTS_SERVICE"` // google|gemini|yandex
	GoogleTTS  GoogleTTSConfig
	GeminiTTS  GeminiTTSConfig
	YandexTTS  YandexTTSConfig

	// Звук перелистывания страницы
	ChimeEnabled   bool   `env:"CHIME_ENABLED"`
	ChimeSoundPath string `env:"CHIME_SOUND_PATH"`
}

// GazeConfig пороги и тайминги классификатора направления взгляда.
type GazeConfig struct {
	HorizontalThreshold float64       `env:"GAZE_HORIZONTAL_THRESHOLD"` // |dx| в пикселях для Left/Right
	UpThreshold         float64       `env:"GAZE_UP_THRESHOLD"`         // dy < -UpThreshold → Up
	DownThreshold       float64       `env:"GAZE_DOWN_THRESHOLD"`       // dy > DownThreshold → Down
	WindowSize          int           `env:"GAZE_WINDOW_SIZE"`          // Ёмкость кольцевого буфера сырых направлений
	MajorityOf          int           `env:"GAZE_MAJORITY_OF"`          // По скольким последним сэмплам считается большинство
	Dwell               time.Duration `env:"GAZE_DWELL"`                // Сколько должно держаться стабильное направление
	Cooldown            time.Duration `env:"GAZE_COOLDOWN"`             // Минимум между двумя действиями
}

// HandConfig пороги режимов жестов (в пикселях кадра) и тайминги.
type HandConfig struct {
	ZoomPinch        float64       `env:"HAND_ZOOM_PINCH"`         // dTI < ZoomPinch ...
	ZoomSpread       float64       `env:"HAND_ZOOM_SPREAD"`        // ... и dIM > ZoomSpread → Zoom
	TurnPinch        float64       `env:"HAND_TURN_PINCH"`         // dIM < TurnPinch ...
	TurnSpread       float64       `env:"HAND_TURN_SPREAD"`        // ... и dTI > TurnSpread → Turn
	NeutralSpread    float64       `env:"HAND_NEUTRAL_SPREAD"`     // обе дистанции больше → открытая ладонь
	TurnThreshold    float64       `env:"HAND_TURN_THRESHOLD"`     // горизонтальный свайп для перелистывания
	MaxVerticalDrift float64       `env:"HAND_MAX_VERTICAL_DRIFT"` // свайпы с большим дрейфом игнорируются
	TurnCooldown     time.Duration `env:"HAND_TURN_COOLDOWN"`
	ZoomSensitivity  float64       `env:"HAND_ZOOM_SENSITIVITY"` // мёртвая зона отношения щипка
	ZoomCooldown     time.Duration `env:"HAND_ZOOM_COOLDOWN"`
	ZoomRelax        time.Duration `env:"HAND_ZOOM_RELAX"` // пауза после (пере)взвода жеста масштаба
	ZoomStep         int           `env:"HAND_ZOOM_STEP"`
}

// LandmarkConfig источник кадров с ключевыми точками.
type LandmarkConfig struct {
	FrameWait  time.Duration `env:"LANDMARK_FRAME_WAIT"`  // Максимальное ожидание кадра за одну итерацию цикла
	ReplayFile string        `env:"LANDMARK_REPLAY_FILE"` // JSONL запись кадров; если задан: вместо websocket
	ReplayFPS  int           `env:"LANDMARK_REPLAY_FPS"`  // 0: без пауз
}

// VoiceConfig голосовой/текстовый ввод команд.
type VoiceConfig struct {
	Source           string        `env:"VOICE_SOURCE"`         // stdin|http|handy
	ListenTimeout    time.Duration `env:"VOICE_LISTEN_TIMEOUT"` // Тишина дольше: пустая реплика
	QueueMax         int           `env:"VOICE_QUEUE_MAX"`      // Максимум непрочитанных реплик из HTTP
	SpeakReplies     bool          `env:"VOICE_SPEAK_REPLIES"`  // Озвучивать ответы через TTS_SERVICE
	ZoomStep         int           `env:"VOICE_ZOOM_STEP"`
	HandyWindow      time.Duration `env:"STT_HANDY_WINDOW"`       // Окно совпадения буфера и хоткея
	HotkeyDelay      time.Duration `env:"STT_HOTKEY_DELAY"`       // Задержка реакции на Ctrl+Enter
	HotkeyID         int           `env:"STT_HOTKEY_ID"`          // id глобального хоткея Ctrl+Enter
	HandyWindowClass string        `env:"STT_HANDY_WINDOW_CLASS"` // Класс скрытого окна слушателя
}

// WhisperConfig распознавание загруженных аудиоклипов через OpenAI.
// Ключ читается клиентом из OPENAI_API_KEY.
type WhisperConfig struct {
	Enabled  bool   `env:"WHISPER_ENABLED"`
	Model    string `env:"WHISPER_MODEL"`
	Language string `env:"WHISPER_LANGUAGE"`
}

// GoogleTTSConfig конфигурация для синтеза речи через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	// Путь к файлу ключа сервисного аккаунта. Фактически читается из ENV GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
	Pitch           float64 `env:"GOOGLE_TTS_PITCH"`
	VolumeGainDb    float64 `env:"GOOGLE_TTS_VOLUME_DB"`
}

// GeminiTTSConfig синтез через Cloud TTS с моделью Gemini-TTS (авторизация через ADC).
type GeminiTTSConfig struct {
	Endpoint     string  `env:"GEMINI_TTS_ENDPOINT"`
	ModelName    string  `env:"GEMINI_TTS_MODEL"`
	Language     string  `env:"GEMINI_TTS_LANGUAGE"`
	VoiceName    string  `env:"GEMINI_TTS_VOICE"`
	Prompt       string  `env:"GEMINI_TTS_PROMPT"` // манера речи
	SpeakingRate float64 `env:"GEMINI_TTS_SPEAKING_RATE"`
	Pitch        float64 `env:"GEMINI_TTS_PITCH"`
	VolumeGainDb float64 `env:"GEMINI_TTS_VOLUME_DB"`
}

// YandexTTSConfig конфигурация для синтеза речи через Yandex SpeechKit.
type YandexTTSConfig struct {
	Endpoint string `env:"YC_TTS_ENDPOINT"`
	APIKey   string `env:"YC_TTS_API_KEY"` // Ключ берём из .env/ENV. Если пуст: при использовании будет ошибка
	Voice    string `env:"YC_TTS_VOICE"`
	Format   string `env:"YC_TTS_FORMAT"` // mp3|wav
	Speed    string `env:"YC_TTS_SPEED"`
	Emotion  string `env:"YC_TTS_EMOTION"` // neutral|good|evil
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:   false,
		BindAddr:    "127.0.0.1:5000",
		StopTimeout: 3 * time.Second,
		Gaze: GazeConfig{
			HorizontalThreshold: 10,
			UpThreshold:         5,
			DownThreshold:       1,
			WindowSize:          10,
			MajorityOf:          5,
			Dwell:               1500 * time.Millisecond,
			Cooldown:            1500 * time.Millisecond,
		},
		Hand: HandConfig{
			ZoomPinch:        40,
			ZoomSpread:       55,
			TurnPinch:        35,
			TurnSpread:       50,
			NeutralSpread:    60,
			TurnThreshold:    70,
			MaxVerticalDrift: 60,
			TurnCooldown:     700 * time.Millisecond,
			ZoomSensitivity:  0.18,
			ZoomCooldown:     350 * time.Millisecond,
			ZoomRelax:        500 * time.Millisecond,
			ZoomStep:         25,
		},
		Landmark: LandmarkConfig{
			FrameWait: 200 * time.Millisecond,
			ReplayFPS: 30,
		},
		Voice: VoiceConfig{
			Source:        "http",
			ListenTimeout: 6 * time.Second,
			QueueMax:      10,
			SpeakReplies:  false,
			ZoomStep:      25,
			HandyWindow:   time.Second,
			HotkeyDelay:   100 * time.Millisecond,
			HotkeyID:      1,
		},
		Whisper: WhisperConfig{
			Enabled:  false,
			Model:    "whisper-1",
			Language: "en",
		},
		TTSService: "google",
		GoogleTTS: GoogleTTSConfig{
			CredentialsPath: "service-account.json",
			Language:        "en-US",
			Voice:           "en-US-Standard-C",
			SpeakingRate:    1.0,
		},
		GeminiTTS: GeminiTTSConfig{
			ModelName:    "gemini-2.5-flash-tts",
			Language:     "en-US",
			VoiceName:    "Kore",
			Prompt:       "Read short navigation replies in a calm, clear voice.",
			SpeakingRate: 1.0,
		},
		YandexTTS: YandexTTSConfig{
			APIKey:  "", // ключ берём из .env/ENV, если пусто, будет ошибка при использовании
			Voice:   "john",
			Format:  "mp3",
			Speed:   "1.0",
			Emotion: "",
		},
		ChimeEnabled:   false,
		ChimeSoundPath: "sound/page.mp3",
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (подробные логи классификаторов)")
	flag.StringVar(&cfg.BindAddr, "bind-addr", cfg.BindAddr, "адрес HTTP сервера управления")
	flag.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "ожидание завершения цикла контроллера при остановке, напр. 3s")
	// Взгляд
	flag.DurationVar(&cfg.Gaze.Dwell, "gaze-dwell", cfg.Gaze.Dwell, "время удержания направления взгляда до действия")
	flag.DurationVar(&cfg.Gaze.Cooldown, "gaze-cooldown", cfg.Gaze.Cooldown, "минимальный интервал между действиями взгляда")
	// Жесты
	flag.Float64Var(&cfg.Hand.TurnThreshold, "hand-turn-threshold", cfg.Hand.TurnThreshold, "длина свайпа в пикселях для перелистывания")
	flag.DurationVar(&cfg.Hand.TurnCooldown, "hand-turn-cooldown", cfg.Hand.TurnCooldown, "минимальный интервал между перелистываниями жестом")
	flag.Float64Var(&cfg.Hand.ZoomSensitivity, "hand-zoom-sensitivity", cfg.Hand.ZoomSensitivity, "порог относительного изменения щипка для масштаба")
	// Кадры
	flag.DurationVar(&cfg.Landmark.FrameWait, "frame-wait", cfg.Landmark.FrameWait, "максимальное ожидание кадра за итерацию")
	flag.StringVar(&cfg.Landmark.ReplayFile, "replay-file", cfg.Landmark.ReplayFile, "JSONL файл с записанными кадрами вместо websocket")
	flag.IntVar(&cfg.Landmark.ReplayFPS, "replay-fps", cfg.Landmark.ReplayFPS, "скорость воспроизведения записи (0: без пауз)")
	// Голос
	flag.StringVar(&cfg.Voice.Source, "voice-source", cfg.Voice.Source, "источник голосовых команд: stdin|http|handy")
	flag.DurationVar(&cfg.Voice.ListenTimeout, "voice-listen-timeout", cfg.Voice.ListenTimeout, "тишина дольше считается пустой репликой")
	flag.IntVar(&cfg.Voice.QueueMax, "voice-queue-max", cfg.Voice.QueueMax, "максимум непрочитанных реплик")
	flag.BoolVar(&cfg.Voice.SpeakReplies, "voice-speak-replies", cfg.Voice.SpeakReplies, "озвучивать ответы ассистента (сервис выбирается -tts-service)")
	flag.DurationVar(&cfg.Voice.HandyWindow, "stt-handy-window", cfg.Voice.HandyWindow, "окно времени (Handy) для совпадения буфера и хоткея, напр. 1s")
	flag.DurationVar(&cfg.Voice.HotkeyDelay, "stt-hotkey-delay", cfg.Voice.HotkeyDelay, "задержка реакции на Ctrl+Enter перед фиксацией текста, напр. 100ms")
	flag.IntVar(&cfg.Voice.HotkeyID, "stt-hotkey-id", cfg.Voice.HotkeyID, "id глобального хоткея Ctrl+Enter (сменить, если занят другим экземпляром)")
	// Whisper
	flag.BoolVar(&cfg.Whisper.Enabled, "whisper-enabled", cfg.Whisper.Enabled, "распознавать загруженные аудиоклипы через OpenAI Whisper")
	flag.StringVar(&cfg.Whisper.Model, "whisper-model", cfg.Whisper.Model, "модель распознавания")
	flag.StringVar(&cfg.Whisper.Language, "whisper-language", cfg.Whisper.Language, "язык распознавания (ISO-639-1)")
	// Синтез речи
	flag.StringVar(&cfg.TTSService, "tts-service", cfg.TTSService, "сервис озвучивания ответов: google|gemini|yandex")
	flag.StringVar(&cfg.GeminiTTS.Prompt, "gemini-tts-prompt", cfg.GeminiTTS.Prompt, "промпт манеры речи для Gemini-TTS")
	flag.StringVar(&cfg.YandexTTS.APIKey, "yc-tts-api-key", cfg.YandexTTS.APIKey, "API ключ Yandex SpeechKit TTS (перекрывает ENV)")
	flag.StringVar(&cfg.YandexTTS.Voice, "yc-tts-voice", cfg.YandexTTS.Voice, "голос Yandex SpeechKit, напр. john")
	flag.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json (также читается из ENV GOOGLE_APPLICATION_CREDENTIALS)")
	flag.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "язык синтеза, напр. en-US")
	flag.StringVar(&cfg.GoogleTTS.Voice, "google-tts-voice", cfg.GoogleTTS.Voice, "имя голоса, напр. en-US-Standard-C")
	flag.Float64Var(&cfg.GoogleTTS.SpeakingRate, "google-tts-speaking-rate", cfg.GoogleTTS.SpeakingRate, "скорость речи (1.0 по умолчанию)")
	// Звук
	flag.BoolVar(&cfg.ChimeEnabled, "chime-enabled", cfg.ChimeEnabled, "проигрывать звук при смене страницы")
	flag.StringVar(&cfg.ChimeSoundPath, "chime-sound-path", cfg.ChimeSoundPath, "путь к звуку перелистывания (mp3 или wav)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	// Google и Gemini TTS нужен cred-файл. Если ENV пуст, но в конфиге указан путь: устанавливаем ENV.
	if cfg.Voice.SpeakReplies && cfg.TTSService != "yandex" {
		cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if cred == "" {
			if cp := strings.TrimSpace(cfg.GoogleTTS.CredentialsPath); cp != "" {
				_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
				cred = cp
			}
		}
		if _, err := os.Stat(cred); err != nil {
			panic(fmt.Errorf("google tts: файл ключа не найден: %s", cred))
		}
	}

	return cfg
}

// Validate проверяет несовместимые значения, которые нельзя молча поправить.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Voice.Source)) {
	case "stdin", "http", "handy":
	default:
		return fmt.Errorf("config: неизвестный источник голоса %q (ожидается stdin|http|handy)", c.Voice.Source)
	}
	c.TTSService = strings.ToLower(strings.TrimSpace(c.TTSService))
	switch c.TTSService {
	case "google", "gemini", "yandex":
	default:
		return fmt.Errorf("config: неизвестный сервис TTS %q (ожидается google|gemini|yandex)", c.TTSService)
	}
	if c.Gaze.MajorityOf > c.Gaze.WindowSize {
		return fmt.Errorf("config: GAZE_MAJORITY_OF (%d) больше GAZE_WINDOW_SIZE (%d)", c.Gaze.MajorityOf, c.Gaze.WindowSize)
	}
	if c.Hand.NeutralSpread <= c.Hand.ZoomPinch || c.Hand.NeutralSpread <= c.Hand.TurnPinch {
		return fmt.Errorf("config: порог открытой ладони (%v) должен быть больше порогов щипка", c.Hand.NeutralSpread)
	}
	return nil
}
