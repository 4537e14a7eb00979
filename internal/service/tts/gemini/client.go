package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/tts"
	"HandsFreeReader/internal/service/tts/player"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

// Cloud TTS v1beta1 text:synthesize, совместимый с Gemini-TTS.
const defaultEndpoint = "https://texttospeech.googleapis.com/v1beta1/text:synthesize"

var _ tts.Speaker = (*Client)(nil)

// Client озвучивает ответы через Cloud Text-to-Speech с моделью Gemini-TTS.
// Авторизация только через ADC (service account или metadata), API Key не используется.
type Client struct {
	cfg    config.GeminiTTSConfig
	player player.Player
	logger *zap.SugaredLogger

	// newHTTP создаёт авторизованный клиент; подменяется в тестах
	newHTTP func(ctx context.Context) (*http.Client, error)

	mu   sync.Mutex
	http *http.Client
}

func New(cfg config.GeminiTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Client{
		cfg:    cfg,
		player: p,
		logger: logger,
		newHTTP: func(ctx context.Context) (*http.Client, error) {
			return google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
		},
	}
}

type requestPayload struct {
	Input struct {
		Prompt string `json:"prompt,omitempty"`
		Text   string `json:"text,omitempty"`
	} `json:"input"`
	Voice struct {
		ModelName    string `json:"modelName,omitempty"`
		LanguageCode string `json:"languageCode,omitempty"`
		VoiceName    string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate,omitempty"`
		Pitch         float64 `json:"pitch,omitempty"`
		VolumeGainDb  float64 `json:"volumeGainDb,omitempty"`
	} `json:"audioConfig"`
}

type jsonAudioResponse struct {
	AudioContent string `json:"audioContent"`
}

// Speak синтезирует text в MP3 и проигрывает его.
func (c *Client) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var rp requestPayload
	rp.Input.Text = text
	// Промпт задаёт манеру речи, пустым не отправляем
	if p := strings.TrimSpace(c.cfg.Prompt); p != "" {
		rp.Input.Prompt = p
	}
	rp.Voice.ModelName = strings.TrimSpace(c.cfg.ModelName)
	rp.Voice.LanguageCode = strings.TrimSpace(c.cfg.Language)
	rp.Voice.VoiceName = strings.TrimSpace(c.cfg.VoiceName)
	rp.AudioConfig.AudioEncoding = "MP3"
	rp.AudioConfig.SpeakingRate = c.cfg.SpeakingRate
	rp.AudioConfig.Pitch = c.cfg.Pitch
	rp.AudioConfig.VolumeGainDb = c.cfg.VolumeGainDb

	body, err := json.Marshal(&rp)
	if err != nil {
		return err
	}

	httpClient, err := c.client(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini tts: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debugw("Gemini TTS request completed", "status", resp.StatusCode, "took", time.Since(started).String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return fmt.Errorf("gemini tts error: status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var jr jsonAudioResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)).Decode(&jr); err != nil {
		return fmt.Errorf("gemini tts: decode json response: %w", err)
	}
	if strings.TrimSpace(jr.AudioContent) == "" {
		return errors.New("gemini tts: empty audioContent in response")
	}
	data, err := base64.StdEncoding.DecodeString(jr.AudioContent)
	if err != nil {
		return fmt.Errorf("gemini tts: base64 decode: %w", err)
	}
	return c.player.Play(ctx, "mp3", io.NopCloser(bytes.NewReader(data)))
}

// client авторизованный HTTP клиент, создаётся один раз.
func (c *Client) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		return c.http, nil
	}
	hc, err := c.newHTTP(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: ADC credentials not found, set GOOGLE_APPLICATION_CREDENTIALS: %w", err)
	}
	c.http = hc
	return hc, nil
}
