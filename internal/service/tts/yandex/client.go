package yandex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/tts"
	"HandsFreeReader/internal/service/tts/player"

	"go.uber.org/zap"
)

const defaultEndpoint = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"

var _ tts.Speaker = (*Client)(nil)

// Client озвучивает ответы через Yandex SpeechKit и воспроизводит результат.
type Client struct {
	cfg    config.YandexTTSConfig
	http   *http.Client
	player player.Player
	logger *zap.SugaredLogger
}

func New(cfg config.YandexTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: 15 * time.Second}, player: p, logger: logger}
}

// Speak синтезирует text и проигрывает его. Проигрываются форматы mp3 и wav.
func (c *Client) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("yandex tts: empty API key (set YC_TTS_API_KEY in .env/ENV or pass via flag)")
	}
	format := strings.ToLower(c.cfg.Format)

	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", c.cfg.Voice)
	form.Set("format", format)
	form.Set("speed", c.cfg.Speed)
	if e := strings.ToLower(strings.TrimSpace(c.cfg.Emotion)); e != "" {
		form.Set("emotion", e)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Api-Key "+c.cfg.APIKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yandex tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return fmt.Errorf("yandex tts error: status=%d, body=%s", resp.StatusCode, bytes.TrimSpace(b))
	}
	c.logger.Debugw("Yandex TTS synthesize completed", "took", time.Since(started).String(), "chars", len(text))

	return c.player.Play(ctx, format, resp.Body)
}
