package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"HandsFreeReader/internal/config"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// ErrEmptyAudio клип без данных не отправляется в API.
var ErrEmptyAudio = errors.New("whisper: empty audio")

// Client распознаёт короткие голосовые клипы через OpenAI Audio Transcriptions.
type Client struct {
	api      *openai.Client
	model    string
	language string
	logger   *zap.SugaredLogger
}

func New(api *openai.Client, cfg config.WhisperConfig, logger *zap.SugaredLogger) *Client {
	model := cfg.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &Client{api: api, model: model, language: cfg.Language, logger: logger}
}

// Transcribe возвращает распознанный текст клипа. filename нужен API для определения формата.
func (c *Client) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	if r == nil {
		return "", ErrEmptyAudio
	}
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(r, filename, contentType(filename)),
		Model: openai.AudioModel(c.model),
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	started := time.Now()
	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper: transcription failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	c.logger.Infow("Whisper transcription completed", "took", time.Since(started).String(), "file", filename, "text", text)
	return text, nil
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
