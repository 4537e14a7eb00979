package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/tts"
	"HandsFreeReader/internal/service/tts/player"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
)

var _ tts.Speaker = (*Client)(nil)

// Client озвучивает ответы через Google Cloud Text-to-Speech и проигрывает MP3.
// SDK-клиент создаётся лениво при первом ответе и живёт до Close.
type Client struct {
	cfg    config.GoogleTTSConfig
	player player.Player
	logger *zap.SugaredLogger

	mu  sync.Mutex
	sdk *gctts.Client
}

func New(cfg config.GoogleTTSConfig, p player.Player, logger *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, player: p, logger: logger}
}

// Speak синтезирует text и проигрывает результат.
func (c *Client) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return err
	}

	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: c.cfg.Language,
			Name:         c.cfg.Voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  c.cfg.SpeakingRate,
			Pitch:         c.cfg.Pitch,
			VolumeGainDb:  c.cfg.VolumeGainDb,
		},
	}
	started := time.Now()
	resp, err := sdk.SynthesizeSpeech(ctx, req)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Debugw("Google TTS synthesize completed", "took", time.Since(started).String(), "chars", len(text))
	}
	if len(resp.GetAudioContent()) == 0 {
		return errors.New("google tts: empty audio content")
	}
	return c.player.Play(ctx, "mp3", io.NopCloser(bytes.NewReader(resp.GetAudioContent())))
}

func (c *Client) client(ctx context.Context) (*gctts.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}
	sdk, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	c.sdk = sdk
	return sdk, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk == nil {
		return nil
	}
	err := c.sdk.Close()
	c.sdk = nil
	return err
}
