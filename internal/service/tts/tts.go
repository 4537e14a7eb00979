package tts

import "context"

// Speaker произносит короткий ответ вслух. Вызов блокируется до конца воспроизведения.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc адаптер обычной функции к Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }
