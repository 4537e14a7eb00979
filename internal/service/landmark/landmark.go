package landmark

import (
	"context"
	"errors"
)

// Kind вид детектора, который построил кадр.
type Kind string

const (
	KindFace Kind = "face"
	KindHand Kind = "hand"
)

var (
	// ErrFeedClosed источник закрыт и кадров больше не будет.
	ErrFeedClosed = errors.New("landmark: feed closed")
	// ErrSourceBroken источник сломан без возможности продолжить (например, слишком длинная строка записи).
	ErrSourceBroken = errors.New("landmark: source broken")
)

// Point нормализованные координаты ключевой точки (0..1 относительно кадра).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame один обработанный кадр: индекс точки → координаты, плюс размеры кадра в пикселях.
type Frame struct {
	Kind   Kind          `json:"kind"`
	Width  int           `json:"w"`
	Height int           `json:"h"`
	Points map[int]Point `json:"points"`
}

// Pixel переводит точку i в пиксели кадра. ok=false, если точки нет.
func (f Frame) Pixel(i int) (x, y float64, ok bool) {
	p, ok := f.Points[i]
	if !ok {
		return 0, 0, false
	}
	return p.X * float64(f.Width), p.Y * float64(f.Height), true
}

// Empty кадр без лица/руки: нейтральный сэмпл.
func (f Frame) Empty() bool { return len(f.Points) == 0 }

// Source поставщик кадров для одного контроллера.
type Source interface {
	// Open захватывает сенсор. Ошибка означает, что модальность не может стартовать.
	Open(ctx context.Context) error
	// Next блокируется до кадра, отмены ctx или внутреннего таймаута.
	// ok=false: кадра в этой итерации нет.
	Next(ctx context.Context) (f Frame, ok bool, err error)
	// Close освобождает сенсор.
	Close() error
}
