package landmark

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Ensure interface compliance
var _ Source = (*Replay)(nil)

// Replay читает записанные кадры из JSONL файла (один Frame на строку).
// По концу файла Next возвращает io.EOF, если не включён Loop.
type Replay struct {
	path string
	fps  int
	Loop bool

	f      *os.File
	sc     *bufio.Scanner
	line   int
	lastAt time.Time
}

// NewReplay создаёт источник записи. fps=0: без пауз между кадрами.
func NewReplay(path string, fps int) *Replay {
	return &Replay{path: path, fps: max(0, fps)}
}

func (r *Replay) Open(_ context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("landmark replay: не удалось открыть запись: %w", err)
	}
	r.f = f
	r.reset()
	return nil
}

func (r *Replay) reset() {
	r.sc = bufio.NewScanner(r.f)
	r.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	r.line = 0
}

func (r *Replay) Next(ctx context.Context) (Frame, bool, error) {
	if r.sc == nil {
		return Frame{}, false, ErrFeedClosed
	}
	if err := r.pace(ctx); err != nil {
		return Frame{}, false, err
	}
	for {
		if !r.sc.Scan() {
			// ошибка сканера повторяется на каждом Scan, продолжать чтение бессмысленно
			if err := r.sc.Err(); err != nil {
				return Frame{}, false, fmt.Errorf("%w: строка %d: %w", ErrSourceBroken, r.line+1, err)
			}
			if !r.Loop {
				return Frame{}, false, io.EOF
			}
			if _, err := r.f.Seek(0, io.SeekStart); err != nil {
				return Frame{}, false, err
			}
			r.reset()
			continue
		}
		r.line++
		b := r.sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var fr Frame
		if err := json.Unmarshal(b, &fr); err != nil {
			return Frame{}, false, fmt.Errorf("landmark replay: строка %d: %w", r.line, err)
		}
		return fr, true, nil
	}
}

// pace выдерживает интервал между кадрами согласно fps.
func (r *Replay) pace(ctx context.Context) error {
	if r.fps <= 0 {
		return nil
	}
	interval := time.Second / time.Duration(r.fps)
	if !r.lastAt.IsZero() {
		if d := interval - time.Since(r.lastAt); d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return context.Cause(ctx)
			case <-t.C:
			}
		}
	}
	r.lastAt = time.Now()
	return nil
}

func (r *Replay) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	r.sc = nil
	return err
}
