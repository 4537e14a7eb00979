package landmark

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// Пауза после подряд идущих ошибок чтения: удваивается от readBackoffMin до readBackoffMax.
const (
	readBackoffMin = 50 * time.Millisecond
	readBackoffMax = time.Second
)

// Pump крутит цикл "один кадр: один шаг" до отмены ctx или конца записи.
// Отмена проверяется сразу после возврата блокирующего Next, поэтому кадр,
// прочитанный уже после остановки, не применяется к состоянию.
// Кадры без точек передаются в step как нейтральные сэмплы; итерации без кадра пропускаются.
// io.EOF завершает цикл без ошибки, ErrFeedClosed и ErrSourceBroken возвращаются как есть.
func Pump(ctx context.Context, src Source, logger *zap.SugaredLogger, step func(f Frame, now time.Time)) error {
	return pump(ctx, src, logger, step, readBackoffMin, readBackoffMax)
}

func pump(ctx context.Context, src Source, logger *zap.SugaredLogger, step func(f Frame, now time.Time), minWait, maxWait time.Duration) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		fr, ok, err := src.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Infow("Landmark source exhausted")
				return nil
			case errors.Is(err, ErrFeedClosed), errors.Is(err, ErrSourceBroken):
				return err
			}
			failures++
			logger.Warnw("Failed to read landmark frame", "error", err, "failures", failures)
			if failures > 1 && !sleepCtx(ctx, backoff(failures-1, minWait, maxWait)) {
				return nil
			}
			continue
		}
		failures = 0
		if !ok {
			continue
		}
		step(fr, time.Now())
	}
}

// backoff пауза для n-й подряд ошибки (n с единицы).
func backoff(n int, minWait, maxWait time.Duration) time.Duration {
	d := minWait
	for i := 1; i < n && d < maxWait; i++ {
		d *= 2
	}
	return min(d, maxWait)
}

// sleepCtx ждёт d или отмены ctx. false, если ctx отменён.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
