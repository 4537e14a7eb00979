package gaze

import (
	"context"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/landmark"

	"go.uber.org/zap"
)

// Controller модальность "взгляд": кадры лица → классификатор → навигация.
type Controller struct {
	cls    *Classifier
	src    landmark.Source
	nav    Navigator
	logger *zap.SugaredLogger
}

func NewController(cfg config.GazeConfig, src landmark.Source, nav Navigator, logger *zap.SugaredLogger) *Controller {
	return &Controller{cls: New(cfg), src: src, nav: nav, logger: logger}
}

func (c *Controller) Open(ctx context.Context) error { return c.src.Open(ctx) }

func (c *Controller) Close() error { return c.src.Close() }

// Run блокируется до отмены ctx. Окно стабилизации живёт только в пределах одного запуска.
func (c *Controller) Run(ctx context.Context) error {
	c.cls.Reset()
	c.logger.Infow("Gaze controller running")
	defer c.logger.Infow("Gaze controller loop ended")
	return landmark.Pump(ctx, c.src, c.logger, c.step)
}

func (c *Controller) step(f landmark.Frame, now time.Time) {
	if f.Kind != "" && f.Kind != landmark.KindFace {
		f = landmark.Frame{}
	}
	prev := c.cls.Stable()
	r := c.cls.Process(f, now, c.nav)
	if r.Stable != prev {
		c.logger.Debugw("Gaze stabilized", "direction", r.Stable)
	}
	if r.Fire == "" {
		return
	}
	if r.Move.Changed {
		c.logger.Infow("Gaze action", "direction", r.Fire, "page", r.Move.To+1)
	} else {
		c.logger.Debugw("Gaze action without page change", "direction", r.Fire, "page", r.Move.From+1)
	}
}
