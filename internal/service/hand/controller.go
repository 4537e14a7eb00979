package hand

import (
	"context"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/landmark"

	"go.uber.org/zap"
)

// Controller модальность "жесты": кадры руки → классификатор → навигация и масштаб.
type Controller struct {
	cls    *Classifier
	src    landmark.Source
	nav    Navigator
	logger *zap.SugaredLogger
}

func NewController(cfg config.HandConfig, src landmark.Source, nav Navigator, logger *zap.SugaredLogger) *Controller {
	return &Controller{cls: New(cfg), src: src, nav: nav, logger: logger}
}

func (c *Controller) Open(ctx context.Context) error { return c.src.Open(ctx) }

func (c *Controller) Close() error { return c.src.Close() }

func (c *Controller) Run(ctx context.Context) error {
	c.cls.Reset()
	c.logger.Infow("Hand controller running")
	defer c.logger.Infow("Hand controller loop ended")
	return landmark.Pump(ctx, c.src, c.logger, c.step)
}

func (c *Controller) step(f landmark.Frame, now time.Time) {
	if f.Kind != "" && f.Kind != landmark.KindHand {
		return
	}
	r := c.cls.Process(f, now, c.nav)
	if r.ModeChanged {
		c.logger.Debugw("Hand mode", "mode", r.Mode, "thumb_index", r.ThumbIndex, "index_middle", r.IndexMiddle)
	}
	switch r.Action {
	case ActionNone:
	case ActionNextPage, ActionPrevPage:
		if r.Move.Changed {
			c.logger.Infow("Hand swipe", "action", r.Action, "page", r.Move.To+1)
		}
	default:
		c.logger.Infow("Hand zoom", "action", r.Action, "zoom", r.Zoom)
	}
}
