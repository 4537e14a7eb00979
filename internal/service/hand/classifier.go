package hand

import (
	"math"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/landmark"
	"HandsFreeReader/internal/service/navigation"
)

// Mode режим взаимодействия рукой.
type Mode string

const (
	ModeNone Mode = "none"
	ModeZoom Mode = "zoom" // щипок большой+указательный
	ModeTurn Mode = "turn" // сведены указательный+средний, свайп листает
)

// Action зафиксированное действие жеста.
type Action string

const (
	ActionNone     Action = ""
	ActionNextPage Action = "next_page"
	ActionPrevPage Action = "previous_page"
	ActionZoomOut  Action = "zoom_out" // пальцы разошлись: +шаг
	ActionZoomIn   Action = "zoom_in"  // пальцы сошлись: -шаг
)

// Индексы точек hand landmarks.
const (
	ThumbTip  = 4
	IndexTip  = 8
	MiddleTip = 12
)

// Navigator часть состояния навигации, которой пользуется классификатор.
type Navigator interface {
	Move(resolve func(current, total int) int) navigation.Move
	StepZoom(delta int) int
}

// Result итог одного кадра.
type Result struct {
	Mode        Mode
	ModeChanged bool
	Action      Action
	Move        navigation.Move
	Zoom        int // итоговый масштаб, если Action: масштаб
	ThumbIndex  float64
	IndexMiddle float64
}

type point struct{ x, y float64 }

func dist(a, b point) float64 { return math.Hypot(a.x-b.x, a.y-b.y) }

func mid(a, b point) point { return point{(a.x + b.x) / 2, (a.y + b.y) / 2} }

// Classifier режимы с гистерезисом: пороги входа в Zoom/Turn отличаются от порога
// открытой ладони, а промежуточные значения режим не меняют.
type Classifier struct {
	cfg config.HandConfig

	mode Mode

	anchor    point // Turn: опорная точка свайпа
	hasAnchor bool
	lastTurn  time.Time

	baseline    float64 // Zoom: дистанция щипка при входе в режим
	hasBaseline bool
	zoomDir     Action
	zoomArmed   time.Time // начало паузы после (пере)взвода жеста
	lastZoom    time.Time
}

// New создаёт классификатор; нулевые поля cfg берутся из config.Defaults().
func New(cfg config.HandConfig) *Classifier {
	def := config.Defaults().Hand
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fillDur := func(v *time.Duration, d time.Duration) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&cfg.ZoomPinch, def.ZoomPinch)
	fill(&cfg.ZoomSpread, def.ZoomSpread)
	fill(&cfg.TurnPinch, def.TurnPinch)
	fill(&cfg.TurnSpread, def.TurnSpread)
	fill(&cfg.NeutralSpread, def.NeutralSpread)
	fill(&cfg.TurnThreshold, def.TurnThreshold)
	fill(&cfg.MaxVerticalDrift, def.MaxVerticalDrift)
	fill(&cfg.ZoomSensitivity, def.ZoomSensitivity)
	fillDur(&cfg.TurnCooldown, def.TurnCooldown)
	fillDur(&cfg.ZoomCooldown, def.ZoomCooldown)
	fillDur(&cfg.ZoomRelax, def.ZoomRelax)
	if cfg.ZoomStep <= 0 {
		cfg.ZoomStep = def.ZoomStep
	}
	return &Classifier{cfg: cfg, mode: ModeNone}
}

func (c *Classifier) Mode() Mode { return c.mode }

// Process один кадр руки. Кадр без нужных точек считается нейтральным сэмплом, режим и якоря не меняются.
func (c *Classifier) Process(f landmark.Frame, now time.Time, nav Navigator) Result {
	thumb, ok1 := pixel(f, ThumbTip)
	index, ok2 := pixel(f, IndexTip)
	middle, ok3 := pixel(f, MiddleTip)
	if !ok1 || !ok2 || !ok3 {
		return Result{Mode: c.mode}
	}

	dTI := dist(thumb, index)
	dIM := dist(index, middle)
	r := Result{ThumbIndex: dTI, IndexMiddle: dIM}

	prev := c.mode
	c.transition(dTI, dIM, mid(index, middle), now)
	r.Mode = c.mode
	r.ModeChanged = c.mode != prev

	switch {
	case c.mode == ModeTurn && c.hasAnchor:
		c.turn(mid(index, middle), now, nav, &r)
	case c.mode == ModeZoom && c.hasBaseline:
		c.zoom(dTI, now, nav, &r)
	}
	return r
}

// transition проверяет смену режима один раз за кадр.
func (c *Classifier) transition(dTI, dIM float64, fingers point, now time.Time) {
	switch {
	case dTI < c.cfg.ZoomPinch && dIM > c.cfg.ZoomSpread:
		if c.mode != ModeZoom {
			c.mode = ModeZoom
			c.baseline, c.hasBaseline = dTI, true
			c.zoomDir = ActionNone
			c.zoomArmed = now
			c.hasAnchor = false
		}
	case dIM < c.cfg.TurnPinch && dTI > c.cfg.TurnSpread:
		if c.mode != ModeTurn {
			c.mode = ModeTurn
			c.anchor, c.hasAnchor = fingers, true
			c.hasBaseline = false
			c.zoomDir = ActionNone
		}
	case dTI > c.cfg.NeutralSpread && dIM > c.cfg.NeutralSpread:
		c.resetMode()
	}
}

// turn свайп по горизонтали: влево на следующую, вправо на предыдущую.
// После пересечения порога якорь переносится в текущую точку, чтобы один длинный
// свайп не листал больше одной страницы за пересечение.
func (c *Classifier) turn(cur point, now time.Time, nav Navigator, r *Result) {
	dx, dy := cur.x-c.anchor.x, cur.y-c.anchor.y
	if math.Abs(dy) > c.cfg.MaxVerticalDrift {
		return
	}
	if !c.lastTurn.IsZero() && now.Sub(c.lastTurn) < c.cfg.TurnCooldown {
		return
	}
	switch {
	case dx <= -c.cfg.TurnThreshold:
		r.Action = ActionNextPage
		r.Move = nav.Move(navigation.Next)
	case dx >= c.cfg.TurnThreshold:
		r.Action = ActionPrevPage
		r.Move = nav.Move(navigation.Previous)
	default:
		return
	}
	c.anchor = cur
	if r.Move.Changed {
		c.lastTurn = now
	}
}

// zoom отношение текущего щипка к базовому; повтор того же направления
// возможен только после противоположного.
func (c *Classifier) zoom(cur float64, now time.Time, nav Navigator, r *Result) {
	if !c.zoomArmed.IsZero() && now.Sub(c.zoomArmed) < c.cfg.ZoomRelax {
		return
	}
	if !c.lastZoom.IsZero() && now.Sub(c.lastZoom) < c.cfg.ZoomCooldown {
		return
	}
	ratio := (cur - c.baseline) / max(c.baseline, 1)
	var delta int
	switch {
	case ratio > c.cfg.ZoomSensitivity && c.zoomDir != ActionZoomOut:
		r.Action, delta = ActionZoomOut, c.cfg.ZoomStep
	case ratio < -c.cfg.ZoomSensitivity && c.zoomDir != ActionZoomIn:
		r.Action, delta = ActionZoomIn, -c.cfg.ZoomStep
	default:
		// мёртвая зона или повтор направления
		return
	}
	r.Zoom = nav.StepZoom(delta)
	c.zoomDir = r.Action
	c.lastZoom = now
	c.zoomArmed = now
}

func (c *Classifier) resetMode() {
	c.mode = ModeNone
	c.hasAnchor = false
	c.hasBaseline = false
	c.zoomDir = ActionNone
	c.zoomArmed = time.Time{}
}

// Reset полный сброс, включая кулдауны (новый запуск контроллера).
func (c *Classifier) Reset() {
	c.resetMode()
	c.lastTurn = time.Time{}
	c.lastZoom = time.Time{}
}

func pixel(f landmark.Frame, i int) (point, bool) {
	x, y, ok := f.Pixel(i)
	return point{x, y}, ok
}
