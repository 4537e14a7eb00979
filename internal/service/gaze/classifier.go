package gaze

import (
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/landmark"
	"HandsFreeReader/internal/service/navigation"
)

// Direction дискретное направление взгляда.
type Direction string

const (
	Center Direction = "Center"
	Left   Direction = "Left"
	Right  Direction = "Right"
	Up     Direction = "Up"
	Down   Direction = "Down"
)

// Индексы точек face mesh с уточнёнными радужками.
var (
	LeftIris  = []int{474, 475, 476, 477}
	RightIris = []int{469, 470, 471, 472}
	LeftEye   = []int{33, 133}
	RightEye  = []int{362, 263}
)

// Navigator часть состояния навигации, которой пользуется классификатор.
type Navigator interface {
	Move(resolve func(current, total int) int) navigation.Move
}

// Decision итог одного кадра.
type Decision struct {
	Raw    Direction
	Stable Direction
	Fire   Direction // "": действия нет
}

// Result итог кадра вместе с применённым действием.
type Result struct {
	Decision
	Move navigation.Move
}

// Classifier превращает шумный поток направлений в редкие намеренные действия:
// окно сглаживания, большинство по последним сэмплам, удержание и общий кулдаун.
type Classifier struct {
	cfg config.GazeConfig

	window []Direction // кольцевой буфер сырых направлений
	head   int
	size   int

	stable     Direction
	dwellStart time.Time // ноль: таймер удержания сброшен
	lastAction time.Time
}

// New создаёт классификатор; нулевые поля cfg берутся из config.Defaults().
func New(cfg config.GazeConfig) *Classifier {
	def := config.Defaults().Gaze
	if cfg.HorizontalThreshold <= 0 {
		cfg.HorizontalThreshold = def.HorizontalThreshold
	}
	if cfg.UpThreshold <= 0 {
		cfg.UpThreshold = def.UpThreshold
	}
	if cfg.DownThreshold <= 0 {
		cfg.DownThreshold = def.DownThreshold
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MajorityOf <= 0 {
		cfg.MajorityOf = def.MajorityOf
	}
	cfg.MajorityOf = min(cfg.MajorityOf, cfg.WindowSize)
	if cfg.Dwell <= 0 {
		cfg.Dwell = def.Dwell
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Classifier{cfg: cfg, window: make([]Direction, cfg.WindowSize), stable: Center}
}

// Detect определяет сырое направление по одному кадру.
// Порядок проверок фиксирован: сначала горизонталь, потом вертикаль.
func (c *Classifier) Detect(f landmark.Frame) Direction {
	left, okL := irisCenter(f, LeftIris)
	right, okR := irisCenter(f, RightIris)
	if !okL || !okR {
		return Center
	}
	lc, okLC := midpoint(f, LeftEye)
	rc, okRC := midpoint(f, RightEye)
	if !okLC || !okRC {
		return Center
	}

	irisX, irisY := (left.x+right.x)/2, (left.y+right.y)/2
	midX, midY := (lc.x+rc.x)/2, (lc.y+rc.y)/2
	dx, dy := irisX-midX, irisY-midY

	switch {
	case dx < -c.cfg.HorizontalThreshold:
		return Left
	case dx > c.cfg.HorizontalThreshold:
		return Right
	case dy < -c.cfg.UpThreshold:
		return Up
	case dy > c.cfg.DownThreshold:
		return Down
	default:
		return Center
	}
}

// Observe пропускает сырое направление через окно стабилизации.
// Fire заполняется, когда стабильное не-Center направление удержано дольше Dwell
// и с прошлого действия прошёл Cooldown. После срабатывания удержание отсчитывается заново.
func (c *Classifier) Observe(raw Direction, now time.Time) Decision {
	c.push(raw)
	d := Decision{Raw: raw, Stable: c.stable}
	if c.size < c.cfg.MajorityOf {
		return d
	}

	major := c.majority()
	if major != c.stable {
		c.stable = major
		c.dwellStart = now
		d.Stable = major
		return d
	}
	if c.dwellStart.IsZero() {
		c.dwellStart = now
		return d
	}
	if c.stable == Center || now.Sub(c.dwellStart) <= c.cfg.Dwell {
		return d
	}
	if !c.lastAction.IsZero() && now.Sub(c.lastAction) < c.cfg.Cooldown {
		return d
	}
	d.Fire = c.stable
	c.dwellStart = now
	return d
}

// Commit отмечает действие, реально сменившее страницу: от него считается кулдаун.
func (c *Classifier) Commit(now time.Time) { c.lastAction = now }

// Process полный шаг кадра: детекция, стабилизация и применение действия к nav.
func (c *Classifier) Process(f landmark.Frame, now time.Time, nav Navigator) Result {
	r := Result{Decision: c.Observe(c.Detect(f), now)}
	if r.Fire == "" {
		return r
	}
	r.Move = nav.Move(Resolver(r.Fire))
	if r.Move.Changed {
		c.Commit(now)
	}
	return r
}

// Stable текущее стабилизированное направление.
func (c *Classifier) Stable() Direction { return c.stable }

// Reset очищает окно и таймеры (новый запуск контроллера).
func (c *Classifier) Reset() {
	clear(c.window)
	c.head, c.size = 0, 0
	c.stable = Center
	c.dwellStart = time.Time{}
	c.lastAction = time.Time{}
}

// Resolver переход по странице для направления.
func Resolver(d Direction) func(current, total int) int {
	switch d {
	case Right:
		return navigation.Next
	case Left:
		return navigation.Previous
	case Up:
		return navigation.First
	case Down:
		return navigation.Last
	default:
		return func(current, _ int) int { return current }
	}
}

func (c *Classifier) push(d Direction) {
	c.window[c.head] = d
	c.head = (c.head + 1) % len(c.window)
	c.size = min(c.size+1, len(c.window))
}

// majority самое частое направление среди последних MajorityOf сэмплов.
// При равенстве остаётся текущее стабильное, иначе побеждает самое свежее.
func (c *Classifier) majority() Direction {
	n := c.cfg.MajorityOf
	counts := make(map[Direction]int, 5)
	recent := make([]Direction, 0, n) // от свежего к старому
	for i := 1; i <= n; i++ {
		d := c.window[(c.head-i+len(c.window))%len(c.window)]
		counts[d]++
		recent = append(recent, d)
	}
	best := 0
	for _, v := range counts {
		best = max(best, v)
	}
	if counts[c.stable] == best {
		return c.stable
	}
	for _, d := range recent {
		if counts[d] == best {
			return d
		}
	}
	return c.stable
}

// irisCenter центр минимальной окружности по точкам радужки; нужно минимум 3 точки.
func irisCenter(f landmark.Frame, idx []int) (point, bool) {
	pts := make([]point, 0, len(idx))
	for _, i := range idx {
		if x, y, ok := f.Pixel(i); ok {
			pts = append(pts, point{x, y})
		}
	}
	if len(pts) < 3 {
		return point{}, false
	}
	c, ok := minEnclosingCircle(pts)
	return c.c, ok
}

func midpoint(f landmark.Frame, idx []int) (point, bool) {
	var sx, sy float64
	for _, i := range idx {
		x, y, ok := f.Pixel(i)
		if !ok {
			return point{}, false
		}
		sx += x
		sy += y
	}
	n := float64(len(idx))
	return point{sx / n, sy / n}, true
}
