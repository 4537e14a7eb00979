package gaze

import "math"

type point struct{ x, y float64 }

type circle struct {
	c point
	r float64
}

func (c circle) contains(p point) bool {
	return math.Hypot(p.x-c.c.x, p.y-c.c.y) <= c.r+1e-7
}

// minEnclosingCircle возвращает наименьшую окружность, покрывающую все точки.
// Точек у радужки всего 4, поэтому перебираем окружности по парам и тройкам.
func minEnclosingCircle(pts []point) (circle, bool) {
	switch len(pts) {
	case 0:
		return circle{}, false
	case 1:
		return circle{c: pts[0]}, true
	}
	best := circle{r: math.Inf(1)}
	try := func(c circle, ok bool) {
		if !ok || c.r >= best.r {
			return
		}
		for _, p := range pts {
			if !c.contains(p) {
				return
			}
		}
		best = c
	}
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			try(diameterCircle(pts[i], pts[j]), true)
			for k := j + 1; k < len(pts); k++ {
				try(circumcircle(pts[i], pts[j], pts[k]))
			}
		}
	}
	return best, !math.IsInf(best.r, 1)
}

func diameterCircle(a, b point) circle {
	c := point{(a.x + b.x) / 2, (a.y + b.y) / 2}
	return circle{c: c, r: math.Hypot(a.x-c.x, a.y-c.y)}
}

// circumcircle окружность через три точки; ok=false для коллинеарных.
func circumcircle(a, b, c point) (circle, bool) {
	bx, by := b.x-a.x, b.y-a.y
	cx, cy := c.x-a.x, c.y-a.y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-12 {
		return circle{}, false
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := point{a.x + ux, a.y + uy}
	return circle{c: center, r: math.Hypot(ux, uy)}, true
}
