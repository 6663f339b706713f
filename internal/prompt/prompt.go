// Package prompt produces the reference drawings shown at the start of a
// round. Prompts are generated, not curated: a seeded RNG picks one of a
// small library of parametric figures, so a round's prompt is reproducible
// from its seed.
package prompt

import (
	"errors"
	"math"
	"math/rand"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

// ErrNoFigures is returned when the figure library is empty.
var ErrNoFigures = errors.New("no prompt figures registered")

// Canvas size the generated coordinates live in. Clients normalize before
// scoring, so the exact size only matters for display.
const canvasSize = 400.0

type figure func(r *rand.Rand) []game.Stroke

// Generator hands out prompt stroke sets.
type Generator struct {
	figures []figure
}

func NewGenerator() *Generator {
	return &Generator{
		figures: []figure{house, star, fish, snowman, sailboat, flower},
	}
}

// Generate returns the prompt for the given seed. The same seed always
// yields the same strokes.
func (g *Generator) Generate(seed int64) ([]game.Stroke, error) {
	if len(g.figures) == 0 {
		return nil, ErrNoFigures
	}
	r := rand.New(rand.NewSource(seed))
	strokes := g.figures[r.Intn(len(g.figures))](r)
	if len(strokes) == 0 {
		return nil, ErrNoFigures
	}
	return strokes, nil
}

func polyline(color game.RGB, pts ...[2]float64) game.Stroke {
	s := game.Stroke{
		Xs:    make([]float64, len(pts)),
		Ys:    make([]float64, len(pts)),
		Color: color,
	}
	for i, p := range pts {
		s.Xs[i] = p[0]
		s.Ys[i] = p[1]
	}
	return s
}

// arc samples a circular arc as a polyline.
func arc(color game.RGB, cx, cy, radius, from, to float64, segments int) game.Stroke {
	s := game.Stroke{
		Xs:    make([]float64, segments+1),
		Ys:    make([]float64, segments+1),
		Color: color,
	}
	for i := 0; i <= segments; i++ {
		a := from + (to-from)*float64(i)/float64(segments)
		s.Xs[i] = cx + radius*math.Cos(a)
		s.Ys[i] = cy + radius*math.Sin(a)
	}
	return s
}

func circle(color game.RGB, cx, cy, radius float64) game.Stroke {
	return arc(color, cx, cy, radius, 0, 2*math.Pi, 24)
}

var (
	black  = game.RGB{R: 30, G: 30, B: 30}
	red    = game.RGB{R: 220, G: 60, B: 50}
	blue   = game.RGB{R: 50, G: 90, B: 220}
	yellow = game.RGB{R: 240, G: 200, B: 40}
	green  = game.RGB{R: 60, G: 170, B: 80}
)

// jitter nudges a base coordinate so consecutive rounds with the same
// figure still differ a little.
func jitter(r *rand.Rand, base, amount float64) float64 {
	return base + (r.Float64()*2-1)*amount
}

func house(r *rand.Rand) []game.Stroke {
	w := jitter(r, 200, 30)
	h := jitter(r, 150, 20)
	x := (canvasSize - w) / 2
	y := canvasSize - 80 - h

	body := polyline(black, [2]float64{x, y + h}, [2]float64{x, y}, [2]float64{x + w, y}, [2]float64{x + w, y + h}, [2]float64{x, y + h})
	roof := polyline(red, [2]float64{x - 20, y}, [2]float64{x + w/2, y - jitter(r, 80, 15)}, [2]float64{x + w + 20, y})
	door := polyline(blue,
		[2]float64{x + w/2 - 20, y + h}, [2]float64{x + w/2 - 20, y + h - 60},
		[2]float64{x + w/2 + 20, y + h - 60}, [2]float64{x + w/2 + 20, y + h})
	return []game.Stroke{body, roof, door}
}

func star(r *rand.Rand) []game.Stroke {
	cx, cy := canvasSize/2, canvasSize/2
	outer := jitter(r, 140, 20)
	inner := outer * 0.45

	pts := make([][2]float64, 0, 11)
	for i := 0; i < 10; i++ {
		radius := outer
		if i%2 == 1 {
			radius = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		pts = append(pts, [2]float64{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	pts = append(pts, pts[0])
	return []game.Stroke{polyline(yellow, pts...)}
}

func fish(r *rand.Rand) []game.Stroke {
	cx, cy := canvasSize/2, canvasSize/2
	rx := jitter(r, 120, 15)

	body := arc(blue, cx, cy, rx, 0, 2*math.Pi, 20)
	// Squash the circle into an oval body.
	for i := range body.Ys {
		body.Ys[i] = cy + (body.Ys[i]-cy)*0.55
	}
	tail := polyline(blue,
		[2]float64{cx + rx, cy}, [2]float64{cx + rx + 50, cy - 40},
		[2]float64{cx + rx + 50, cy + 40}, [2]float64{cx + rx, cy})
	eye := circle(black, cx-rx*0.55, cy-10, 8)
	return []game.Stroke{body, tail, eye}
}

func snowman(r *rand.Rand) []game.Stroke {
	cx := canvasSize / 2
	base := jitter(r, 70, 10)
	mid := base * 0.7
	head := base * 0.45

	bottom := circle(black, cx, canvasSize-60-base, base)
	middle := circle(black, cx, canvasSize-60-2*base-mid+10, mid)
	top := circle(black, cx, canvasSize-60-2*base-2*mid-head+20, head)
	return []game.Stroke{bottom, middle, top}
}

func sailboat(r *rand.Rand) []game.Stroke {
	w := jitter(r, 180, 20)
	x := (canvasSize - w) / 2
	y := canvasSize - 120

	hull := polyline(black, [2]float64{x, y}, [2]float64{x + w, y}, [2]float64{x + w - 40, y + 50}, [2]float64{x + 40, y + 50}, [2]float64{x, y})
	mast := polyline(black, [2]float64{x + w/2, y}, [2]float64{x + w/2, y - jitter(r, 160, 20)})
	sail := polyline(red, [2]float64{x + w/2, y - 150}, [2]float64{x + w/2 + 80, y - 20}, [2]float64{x + w/2, y - 20}, [2]float64{x + w/2, y - 150})
	return []game.Stroke{hull, mast, sail}
}

func flower(r *rand.Rand) []game.Stroke {
	cx, cy := canvasSize/2, canvasSize/2-40
	petal := jitter(r, 45, 8)

	strokes := []game.Stroke{circle(yellow, cx, cy, 30)}
	for i := 0; i < 6; i++ {
		a := float64(i) * math.Pi / 3
		strokes = append(strokes, circle(red, cx+65*math.Cos(a), cy+65*math.Sin(a), petal))
	}
	strokes = append(strokes, polyline(green, [2]float64{cx, cy + 95}, [2]float64{cx, canvasSize - 40}))
	return strokes
}
