package similarity

import "github.com/sketchmatch/sketchmatch-backend/internal/game"

// point is an x/y pair in the normalized frame.
type point struct {
	x, y float64
}

// stroke is a normalized stroke with its geometric features precomputed.
type stroke struct {
	points  []point
	length  float64 // arc length
	angle   float64 // direction from first to last point, radians
	center  point   // bounding-box center
	width   float64
	height  float64
}

// normalizeSet translates and uniformly scales all strokes into a unit
// bounding box, so canvas position and size never affect the comparison.
// Degenerate sets (a single point) are translated only.
func normalizeSet(strokes []game.Stroke) []stroke {
	minX, minY, maxX, maxY := bounds(strokes)
	scale := maxX - minX
	if h := maxY - minY; h > scale {
		scale = h
	}
	if scale == 0 {
		scale = 1
	}

	out := make([]stroke, 0, len(strokes))
	for _, s := range strokes {
		if !s.WellFormed() {
			continue
		}
		pts := make([]point, s.Len())
		for i := range s.Xs {
			pts[i] = point{
				x: (s.Xs[i] - minX) / scale,
				y: (s.Ys[i] - minY) / scale,
			}
		}
		out = append(out, newStroke(pts))
	}
	return out
}

func bounds(strokes []game.Stroke) (minX, minY, maxX, maxY float64) {
	first := true
	for _, s := range strokes {
		if !s.WellFormed() {
			continue
		}
		for i := range s.Xs {
			x, y := s.Xs[i], s.Ys[i]
			if first {
				minX, maxX, minY, maxY = x, x, y, y
				first = false
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	return
}

func newStroke(pts []point) stroke {
	st := stroke{points: pts}

	minX, minY := pts[0].x, pts[0].y
	maxX, maxY := pts[0].x, pts[0].y
	for i, p := range pts {
		if i > 0 {
			st.length += dist(pts[i-1], p)
		}
		if p.x < minX {
			minX = p.x
		}
		if p.x > maxX {
			maxX = p.x
		}
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}
	}
	st.width = maxX - minX
	st.height = maxY - minY
	st.center = point{x: (minX + maxX) / 2, y: (minY + maxY) / 2}
	st.angle = direction(pts[0], pts[len(pts)-1])
	return st
}
