package similarity

import "sort"

// shapeTerm compares the convex hulls of the two full stroke sets by area
// and perimeter, 50/50, each as a symmetric min/max ratio. A drawing's hull
// captures its overall silhouette independent of stroke segmentation.
func shapeTerm(prompt, submitted []stroke) float64 {
	hp := convexHull(allPoints(prompt))
	hs := convexHull(allPoints(submitted))

	area := ratio(hullArea(hp), hullArea(hs))
	perim := ratio(hullPerimeter(hp), hullPerimeter(hs))
	return 100 * (0.5*area + 0.5*perim)
}

func allPoints(strokes []stroke) []point {
	var n int
	for _, s := range strokes {
		n += len(s.points)
	}
	pts := make([]point, 0, n)
	for _, s := range strokes {
		pts = append(pts, s.points...)
	}
	return pts
}

// convexHull builds the hull with the monotone chain construction: sort by
// x then y, sweep once for the lower chain and once for the upper, dropping
// any point that makes a non-left turn.
func convexHull(pts []point) []point {
	if len(pts) <= 2 {
		return pts
	}

	sorted := make([]point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].x != sorted[j].x {
			return sorted[i].x < sorted[j].x
		}
		return sorted[i].y < sorted[j].y
	})

	var lower []point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// Each chain's last point is the other chain's first.
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// cross is the z-component of (b-a) × (c-a); positive for a left turn.
func cross(a, b, c point) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// hullArea computes the enclosed area with the shoelace formula. Hulls with
// fewer than three vertices have zero area.
func hullArea(hull []point) float64 {
	if len(hull) < 3 {
		return 0
	}
	var sum float64
	for i := range hull {
		j := (i + 1) % len(hull)
		sum += hull[i].x*hull[j].y - hull[j].x*hull[i].y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// hullPerimeter sums the hull's edge lengths. A single point has zero
// perimeter.
func hullPerimeter(hull []point) float64 {
	if len(hull) < 2 {
		return 0
	}
	if len(hull) == 2 {
		return dist(hull[0], hull[1])
	}
	var sum float64
	for i := range hull {
		j := (i + 1) % len(hull)
		sum += dist(hull[i], hull[j])
	}
	return sum
}
