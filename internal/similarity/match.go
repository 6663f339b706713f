package similarity

import (
	"math"
	"sort"
)

// Per-pair blend: how much each geometric signal contributes to a stroke
// pair's similarity.
const (
	lengthWeight    = 0.3
	directionWeight = 0.4
	positionWeight  = 0.3

	// Within the position signal: center distance vs. width/height ratio.
	centerWeight = 0.6
	sizeWeight   = 0.4
)

// maxCenterDist is the largest possible center distance inside the unit
// frame (corner to corner).
var maxCenterDist = math.Sqrt2

type pair struct {
	pi, si int // prompt / submitted indices
	sim    float64
}

// strokeMatchTerm greedily pairs prompt strokes with submitted strokes,
// highest pair similarity first, and aggregates to [0,100]. Unmatched
// leftovers on either side contribute zero. Ties are broken by lowest
// prompt index, then lowest submitted index, so scores are reproducible.
func strokeMatchTerm(prompt, submitted []stroke) float64 {
	if len(prompt) == 0 || len(submitted) == 0 {
		return 0
	}

	pairs := make([]pair, 0, len(prompt)*len(submitted))
	for pi := range prompt {
		for si := range submitted {
			pairs = append(pairs, pair{pi: pi, si: si, sim: pairSimilarity(prompt[pi], submitted[si])})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].sim != pairs[j].sim {
			return pairs[i].sim > pairs[j].sim
		}
		if pairs[i].pi != pairs[j].pi {
			return pairs[i].pi < pairs[j].pi
		}
		return pairs[i].si < pairs[j].si
	})

	usedP := make([]bool, len(prompt))
	usedS := make([]bool, len(submitted))
	var sum float64
	for _, pr := range pairs {
		if usedP[pr.pi] || usedS[pr.si] {
			continue
		}
		usedP[pr.pi] = true
		usedS[pr.si] = true
		sum += pr.sim
	}

	denom := len(prompt)
	if len(submitted) > denom {
		denom = len(submitted)
	}
	return 100 * sum / float64(denom)
}

// pairSimilarity blends length ratio, direction difference, and position
// into a single value in [0,1].
func pairSimilarity(a, b stroke) float64 {
	length := ratio(a.length, b.length)

	delta := wrapAngle(a.angle - b.angle)
	dir := 1 - math.Abs(delta)/math.Pi

	centerSim := 1 - dist(a.center, b.center)/maxCenterDist
	if centerSim < 0 {
		centerSim = 0
	}
	sizeSim := (ratio(a.width, b.width) + ratio(a.height, b.height)) / 2
	pos := centerWeight*centerSim + sizeWeight*sizeSim

	return lengthWeight*length + directionWeight*dir + positionWeight*pos
}

// ratio is the symmetric min/max similarity of two non-negative magnitudes.
// Both zero is a perfect degenerate match.
func ratio(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a == 0 || b == 0 {
		return 0
	}
	if a < b {
		return a / b
	}
	return b / a
}

// wrapAngle folds an angle difference into [-π, π].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func direction(from, to point) float64 {
	return math.Atan2(to.y-from.y, to.x-from.x)
}

func dist(a, b point) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	return math.Sqrt(dx*dx + dy*dy)
}
