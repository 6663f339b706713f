// Package similarity scores how closely a submitted drawing matches a
// reference drawing. Everything in here is a pure function of its inputs:
// the same stroke sets always produce the same Result, so the engine is
// safe to call concurrently from every submission path.
package similarity

import (
	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

// Result carries the final score plus the three intermediate terms, so the
// client can show why a score was given.
type Result struct {
	Similarity  float64 `json:"similarity"`
	StrokeCount float64 `json:"strokeCountSimilarity"`
	StrokeMatch float64 `json:"strokeMatchSimilarity"`
	Shape       float64 `json:"shapeSimilarity"`
}

// Weights blends the three terms into the final score. The split is a tuning
// knob, not a law of nature; it is injected from configuration so a
// deployment can rebalance without a code change.
type Weights struct {
	StrokeCount float64
	StrokeMatch float64
	Shape       float64
}

// DefaultWeights is the shipped blend: 20% stroke count, 50% stroke match,
// 30% shape.
func DefaultWeights() Weights {
	return Weights{StrokeCount: 0.2, StrokeMatch: 0.5, Shape: 0.3}
}

// Score compares a submitted stroke set against the prompt's and returns all
// four terms in [0,100].
func Score(prompt, submitted []game.Stroke, w Weights) Result {
	p := normalizeSet(prompt)
	s := normalizeSet(submitted)

	count := strokeCountTerm(len(prompt), len(submitted))
	match := strokeMatchTerm(p, s)
	shape := shapeTerm(p, s)

	total := w.StrokeCount + w.StrokeMatch + w.Shape
	if total <= 0 {
		w = DefaultWeights()
		total = w.StrokeCount + w.StrokeMatch + w.Shape
	}
	final := (w.StrokeCount*count + w.StrokeMatch*match + w.Shape*shape) / total

	return Result{
		Similarity:  clamp(final, 0, 100),
		StrokeCount: count,
		StrokeMatch: match,
		Shape:       shape,
	}
}

// strokeCountTerm loses 10 points per stroke of difference. An empty
// submission scores zero outright.
func strokeCountTerm(promptCount, submittedCount int) float64 {
	if submittedCount == 0 {
		return 0
	}
	diff := promptCount - submittedCount
	if diff < 0 {
		diff = -diff
	}
	term := 100 - 10*float64(diff)
	if term < 0 {
		return 0
	}
	return term
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
