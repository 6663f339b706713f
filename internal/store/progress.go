package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
)

// Submission is one player's recorded round result: the full score
// breakdown plus the strokes that earned it, kept so the client can replay
// and explain the score.
type Submission struct {
	SocketID string            `json:"socketId"`
	Result   similarity.Result `json:"result"`
	Strokes  []game.Stroke     `json:"strokes"`
}

// Highlight is the best single submission of the whole game.
type Highlight struct {
	SocketID   string        `json:"socketId"`
	Nickname   string        `json:"nickname"`
	Round      int           `json:"round"`
	Similarity float64       `json:"similarity"`
	Strokes    []game.Stroke `json:"strokes"`
}

// SubmitRoundResult records one result per socket per round. A second
// submission for the same round fails with ErrDuplicateSubmission; the
// original result is never overwritten.
func (s *Store) SubmitRoundResult(ctx context.Context, id string, round int, sub Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	res, err := submitScript.Run(ctx, s.rdb,
		[]string{resultsKey(id, round), seqKey(id), roundOrderKey(id, round), orderKey(id)},
		sub.SocketID, string(raw)).Result()
	if err != nil {
		return fmt.Errorf("submit result for %s in room %s: %w", sub.SocketID, id, err)
	}
	tag, _, err := scriptReply(res)
	if err != nil {
		return err
	}
	if tag == "dup" {
		return game.ErrDuplicateSubmission
	}
	return nil
}

// AllSubmitted reports whether every expected player has a recorded result
// for the round, used for the early-advance path out of DRAWING.
func (s *Store) AllSubmitted(ctx context.Context, id string, round, expected int) (bool, error) {
	var n int64
	err := s.withRetry(ctx, func() error {
		var inner error
		n, inner = s.rdb.HLen(ctx, resultsKey(id, round)).Result()
		return inner
	})
	if err != nil {
		return false, fmt.Errorf("count submissions in room %s: %w", id, err)
	}
	return expected > 0 && int(n) >= expected, nil
}

// ResetProgress clears the tracker at the start of a round.
func (s *Store) ResetProgress(ctx context.Context, id string, round int) error {
	return s.rdb.Del(ctx, resultsKey(id, round), roundOrderKey(id, round)).Err()
}

// RoundResults returns every recorded submission for a round, keyed by
// socket id.
func (s *Store) RoundResults(ctx context.Context, id string, round int) (map[string]Submission, error) {
	var raw map[string]string
	err := s.withRetry(ctx, func() error {
		var inner error
		raw, inner = s.rdb.HGetAll(ctx, resultsKey(id, round)).Result()
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("read submissions in room %s: %w", id, err)
	}

	out := make(map[string]Submission, len(raw))
	for sid, v := range raw {
		var sub Submission
		if err := json.Unmarshal([]byte(v), &sub); err != nil {
			return nil, fmt.Errorf("decode submission of %s in room %s: %w", sid, id, err)
		}
		out[sid] = sub
	}
	return out, nil
}

// OfferHighlight proposes a submission as the game's best; the store keeps
// whichever similarity is highest, atomically, across all instances.
func (s *Store) OfferHighlight(ctx context.Context, id string, h Highlight) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	err = highlightScript.Run(ctx, s.rdb, []string{highlightKey(id)},
		h.Similarity, string(raw)).Err()
	if err != nil {
		return fmt.Errorf("offer highlight in room %s: %w", id, err)
	}
	return nil
}

// GetHighlight returns the best submission so far, or nil when nobody has
// submitted anything all game.
func (s *Store) GetHighlight(ctx context.Context, id string) (*Highlight, error) {
	var raw string
	err := s.withRetry(ctx, func() error {
		var inner error
		raw, inner = s.rdb.HGet(ctx, highlightKey(id), "payload").Result()
		return inner
	})
	if isNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read highlight of room %s: %w", id, err)
	}
	var h Highlight
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, err
	}
	return &h, nil
}
