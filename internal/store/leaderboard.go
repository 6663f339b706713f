package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Entry is one ranked row: a socket id and its score, live similarity for
// the per-round leaderboard or the accumulated total for standings.
type Entry struct {
	SocketID string  `json:"socketId"`
	Score    float64 `json:"score"`
}

// SeedScore inserts a zero entry for a freshly admitted player in both
// rankings without disturbing any score they already have.
func (s *Store) SeedScore(ctx context.Context, id, socketID string) error {
	pipe := s.rdb.Pipeline()
	pipe.ZAddNX(ctx, leaderboardKey(id), redis.Z{Score: 0, Member: socketID})
	pipe.ZAddNX(ctx, standingsKey(id), redis.Z{Score: 0, Member: socketID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed score for %s in room %s: %w", socketID, id, err)
	}
	return nil
}

// SetLiveScore upserts the per-round similarity. Later calls for the same
// socket overwrite, never append.
func (s *Store) SetLiveScore(ctx context.Context, id, socketID string, score float64) error {
	err := s.rdb.ZAdd(ctx, leaderboardKey(id), redis.Z{Score: score, Member: socketID}).Err()
	if err != nil {
		return fmt.Errorf("set live score for %s in room %s: %w", socketID, id, err)
	}
	return nil
}

// AddStanding accumulates into the cumulative ranking via an atomic
// increment, so concurrent round settlements never lose a write.
func (s *Store) AddStanding(ctx context.Context, id, socketID string, delta float64) error {
	err := s.rdb.ZIncrBy(ctx, standingsKey(id), delta, socketID).Err()
	if err != nil {
		return fmt.Errorf("add standing for %s in room %s: %w", socketID, id, err)
	}
	return nil
}

// GetLeaderboard returns the live per-round ranking, descending, ties
// broken by submission order within the round.
func (s *Store) GetLeaderboard(ctx context.Context, id string, round int) ([]Entry, error) {
	return s.ranking(ctx, leaderboardKey(id), roundOrderKey(id, round))
}

// GetStandings returns the cumulative ranking, descending, ties broken by
// earliest-ever submission.
func (s *Store) GetStandings(ctx context.Context, id string) ([]Entry, error) {
	return s.ranking(ctx, standingsKey(id), orderKey(id))
}

// ResetLeaderboard clears the live ranking at a round boundary and reseeds
// every current player at zero.
func (s *Store) ResetLeaderboard(ctx context.Context, id string, socketIDs []string) error {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, leaderboardKey(id))
	for _, sid := range socketIDs {
		pipe.ZAddNX(ctx, leaderboardKey(id), redis.Z{Score: 0, Member: sid})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reset leaderboard of room %s: %w", id, err)
	}
	return nil
}

// RemoveScores drops a departed player from both rankings.
func (s *Store) RemoveScores(ctx context.Context, id, socketID string) error {
	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, leaderboardKey(id), socketID)
	pipe.ZRem(ctx, standingsKey(id), socketID)
	_, err := pipe.Exec(ctx)
	return err
}

// ranking reads a zset descending and applies the submission-order
// tie-break. Redis orders equal scores lexically by member, which is
// stable but wrong for us, so ties are reordered here using the sequence
// numbers recorded at submission time. Players who never submitted sort
// after those who did, then by socket id for determinism.
func (s *Store) ranking(ctx context.Context, key, orderHashKey string) ([]Entry, error) {
	var zs []redis.Z
	var order map[string]string

	err := s.withRetry(ctx, func() error {
		pipe := s.rdb.Pipeline()
		zCmd := pipe.ZRevRangeWithScores(ctx, key, 0, -1)
		oCmd := pipe.HGetAll(ctx, orderHashKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		zs = zCmd.Val()
		order = oCmd.Val()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read ranking %s: %w", key, err)
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		entries = append(entries, Entry{SocketID: z.Member.(string), Score: z.Score})
	}

	seq := func(socketID string) int64 {
		if raw, ok := order[socketID]; ok {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		}
		return int64(^uint64(0) >> 1) // never submitted
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		si, sj := seq(entries[i].SocketID), seq(entries[j].SocketID)
		if si != sj {
			return si < sj
		}
		return entries[i].SocketID < entries[j].SocketID
	})
	return entries, nil
}
