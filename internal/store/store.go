// Package store is the single source of truth for room state. Everything
// lives in Redis so any number of server processes can share one room;
// every mutation that two handlers could race on is a Lua script or a
// native atomic primitive, never a read-then-write pair.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

type Store struct {
	rdb    redis.UniversalClient
	log    *zap.Logger
	bounds game.Bounds
}

func New(rdb redis.UniversalClient, log *zap.Logger, bounds game.Bounds) *Store {
	return &Store{rdb: rdb, log: log, bounds: bounds}
}

func roomKey(id string) string        { return "room:" + id }
func playersKey(id string) string     { return "room:" + id + ":players" }
func waitlistKey(id string) string    { return "room:" + id + ":waitlist" }
func waitlistIDsKey(id string) string { return "room:" + id + ":waitlist:ids" }
func leaderboardKey(id string) string { return "room:" + id + ":leaderboard" }
func standingsKey(id string) string   { return "room:" + id + ":standings" }
func seqKey(id string) string         { return "room:" + id + ":seq" }
func orderKey(id string) string       { return "room:" + id + ":order" }
func highlightKey(id string) string   { return "room:" + id + ":highlight" }

func roundOrderKey(id string, round int) string {
	return fmt.Sprintf("room:%s:order:%d", id, round)
}

func resultsKey(id string, round int) string {
	return fmt.Sprintf("room:%s:results:%d", id, round)
}

// withRetry runs an idempotent read up to three times before giving up.
// Mutations never go through here; retrying those could double-apply.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = op()
		if err == nil || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return err
}

func isNil(err error) bool { return errors.Is(err, redis.Nil) }

func isTransient(err error) bool {
	if errors.Is(err, redis.Nil) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
