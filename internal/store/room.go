package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

const roomIDLength = 6

func newRoomID() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	id := make([]byte, roomIDLength)
	for i := 0; i < roomIDLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		id[i] = charset[num.Int64()]
	}
	return string(id), nil
}

// CreateRoom validates settings, claims a fresh room id, and writes the
// initial record: phase WAITING, round 0, empty roster.
func (s *Store) CreateRoom(ctx context.Context, settings game.Settings) (string, error) {
	if err := settings.Validate(s.bounds); err != nil {
		return "", err
	}

	for {
		id, err := newRoomID()
		if err != nil {
			return "", err
		}
		// HSETNX claims the id; a collision just loops.
		claimed, err := s.rdb.HSetNX(ctx, roomKey(id), "phase", string(game.PhaseWaiting)).Result()
		if err != nil {
			return "", fmt.Errorf("claim room id: %w", err)
		}
		if !claimed {
			s.log.Warn("room id collision, regenerating", zap.String("room_id", id))
			continue
		}
		err = s.rdb.HSet(ctx, roomKey(id),
			"round", 0,
			"drawingTime", settings.DrawingTime,
			"totalRounds", settings.TotalRounds,
			"maxPlayers", settings.MaxPlayers,
			"createdAt", time.Now().Unix(),
		).Err()
		if err != nil {
			return "", fmt.Errorf("write room record: %w", err)
		}
		return id, nil
	}
}

// GetRoom reads the full room record. The roster keeps join order, and the
// head of the list is marked host.
func (s *Store) GetRoom(ctx context.Context, id string) (*game.Room, error) {
	var fields map[string]string
	var rawPlayers []string

	err := s.withRetry(ctx, func() error {
		pipe := s.rdb.Pipeline()
		hashCmd := pipe.HGetAll(ctx, roomKey(id))
		listCmd := pipe.LRange(ctx, playersKey(id), 0, -1)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		fields = hashCmd.Val()
		rawPlayers = listCmd.Val()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read room %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, game.ErrRoomNotFound
	}

	room := &game.Room{
		ID:    id,
		Phase: game.Phase(fields["phase"]),
	}
	if !room.Phase.Valid() {
		return nil, fmt.Errorf("room %s has corrupt phase %q", id, fields["phase"])
	}
	room.CurrentRound, _ = strconv.Atoi(fields["round"])
	room.Settings.DrawingTime, _ = strconv.Atoi(fields["drawingTime"])
	room.Settings.TotalRounds, _ = strconv.Atoi(fields["totalRounds"])
	room.Settings.MaxPlayers, _ = strconv.Atoi(fields["maxPlayers"])

	room.Players = make([]game.Player, 0, len(rawPlayers))
	for _, raw := range rawPlayers {
		var p game.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode roster entry in room %s: %w", id, err)
		}
		p.IsHost = len(room.Players) == 0
		room.Players = append(room.Players, p)
	}
	return room, nil
}

// AdmitPlayer atomically appends a player to the roster. The first player
// into an empty room becomes host by position.
func (s *Store) AdmitPlayer(ctx context.Context, id string, p game.Player) ([]game.Player, error) {
	p.IsHost = false // derived on read, never stored
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	res, err := admitScript.Run(ctx, s.rdb, []string{roomKey(id), playersKey(id)}, string(raw)).Result()
	if err != nil {
		return nil, fmt.Errorf("admit %s to room %s: %w", p.SocketID, id, err)
	}
	tag, rest, err := scriptReply(res)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "missing":
		return nil, game.ErrRoomNotFound
	case "full":
		return nil, game.ErrRoomFull
	}

	players := make([]game.Player, 0, len(rest))
	for _, item := range rest {
		var pl game.Player
		if err := json.Unmarshal([]byte(item.(string)), &pl); err != nil {
			return nil, err
		}
		pl.IsHost = len(players) == 0
		players = append(players, pl)
	}
	return players, nil
}

// RemovePlayer drops a socket from the roster and reports how many players
// remain. If the removed player was host, the next-oldest player is host
// simply by becoming the new list head.
func (s *Store) RemovePlayer(ctx context.Context, id, socketID string) (remaining int, err error) {
	res, err := removeScript.Run(ctx, s.rdb, []string{roomKey(id), playersKey(id)}, socketID).Result()
	if err != nil {
		return 0, fmt.Errorf("remove %s from room %s: %w", socketID, id, err)
	}
	tag, rest, err := scriptReply(res)
	if err != nil {
		return 0, err
	}
	if tag == "missing" {
		return 0, game.ErrRoomNotFound
	}
	if len(rest) > 0 {
		if n, ok := rest[0].(int64); ok {
			remaining = int(n)
		}
	}
	return remaining, nil
}

// SetPhase writes the room's phase. Only the orchestrator calls this.
func (s *Store) SetPhase(ctx context.Context, id string, phase game.Phase) error {
	ok, err := s.rdb.HExists(ctx, roomKey(id), "phase").Result()
	if err != nil {
		return fmt.Errorf("set phase of room %s: %w", id, err)
	}
	if !ok {
		return game.ErrRoomNotFound
	}
	return s.rdb.HSet(ctx, roomKey(id), "phase", string(phase)).Err()
}

// AdvanceRound bumps the round counter and returns the new value.
func (s *Store) AdvanceRound(ctx context.Context, id string) (int, error) {
	ok, err := s.rdb.HExists(ctx, roomKey(id), "phase").Result()
	if err != nil {
		return 0, fmt.Errorf("advance round of room %s: %w", id, err)
	}
	if !ok {
		return 0, game.ErrRoomNotFound
	}
	n, err := s.rdb.HIncrBy(ctx, roomKey(id), "round", 1).Result()
	return int(n), err
}

// SetPrompt shares the round's reference strokes through the room record so
// every server instance serves the same prompt.
func (s *Store) SetPrompt(ctx context.Context, id string, strokes []game.Stroke) error {
	raw, err := json.Marshal(strokes)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, roomKey(id), "prompt", string(raw)).Err()
}

// GetPrompt returns the current round's reference strokes, or nil if none
// has been published.
func (s *Store) GetPrompt(ctx context.Context, id string) ([]game.Stroke, error) {
	var raw string
	err := s.withRetry(ctx, func() error {
		var inner error
		raw, inner = s.rdb.HGet(ctx, roomKey(id), "prompt").Result()
		return inner
	})
	if isNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt of room %s: %w", id, err)
	}
	var strokes []game.Stroke
	if err := json.Unmarshal([]byte(raw), &strokes); err != nil {
		return nil, err
	}
	return strokes, nil
}

// roomKeys lists every key a room may have written, for teardown and
// expiry.
func (s *Store) roomKeys(ctx context.Context, id string) []string {
	keys := []string{
		roomKey(id), playersKey(id), waitlistKey(id), waitlistIDsKey(id),
		leaderboardKey(id), standingsKey(id), seqKey(id), orderKey(id), highlightKey(id),
	}
	totalRounds, _ := s.rdb.HGet(ctx, roomKey(id), "totalRounds").Int()
	for round := 1; round <= totalRounds; round++ {
		keys = append(keys, resultsKey(id, round), roundOrderKey(id, round))
	}
	return keys
}

// DeleteRoom tears the room down immediately.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	keys := s.roomKeys(ctx, id)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	s.log.Info("room deleted", zap.String("room_id", id))
	return nil
}

// ExpireRoom arms a grace-period TTL on every room key, used after game
// end so late readers still see the final state.
func (s *Store) ExpireRoom(ctx context.Context, id string, ttl time.Duration) error {
	keys := s.roomKeys(ctx, id)
	pipe := s.rdb.Pipeline()
	for _, key := range keys {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// scriptReply splits a script's {status, payload...} reply.
func scriptReply(v interface{}) (string, []interface{}, error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return "", nil, fmt.Errorf("unexpected script reply %T", v)
	}
	tag, ok := arr[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("unexpected script status %v", arr[0])
	}
	return tag, arr[1:], nil
}
