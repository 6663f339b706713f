package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
)

// EnqueueWaitlist parks a join request. Arrivals always queue first, even
// in a safe phase; admission happens separately so a phase transition can
// never race a direct join. One entry per socket.
func (s *Store) EnqueueWaitlist(ctx context.Context, id string, e game.WaitlistEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	res, err := enqueueScript.Run(ctx, s.rdb,
		[]string{roomKey(id), waitlistKey(id), waitlistIDsKey(id)},
		e.SocketID, string(raw)).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s for room %s: %w", e.SocketID, id, err)
	}
	tag, _, err := scriptReply(res)
	if err != nil {
		return err
	}
	if tag == "missing" {
		return game.ErrRoomNotFound
	}
	// "dup" means this socket is already queued; the original entry stands.
	return nil
}

// PopAndAdmitOneFromWaitlist atomically moves exactly one waiting entry
// into the roster. The returned player is nil when the waitlist is empty.
// Safe to call concurrently: the pop is destructive and exclusive, so N
// concurrent calls against N entries admit exactly N distinct players.
func (s *Store) PopAndAdmitOneFromWaitlist(ctx context.Context, id string) (*game.Player, error) {
	res, err := popAdmitScript.Run(ctx, s.rdb,
		[]string{roomKey(id), playersKey(id), waitlistKey(id), waitlistIDsKey(id)}).Result()
	if err != nil {
		return nil, fmt.Errorf("pop-and-admit in room %s: %w", id, err)
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
	case "empty":
		return nil, nil
	}

	var p game.Player
	if err := json.Unmarshal([]byte(rest[0].(string)), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveWaitlisted drops a parked entry, e.g. when a queued socket
// disconnects before it was ever admitted.
func (s *Store) RemoveWaitlisted(ctx context.Context, id, socketID string) error {
	_, err := dequeueScript.Run(ctx, s.rdb,
		[]string{waitlistKey(id), waitlistIDsKey(id)}, socketID).Result()
	if err != nil {
		return fmt.Errorf("dequeue %s from room %s: %w", socketID, id, err)
	}
	return nil
}

// WaitlistSize returns the number of parked entries.
func (s *Store) WaitlistSize(ctx context.Context, id string) (int, error) {
	var n int64
	err := s.withRetry(ctx, func() error {
		var inner error
		n, inner = s.rdb.LLen(ctx, waitlistKey(id)).Result()
		return inner
	})
	return int(n), err
}

// IsRoomFull reports whether roster plus waitlist already covers every
// seat, used at the transport layer to stop accepting join attempts. The
// counts are a snapshot, not a reservation; admission itself stays atomic.
func (s *Store) IsRoomFull(ctx context.Context, id string) (bool, error) {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return false, err
	}
	waiting, err := s.WaitlistSize(ctx, id)
	if err != nil {
		return false, err
	}
	return room.Settings.MaxPlayers <= len(room.Players)+waiting, nil
}
