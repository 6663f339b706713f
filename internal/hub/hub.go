// Package hub tracks the live room actors in this process. Room state
// itself lives in the shared store; the hub only makes sure each room id
// maps to at most one local actor.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the actor for a room id, spawning one if this process
// has none yet.
type EnsureRoom struct {
	RoomID string
	Reply  chan *room.Room
}

// GetRoom returns the actor for a room id, or nil.
type GetRoom struct {
	RoomID string
	Reply  chan *room.Room
}

// RemoveRoom forgets a torn-down actor.
type RemoveRoom struct{ RoomID string }

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	deps   room.Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps room.Deps, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		deps:   deps,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	// Actors report back through the inbox when they tear themselves
	// down, so a dead room never lingers in the registry.
	h.deps.OnEmpty = func(roomID string) {
		select {
		case h.inbox <- RemoveRoom{RoomID: roomID}:
		case <-h.ctx.Done():
		}
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.RoomID]; r != nil {
					msg.Reply <- r
					break
				}
				r := room.NewRoom(h.ctx, msg.RoomID, h.deps)
				h.rooms[msg.RoomID] = r
				h.log.Info("room actor started", zap.String("room_id", msg.RoomID))
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.RoomID] // may be nil

			case RemoveRoom:
				delete(h.rooms, msg.RoomID)
				h.log.Info("room actor removed", zap.String("room_id", msg.RoomID))

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
