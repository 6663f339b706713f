package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/hub"
	"github.com/sketchmatch/sketchmatch-backend/internal/room"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
)

// Handler upgrades GET /ws?roomId=... and bridges the socket to the room
// actor. One goroutine drains the outbox into the connection; the request
// goroutine runs the reader loop.
func Handler(h *hub.Hub, st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "missing roomId", http.StatusBadRequest)
			return
		}

		// Rooms are created over HTTP first; a socket for an unknown id is
		// a client bug, not a reason to spawn an actor.
		if _, err := st.GetRoom(r.Context(), roomID); err != nil {
			if errors.Is(err, game.ErrRoomNotFound) {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{RoomID: roomID, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Outbound, 16)
		socketID := randID(8)
		joined := false
		defer func() { releaseClient(rm, socketID, out, joined) }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ev := range out {
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var env types.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				sendError(r.Context(), conn, "bad json", nil)
				continue
			}

			msg, errMsg, fields := translate(env, roomID, socketID, out)
			if msg == nil {
				sendError(r.Context(), conn, errMsg, fields)
				continue
			}

			if j, ok := msg.(room.Join); ok {
				if joined {
					sendError(r.Context(), conn, "already joined", nil)
					continue
				}
				full, err := st.IsRoomFull(r.Context(), roomID)
				if err == nil && full {
					sendError(r.Context(), conn, "room is full", nil)
					continue
				}
				joined = true
				rm.Inbox() <- j
				continue
			}

			if !joined {
				sendError(r.Context(), conn, "join first", nil)
				continue
			}
			rm.Inbox() <- msg
		}
	}
}

// releaseClient ends a connection's outbox lifecycle. A joined socket's
// outbox belongs to the room actor, which closes it while handling Leave;
// an un-joined outbox was never handed over, so it is closed here or the
// writer goroutine would block on it forever.
func releaseClient(rm *room.Room, socketID string, out chan types.Outbound, joined bool) {
	if joined {
		rm.Inbox() <- room.Leave{SocketID: socketID}
		return
	}
	close(out)
}

// translate decodes and validates an inbound envelope into a room message.
// A nil message means rejection; errMsg and fields describe why.
func translate(env types.Envelope, roomID, socketID string, out chan types.Outbound) (room.Msg, string, []string) {
	switch env.Type {
	case types.EvtUserJoin:
		var p types.JoinPayload
		if msg, fields := decode(env.Data, &p); msg != "" {
			return nil, msg, fields
		}
		if p.RoomID != roomID {
			return nil, "roomId does not match connection", nil
		}
		return room.Join{SocketID: socketID, Nickname: p.Nickname, ProfileID: p.ProfileID, Outbox: out}, "", nil

	case types.EvtRoomStart:
		var p types.StartPayload
		if msg, fields := decode(env.Data, &p); msg != "" {
			return nil, msg, fields
		}
		return room.Start{SocketID: socketID}, "", nil

	case types.EvtUserDrawing:
		var p types.DrawingPayload
		if msg, fields := decode(env.Data, &p); msg != "" {
			return nil, msg, fields
		}
		for _, s := range p.Strokes {
			if !s.WellFormed() {
				return nil, "malformed stroke", []string{"strokes"}
			}
		}
		return room.Submit{SocketID: socketID, Strokes: p.Strokes}, "", nil

	case types.EvtUserKick:
		var p types.KickPayload
		if msg, fields := decode(env.Data, &p); msg != "" {
			return nil, msg, fields
		}
		return room.Kick{SocketID: socketID, TargetID: p.TargetPlayerID}, "", nil

	case types.EvtUserPractice:
		var p types.PracticePayload
		if msg, fields := decode(env.Data, &p); msg != "" {
			return nil, msg, fields
		}
		return room.Practice{SocketID: socketID}, "", nil

	default:
		return nil, "unknown type", nil
	}
}

func decode(raw json.RawMessage, dst any) (string, []string) {
	if len(raw) == 0 {
		return "missing payload", nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return "bad payload", nil
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return "validation failed", fields
		}
		return "validation failed", nil
	}
	return "", nil
}

func sendError(ctx context.Context, conn *websocket.Conn, msg string, fields []string) {
	payload, err := json.Marshal(types.Outbound{
		Type: types.EvtError,
		Data: types.ErrorData{Message: msg, Fields: fields},
	})
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
