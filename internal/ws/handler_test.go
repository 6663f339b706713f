package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/prompt"
	"github.com/sketchmatch/sketchmatch-backend/internal/room"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

func env(t *testing.T, typ string, payload any) types.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return types.Envelope{Type: typ, Data: raw}
}

func TestTranslateJoin(t *testing.T) {
	out := make(chan types.Outbound, 1)
	msg, errMsg, _ := translate(env(t, types.EvtUserJoin, types.JoinPayload{
		RoomID: "ABC123", Nickname: "ana", ProfileID: "p1",
	}), "ABC123", "sock-1", out)

	require.Empty(t, errMsg)
	j, ok := msg.(room.Join)
	require.True(t, ok)
	assert.Equal(t, "sock-1", j.SocketID)
	assert.Equal(t, "ana", j.Nickname)
	assert.Equal(t, "p1", j.ProfileID)
}

func TestTranslateJoinValidation(t *testing.T) {
	out := make(chan types.Outbound, 1)

	t.Run("nickname too long", func(t *testing.T) {
		msg, errMsg, fields := translate(env(t, types.EvtUserJoin, types.JoinPayload{
			RoomID: "ABC123", Nickname: "elevenchars", ProfileID: "p1",
		}), "ABC123", "sock-1", out)

		assert.Nil(t, msg)
		assert.Equal(t, "validation failed", errMsg)
		assert.Contains(t, fields, "Nickname")
	})

	t.Run("missing fields", func(t *testing.T) {
		msg, errMsg, fields := translate(env(t, types.EvtUserJoin, types.JoinPayload{}), "ABC123", "sock-1", out)

		assert.Nil(t, msg)
		assert.Equal(t, "validation failed", errMsg)
		assert.Len(t, fields, 3)
	})

	t.Run("roomId mismatch", func(t *testing.T) {
		msg, errMsg, _ := translate(env(t, types.EvtUserJoin, types.JoinPayload{
			RoomID: "OTHER1", Nickname: "ana", ProfileID: "p1",
		}), "ABC123", "sock-1", out)

		assert.Nil(t, msg)
		assert.Equal(t, "roomId does not match connection", errMsg)
	})
}

func TestTranslateDrawing(t *testing.T) {
	out := make(chan types.Outbound, 1)

	msg, errMsg, _ := translate(env(t, types.EvtUserDrawing, types.DrawingPayload{
		RoomID: "ABC123",
		Strokes: []game.Stroke{
			{Xs: []float64{0, 1}, Ys: []float64{0, 1}},
		},
	}), "ABC123", "sock-1", out)

	require.Empty(t, errMsg)
	sub, ok := msg.(room.Submit)
	require.True(t, ok)
	assert.Equal(t, "sock-1", sub.SocketID)
	assert.Len(t, sub.Strokes, 1)
}

func TestTranslateDrawingRejectsMalformedStroke(t *testing.T) {
	out := make(chan types.Outbound, 1)

	msg, errMsg, fields := translate(env(t, types.EvtUserDrawing, types.DrawingPayload{
		RoomID: "ABC123",
		Strokes: []game.Stroke{
			{Xs: []float64{0, 1, 2}, Ys: []float64{0, 1}}, // mismatched lengths
		},
	}), "ABC123", "sock-1", out)

	assert.Nil(t, msg)
	assert.Equal(t, "malformed stroke", errMsg)
	assert.Equal(t, []string{"strokes"}, fields)
}

func TestTranslateKickAndPractice(t *testing.T) {
	out := make(chan types.Outbound, 1)

	msg, errMsg, _ := translate(env(t, types.EvtUserKick, types.KickPayload{
		RoomID: "ABC123", TargetPlayerID: "sock-2",
	}), "ABC123", "sock-1", out)
	require.Empty(t, errMsg)
	k, ok := msg.(room.Kick)
	require.True(t, ok)
	assert.Equal(t, "sock-1", k.SocketID)
	assert.Equal(t, "sock-2", k.TargetID)

	msg, errMsg, _ = translate(env(t, types.EvtUserPractice, types.PracticePayload{
		RoomID: "ABC123",
	}), "ABC123", "sock-1", out)
	require.Empty(t, errMsg)
	_, ok = msg.(room.Practice)
	assert.True(t, ok)
}

func TestTranslateRejectsUnknownTypeAndMissingPayload(t *testing.T) {
	out := make(chan types.Outbound, 1)

	msg, errMsg, _ := translate(types.Envelope{Type: "user:teleport"}, "ABC123", "sock-1", out)
	assert.Nil(t, msg)
	assert.Equal(t, "unknown type", errMsg)

	msg, errMsg, _ = translate(types.Envelope{Type: types.EvtRoomStart}, "ABC123", "sock-1", out)
	assert.Nil(t, msg)
	assert.Equal(t, "missing payload", errMsg)
}

func newTestRoomActor(t *testing.T) (*room.Room, chan string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.New(client, zap.NewNop(), game.DefaultBounds())
	id, err := st.CreateRoom(context.Background(), game.Settings{DrawingTime: 60, TotalRounds: 3, MaxPlayers: 4})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	emptied := make(chan string, 1)
	rm := room.NewRoom(ctx, id, room.Deps{
		Store:   st,
		Prompts: prompt.NewGenerator(),
		Weights: similarity.DefaultWeights(),
		Timing:  room.DefaultTiming(),
		Log:     zap.NewNop(),
		OnEmpty: func(roomID string) { emptied <- roomID },
	})
	return rm, emptied
}

func TestReleaseClientClosesUnjoinedOutbox(t *testing.T) {
	out := make(chan types.Outbound, 16)

	releaseClient(nil, "sock-1", out, false)

	_, ok := <-out
	assert.False(t, ok, "an un-joined outbox must be closed so the writer goroutine exits")
}

func TestReleaseClientHandsJoinedSocketToActor(t *testing.T) {
	rm, emptied := newTestRoomActor(t)

	out := make(chan types.Outbound, 16)
	rm.Inbox() <- room.Join{SocketID: "sock-1", Nickname: "p1", ProfileID: "profile-1", Outbox: out}

	releaseClient(rm, "sock-1", out, true)

	// The lone player leaving empties the room; seeing the teardown
	// proves the Leave reached the actor.
	select {
	case <-emptied:
	case <-time.After(2 * time.Second):
		t.Fatal("leave was not delivered to the room actor")
	}
}

func TestRandID(t *testing.T) {
	a, b := randID(8), randID(8)
	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	assert.NotEqual(t, a, b)
}
