package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/hub"
	"github.com/sketchmatch/sketchmatch-backend/internal/prompt"
	"github.com/sketchmatch/sketchmatch-backend/internal/room"
	"github.com/sketchmatch/sketchmatch-backend/internal/similarity"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.New(client, zap.NewNop(), game.DefaultBounds())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, room.Deps{
		Store:   st,
		Prompts: prompt.NewGenerator(),
		Weights: similarity.DefaultWeights(),
		Timing:  room.DefaultTiming(),
		Log:     zap.NewNop(),
	}, zap.NewNop())

	return SetupRoutes(h, st, zap.NewNop())
}

func TestCreateRoom(t *testing.T) {
	router := newTestRouter(t)

	body := `{"maxPlayer":4,"totalRounds":3,"drawingTime":60}`
	req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp types.CreateRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.RoomID, 6)
}

func TestCreateRoomRejectsOutOfBoundsSettings(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"too many players", `{"maxPlayer":9,"totalRounds":3,"drawingTime":60}`},
		{"too few players", `{"maxPlayer":1,"totalRounds":3,"drawingTime":60}`},
		{"too many rounds", `{"maxPlayer":4,"totalRounds":11,"drawingTime":60}`},
		{"drawing time too short", `{"maxPlayer":4,"totalRounds":3,"drawingTime":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp types.ErrorData
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCreateRoomRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebsocketUnknownRoomIs404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ws?roomId=NOPE42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebsocketMissingRoomIDIs400(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
