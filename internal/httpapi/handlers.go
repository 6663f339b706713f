package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/game"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/pkg/types"
)

// CreateRoom handles POST /rooms. The room exists in the store from here
// on; its actor is spawned lazily by the first websocket connection.
func CreateRoom(st *store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad json")
			return
		}

		settings := game.Settings{
			DrawingTime: req.DrawingTime,
			TotalRounds: req.TotalRounds,
			MaxPlayers:  req.MaxPlayer,
		}

		id, err := st.CreateRoom(r.Context(), settings)
		if err != nil {
			if errors.Is(err, game.ErrConfigInvalid) {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error("create room failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.CreateRoomResponse{RoomID: id})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorData{Message: msg})
}
