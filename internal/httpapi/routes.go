package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sketchmatch/sketchmatch-backend/internal/hub"
	"github.com/sketchmatch/sketchmatch-backend/internal/store"
	"github.com/sketchmatch/sketchmatch-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, st *store.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/rooms", CreateRoom(st, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, st, log))
	return r
}
