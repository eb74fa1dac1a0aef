package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/This-is-UserNamee/WebQuiz/internal/coordinator"
	"github.com/This-is-UserNamee/WebQuiz/internal/registry"
	"github.com/This-is-UserNamee/WebQuiz/internal/ws"
)

func SetupRoutes(log *zap.Logger, coord *coordinator.Coordinator, reg *registry.Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(reg))
	r.Get("/ws", ws.Handler(log, coord))
	return r
}
