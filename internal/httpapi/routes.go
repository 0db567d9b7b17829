package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/lobby"
	"github.com/project-alluminati/alluminati-backend/internal/ws"
)

func SetupRoutes(store docstore.Store, m *lobby.Manager, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/lobbies", CreateLobby(m, log))
	r.Post("/lobbies/{code}/join", JoinLobby(m, log))
	r.Get("/lobbies/{code}/qr", LobbyQR(log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(store, log))
	return r
}
