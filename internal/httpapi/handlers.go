package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/identity"
	"github.com/project-alluminati/alluminati-backend/internal/lobby"
)

const qrSize = 256

type createLobbyRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type createLobbyResponse struct {
	Code string `json:"code"`
}

// CreateLobby allocates a code and writes the new session record with the
// caller as host.
func CreateLobby(m *lobby.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = identity.DefaultName
		}
		if req.Image == "" {
			req.Image = identity.DefaultImage
		}

		code, err := m.Create(r.Context(), req.Name, req.Image)
		if err != nil {
			log.Error("create lobby failed", zap.Error(err))
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createLobbyResponse{Code: code})
	}
}

// LobbyQR renders the join code as a PNG for phones to scan.
func LobbyQR(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
		if err != nil {
			log.Error("qr encode failed", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to encode qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// JoinLobby appends the caller to an existing lobby; 404 on a bad code.
func JoinLobby(m *lobby.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			req.Name = identity.DefaultName
		}
		if req.Image == "" {
			req.Image = identity.DefaultImage
		}

		err := m.Join(r.Context(), code, req.Name, req.Image)
		if errors.Is(err, lobby.ErrNotFound) {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("join lobby failed", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to join lobby", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
