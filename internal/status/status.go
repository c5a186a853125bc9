package status

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sharetube/synctube/internal/player"
	"github.com/sharetube/synctube/internal/room"
	"github.com/sharetube/synctube/internal/transport"
	"github.com/sharetube/synctube/pkg/ctxlogger"
)

type iSession interface {
	ID() string
	Snapshot() room.Snapshot
	PlayerStatus() player.Status
	TransportState() transport.State
}

type PlayerResponse struct {
	SessionID string        `json:"session_id"`
	Transport string        `json:"transport"`
	Player    player.Status `json:"player"`
}

type server struct {
	session iSession
	logger  *slog.Logger
}

func NewServer(session iSession, logger *slog.Logger) *server {
	return &server{session: session, logger: logger}
}

func (s server) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestIdMw)
	r.Use(s.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/room", s.getRoom)
		r.Get("/player", s.getPlayer)
	})

	return r
}

func (s server) getRoom(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if !snap.Bootstrapped() {
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": "not joined yet"})
		return
	}

	s.writeJSON(w, r, http.StatusOK, snap)
}

func (s server) getPlayer(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, PlayerResponse{
		SessionID: s.session.ID(),
		Transport: s.session.TransportState().String(),
		Player:    s.session.PlayerStatus(),
	})
}

func (s server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WarnContext(r.Context(), "failed to write response", "error", err)
	}
}

func (s server) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s server) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}
