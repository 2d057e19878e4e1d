// internal/httpserver/server.go
//
// HTTP server wiring for the snaildle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, request logs).
//   - Public endpoints: "/", "/health", "/debug/words", POST /auth/token.
//   - Game endpoints (auth when enabled): /channels/{channelID}/game, /guesses.
//   - Stats endpoints (auth when enabled): channel stats, leaderboard, player and global stats.
//
// Notes:
//   - The chat bot calls this API with already-parsed parameters; rendering is its job.
//   - Auth is a client-credentials exchange: the bot trades its id/secret for a
//     short-lived JWT. With no secret hash configured every route is open.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/robalobadob/snaildle/internal/game"
	"github.com/robalobadob/snaildle/internal/stats"
)

// Sessions is the subset of the session engine the handlers use.
type Sessions interface {
	Start(ctx context.Context, channelID string) (game.Game, error)
	Forfeit(ctx context.Context, channelID string) (string, error)
	SubmitGuess(ctx context.Context, channelID string, who game.Actor, word string) (game.Outcome, error)
	ActiveGame(ctx context.Context, channelID string) (game.Game, []game.Guess, error)
	TouchPlayer(ctx context.Context, who game.Actor) error
}

// Stats is the subset of the stats engine the handlers use.
type Stats interface {
	PlayerStats(ctx context.Context, userID, channelID string) (stats.PlayerStats, error)
	ChannelStats(ctx context.Context, channelID string) (stats.ChannelStats, error)
	Leaderboard(ctx context.Context, channelID string, limit int) ([]stats.LeaderboardEntry, error)
	GlobalStats(ctx context.Context) (stats.GlobalStats, error)
}

// WordCounter reports word list sizes for /debug/words.
type WordCounter interface {
	Stats() (answers int, allowed int)
}

// Options bundles the server's collaborators and settings.
type Options struct {
	Sessions       Sessions
	Stats          Stats
	Words          WordCounter
	Auth           AuthConfig
	ClientOrigin   string
	RequestTimeout time.Duration
}

// Server bundles the router and its collaborators.
type Server struct {
	r        *chi.Mux
	sessions Sessions
	stats    Stats
	words    WordCounter
	auth     AuthConfig
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		sessions: opts.Sessions,
		stats:    opts.Stats,
		words:    opts.Words,
		auth:     opts.Auth,
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)         // add X-Request-ID
	s.r.Use(chimw.RealIP)            // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)           // one zerolog line per request
	s.r.Use(chimw.Recoverer)         // recover from panics
	s.r.Use(chimw.Timeout(timeout))  // bound handler time
	s.r.Use(jsonContentType)         // default JSON responses
	s.r.Use(cors(opts.ClientOrigin)) // single-origin CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "snaildle",
			"endpoints": []string{
				"/health",
				"POST /auth/token",
				"POST|GET /channels/{channelID}/game",
				"POST /channels/{channelID}/game/forfeit",
				"POST /channels/{channelID}/guesses",
				"GET /channels/{channelID}/stats",
				"GET /channels/{channelID}/leaderboard",
				"GET /players/{userID}/stats",
				"GET /stats",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := s.words.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"answers": a, "allowed": g})
	})

	// Client-credential exchange (only when auth is configured)
	if s.auth.Enabled() {
		s.r.Post("/auth/token", s.handleToken)
	}

	// Game + stats (auth when enabled)
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		s.mountGameRoutes(r)
		s.mountStatsRoutes(r)
	})

	// JSON 404/405 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }
