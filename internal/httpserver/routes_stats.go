package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

func (s *Server) mountStatsRoutes(r chi.Router) {
	r.Get("/channels/{channelID}/stats", s.handleChannelStats)
	r.Get("/channels/{channelID}/leaderboard", s.handleLeaderboard)
	r.Get("/players/{userID}/stats", s.handlePlayerStats)
	r.Get("/stats", s.handleGlobalStats)
}

func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request) {
	cs, err := s.stats.ChannelStats(r.Context(), chi.URLParam(r, "channelID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// handleLeaderboard accepts ?limit=N (1..100, default 10).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	channelID := chi.URLParam(r, "channelID")
	entries, err := s.stats.Leaderboard(r.Context(), channelID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channelId": channelID, "entries": entries})
}

// handlePlayerStats accepts ?channel=ID; without it stats span every channel.
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	ps, err := s.stats.PlayerStats(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("channel"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	gs, err := s.stats.GlobalStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}
