// internal/httpserver/routes_game.go
//
// HTTP routes for the per-channel game:
//   - POST /channels/{channelID}/game         → start a game (409 if one is running)
//   - GET  /channels/{channelID}/game         → running game and its guesses, answer withheld
//   - POST /channels/{channelID}/game/forfeit → end the game and reveal the answer
//   - POST /channels/{channelID}/guesses      → submit a guess for a user
//
// Every guess for a channel goes through the session engine, which serializes
// writes per channel and records each guess atomically.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/snaildle/internal/game"
)

func (s *Server) mountGameRoutes(r chi.Router) {
	r.Post("/channels/{channelID}/game", s.handleStart)
	r.Get("/channels/{channelID}/game", s.handleActiveGame)
	r.Post("/channels/{channelID}/game/forfeit", s.handleForfeit)
	r.Post("/channels/{channelID}/guesses", s.handleGuess)
}

// actorReq identifies the user behind a request.
type actorReq struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (a actorReq) actor() game.Actor {
	return game.Actor{UserID: strings.TrimSpace(a.UserID), Username: strings.TrimSpace(a.Username)}
}

type startRes struct {
	GameID    int64     `json:"gameId"`
	ChannelID string    `json:"channelId"`
	StartedAt time.Time `json:"startedAt"`
}

// handleStart creates a new game; the optional body names who asked.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	var body actorReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}
	g, err := s.sessions.Start(r.Context(), channelID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if who := body.actor(); who.UserID != "" {
		if err := s.sessions.TouchPlayer(r.Context(), who); err != nil {
			log.Warn().Err(err).Str("user", who.UserID).Msg("player cache update failed")
		}
	}
	writeJSON(w, http.StatusCreated, startRes{GameID: g.ID, ChannelID: g.ChannelID, StartedAt: g.StartedAt})
}

type guessView struct {
	Number    int         `json:"number"`
	UserID    string      `json:"userId"`
	Word      string      `json:"word"`
	Marks     []game.Mark `json:"marks"`
	Feedback  string      `json:"feedback"`
	CreatedAt time.Time   `json:"createdAt"`
}

type activeGameRes struct {
	GameID           int64       `json:"gameId"`
	ChannelID        string      `json:"channelId"`
	StartedAt        time.Time   `json:"startedAt"`
	GuessCount       int         `json:"guessCount"`
	ParticipantCount int         `json:"participantCount"`
	Guesses          []guessView `json:"guesses"`
}

// handleActiveGame shows the running game without its answer.
func (s *Server) handleActiveGame(w http.ResponseWriter, r *http.Request) {
	g, guesses, err := s.sessions.ActiveGame(r.Context(), chi.URLParam(r, "channelID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res := activeGameRes{
		GameID:           g.ID,
		ChannelID:        g.ChannelID,
		StartedAt:        g.StartedAt,
		GuessCount:       g.GuessCount,
		ParticipantCount: g.ParticipantCount,
		Guesses:          make([]guessView, 0, len(guesses)),
	}
	for _, gs := range guesses {
		fb := game.Score(gs.Word, g.Answer)
		res.Guesses = append(res.Guesses, guessView{
			Number:    gs.Number,
			UserID:    gs.UserID,
			Word:      gs.Word,
			Marks:     fb,
			Feedback:  fb.String(),
			CreatedAt: gs.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

// handleForfeit ends the running game and reveals the answer.
func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	answer, err := s.sessions.Forfeit(r.Context(), channelID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"channelId": channelID, "answer": answer})
}

type guessReq struct {
	actorReq
	Word string `json:"word"`
}

type guessRes struct {
	GameID         int64       `json:"gameId"`
	GuessNumber    int         `json:"guessNumber"`
	Word           string      `json:"word"`
	Marks          []game.Mark `json:"marks"`
	Feedback       string      `json:"feedback"`
	Won            bool        `json:"won"`
	Answer         string      `json:"answer,omitempty"`
	NewParticipant bool        `json:"newParticipant"`
}

// handleGuess validates, scores and records one guess.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var body guessReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}
	who := body.actor()
	if who.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user", "userId is required")
		return
	}
	// Chat clients pad arguments; the engine counts every character.
	out, err := s.sessions.SubmitGuess(r.Context(), chi.URLParam(r, "channelID"), who, strings.TrimSpace(body.Word))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guessRes{
		GameID:         out.GameID,
		GuessNumber:    out.GuessNumber,
		Word:           out.Word,
		Marks:          out.Feedback,
		Feedback:       out.Feedback.String(),
		Won:            out.Won,
		Answer:         out.Answer,
		NewParticipant: out.NewParticipant,
	})
}
