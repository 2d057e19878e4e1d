package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/snaildle/internal/game"
)

type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorRes{Error: code, Message: msg})
}

// writeServiceError maps engine errors onto HTTP responses.
// Input errors and conflicts are echoed; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrWrongLength):
		writeError(w, http.StatusBadRequest, "wrong_length", err.Error())
	case errors.Is(err, game.ErrNonAlphabetic):
		writeError(w, http.StatusBadRequest, "non_alphabetic", err.Error())
	case errors.Is(err, game.ErrInvalidWord):
		writeError(w, http.StatusBadRequest, "invalid_word", err.Error())
	case errors.Is(err, game.ErrNoActiveGame):
		writeError(w, http.StatusNotFound, "no_active_game", err.Error())
	case errors.Is(err, game.ErrAlreadyActive):
		writeError(w, http.StatusConflict, "already_active", err.Error())
	case errors.Is(err, game.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "busy", game.ErrBusy.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			// chimw.Timeout answers 504 for an expired request.
			return
		}
		writeError(w, http.StatusServiceUnavailable, "timeout", "request timed out")
	default:
		log.Error().
			Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Str("client", clientFrom(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
