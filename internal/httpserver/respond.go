package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
)

type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON sets the JSON content type and encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorRes{Error: code, Message: msg})
}

// writeEngineError maps engine rejections to 400 and anything else to 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var ve *game.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Reason(), ve.Msg)
		return
	}
	log.Error().Err(err).Msg("engine")
	writeError(w, http.StatusInternalServerError, "server_error", "")
}
