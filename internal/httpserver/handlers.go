// internal/httpserver/handlers.go
//
// Player route handlers. Each resolves the caller's session and maps one
// request onto one engine or store operation.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/game"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/generate"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/persist"
	"github.com/Zhosolune/guess-the-entry-vercel/internal/scoreboard"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// writeError maps the engine/store failure taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Message: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrRateLimited):
		status, body.Error, body.Code = http.StatusTooManyRequests, "rate_limited", generate.CodeRateLimit
	case errors.Is(err, game.ErrGeneration):
		status, body.Error, body.Code = http.StatusBadGateway, "generation_failed", generate.CodeOf(err)
	case errors.Is(err, game.ErrNotPlaying):
		status, body.Error = http.StatusConflict, "not_playing"
	case errors.Is(err, game.ErrAlreadyResolved):
		status, body.Error = http.StatusConflict, "already_resolved"
	case errors.Is(err, game.ErrInvalidChar):
		status, body.Error = http.StatusBadRequest, "invalid_char"
	case errors.Is(err, game.ErrScript):
		status, body.Error = http.StatusBadRequest, "unsupported_char"
	case errors.Is(err, game.ErrNotInEntry):
		status, body.Error = http.StatusBadRequest, "not_in_entry"
	case errors.Is(err, game.ErrUnknownCategory):
		status, body.Error = http.StatusBadRequest, "unknown_category"
	case errors.Is(err, game.ErrValidation):
		status, body.Error = http.StatusBadRequest, "invalid_request"
	default:
		log.Error().Err(err).Msg("storage failure")
		body.Error, body.Message = "storage_failed", ""
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_json"})
		return false
	}
	return true
}

func (s *Server) session(r *http.Request) *session {
	return s.sessions.get(r.Context(), playerID(r.Context()))
}

// ------------------------------ ROUND --------------------------------------

type newRoundReq struct {
	Category string `json:"category"` // key or display name; empty means random
}

type charReq struct {
	Char string `json:"char"`
}

type guessRes struct {
	game.GuessResult
	Round game.View `json:"round"`
}

func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" {
		req.Category = entry.Random
	}
	sess := s.session(r)
	if err := sess.engine.StartRound(r.Context(), req.Category); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.engine.View())
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(r).engine.View())
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req charReq
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.session(r)
	res, err := sess.engine.ProcessGuess(r.Context(), req.Char)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guessRes{GuessResult: res, Round: sess.engine.View()})
}

func (s *Server) handleHintReveal(w http.ResponseWriter, r *http.Request) {
	var req charReq
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.session(r)
	res, err := sess.engine.RequestHintReveal(r.Context(), req.Char)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guessRes{GuessResult: res, Round: sess.engine.View()})
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := s.session(r).engine.Advise()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.engine.Reset(r.Context())
	writeJSON(w, http.StatusOK, sess.engine.View())
}

// ---------------------------- PREFERENCES ----------------------------------

var (
	themes      = map[string]bool{"light": true, "dark": true, "system": true}
	refPosition = map[string]bool{"bottom": true, "left": true, "right": true}
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r).store.Peek(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Settings)
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch persist.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.Theme != nil && !themes[*patch.Theme] {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_theme", Message: *patch.Theme})
		return
	}
	if patch.QuickRefPosition != nil && !refPosition[*patch.QuickRefPosition] {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_position", Message: *patch.QuickRefPosition})
		return
	}
	settings, err := s.session(r).store.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePatchUI(w http.ResponseWriter, r *http.Request) {
	var patch persist.UIFlags
	if !decodeBody(w, r, &patch) {
		return
	}
	ui, err := s.session(r).store.PatchUI(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ui)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	d, err := s.session(r).store.Peek(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreboard.Summarize(d.Stats))
}

func (s *Server) handleExcluded(w http.ResponseWriter, r *http.Request) {
	key := entry.Normalize(chi.URLParam(r, "category"))
	if !entry.IsKnown(key) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown_category", Message: key})
		return
	}
	titles, err := s.session(r).store.Excluded(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": key, "titles": titles})
}
