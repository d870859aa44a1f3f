package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/treefix50/soundboard/internal/board"
)

func (s *Server) handleListBindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.KeypadView())
}

func (s *Server) handleBind(w http.ResponseWriter, r *http.Request) {
	key, err := board.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var payload struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	if err := s.board.Bind(r.Context(), key, *payload.Index); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.hub.broadcast(s.bindingsMessage())
	writeJSON(w, http.StatusOK, s.board.KeypadView())
}

func (s *Server) handleUnbind(w http.ResponseWriter, r *http.Request) {
	key, err := board.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	removed, err := s.board.Bindings.Unbind(r.Context(), key)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if removed {
		s.hub.broadcast(s.bindingsMessage())
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// handleKeyPress forwards a key press from a client. Keys outside the
// keypad and presses made while typing are reported as unhandled.
func (s *Server) handleKeyPress(w http.ResponseWriter, r *http.Request) {
	key, err := board.ParseKey(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"handled": false})
		return
	}
	inInput, _ := strconv.ParseBool(r.URL.Query().Get("input"))

	handled, err := s.board.PressKey(r.Context(), board.KeyEvent{Code: key, InTextInput: inInput})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"handled": handled})
}
