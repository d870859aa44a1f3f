package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/treefix50/soundboard/internal/board"
)

const exportFilename = "soundboard.json"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.board.Clips.Export()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	policy, err := board.ParseImportPolicy(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	added, err := s.board.Clips.Import(r.Context(), data, policy)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":  policy.String(),
		"added": added,
		"total": s.board.Clips.Len(),
	})
}
