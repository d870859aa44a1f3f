package server

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleAudio serves an uploaded file with range support so clients can
// play it in an audio element.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	file, ok, err := s.blobs.GetBlob(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "audio file not found")
		return
	}

	w.Header().Set("Content-Type", audioContentType(file.MIMEType, file.Name))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if file.Name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.Name}))
	}
	http.ServeContent(w, r, file.Name, file.CreatedAt, bytes.NewReader(file.Data))
}
