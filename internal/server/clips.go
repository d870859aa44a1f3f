package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treefix50/soundboard/internal/board"
	"github.com/treefix50/soundboard/internal/clip"
	"github.com/treefix50/soundboard/internal/playback"
)

type clipView struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Kind    clip.Kind `json:"kind"`
	VideoID string    `json:"videoId,omitempty"`
	Start   *int      `json:"start,omitempty"`
	End     *int      `json:"end,omitempty"`
	Range   string    `json:"range,omitempty"`
	AudioID string    `json:"audioId,omitempty"`
	Label   string    `json:"label,omitempty"`
	Volume  int       `json:"volume"`
	Playing bool      `json:"playing"`
	Keys    []string  `json:"keys,omitempty"`
}

func (s *Server) clipViews() []clipView {
	clips := s.board.Clips.Clips()
	state := s.playbackState()
	keys := s.boundKeys(len(clips))

	views := make([]clipView, 0, len(clips))
	for i, c := range clips {
		views = append(views, newClipView(i, c, state.Playing(i), keys[i]))
	}
	return views
}

// clipViewAt renders one clip with its current playing flag and keys.
func (s *Server) clipViewAt(index int, c clip.Clip) clipView {
	keys := s.boundKeys(s.board.Clips.Len())
	return newClipView(index, c, s.playbackState().Playing(index), keys[index])
}

func (s *Server) playbackState() playback.State {
	if s.playback == nil {
		return playback.State{}
	}
	return s.playback.State()
}

func (s *Server) boundKeys(registryLen int) map[int][]string {
	keys := make(map[int][]string)
	for _, k := range s.board.Bindings.Bound() {
		if index, ok := s.board.Bindings.Lookup(k, registryLen); ok {
			keys[index] = append(keys[index], k.Label())
		}
	}
	return keys
}

func newClipView(index int, c clip.Clip, playing bool, keys []string) clipView {
	v := clipView{
		Index:   index,
		Name:    c.DisplayName(index),
		Kind:    c.Kind,
		AudioID: c.AudioID,
		Label:   c.Label,
		Volume:  c.Volume,
		Playing: playing,
		Keys:    keys,
	}
	if !c.IsLocal() {
		start, end := c.Start, c.End
		v.VideoID = c.VideoID
		v.Start, v.End = &start, &end
		v.Range = clip.FormatTimestamp(start) + "-" + clip.FormatTimestamp(end)
	}
	return v
}

func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clipViews())
}

// timestampString accepts a JSON number or string for a time field.
func timestampString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func (s *Server) handleAddClip(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Link   string `json:"link"`
		Start  any    `json:"start"`
		End    any    `json:"end"`
		Label  string `json:"label"`
		Volume *int   `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	c, err := board.NewRemoteClip(payload.Link, timestampString(payload.Start), timestampString(payload.End), payload.Label)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if payload.Volume != nil {
		c.Volume = clip.ClampVolume(*payload.Volume)
	}
	index, err := s.board.Clips.Add(r.Context(), c)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.clipViewAt(index, c))
}

func (s *Server) handleUploadClip(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	file := clip.AudioFile{
		Label:    r.FormValue("label"),
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     int64(len(data)),
		Data:     data,
	}
	c, index, err := s.board.AddFile(r.Context(), file)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.clipViewAt(index, c))
}

func (s *Server) handleRemoveClip(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	removed, err := s.board.Remove(r.Context(), index)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var payload struct {
		Volume *int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Volume == nil {
		writeError(w, http.StatusBadRequest, "volume is required")
		return
	}
	if err := s.board.Clips.SetVolume(r.Context(), index, *payload.Volume); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	c, _ := s.board.Clips.Get(index)
	writeJSON(w, http.StatusOK, s.clipViewAt(index, c))
}

func (s *Server) handlePlayClip(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := s.board.Play(r.Context(), index); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.handlePlaybackState(w, r)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.board.Stop()
	s.handlePlaybackState(w, r)
}

func (s *Server) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	if s.playback == nil {
		writeJSON(w, http.StatusOK, playback.State{Widget: playback.PhaseNotCreated.String()})
		return
	}
	writeJSON(w, http.StatusOK, s.playback.State())
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "index"))
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid index %q", raw))
		return 0, false
	}
	return index, true
}
