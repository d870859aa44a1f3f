package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/treefix50/soundboard/internal/auth"
	"github.com/treefix50/soundboard/internal/board"
	"github.com/treefix50/soundboard/internal/clip"
	"github.com/treefix50/soundboard/internal/playback"
)

const (
	errInternal = "internal error"
	errNotFound = "not found"

	defaultMaxUpload = 25 << 20
)

// Options wires the server to the board and its collaborators. Auth may be
// nil, which leaves every route open.
type Options struct {
	Addr           string
	Board          *board.Soundboard
	Playback       PlaybackState
	Blobs          BlobStore
	Auth           *auth.Manager
	CORS           bool
	MaxUploadBytes int64
	LoginInterval  time.Duration
	MountID        string
	Logger         *slog.Logger
}

type Server struct {
	addr      string
	board     *board.Soundboard
	playback  PlaybackState
	blobs     BlobStore
	auth      *auth.Manager
	cors      bool
	maxUpload int64
	mountID   string
	limiter   *RateLimiter
	hub       *Hub
	logger    *slog.Logger
	http      *http.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	interval := opts.LoginInterval
	if interval <= 0 {
		interval = 6 * time.Second
	}
	mountID := opts.MountID
	if mountID == "" {
		mountID = playback.DefaultMountID
	}

	s := &Server{
		addr:      opts.Addr,
		board:     opts.Board,
		playback:  opts.Playback,
		blobs:     opts.Blobs,
		auth:      opts.Auth,
		cors:      opts.CORS,
		maxUpload: maxUpload,
		mountID:   mountID,
		limiter:   NewRateLimiter(interval),
		logger:    logger,
	}
	s.hub = newHub(logger, s.snapshot)

	if s.playback != nil {
		s.playback.AddListener(s.hub)
	}
	s.board.Clips.OnChange(func([]clip.Clip) {
		s.hub.broadcast(s.clipsMessage())
		s.hub.broadcast(s.bindingsMessage())
	})

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/player", s.handlePlayerPage)
	r.Get("/events", s.handleEvents)

	r.Get("/clips", s.handleListClips)
	r.Get("/playback", s.handlePlaybackState)
	r.Get("/export", s.handleExport)
	r.Get("/bindings", s.handleListBindings)
	r.Get("/audio/{id}", s.handleAudio)

	r.Post("/auth/login", s.handleAuthLogin)
	r.Post("/auth/logout", s.handleAuthLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/clips", s.handleAddClip)
		r.Post("/clips/upload", s.handleUploadClip)
		r.Delete("/clips/{index}", s.handleRemoveClip)
		r.Put("/clips/{index}/volume", s.handleSetVolume)
		r.Post("/clips/{index}/play", s.handlePlayClip)
		r.Post("/stop", s.handleStop)
		r.Post("/import", s.handleImport)
		r.Put("/bindings/{key}", s.handleBind)
		r.Delete("/bindings/{key}", s.handleUnbind)
		r.Post("/keys/{code}", s.handleKeyPress)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close drains requests for up to timeout and disconnects event clients.
func (s *Server) Close(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.http.Shutdown(ctx)
	s.hub.close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps domain errors onto status codes.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, status, errInternal)
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrInvalidInput),
		errors.Is(err, board.ErrInvalidImport),
		errors.Is(err, board.ErrUnknownKey),
		errors.Is(err, clip.ErrInvalidTimestamp),
		errors.Is(err, clip.ErrInvalidLink):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrIndexOutOfRange),
		errors.Is(err, playback.ErrAudioMissing):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrPlaybackRejected),
		errors.Is(err, playback.ErrNoWidget),
		errors.Is(err, playback.ErrNoAudioOutput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
