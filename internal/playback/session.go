package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/treefix50/soundboard/internal/clip"
)

const (
	DefaultMountID   = "yt-iframe-api"
	DefaultNoticeTTL = 4 * time.Second

	msgEmbedRejected = "This sound cannot be played in an embedded player."
	msgAudioMissing  = "Audio file not found."
	msgAudioFailed   = "This audio file cannot be played."
)

// Errors returned by RequestPlay. Each one is also announced to listeners
// as a notice.
var (
	ErrAudioMissing     = errors.New("audio file not found")
	ErrPlaybackRejected = errors.New("playback rejected")
	ErrNoWidget         = errors.New("no video player available")
	ErrNoAudioOutput    = errors.New("no audio output available")
)

// Options configures a Session. Host and Audio may be nil, in which case
// clips of that kind fail with ErrNoWidget or ErrNoAudioOutput.
type Options struct {
	Host      WidgetHost
	Audio     AudioOutput
	Blobs     BlobSource
	Logger    *slog.Logger
	MountID   string
	NoticeTTL time.Duration
}

// Session owns the single playback slot: one shared embedded player and at
// most one local audio stream. Starting any clip stops whatever is playing.
//
// The lock is released only while loading the player script, waiting for
// the player's ready event and reading a blob. Each request takes a new
// generation number; a request that wakes up to find a newer generation has
// been superseded and returns without touching the slot.
type Session struct {
	mu sync.Mutex

	host      WidgetHost
	audio     AudioOutput
	blobs     BlobSource
	logger    *slog.Logger
	mountID   string
	noticeTTL time.Duration

	listeners []Listener
	pending   []event

	gen        uint64
	superseded chan struct{}
	playing    bool
	active     int
	activeKind clip.Kind

	widget    Widget
	phase     WidgetPhase
	readyCh   chan struct{}
	widgetErr error

	apiLoaded  bool
	apiLoading chan struct{}

	audioHandle AudioHandle
}

// NewSession returns an idle session.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mountID := opts.MountID
	if mountID == "" {
		mountID = DefaultMountID
	}
	ttl := opts.NoticeTTL
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &Session{
		host:       opts.Host,
		audio:      opts.Audio,
		blobs:      opts.Blobs,
		logger:     logger,
		mountID:    mountID,
		noticeTTL:  ttl,
		active:     -1,
		superseded: make(chan struct{}),
	}
}

// AddListener registers l for state changes and notices.
func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Active returns the index of the clip holding the playback slot.
func (s *Session) Active() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.playing
}

// RequestPlay toggles the clip at index: if it is the active clip it is
// stopped, otherwise whatever is active is stopped and c starts. A request
// superseded by a newer one while it waits returns nil.
func (s *Session) RequestPlay(ctx context.Context, index int, c clip.Clip) error {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.playing && s.active == index {
		s.logger.Debug("toggling clip off", slog.Int("index", index))
		s.stopLocked()
		return nil
	}

	s.stopLocked()
	gen := s.gen
	s.playing, s.active, s.activeKind = true, index, c.Kind

	var err error
	switch c.Kind {
	case clip.KindLocal:
		err = s.playLocalLocked(ctx, gen, c)
	case clip.KindRemote:
		err = s.playRemoteLocked(ctx, gen, c)
	default:
		err = fmt.Errorf("%w %q", clip.ErrUnknownKind, c.Kind)
	}

	if err != nil {
		if s.gen == gen {
			s.idleLocked()
		}
		s.logger.Warn("playback failed",
			slog.Int("index", index),
			slog.String("kind", string(c.Kind)),
			slog.String("error", err.Error()),
		)
		return err
	}
	if s.gen == gen {
		s.logger.Info("playing clip", slog.Int("index", index), slog.String("kind", string(c.Kind)))
	}
	return nil
}

// Stop silences whatever is playing. It never fails; errors from the
// player are logged and dropped.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.unlockAndFlush()
	s.stopLocked()
}

// Close stops playback and destroys the player.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.unlockAndFlush()
	s.stopLocked()
	s.discardWidgetLocked()
}

func (s *Session) playLocalLocked(ctx context.Context, gen uint64, c clip.Clip) error {
	if s.blobs == nil || s.audio == nil {
		s.noticeLocked("error", msgAudioFailed)
		return ErrNoAudioOutput
	}

	s.mu.Unlock()
	file, ok, err := s.blobs.GetBlob(ctx, c.AudioID)
	s.mu.Lock()

	if s.gen != gen {
		return nil
	}
	if err != nil {
		s.noticeLocked("error", msgAudioFailed)
		return fmt.Errorf("load audio %s: %w", c.AudioID, err)
	}
	if !ok {
		s.noticeLocked("error", msgAudioMissing)
		return fmt.Errorf("%w: %s", ErrAudioMissing, c.AudioID)
	}

	handle, err := s.audio.Play(file, float64(c.Volume)/100, func() { s.audioEnded(gen) })
	if err != nil {
		s.noticeLocked("error", msgAudioFailed)
		return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
	}
	s.audioHandle = handle
	s.emitStateLocked()
	return nil
}

func (s *Session) audioEnded(gen uint64) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.gen != gen || s.audioHandle == nil {
		return
	}
	handle := s.audioHandle
	s.audioHandle = nil
	handle.Stop()
	s.idleLocked()
}

func (s *Session) playRemoteLocked(ctx context.Context, gen uint64, c clip.Clip) error {
	if s.host == nil {
		s.noticeLocked("error", msgEmbedRejected)
		return ErrNoWidget
	}
	seg := Segment{VideoID: c.VideoID, Start: c.Start, End: c.End, Run: gen}

	for {
		if s.gen != gen {
			return nil
		}
		if s.widget != nil && !s.widget.Mounted() {
			s.logger.Debug("player mount point gone, recreating")
			s.discardWidgetLocked()
		}

		switch s.phase {
		case PhaseReady:
			w := s.widget
			err := w.SetVolume(c.Volume)
			if err == nil {
				err = w.Load(ctx, seg)
			}
			if err == nil {
				err = w.Play()
			}
			if err != nil {
				s.noticeLocked("error", msgEmbedRejected)
				return fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
			}
			s.emitStateLocked()
			return nil

		case PhaseCreating:
			ready, superseded := s.readyCh, s.superseded
			s.mu.Unlock()
			select {
			case <-ready:
				s.mu.Lock()
			case <-superseded:
				s.mu.Lock()
				return nil
			case <-ctx.Done():
				s.mu.Lock()
				if s.gen != gen {
					return nil
				}
				return ctx.Err()
			}
			if s.gen == gen && s.phase == PhaseNotCreated && s.widgetErr != nil {
				return fmt.Errorf("%w: %w", ErrPlaybackRejected, s.widgetErr)
			}

		case PhaseNotCreated:
			if err := s.ensureAPILocked(ctx); err != nil {
				if s.gen != gen {
					return nil
				}
				s.noticeLocked("error", msgEmbedRejected)
				return fmt.Errorf("load player api: %w", err)
			}
			if s.gen != gen {
				return nil
			}
			if s.phase != PhaseNotCreated {
				continue
			}
			w, err := s.host.NewWidget(ctx, s.mountID, seg, s)
			if err != nil {
				s.noticeLocked("error", msgEmbedRejected)
				return fmt.Errorf("%w: create player: %w", ErrPlaybackRejected, err)
			}
			s.widget = w
			s.phase = PhaseCreating
			s.readyCh = make(chan struct{})
			s.widgetErr = nil
			s.logger.Debug("player created, waiting for ready")
			s.emitStateLocked()
		}
	}
}

// ensureAPILocked loads the player script once. Concurrent callers wait for
// the load in flight; a failed load is retried by the next caller.
func (s *Session) ensureAPILocked(ctx context.Context) error {
	for {
		if s.apiLoaded {
			return nil
		}
		if loading := s.apiLoading; loading != nil {
			s.mu.Unlock()
			select {
			case <-loading:
				s.mu.Lock()
				continue
			case <-ctx.Done():
				s.mu.Lock()
				return ctx.Err()
			}
		}

		loading := make(chan struct{})
		s.apiLoading = loading
		s.mu.Unlock()
		err := s.host.LoadAPI(ctx)
		s.mu.Lock()
		s.apiLoading = nil
		close(loading)
		if err != nil {
			return err
		}
		s.apiLoaded = true
		s.logger.Debug("player api loaded")
		return nil
	}
}

// WidgetReady implements WidgetEvents.
func (s *Session) WidgetReady(w Widget) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if w != s.widget || s.phase != PhaseCreating {
		return
	}
	s.phase = PhaseReady
	close(s.readyCh)
	s.readyCh = nil
	s.emitStateLocked()
}

// WidgetError implements WidgetEvents. An error before ready drops the
// player so the next request builds a fresh one.
func (s *Session) WidgetError(w Widget, err error) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if w != s.widget {
		return
	}
	s.logger.Warn("player error", slog.String("error", err.Error()))

	if s.phase == PhaseCreating {
		s.widgetErr = err
		s.discardWidgetLocked()
	}
	s.noticeLocked("error", msgEmbedRejected)
	if s.playing && s.activeKind == clip.KindRemote {
		s.idleLocked()
	}
}

// WidgetStateChanged implements WidgetEvents. The player stays mounted after
// a segment ends so the next request can reuse it. An end reported for an
// earlier request's segment is ignored.
func (s *Session) WidgetStateChanged(w Widget, run uint64, state WidgetState) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if w != s.widget || state != WidgetEnded {
		return
	}
	if run != s.gen {
		s.logger.Debug("ignoring end of an earlier segment", slog.Uint64("run", run))
		return
	}
	if s.playing && s.activeKind == clip.KindRemote {
		s.logger.Debug("segment ended", slog.Int("index", s.active))
		s.idleLocked()
	}
}

// stopLocked starts a new generation, which releases any request still
// waiting for the player.
func (s *Session) stopLocked() {
	s.gen++
	close(s.superseded)
	s.superseded = make(chan struct{})
	if s.playing && s.activeKind == clip.KindRemote && s.widget != nil && s.phase == PhaseReady {
		if err := s.widget.Stop(); err != nil {
			s.logger.Debug("player stop failed", slog.String("error", err.Error()))
		}
	}
	if s.audioHandle != nil {
		s.audioHandle.Stop()
		s.audioHandle = nil
	}
	if s.playing {
		s.idleLocked()
	}
}

func (s *Session) idleLocked() {
	s.playing = false
	s.active = -1
	s.activeKind = ""
	s.emitStateLocked()
}

// discardWidgetLocked forgets the player. Waiters blocked on readiness are
// released and find the phase back at NotCreated.
func (s *Session) discardWidgetLocked() {
	if s.widget != nil {
		if err := s.widget.Destroy(); err != nil {
			s.logger.Debug("player destroy failed", slog.String("error", err.Error()))
		}
	}
	s.widget = nil
	s.phase = PhaseNotCreated
	if s.readyCh != nil {
		close(s.readyCh)
		s.readyCh = nil
	}
}

func (s *Session) stateLocked() State {
	st := State{Widget: s.phase.String()}
	if s.playing {
		active := s.active
		st.Active = &active
		st.Kind = s.activeKind
	}
	return st
}

func (s *Session) emitStateLocked() {
	st := s.stateLocked()
	s.pending = append(s.pending, event{state: &st})
}

func (s *Session) noticeLocked(level, message string) {
	n := newNotice(level, message, s.noticeTTL)
	s.pending = append(s.pending, event{notice: &n})
}

func (s *Session) unlockAndFlush() {
	events := s.pending
	s.pending = nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			if ev.state != nil {
				l.PlaybackChanged(*ev.state)
			}
			if ev.notice != nil {
				l.Notice(*ev.notice)
			}
		}
	}
}
