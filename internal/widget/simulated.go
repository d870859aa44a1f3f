package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/treefix50/soundboard/internal/playback"
)

// SimulatedHost plays segments without a browser: players become ready
// right away and end after the segment length has elapsed.
type SimulatedHost struct {
	// Second is the wall time of one segment second.
	Second time.Duration
	// Blocked lists videos whose owners refuse embedded playback.
	Blocked map[string]bool
	Logger  *slog.Logger

	mu       sync.Mutex
	apiLoads int
}

// NewSimulatedHost returns a host whose clips run in real time.
func NewSimulatedHost(logger *slog.Logger) *SimulatedHost {
	return &SimulatedHost{Second: time.Second, Logger: logger}
}

func (h *SimulatedHost) LoadAPI(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	h.apiLoads++
	h.mu.Unlock()
	return nil
}

// APILoads reports how often LoadAPI succeeded.
func (h *SimulatedHost) APILoads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.apiLoads
}

func (h *SimulatedHost) NewWidget(_ context.Context, mountID string, seg playback.Segment, events playback.WidgetEvents) (playback.Widget, error) {
	w := &simWidget{host: h, events: events, seg: seg, mounted: true}
	h.logf("simulated player created", slog.String("mount", mountID), slog.String("video", seg.VideoID))
	go events.WidgetReady(w)
	return w, nil
}

func (h *SimulatedHost) second() time.Duration {
	if h.Second <= 0 {
		return time.Second
	}
	return h.Second
}

func (h *SimulatedHost) logf(msg string, attrs ...any) {
	if h.Logger != nil {
		h.Logger.Debug(msg, attrs...)
	}
}

type simWidget struct {
	host   *SimulatedHost
	events playback.WidgetEvents

	mu      sync.Mutex
	seg     playback.Segment
	volume  int
	mounted bool
	timer   *time.Timer
	run     uint64
}

func (w *simWidget) SetVolume(volume int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.volume = volume
	return nil
}

func (w *simWidget) Load(_ context.Context, seg playback.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
	w.seg = seg
	return nil
}

func (w *simWidget) Play() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopTimerLocked()
	if w.host.Blocked[w.seg.VideoID] {
		go w.events.WidgetError(w, ErrEmbedDisabled)
		return nil
	}

	w.run++
	run := w.run
	segRun := w.seg.Run
	length := time.Duration(w.seg.End-w.seg.Start) * w.host.second()
	go w.events.WidgetStateChanged(w, segRun, playback.WidgetPlaying)
	w.timer = time.AfterFunc(length, func() {
		w.mu.Lock()
		current := w.run == run && w.mounted
		w.mu.Unlock()
		if current {
			w.events.WidgetStateChanged(w, segRun, playback.WidgetEnded)
		}
	})
	return nil
}

func (w *simWidget) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
	return nil
}

func (w *simWidget) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
	w.mounted = false
	return nil
}

func (w *simWidget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

func (w *simWidget) stopTimerLocked() {
	w.run++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
