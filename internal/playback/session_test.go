package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/soundboard/internal/clip"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeWidget struct {
	log     *callLog
	mu      sync.Mutex
	mounted bool
	loads   []Segment
	loadErr error
}

func (w *fakeWidget) SetVolume(v int) error { w.log.add("widget.volume"); return nil }

func (w *fakeWidget) Load(_ context.Context, seg Segment) error {
	w.log.add("widget.load")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loadErr != nil {
		return w.loadErr
	}
	w.loads = append(w.loads, seg)
	return nil
}

func (w *fakeWidget) Play() error    { w.log.add("widget.play"); return nil }
func (w *fakeWidget) Stop() error    { w.log.add("widget.stop"); return nil }
func (w *fakeWidget) Destroy() error { w.log.add("widget.destroy"); return nil }

func (w *fakeWidget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

func (w *fakeWidget) unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mounted = false
}

func (w *fakeWidget) segments() []Segment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Segment(nil), w.loads...)
}

type fakeHost struct {
	log      *callLog
	mu       sync.Mutex
	apiCalls int
	apiErr   error
	widgets  []*fakeWidget
}

func (h *fakeHost) LoadAPI(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.apiCalls++
	return h.apiErr
}

func (h *fakeHost) NewWidget(_ context.Context, mountID string, _ Segment, _ WidgetEvents) (Widget, error) {
	h.log.add("host.new")
	h.mu.Lock()
	defer h.mu.Unlock()
	w := &fakeWidget{log: h.log, mounted: true}
	h.widgets = append(h.widgets, w)
	return w, nil
}

func (h *fakeHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.widgets)
}

func (h *fakeHost) last() *fakeWidget {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.widgets[len(h.widgets)-1]
}

type fakeHandle struct {
	log   *callLog
	onEnd func()
}

func (h *fakeHandle) Stop() { h.log.add("audio.stop") }

type fakeAudio struct {
	log     *callLog
	mu      sync.Mutex
	handles []*fakeHandle
	volumes []float64
}

func (a *fakeAudio) Play(file clip.AudioFile, volume float64, onEnd func()) (AudioHandle, error) {
	a.log.add("audio.play")
	a.mu.Lock()
	defer a.mu.Unlock()
	h := &fakeHandle{log: a.log, onEnd: onEnd}
	a.handles = append(a.handles, h)
	a.volumes = append(a.volumes, volume)
	return h, nil
}

type fakeBlobs map[string]clip.AudioFile

func (b fakeBlobs) GetBlob(_ context.Context, id string) (clip.AudioFile, bool, error) {
	f, ok := b[id]
	return f, ok, nil
}

type recorder struct {
	mu      sync.Mutex
	states  []State
	notices []Notice
}

func (r *recorder) PlaybackChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) Notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type fixture struct {
	log     *callLog
	host    *fakeHost
	audio   *fakeAudio
	events  *recorder
	session *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &callLog{}
	f := &fixture{
		log:    log,
		host:   &fakeHost{log: log},
		audio:  &fakeAudio{log: log},
		events: &recorder{},
	}
	f.session = NewSession(Options{
		Host:   f.host,
		Audio:  f.audio,
		Blobs:  fakeBlobs{"a1": {ID: "a1", Name: "boom.mp3", Data: []byte{1}}},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.session.AddListener(f.events)
	return f
}

func remoteClip(vid string, start, end int) clip.Clip {
	return clip.NewRemote(vid, start, end, "")
}

// playAsync starts a remote request that blocks until the widget is ready.
func (f *fixture) playAsync(index int, c clip.Clip) <-chan error {
	done := make(chan error, 1)
	go func() { done <- f.session.RequestPlay(context.Background(), index, c) }()
	return done
}

func (f *fixture) waitActive(t *testing.T, index int) {
	t.Helper()
	require.Eventually(t, func() bool {
		active, ok := f.session.Active()
		return ok && active == index
	}, time.Second, time.Millisecond)
}

// readyRemote plays a remote clip at index and completes widget creation.
func (f *fixture) readyRemote(t *testing.T, index int, c clip.Clip) *fakeWidget {
	t.Helper()
	before := f.host.count()
	done := f.playAsync(index, c)
	f.waitCreated(t, before+1)
	f.waitActive(t, index)
	f.session.WidgetReady(f.host.last())
	require.NoError(t, <-done)
	return f.host.last()
}

func (f *fixture) waitCreated(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.host.count() == n }, time.Second, time.Millisecond)
}

func TestSessionLocalPlayAndEnd(t *testing.T) {
	f := newFixture(t)
	c := clip.NewLocal("a1", "boom")
	c.Volume = 40

	require.NoError(t, f.session.RequestPlay(context.Background(), 2, c))
	st := f.session.State()
	require.True(t, st.Playing(2))
	assert.Equal(t, clip.KindLocal, st.Kind)
	assert.Equal(t, []float64{0.4}, f.audio.volumes)

	f.audio.handles[0].onEnd()
	_, playing := f.session.Active()
	assert.False(t, playing)
	assert.Equal(t, []string{"audio.play", "audio.stop"}, f.log.all())
}

func TestSessionToggleOff(t *testing.T) {
	f := newFixture(t)
	c := clip.NewLocal("a1", "boom")

	require.NoError(t, f.session.RequestPlay(context.Background(), 0, c))
	require.NoError(t, f.session.RequestPlay(context.Background(), 0, c))

	_, playing := f.session.Active()
	assert.False(t, playing)
	assert.Len(t, f.audio.handles, 1)
}

func TestSessionStopsRemoteBeforeLocal(t *testing.T) {
	f := newFixture(t)
	f.readyRemote(t, 0, remoteClip("abc", 10, 20))

	require.NoError(t, f.session.RequestPlay(context.Background(), 1, clip.NewLocal("a1", "")))

	assert.Equal(t, []string{
		"host.new",
		"widget.volume", "widget.load", "widget.play",
		"widget.stop",
		"audio.play",
	}, f.log.all())
	assert.True(t, f.session.State().Playing(1))
}

func TestSessionStopsLocalBeforeRemote(t *testing.T) {
	f := newFixture(t)
	w := f.readyRemote(t, 0, remoteClip("abc", 10, 20))
	require.NoError(t, f.session.RequestPlay(context.Background(), 1, clip.NewLocal("a1", "")))

	require.NoError(t, f.session.RequestPlay(context.Background(), 0, remoteClip("abc", 10, 20)))

	calls := f.log.all()
	assert.Equal(t, []string{"audio.play", "audio.stop", "widget.volume", "widget.load", "widget.play"}, calls[len(calls)-5:])
	assert.Len(t, w.segments(), 2)
	assert.Equal(t, 1, f.host.count())
}

func TestSessionLastRequestWinsWhileCreating(t *testing.T) {
	f := newFixture(t)

	first := f.playAsync(0, remoteClip("first", 0, 5))
	f.waitCreated(t, 1)
	f.waitActive(t, 0)

	second := f.playAsync(1, remoteClip("second", 3, 9))
	f.waitActive(t, 1)

	w := f.host.last()
	f.session.WidgetReady(w)

	require.NoError(t, <-first)
	require.NoError(t, <-second)
	segs := w.segments()
	require.Len(t, segs, 1)
	assert.Equal(t, "second", segs[0].VideoID)
	assert.Equal(t, 3, segs[0].Start)
	assert.Equal(t, 9, segs[0].End)
	assert.Equal(t, 1, f.host.count())
	assert.Equal(t, 1, f.host.apiCalls)
	assert.True(t, f.session.State().Playing(1))
}

func TestSessionStopSupersedesReadyWait(t *testing.T) {
	f := newFixture(t)

	done := f.playAsync(0, remoteClip("abc", 0, 5))
	f.waitCreated(t, 1)
	f.waitActive(t, 0)
	f.session.Stop()
	require.NoError(t, <-done)

	w := f.host.last()
	f.session.WidgetReady(w)
	assert.Empty(t, w.segments())
	st := f.session.State()
	assert.Nil(t, st.Active)
	assert.Equal(t, "ready", st.Widget)
}

func TestSessionRecreatesStaleWidget(t *testing.T) {
	f := newFixture(t)
	old := f.readyRemote(t, 0, remoteClip("abc", 0, 5))
	old.unmount()

	fresh := f.readyRemote(t, 1, remoteClip("def", 0, 5))

	assert.NotSame(t, old, fresh)
	assert.Equal(t, 2, f.host.count())
	assert.Contains(t, f.log.all(), "widget.destroy")
	assert.Len(t, fresh.segments(), 1)
	assert.Equal(t, 1, f.host.apiCalls)
}

func TestSessionEndedKeepsWidget(t *testing.T) {
	f := newFixture(t)
	w := f.readyRemote(t, 0, remoteClip("abc", 0, 5))

	run := w.segments()[0].Run

	f.session.WidgetStateChanged(w, run, WidgetPlaying)
	assert.True(t, f.session.State().Playing(0))

	f.session.WidgetStateChanged(w, run, WidgetEnded)
	st := f.session.State()
	assert.Nil(t, st.Active)
	assert.Equal(t, "ready", st.Widget)
	assert.NotContains(t, f.log.all(), "widget.destroy")
}

func TestSessionIgnoresEndOfEarlierSegment(t *testing.T) {
	f := newFixture(t)
	w := f.readyRemote(t, 0, remoteClip("abc", 0, 5))
	first := w.segments()[0].Run

	require.NoError(t, f.session.RequestPlay(context.Background(), 1, remoteClip("def", 0, 5)))
	segs := w.segments()
	require.Len(t, segs, 2)
	second := segs[1].Run
	assert.NotEqual(t, first, second)

	f.session.WidgetStateChanged(w, first, WidgetEnded)
	assert.True(t, f.session.State().Playing(1))

	f.session.WidgetStateChanged(w, second, WidgetEnded)
	assert.Nil(t, f.session.State().Active)
}

func TestSessionWidgetErrorWhileCreating(t *testing.T) {
	f := newFixture(t)

	done := f.playAsync(0, remoteClip("abc", 0, 5))
	f.waitCreated(t, 1)
	f.waitActive(t, 0)
	f.session.WidgetError(f.host.last(), errors.New("embedding disabled"))

	err := <-done
	require.ErrorIs(t, err, ErrPlaybackRejected)
	st := f.session.State()
	assert.Nil(t, st.Active)
	assert.Equal(t, "not_created", st.Widget)
	require.Equal(t, 1, f.events.noticeCount())
	assert.Equal(t, msgEmbedRejected, f.events.notices[0].Message)

	f.readyRemote(t, 0, remoteClip("abc", 0, 5))
	assert.Equal(t, 2, f.host.count())
}

func TestSessionWidgetErrorWhilePlaying(t *testing.T) {
	f := newFixture(t)
	w := f.readyRemote(t, 0, remoteClip("abc", 0, 5))

	f.session.WidgetError(w, errors.New("video unavailable"))

	st := f.session.State()
	assert.Nil(t, st.Active)
	assert.Equal(t, "ready", st.Widget)
	assert.Equal(t, 1, f.events.noticeCount())
}

func TestSessionRejectedLoad(t *testing.T) {
	f := newFixture(t)
	w := f.readyRemote(t, 0, remoteClip("abc", 0, 5))
	w.loadErr = errors.New("blocked")

	err := f.session.RequestPlay(context.Background(), 1, remoteClip("def", 0, 5))
	require.ErrorIs(t, err, ErrPlaybackRejected)
	_, playing := f.session.Active()
	assert.False(t, playing)
	assert.Equal(t, 1, f.events.noticeCount())
}

func TestSessionMissingBlob(t *testing.T) {
	f := newFixture(t)

	err := f.session.RequestPlay(context.Background(), 0, clip.NewLocal("gone", ""))
	require.ErrorIs(t, err, ErrAudioMissing)
	_, playing := f.session.Active()
	assert.False(t, playing)
	require.Equal(t, 1, f.events.noticeCount())
	assert.Equal(t, "error", f.events.notices[0].Level)
	assert.Empty(t, f.audio.handles)
}

func TestSessionRetriesFailedAPILoad(t *testing.T) {
	f := newFixture(t)
	f.host.apiErr = errors.New("offline")

	err := f.session.RequestPlay(context.Background(), 0, remoteClip("abc", 0, 5))
	require.Error(t, err)
	assert.Equal(t, 0, f.host.count())

	f.host.mu.Lock()
	f.host.apiErr = nil
	f.host.mu.Unlock()
	f.readyRemote(t, 0, remoteClip("abc", 0, 5))
	assert.Equal(t, 2, f.host.apiCalls)
}

func TestSessionStaleAudioEndIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.RequestPlay(context.Background(), 0, clip.NewLocal("a1", "")))
	require.NoError(t, f.session.RequestPlay(context.Background(), 1, clip.NewLocal("a1", "")))

	f.audio.handles[0].onEnd()
	assert.True(t, f.session.State().Playing(1))
}

func TestSessionStateEvents(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.RequestPlay(context.Background(), 0, clip.NewLocal("a1", "")))
	f.session.Stop()
	f.session.Stop()

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.states, 2)
	assert.True(t, f.events.states[0].Playing(0))
	assert.Nil(t, f.events.states[1].Active)
}
