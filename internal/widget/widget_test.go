package widget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/treefix50/soundboard/internal/clip"
	"github.com/treefix50/soundboard/internal/playback"
)

func TestStateFromCode(t *testing.T) {
	tests := []struct {
		code int
		want playback.WidgetState
		ok   bool
	}{
		{-1, playback.WidgetUnstarted, true},
		{0, playback.WidgetEnded, true},
		{1, playback.WidgetPlaying, true},
		{2, playback.WidgetPaused, true},
		{3, playback.WidgetBuffering, true},
		{5, playback.WidgetCued, true},
		{4, "", false},
	}
	for _, tt := range tests {
		got, ok := stateFromCode(tt.code)
		assert.Equal(t, tt.ok, ok, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

func TestErrorFromCode(t *testing.T) {
	assert.ErrorIs(t, errorFromCode(150), ErrEmbedDisabled)
	assert.ErrorIs(t, errorFromCode(101), ErrEmbedDisabled)
	assert.ErrorIs(t, errorFromCode(100), ErrVideoNotFound)
	assert.ErrorIs(t, errorFromCode(2), ErrBadParameter)
	assert.EqualError(t, errorFromCode(42), "player error 42")
}

func TestParseBindingEvent(t *testing.T) {
	ev := parseBindingEvent(gson.NewFrom(`{"id":"c1","type":"state","data":0,"run":7}`))
	assert.Equal(t, bindingEvent{ID: "c1", Type: "state", Code: 0, Run: 7}, ev)

	ev = parseBindingEvent(gson.NewFrom(`{"id":"c2","type":"ready","data":150}`))
	assert.Equal(t, "ready", ev.Type)
	assert.Equal(t, 150, ev.Code)
}

type eventLog struct {
	mu     sync.Mutex
	ready  int
	errs   []error
	states []playback.WidgetState
	runs   []uint64
}

func (l *eventLog) WidgetReady(playback.Widget) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready++
}

func (l *eventLog) WidgetError(_ playback.Widget, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *eventLog) WidgetStateChanged(_ playback.Widget, run uint64, s playback.WidgetState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
	l.runs = append(l.runs, run)
}

func (l *eventLog) runsSeen() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.runs...)
}

func (l *eventLog) snapshot() (int, []error, []playback.WidgetState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready, append([]error(nil), l.errs...), append([]playback.WidgetState(nil), l.states...)
}

func TestSimulatedWidgetLifecycle(t *testing.T) {
	host := &SimulatedHost{Second: time.Millisecond}
	events := &eventLog{}

	require.NoError(t, host.LoadAPI(context.Background()))
	w, err := host.NewWidget(context.Background(), "mount", playback.Segment{VideoID: "abc", Start: 0, End: 5}, events)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ready, _, _ := events.snapshot()
		return ready == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, w.Load(context.Background(), playback.Segment{VideoID: "abc", Start: 10, End: 12, Run: 3}))
	require.NoError(t, w.Play())

	require.Eventually(t, func() bool {
		_, _, states := events.snapshot()
		return len(states) == 2
	}, time.Second, time.Millisecond)
	_, _, states := events.snapshot()
	assert.ElementsMatch(t, []playback.WidgetState{playback.WidgetPlaying, playback.WidgetEnded}, states)
	assert.Equal(t, []uint64{3, 3}, events.runsSeen())
	assert.True(t, w.Mounted())

	require.NoError(t, w.Destroy())
	assert.False(t, w.Mounted())
}

func TestSimulatedStopCancelsEnd(t *testing.T) {
	host := &SimulatedHost{Second: 20 * time.Millisecond}
	events := &eventLog{}
	w, err := host.NewWidget(context.Background(), "mount", playback.Segment{VideoID: "abc", Start: 0, End: 1}, events)
	require.NoError(t, err)

	require.NoError(t, w.Play())
	require.NoError(t, w.Stop())
	time.Sleep(60 * time.Millisecond)

	_, _, states := events.snapshot()
	assert.NotContains(t, states, playback.WidgetEnded)
}

func TestSimulatedBlockedVideo(t *testing.T) {
	host := &SimulatedHost{Second: time.Millisecond, Blocked: map[string]bool{"nope": true}}
	events := &eventLog{}
	w, err := host.NewWidget(context.Background(), "mount", playback.Segment{VideoID: "nope", Start: 0, End: 1}, events)
	require.NoError(t, err)

	require.NoError(t, w.Play())
	require.Eventually(t, func() bool {
		_, errs, _ := events.snapshot()
		return len(errs) == 1
	}, time.Second, time.Millisecond)
	_, errs, _ := events.snapshot()
	assert.ErrorIs(t, errs[0], ErrEmbedDisabled)
}

func TestSimulatedHostDrivesSession(t *testing.T) {
	host := &SimulatedHost{Second: 50 * time.Millisecond}
	session := playback.NewSession(playback.Options{Host: host})

	require.NoError(t, session.RequestPlay(context.Background(), 0, clip.NewRemote("abc", 0, 3, "")))
	assert.True(t, session.State().Playing(0))
	assert.Equal(t, "ready", session.State().Widget)

	require.Eventually(t, func() bool {
		_, playing := session.Active()
		return !playing
	}, time.Second, time.Millisecond)
	assert.Equal(t, "ready", session.State().Widget)

	require.NoError(t, session.RequestPlay(context.Background(), 1, clip.NewRemote("def", 0, 3, "")))
	assert.Equal(t, 1, host.APILoads())
	session.Close()
}
