package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/xid"
	"github.com/ysmood/gson"

	"github.com/treefix50/soundboard/internal/playback"
)

const (
	DefaultAPIURL = "https://www.youtube.com/iframe_api"

	eventBinding = "soundboardEvent"
	blankPage    = `<!doctype html><html><head><meta charset="utf-8"><title>soundboard player</title></head><body></body></html>`
)

// RodOptions configures the headless browser behind RodHost.
type RodOptions struct {
	// PageURL is the page the player lives on. An empty value loads a blank
	// document instead.
	PageURL string
	APIURL  string
	// Bin overrides the browser binary; empty lets the launcher find or
	// download one.
	Bin      string
	Headless bool
	Timeout  time.Duration
	Logger   *slog.Logger
}

// RodHost drives the iframe player inside a headless Chrome page.
type RodHost struct {
	opts   RodOptions
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	stopBind func() error
	widgets  map[string]*rodWidget
	closed   bool
}

// NewRodHost returns a host that starts the browser on first use.
func NewRodHost(opts RodOptions) *RodHost {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RodHost{
		opts:    opts,
		logger:  logger,
		widgets: make(map[string]*rodWidget),
	}
}

// LoadAPI starts the browser on first use, injects the iframe API script
// and waits until YT.Player exists.
func (h *RodHost) LoadAPI(ctx context.Context) error {
	page, err := h.ensurePage()
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(h.opts.Timeout)

	if err := p.AddScriptTag(h.opts.APIURL, ""); err != nil {
		return fmt.Errorf("inject player api: %w", err)
	}
	if err := p.Wait(rod.Eval(`() => !!(window.YT && window.YT.Player)`)); err != nil {
		return fmt.Errorf("wait for player api: %w", err)
	}
	h.logger.Debug("iframe api ready", slog.String("url", h.opts.APIURL))
	return nil
}

func (h *RodHost) ensurePage() (*rod.Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if h.page != nil {
		return h.page, nil
	}

	l := launcher.New().Headless(h.opts.Headless)
	if h.opts.Bin != "" {
		l = l.Bin(h.opts.Bin)
	}
	// Autoplay needs no user gesture in the driven browser.
	l = l.Set("autoplay-policy", "no-user-gesture-required")
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := h.preparePage(page); err != nil {
		page.Close()
		browser.Close()
		l.Cleanup()
		return nil, err
	}

	stop, err := page.Expose(eventBinding, h.onEvent)
	if err != nil {
		page.Close()
		browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("expose event binding: %w", err)
	}

	h.launcher, h.browser, h.page, h.stopBind = l, browser, page, stop
	h.logger.Info("player browser started", slog.Bool("headless", h.opts.Headless))
	return page, nil
}

func (h *RodHost) preparePage(page *rod.Page) error {
	p := page.Timeout(h.opts.Timeout)
	if h.opts.PageURL == "" {
		if err := p.SetDocumentContent(blankPage); err != nil {
			return fmt.Errorf("set player page: %w", err)
		}
		return nil
	}
	if err := p.Navigate(h.opts.PageURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", h.opts.PageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for player page: %w", err)
	}
	return nil
}

// NewWidget creates a YT.Player on the mount point. Events for the player
// arrive through the exposed page binding.
func (h *RodHost) NewWidget(ctx context.Context, mountID string, seg playback.Segment, events playback.WidgetEvents) (playback.Widget, error) {
	page, err := h.ensurePage()
	if err != nil {
		return nil, err
	}

	w := &rodWidget{
		id:     xid.New().String(),
		host:   h,
		page:   page,
		events: events,
	}
	h.mu.Lock()
	h.widgets[w.id] = w
	h.mu.Unlock()

	_, err = page.Context(ctx).Timeout(h.opts.Timeout).Eval(createPlayerJS, mountID, w.id, seg.VideoID, seg.Start, seg.End, seg.Run, eventBinding)
	if err != nil {
		h.forget(w.id)
		return nil, fmt.Errorf("create player: %w", err)
	}
	h.logger.Debug("player created", slog.String("widget", w.id), slog.String("mount", mountID))
	return w, nil
}

type bindingEvent struct {
	ID   string
	Type string
	Code int
	Run  uint64
}

func parseBindingEvent(payload gson.JSON) bindingEvent {
	return bindingEvent{
		ID:   payload.Get("id").Str(),
		Type: payload.Get("type").Str(),
		Code: payload.Get("data").Int(),
		Run:  uint64(payload.Get("run").Int()),
	}
}

func (h *RodHost) onEvent(payload gson.JSON) (interface{}, error) {
	ev := parseBindingEvent(payload)

	h.mu.Lock()
	w := h.widgets[ev.ID]
	h.mu.Unlock()
	if w == nil {
		return nil, nil
	}

	go w.dispatch(ev)
	return nil, nil
}

func (h *RodHost) forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.widgets, id)
}

// Close shuts the browser down. Widgets created by the host stop working.
func (h *RodHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.widgets = make(map[string]*rodWidget)

	if h.stopBind != nil {
		_ = h.stopBind()
	}
	if h.page != nil {
		_ = h.page.Close()
	}
	var err error
	if h.browser != nil {
		err = h.browser.Close()
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
	}
	return err
}

type rodWidget struct {
	id     string
	host   *RodHost
	page   *rod.Page
	events playback.WidgetEvents
}

func (w *rodWidget) dispatch(ev bindingEvent) {
	switch ev.Type {
	case "ready":
		w.events.WidgetReady(w)
	case "error":
		w.events.WidgetError(w, errorFromCode(ev.Code))
	case "state":
		if state, ok := stateFromCode(ev.Code); ok {
			w.events.WidgetStateChanged(w, ev.Run, state)
		}
	}
}

func (w *rodWidget) call(js string, args ...interface{}) (gson.JSON, error) {
	res, err := w.page.Timeout(w.host.opts.Timeout).Eval(js, append([]interface{}{w.id}, args...)...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

func (w *rodWidget) SetVolume(volume int) error {
	_, err := w.call(`(id, v) => window.__soundboardPlayers[id].setVolume(v)`, volume)
	return err
}

// Load tags the player with seg.Run in the same evaluation that swaps the
// video, so events sent before the swap keep the previous run.
func (w *rodWidget) Load(ctx context.Context, seg playback.Segment) error {
	_, err := w.page.Context(ctx).Timeout(w.host.opts.Timeout).Eval(
		`(id, videoId, start, end, run) => {
			const p = window.__soundboardPlayers[id];
			p.__soundboardRun = run;
			p.loadVideoById({videoId: videoId, startSeconds: start, endSeconds: end});
		}`,
		w.id, seg.VideoID, seg.Start, seg.End, seg.Run,
	)
	return err
}

func (w *rodWidget) Play() error {
	_, err := w.call(`(id) => window.__soundboardPlayers[id].playVideo()`)
	return err
}

func (w *rodWidget) Stop() error {
	_, err := w.call(`(id) => window.__soundboardPlayers[id].stopVideo()`)
	return err
}

func (w *rodWidget) Destroy() error {
	w.host.forget(w.id)
	_, err := w.call(`(id) => {
		const p = window.__soundboardPlayers[id];
		delete window.__soundboardPlayers[id];
		if (p) { p.destroy(); }
	}`)
	return err
}

func (w *rodWidget) Mounted() bool {
	v, err := w.call(`(id) => {
		const p = window.__soundboardPlayers && window.__soundboardPlayers[id];
		if (!p || typeof p.getIframe !== "function") { return false; }
		const frame = p.getIframe();
		return !!frame && document.body.contains(frame);
	}`)
	if err != nil {
		return false
	}
	return v.Bool()
}

const createPlayerJS = `(mountId, id, videoId, start, end, run, binding) => {
	window.__soundboardPlayers = window.__soundboardPlayers || {};
	let mount = document.getElementById(mountId);
	if (!mount) {
		mount = document.createElement("div");
		mount.id = mountId;
		document.body.appendChild(mount);
	} else if (mount.tagName === "IFRAME") {
		const fresh = document.createElement("div");
		fresh.id = mountId;
		mount.replaceWith(fresh);
	}
	const send = (type, data) => {
		const p = window.__soundboardPlayers[id];
		const current = p && p.__soundboardRun !== undefined ? p.__soundboardRun : run;
		window[binding]({id: id, type: type, data: data === undefined ? 0 : data, run: current});
	};
	window.__soundboardPlayers[id] = new YT.Player(mountId, {
		width: 320,
		height: 180,
		videoId: videoId,
		playerVars: {start: start, end: end, autoplay: 0, controls: 0, playsinline: 1},
		events: {
			onReady: () => send("ready"),
			onStateChange: (e) => send("state", e.data),
			onError: (e) => send("error", e.data),
		},
	});
}`
