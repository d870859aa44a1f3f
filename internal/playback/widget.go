package playback

import "context"

// Segment is the part of a hosted video a remote clip plays. Run tags the
// request that loaded it; players report it back with state changes.
type Segment struct {
	VideoID string `json:"videoId"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Run     uint64 `json:"-"`
}

// WidgetPhase is the lifecycle of the shared embedded player.
type WidgetPhase int

const (
	PhaseNotCreated WidgetPhase = iota
	PhaseCreating
	PhaseReady
)

func (p WidgetPhase) String() string {
	switch p {
	case PhaseCreating:
		return "creating"
	case PhaseReady:
		return "ready"
	default:
		return "not_created"
	}
}

// WidgetState mirrors the player states reported by the embedded player.
type WidgetState string

const (
	WidgetUnstarted WidgetState = "unstarted"
	WidgetEnded     WidgetState = "ended"
	WidgetPlaying   WidgetState = "playing"
	WidgetPaused    WidgetState = "paused"
	WidgetBuffering WidgetState = "buffering"
	WidgetCued      WidgetState = "cued"
)

// Widget is one embedded video player instance.
type Widget interface {
	SetVolume(volume int) error
	Load(ctx context.Context, seg Segment) error
	Play() error
	Stop() error
	Destroy() error
	// Mounted reports whether the player's mount point still exists.
	Mounted() bool
}

// WidgetEvents receives the player's events. Implementations of Widget must
// deliver them from their own goroutine, never from inside a Widget method.
// State changes carry the Run of the segment that was loaded when the
// player produced them.
type WidgetEvents interface {
	WidgetReady(w Widget)
	WidgetError(w Widget, err error)
	WidgetStateChanged(w Widget, run uint64, state WidgetState)
}

// WidgetHost loads the player API and builds players.
type WidgetHost interface {
	// LoadAPI loads the third-party player script. The session calls it
	// until it succeeds once.
	LoadAPI(ctx context.Context) error
	NewWidget(ctx context.Context, mountID string, seg Segment, events WidgetEvents) (Widget, error)
}
