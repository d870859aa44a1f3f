package playback

import (
	"time"

	"github.com/rs/xid"

	"github.com/treefix50/soundboard/internal/clip"
)

// State is a snapshot of the session.
type State struct {
	Active *int      `json:"active"`
	Kind   clip.Kind `json:"kind,omitempty"`
	Widget string    `json:"widget"`
}

// Playing reports whether index is the active clip.
func (s State) Playing(index int) bool {
	return s.Active != nil && *s.Active == index
}

// Notice is a short user-facing message that clients dismiss once
// ExpiresAt has passed.
type Notice struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newNotice(level, message string, ttl time.Duration) Notice {
	return Notice{
		ID:        xid.New().String(),
		Level:     level,
		Message:   message,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Listener observes state changes and notices.
type Listener interface {
	PlaybackChanged(State)
	Notice(Notice)
}

type event struct {
	state  *State
	notice *Notice
}
