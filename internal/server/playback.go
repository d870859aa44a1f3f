package server

import "github.com/treefix50/soundboard/internal/playback"

// PlaybackState is the read side of the playback session.
type PlaybackState interface {
	State() playback.State
	AddListener(l playback.Listener)
}
