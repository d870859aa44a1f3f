// Package widget provides hosts for the embedded video player used by
// remote clips.
package widget

import (
	"errors"
	"fmt"

	"github.com/treefix50/soundboard/internal/playback"
)

// Player errors, mapped from the embedded player's error codes.
var (
	ErrEmbedDisabled = errors.New("video owner does not allow embedded playback")
	ErrVideoNotFound = errors.New("video not found")
	ErrBadParameter  = errors.New("invalid player parameter")
	ErrPlayerHTML5   = errors.New("html5 player error")
	ErrClosed        = errors.New("widget host closed")
)

// stateFromCode maps YT.PlayerState values.
func stateFromCode(code int) (playback.WidgetState, bool) {
	switch code {
	case -1:
		return playback.WidgetUnstarted, true
	case 0:
		return playback.WidgetEnded, true
	case 1:
		return playback.WidgetPlaying, true
	case 2:
		return playback.WidgetPaused, true
	case 3:
		return playback.WidgetBuffering, true
	case 5:
		return playback.WidgetCued, true
	default:
		return "", false
	}
}

// errorFromCode maps the onError codes of the iframe API.
func errorFromCode(code int) error {
	switch code {
	case 2:
		return ErrBadParameter
	case 5:
		return ErrPlayerHTML5
	case 100:
		return ErrVideoNotFound
	case 101, 150, 153:
		return ErrEmbedDisabled
	default:
		return fmt.Errorf("player error %d", code)
	}
}
