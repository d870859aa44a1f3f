package playback

import (
	"context"

	"github.com/treefix50/soundboard/internal/clip"
)

// BlobSource resolves the audio file behind a local clip.
type BlobSource interface {
	GetBlob(ctx context.Context, id string) (clip.AudioFile, bool, error)
}

// AudioOutput plays decoded local files. onEnd runs once playback drains on
// its own; it must not run before Play returns and must not run after Stop.
type AudioOutput interface {
	Play(file clip.AudioFile, volume float64, onEnd func()) (AudioHandle, error)
}

// AudioHandle controls one playing file. Stop is safe to call repeatedly
// and releases the decoded stream.
type AudioHandle interface {
	Stop()
}
