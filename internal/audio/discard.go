package audio

import (
	"time"

	"github.com/treefix50/soundboard/internal/clip"
	"github.com/treefix50/soundboard/internal/playback"
)

// Discard decodes files but never opens a device. Playback ends after the
// file's duration, which keeps the session behaving as with a speaker.
type Discard struct {
	// Convert handles formats Decode does not know; nil rejects them.
	Convert ConvertFunc
}

func (d Discard) Play(file clip.AudioFile, _ float64, onEnd func()) (playback.AudioHandle, error) {
	stream, format, err := open(file, d.Convert)
	if err != nil {
		return nil, err
	}
	length := format.SampleRate.D(stream.Len())

	h := newHandle(stream, onEnd)
	timer := time.AfterFunc(length, h.finish)
	close(h.started)
	return &discardHandle{handle: h, timer: timer}, nil
}

type discardHandle struct {
	*handle
	timer *time.Timer
}

func (d *discardHandle) Stop() {
	d.timer.Stop()
	d.handle.Stop()
}
