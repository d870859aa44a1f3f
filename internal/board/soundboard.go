package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/treefix50/soundboard/internal/clip"
)

// Player is the playback side of the board.
type Player interface {
	RequestPlay(ctx context.Context, index int, c clip.Clip) error
	Stop()
	Active() (int, bool)
}

// BlobWriter stores uploaded audio files.
type BlobWriter interface {
	PutBlob(ctx context.Context, file clip.AudioFile) (string, error)
}

// KeyEvent is a key press forwarded from a client.
type KeyEvent struct {
	Code Key
	// InTextInput is set when focus was inside a text field; such presses
	// belong to the field and are never treated as shortcuts.
	InTextInput bool
}

// Soundboard ties the clip registry and key bindings to a player.
type Soundboard struct {
	Clips    *Registry
	Bindings *Bindings
	player   Player
	blobs    BlobWriter
	logger   *slog.Logger
}

func New(clips *Registry, bindings *Bindings, player Player, blobs BlobWriter, logger *slog.Logger) *Soundboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Soundboard{
		Clips:    clips,
		Bindings: bindings,
		player:   player,
		blobs:    blobs,
		logger:   logger,
	}
}

// Load restores clips and bindings from the store.
func (s *Soundboard) Load(ctx context.Context) error {
	if err := s.Clips.Load(ctx); err != nil {
		return err
	}
	return s.Bindings.Load(ctx)
}

// NewRemoteClip validates add-form input and builds the clip. Timestamps
// may be plain seconds, mm:ss or hh:mm:ss.
func NewRemoteClip(link, start, end, label string) (clip.Clip, error) {
	videoID, err := clip.ExtractVideoID(link)
	if err != nil {
		return clip.Clip{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	startSecs, err := clip.ParseTimestamp(start)
	if err != nil {
		return clip.Clip{}, fmt.Errorf("%w: start: %w", ErrInvalidInput, err)
	}
	endSecs, err := clip.ParseTimestamp(end)
	if err != nil {
		return clip.Clip{}, fmt.Errorf("%w: end: %w", ErrInvalidInput, err)
	}
	c := clip.NewRemote(videoID, startSecs, endSecs, strings.TrimSpace(label))
	if err := c.Validate(); err != nil {
		return clip.Clip{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return c, nil
}

// AddRemote adds a video segment from add-form input.
func (s *Soundboard) AddRemote(ctx context.Context, link, start, end, label string) (clip.Clip, int, error) {
	c, err := NewRemoteClip(link, start, end, label)
	if err != nil {
		return clip.Clip{}, 0, err
	}
	index, err := s.Clips.Add(ctx, c)
	if err != nil {
		return clip.Clip{}, 0, err
	}
	s.logger.Info("clip added",
		slog.String("video_id", c.VideoID),
		slog.Int("start", c.Start),
		slog.Int("end", c.End),
	)
	return c, index, nil
}

// AddFile stores an uploaded audio file and adds a clip for it. The label
// falls back to the file name without extension.
func (s *Soundboard) AddFile(ctx context.Context, file clip.AudioFile) (clip.Clip, int, error) {
	if s.blobs == nil {
		return clip.Clip{}, 0, fmt.Errorf("audio uploads are not available")
	}
	if len(file.Data) == 0 {
		return clip.Clip{}, 0, fmt.Errorf("%w: no file selected", ErrInvalidInput)
	}
	file.Label = strings.TrimSpace(file.Label)
	if file.Label == "" {
		file.Label = clip.DefaultLabel(file.Name)
	}

	id, err := s.blobs.PutBlob(ctx, file)
	if err != nil {
		return clip.Clip{}, 0, fmt.Errorf("save audio: %w", err)
	}
	c := clip.NewLocal(id, file.Label)
	index, err := s.Clips.Add(ctx, c)
	if err != nil {
		return clip.Clip{}, 0, err
	}
	s.logger.Info("audio file added", slog.String("audio_id", id), slog.String("label", file.Label))
	return c, index, nil
}

// Remove deletes the clip at index. If playback involves the removed clip or
// one that shifted because of it, playback is stopped first so the active
// index never points at the wrong clip.
func (s *Soundboard) Remove(ctx context.Context, index int) (bool, error) {
	if active, ok := s.player.Active(); ok && index >= 0 && index <= active && index < s.Clips.Len() {
		s.player.Stop()
	}
	return s.Clips.Remove(ctx, index)
}

// Play toggles playback of the clip at index.
func (s *Soundboard) Play(ctx context.Context, index int) error {
	c, ok := s.Clips.Get(index)
	if !ok {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.player.RequestPlay(ctx, index, c)
}

func (s *Soundboard) Stop() {
	s.player.Stop()
}

// Bind points key at the clip at index.
func (s *Soundboard) Bind(ctx context.Context, key Key, index int) error {
	return s.Bindings.Bind(ctx, key, index, s.Clips.Len())
}

// PressKey plays the clip bound to the key. Presses inside text inputs,
// unbound keys and bindings past the end of the board are ignored and
// report handled=false.
func (s *Soundboard) PressKey(ctx context.Context, ev KeyEvent) (bool, error) {
	if ev.InTextInput {
		return false, nil
	}
	index, ok := s.Bindings.Lookup(ev.Code, s.Clips.Len())
	if !ok {
		return false, nil
	}
	c, ok := s.Clips.Get(index)
	if !ok {
		return false, nil
	}
	return true, s.player.RequestPlay(ctx, index, c)
}

// BindingView describes one keypad key for display.
type BindingView struct {
	Code  Key    `json:"code"`
	Label string `json:"label"`
	Index *int   `json:"index,omitempty"`
	Clip  string `json:"clip,omitempty"`
}

// KeypadView returns the keypad grid with the clip each key resolves to.
func (s *Soundboard) KeypadView() []BindingView {
	clips := s.Clips.Clips()
	bound := s.Bindings.All()
	out := make([]BindingView, 0, len(keypad))
	for _, info := range keypad {
		view := BindingView{Code: info.Code, Label: info.Label}
		if index, ok := bound[info.Code]; ok {
			i := index
			view.Index = &i
			if index < len(clips) {
				view.Clip = clips[index].DisplayName(index)
			}
		}
		out = append(out, view)
	}
	return out
}
