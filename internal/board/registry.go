package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/treefix50/soundboard/internal/clip"
)

// ClipsKey is the store key holding the clip sequence.
const ClipsKey = "ytSoundboard"

// Registry and import errors. Callers match them with errors.Is.
var (
	ErrIndexOutOfRange = errors.New("clip index out of range")
	ErrInvalidInput    = errors.New("invalid input")
)

// KV is the small persistence surface the board writes through.
type KV interface {
	Put(ctx context.Context, key, value string, ttlDays int) error
	Get(ctx context.Context, key string) (string, bool, error)
}

// Registry is the ordered clip list. Every mutation is written to the store
// before it becomes visible; a failed write leaves the registry untouched.
type Registry struct {
	mu        sync.RWMutex
	clips     []clip.Clip
	kv        KV
	ttlDays   int
	logger    *slog.Logger
	listeners []func([]clip.Clip)
}

// NewRegistry returns an empty registry persisted under ClipsKey. Call Load
// to read the stored clips.
func NewRegistry(kv KV, ttlDays int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{kv: kv, ttlDays: ttlDays, logger: logger}
}

// OnChange registers fn to receive the clip list after each mutation.
func (r *Registry) OnChange(fn func([]clip.Clip)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Load replaces the in-memory list with the persisted one. Unreadable data
// is treated as an empty board.
func (r *Registry) Load(ctx context.Context) error {
	raw, ok, err := r.kv.Get(ctx, ClipsKey)
	if err != nil {
		return fmt.Errorf("load clips: %w", err)
	}

	var clips []clip.Clip
	if ok {
		clips, err = DecodeClips([]byte(raw))
		if err != nil {
			r.logger.Warn("ignoring unreadable clip data", slog.String("error", err.Error()))
			clips = nil
		}
	}

	r.mu.Lock()
	r.clips = clips
	r.mu.Unlock()
	r.logger.Debug("clips loaded", slog.Int("count", len(clips)))
	return nil
}

// Len returns the number of clips.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clips)
}

// Get returns the clip at index.
func (r *Registry) Get(index int) (clip.Clip, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.clips) {
		return clip.Clip{}, false
	}
	return r.clips[index], true
}

// Clips returns a copy of the ordered list.
func (r *Registry) Clips() []clip.Clip {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]clip.Clip, len(r.clips))
	copy(out, r.clips)
	return out
}

// Add validates c, appends it and returns its index.
func (r *Registry) Add(ctx context.Context, c clip.Clip) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	index := 0
	err := r.mutate(ctx, func(clips []clip.Clip) ([]clip.Clip, error) {
		index = len(clips)
		return append(clips, c), nil
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// Remove deletes the clip at index. An out of range index is a no-op and
// reports false.
func (r *Registry) Remove(ctx context.Context, index int) (bool, error) {
	removed := false
	err := r.mutate(ctx, func(clips []clip.Clip) ([]clip.Clip, error) {
		if index < 0 || index >= len(clips) {
			return nil, errNoChange
		}
		removed = true
		return append(clips[:index], clips[index+1:]...), nil
	})
	return removed, err
}

// SetVolume stores a volume for the clip at index, clamped to 0..100.
func (r *Registry) SetVolume(ctx context.Context, index, value int) error {
	return r.mutate(ctx, func(clips []clip.Clip) ([]clip.Clip, error) {
		if index < 0 || index >= len(clips) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		clips[index].Volume = clip.ClampVolume(value)
		return clips, nil
	})
}

// ReplaceAll makes the registry exactly clips.
func (r *Registry) ReplaceAll(ctx context.Context, clips []clip.Clip) error {
	if err := validateAll(clips); err != nil {
		return err
	}
	return r.mutate(ctx, func([]clip.Clip) ([]clip.Clip, error) {
		out := make([]clip.Clip, len(clips))
		copy(out, clips)
		return out, nil
	})
}

// MergeAppend appends the clips whose segment is not already on the board.
// Candidates are compared with the board as it was before the merge, so
// repeats inside clips are all appended. Local clips have no segment
// identity and are always appended.
func (r *Registry) MergeAppend(ctx context.Context, clips []clip.Clip) (int, error) {
	if err := validateAll(clips); err != nil {
		return 0, err
	}
	added := 0
	err := r.mutate(ctx, func(current []clip.Clip) ([]clip.Clip, error) {
		seen := make(map[string]struct{}, len(current))
		for _, c := range current {
			if key, ok := c.SegmentKey(); ok {
				seen[key] = struct{}{}
			}
		}
		for _, c := range clips {
			if key, ok := c.SegmentKey(); ok {
				if _, dup := seen[key]; dup {
					continue
				}
			}
			current = append(current, c)
			added++
		}
		if added == 0 {
			return nil, errNoChange
		}
		return current, nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

var errNoChange = errors.New("no change")

// mutate applies fn to a private copy, persists the result and only then
// swaps it in.
func (r *Registry) mutate(ctx context.Context, fn func([]clip.Clip) ([]clip.Clip, error)) error {
	r.mu.Lock()
	working := make([]clip.Clip, len(r.clips))
	copy(working, r.clips)

	next, err := fn(working)
	if err != nil {
		r.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("encode clips: %w", err)
	}
	if err := r.kv.Put(ctx, ClipsKey, string(data), r.ttlDays); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("persist clips: %w", err)
	}
	r.clips = next
	listeners := append([]func([]clip.Clip){}, r.listeners...)
	snapshot := make([]clip.Clip, len(next))
	copy(snapshot, next)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

func validateAll(clips []clip.Clip) error {
	for i, c := range clips {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: clip %d: %w", ErrInvalidInput, i, err)
		}
	}
	return nil
}
