package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// BindingsKey is the store key holding the key binding map.
const BindingsKey = "ytNumpadBindings"

var ErrUnknownKey = errors.New("unknown key")

// Key is a physical numeric keypad key code.
type Key string

const (
	Numpad7       Key = "Numpad7"
	Numpad8       Key = "Numpad8"
	Numpad9       Key = "Numpad9"
	Numpad4       Key = "Numpad4"
	Numpad5       Key = "Numpad5"
	Numpad6       Key = "Numpad6"
	Numpad1       Key = "Numpad1"
	Numpad2       Key = "Numpad2"
	Numpad3       Key = "Numpad3"
	Numpad0       Key = "Numpad0"
	NumpadDecimal Key = "NumpadDecimal"
	NumpadEnter   Key = "NumpadEnter"
)

// KeyInfo pairs a key code with the label printed on the keypad.
type KeyInfo struct {
	Code  Key    `json:"code"`
	Label string `json:"label"`
}

// grid order, top row first
var keypad = []KeyInfo{
	{Numpad7, "7"}, {Numpad8, "8"}, {Numpad9, "9"},
	{Numpad4, "4"}, {Numpad5, "5"}, {Numpad6, "6"},
	{Numpad1, "1"}, {Numpad2, "2"}, {Numpad3, "3"},
	{Numpad0, "0"}, {NumpadDecimal, "."}, {NumpadEnter, "Enter"},
}

// Keys lists the bindable keys in keypad grid order.
func Keys() []KeyInfo {
	out := make([]KeyInfo, len(keypad))
	copy(out, keypad)
	return out
}

// ParseKey accepts a key code ("Numpad7") or its keypad label ("7").
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	for _, k := range keypad {
		if strings.EqualFold(s, string(k.Code)) || strings.EqualFold(s, k.Label) {
			return k.Code, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKey, s)
}

// Valid reports whether k is one of the keypad codes.
func (k Key) Valid() bool {
	for _, info := range keypad {
		if info.Code == k {
			return true
		}
	}
	return false
}

// Label returns the keypad caption for k.
func (k Key) Label() string {
	for _, info := range keypad {
		if info.Code == k {
			return info.Label
		}
	}
	return string(k)
}

// Bindings maps keypad keys to clip indexes. Bindings are never rewritten
// when clips move; a binding past the end of the board simply resolves to
// nothing.
type Bindings struct {
	mu      sync.RWMutex
	m       map[Key]int
	kv      KV
	ttlDays int
	logger  *slog.Logger
}

// NewBindings returns an empty map persisted under BindingsKey.
func NewBindings(kv KV, ttlDays int, logger *slog.Logger) *Bindings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bindings{m: map[Key]int{}, kv: kv, ttlDays: ttlDays, logger: logger}
}

// Load reads the persisted map. Unreadable data yields an empty map and
// unknown keys are dropped.
func (b *Bindings) Load(ctx context.Context) error {
	raw, ok, err := b.kv.Get(ctx, BindingsKey)
	if err != nil {
		return fmt.Errorf("load bindings: %w", err)
	}

	loaded := map[Key]int{}
	if ok {
		var decoded map[string]int
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			b.logger.Warn("ignoring unreadable key bindings", slog.String("error", err.Error()))
		} else {
			for code, index := range decoded {
				key := Key(code)
				if !key.Valid() || index < 0 {
					continue
				}
				loaded[key] = index
			}
		}
	}

	b.mu.Lock()
	b.m = loaded
	b.mu.Unlock()
	return nil
}

// Bind points key at index; index must address a clip on a board of
// registryLen clips.
func (b *Bindings) Bind(ctx context.Context, key Key, index, registryLen int) error {
	if !key.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	if index < 0 || index >= registryLen {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.copyLocked()
	next[key] = index
	return b.commitLocked(ctx, next)
}

// Unbind removes the binding for key and reports whether one existed.
func (b *Bindings) Unbind(ctx context.Context, key Key) (bool, error) {
	if !key.Valid() {
		return false, fmt.Errorf("%w %q", ErrUnknownKey, key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[key]; !ok {
		return false, nil
	}
	next := b.copyLocked()
	delete(next, key)
	if err := b.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Lookup resolves key against a board of registryLen clips.
func (b *Bindings) Lookup(key Key, registryLen int) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	index, ok := b.m[key]
	if !ok || index < 0 || index >= registryLen {
		return 0, false
	}
	return index, true
}

// All returns a copy of the raw map, including bindings that no longer
// resolve.
func (b *Bindings) All() map[Key]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyLocked()
}

// Bound lists the keys that currently have a binding, in keypad order.
func (b *Bindings) Bound() []Key {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]Key, 0, len(b.m))
	for k := range b.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyPos(keys[i]) < keyPos(keys[j]) })
	return keys
}

func (b *Bindings) copyLocked() map[Key]int {
	out := make(map[Key]int, len(b.m))
	for k, v := range b.m {
		out[k] = v
	}
	return out
}

func (b *Bindings) commitLocked(ctx context.Context, next map[Key]int) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode bindings: %w", err)
	}
	if err := b.kv.Put(ctx, BindingsKey, string(data), b.ttlDays); err != nil {
		return fmt.Errorf("persist bindings: %w", err)
	}
	b.m = next
	return nil
}

func keyPos(k Key) int {
	for i, info := range keypad {
		if info.Code == k {
			return i
		}
	}
	return len(keypad)
}
