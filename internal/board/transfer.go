package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/treefix50/soundboard/internal/clip"
)

var ErrInvalidImport = errors.New("invalid import")

// ImportPolicy selects how imported clips combine with the board.
type ImportPolicy int

const (
	// ImportMerge appends clips whose segment is not on the board yet.
	ImportMerge ImportPolicy = iota
	// ImportReplace discards the board and keeps only the imported clips.
	ImportReplace
)

// ParseImportPolicy maps "merge"/"replace" (or "") to a policy.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return ImportMerge, nil
	case "replace", "destructive":
		return ImportReplace, nil
	default:
		return ImportMerge, fmt.Errorf("%w: unknown import mode %q", ErrInvalidInput, s)
	}
}

func (p ImportPolicy) String() string {
	if p == ImportReplace {
		return "replace"
	}
	return "merge"
}

// DecodeClips parses an exported clip array. The top level must be an array
// and every record must be a valid clip.
func DecodeClips(data []byte) ([]clip.Clip, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of clips: %w", ErrInvalidImport, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: expected a JSON array of clips", ErrInvalidImport)
	}

	clips := make([]clip.Clip, 0, len(records))
	for i, raw := range records {
		var c clip.Clip
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidImport, i, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidImport, i, err)
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// Export renders the board as an indented JSON array.
func (r *Registry) Export() ([]byte, error) {
	clips := r.Clips()
	return json.MarshalIndent(clips, "", "  ")
}

// Import parses data and applies it with policy. Nothing changes unless the
// whole payload is valid. It returns how many clips were added.
func (r *Registry) Import(ctx context.Context, data []byte, policy ImportPolicy) (int, error) {
	clips, err := DecodeClips(data)
	if err != nil {
		return 0, err
	}

	switch policy {
	case ImportReplace:
		if err := r.ReplaceAll(ctx, clips); err != nil {
			return 0, err
		}
		return len(clips), nil
	default:
		return r.MergeAppend(ctx, clips)
	}
}
