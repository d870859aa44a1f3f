package clip

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind distinguishes where a clip's audio comes from.
type Kind string

const (
	// KindRemote is a start/end segment of a hosted video.
	KindRemote Kind = "remote"
	// KindLocal is an uploaded audio file kept in the blob store.
	KindLocal Kind = "local"
)

// Clip volumes are percentages. New clips start at DefaultVolume.
const (
	DefaultVolume = 100
	MaxVolume     = 100
)

// Validation errors returned by Clip.Validate and the JSON codec.
var (
	ErrMissingVideoID = errors.New("clip: missing video id")
	ErrMissingAudioID = errors.New("clip: missing audio id")
	ErrInvalidRange   = errors.New("clip: end must be after start")
	ErrUnknownKind    = errors.New("clip: unknown kind")
)

// Clip is one soundboard entry. Its position in the board is its index.
type Clip struct {
	Kind    Kind
	VideoID string
	Start   int
	End     int
	AudioID string
	Label   string
	Volume  int
}

// NewRemote builds a remote segment clip at full volume.
func NewRemote(videoID string, start, end int, label string) Clip {
	return Clip{
		Kind:    KindRemote,
		VideoID: videoID,
		Start:   start,
		End:     end,
		Label:   label,
		Volume:  DefaultVolume,
	}
}

// NewLocal builds a local file clip at full volume.
func NewLocal(audioID, label string) Clip {
	return Clip{
		Kind:    KindLocal,
		AudioID: audioID,
		Label:   label,
		Volume:  DefaultVolume,
	}
}

// IsLocal reports whether c plays an uploaded audio file.
func (c Clip) IsLocal() bool { return c.Kind == KindLocal }

// Validate checks the kind specific invariants.
func (c Clip) Validate() error {
	switch c.Kind {
	case KindRemote:
		if strings.TrimSpace(c.VideoID) == "" {
			return ErrMissingVideoID
		}
		if c.Start < 0 || c.End <= c.Start {
			return fmt.Errorf("%w (start=%d end=%d)", ErrInvalidRange, c.Start, c.End)
		}
	case KindLocal:
		if strings.TrimSpace(c.AudioID) == "" {
			return ErrMissingAudioID
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, c.Kind)
	}
	if c.Volume < 0 || c.Volume > MaxVolume {
		return fmt.Errorf("clip: volume %d out of range", c.Volume)
	}
	return nil
}

// SegmentKey returns the (videoId, start, end) identity used to spot duplicate
// segments. Local clips have no such identity.
func (c Clip) SegmentKey() (string, bool) {
	if c.Kind != KindRemote {
		return "", false
	}
	return c.VideoID + "|" + strconv.Itoa(c.Start) + "|" + strconv.Itoa(c.End), true
}

// DisplayName is the button caption for the clip at index.
func (c Clip) DisplayName(index int) string {
	name := c.Label
	if name == "" {
		name = "Sound " + strconv.Itoa(index+1)
	}
	if c.Kind == KindLocal {
		name += " (file)"
	}
	return name
}

// ClampVolume limits v to 0..100.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

type remoteRecord struct {
	VideoID string `json:"videoId"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Label   string `json:"label,omitempty"`
	Volume  int    `json:"volume"`
}

type localRecord struct {
	Type    string `json:"type"`
	AudioID string `json:"audioId"`
	Label   string `json:"label,omitempty"`
	Volume  int    `json:"volume"`
}

// MarshalJSON writes the persisted record shape for the clip kind.
func (c Clip) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindLocal:
		return json.Marshal(localRecord{
			Type:    "local",
			AudioID: c.AudioID,
			Label:   c.Label,
			Volume:  c.Volume,
		})
	case KindRemote, "":
		return json.Marshal(remoteRecord{
			VideoID: c.VideoID,
			Start:   c.Start,
			End:     c.End,
			Label:   c.Label,
			Volume:  c.Volume,
		})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, c.Kind)
	}
}

// record is the lenient decode shape: older exports carry numeric audio ids
// and hand edited files may use timestamp strings for start and end.
type record struct {
	Type    string `json:"type"`
	VideoID string `json:"videoId"`
	Start   any    `json:"start"`
	End     any    `json:"end"`
	AudioID any    `json:"audioId"`
	Label   string `json:"label"`
	Volume  any    `json:"volume"`
}

// UnmarshalJSON accepts both record shapes. It does not validate; callers
// run Validate once the clip is decoded.
func (c *Clip) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	out := Clip{Label: rec.Label, Volume: DefaultVolume}
	if rec.Volume != nil {
		v, ok := rec.Volume.(float64)
		if !ok {
			return fmt.Errorf("clip: volume must be a number")
		}
		out.Volume = ClampVolume(int(math.Round(v)))
	}

	switch rec.Type {
	case "local":
		out.Kind = KindLocal
		id, err := audioIDString(rec.AudioID)
		if err != nil {
			return err
		}
		out.AudioID = id
	case "", "remote":
		out.Kind = KindRemote
		out.VideoID = rec.VideoID
		start, err := ParseSeconds(rec.Start)
		if err != nil {
			return fmt.Errorf("clip: start: %w", err)
		}
		end, err := ParseSeconds(rec.End)
		if err != nil {
			return fmt.Errorf("clip: end: %w", err)
		}
		out.Start, out.End = start, end
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, rec.Type)
	}

	*c = out
	return nil
}

func audioIDString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		if id != math.Trunc(id) {
			return "", fmt.Errorf("clip: audio id %v is not an integer", id)
		}
		return strconv.FormatInt(int64(id), 10), nil
	case nil:
		return "", ErrMissingAudioID
	default:
		return "", fmt.Errorf("clip: unsupported audio id %v", v)
	}
}
