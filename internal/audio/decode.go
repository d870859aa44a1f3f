// Package audio plays uploaded sound files on the local sound card.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/treefix50/soundboard/internal/clip"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

const convertTimeout = 30 * time.Second

// ConvertFunc rewrites a file in a format Decode does not know into one it
// does.
type ConvertFunc func(ctx context.Context, file clip.AudioFile) (clip.AudioFile, error)

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decodersByMIME = map[string]string{
	"audio/mpeg":      "mp3",
	"audio/mp3":       "mp3",
	"audio/wav":       "wav",
	"audio/wave":      "wav",
	"audio/x-wav":     "wav",
	"audio/vnd.wave":  "wav",
	"audio/flac":      "flac",
	"audio/x-flac":    "flac",
	"audio/ogg":       "vorbis",
	"audio/vorbis":    "vorbis",
	"application/ogg": "vorbis",
}

var decodersByExt = map[string]string{
	".mp3":  "mp3",
	".wav":  "wav",
	".wave": "wav",
	".flac": "flac",
	".ogg":  "vorbis",
	".oga":  "vorbis",
}

var decoders = map[string]decodeFunc{
	"mp3": mp3.Decode,
	"wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	"flac": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	},
	"vorbis": vorbis.Decode,
}

// formatOf picks a decoder by MIME type, falling back to the file
// extension.
func formatOf(mimeType, name string) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if f, ok := decodersByMIME[mt]; ok {
		return f, nil
	}
	if f, ok := decodersByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, name, mimeType)
}

// Decode opens the stream held in file.
func Decode(file clip.AudioFile) (beep.StreamSeekCloser, beep.Format, error) {
	name, err := formatOf(file.MIMEType, file.Name)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if len(file.Data) == 0 {
		return nil, beep.Format{}, fmt.Errorf("decode %s: empty file", file.Name)
	}
	stream, format, err := decoders[name](io.NopCloser(bytes.NewReader(file.Data)))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s as %s: %w", file.Name, name, err)
	}
	return stream, format, nil
}

// open decodes file, converting it first when its format is unsupported and
// convert is set.
func open(file clip.AudioFile, convert ConvertFunc) (beep.StreamSeekCloser, beep.Format, error) {
	stream, format, err := Decode(file)
	if err == nil || convert == nil || !errors.Is(err, ErrUnsupportedFormat) {
		return stream, format, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
	defer cancel()
	converted, cerr := convert(ctx, file)
	if cerr != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %w", err, cerr)
	}
	return Decode(converted)
}

// Duration returns the play time of file.
func Duration(file clip.AudioFile) (time.Duration, error) {
	stream, format, err := Decode(file)
	if err != nil {
		return 0, err
	}
	defer stream.Close()
	return format.SampleRate.D(stream.Len()), nil
}
