package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/soundboard/internal/clip"
)

// makeWAV builds a mono 16-bit PCM file of silence.
func makeWAV(t *testing.T, rate int, samples int) []byte {
	t.Helper()
	var buf bytes.Buffer
	dataLen := samples * 2
	write := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }

	buf.WriteString("RIFF")
	write(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1))
	write(uint16(1))
	write(uint32(rate))
	write(uint32(rate * 2))
	write(uint16(2))
	write(uint16(16))
	buf.WriteString("data")
	write(uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		mime string
		name string
		want string
	}{
		{"audio/mpeg", "a.bin", "mp3"},
		{"audio/x-wav", "", "wav"},
		{"audio/ogg; codecs=vorbis", "", "vorbis"},
		{"", "Airhorn.MP3", "mp3"},
		{"application/octet-stream", "drum.flac", "flac"},
		{"", "clip.oga", "vorbis"},
	}
	for _, tt := range tests {
		got, err := formatOf(tt.mime, tt.name)
		require.NoError(t, err, "%s %s", tt.mime, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, err := formatOf("video/mp4", "movie.mp4")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDuration(t *testing.T) {
	file := clip.AudioFile{Name: "tone.wav", MIMEType: "audio/wav", Data: makeWAV(t, 8000, 4000)}

	d, err := Duration(file)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestDecodeRejectsEmptyAndGarbage(t *testing.T) {
	_, _, err := Decode(clip.AudioFile{Name: "x.wav"})
	assert.Error(t, err)

	_, _, err = Decode(clip.AudioFile{Name: "x.wav", Data: []byte("not a wav file at all")})
	assert.Error(t, err)
}

func TestDiscardEndsAfterDuration(t *testing.T) {
	file := clip.AudioFile{Name: "tone.wav", Data: makeWAV(t, 8000, 80)}
	var ended atomic.Int32

	h, err := Discard{}.Play(file, 1, func() { ended.Add(1) })
	require.NoError(t, err)
	require.NotNil(t, h)

	require.Eventually(t, func() bool { return ended.Load() == 1 }, time.Second, time.Millisecond)
	h.Stop()
	assert.Equal(t, int32(1), ended.Load())
}

func TestDiscardStopSuppressesEnd(t *testing.T) {
	file := clip.AudioFile{Name: "tone.wav", Data: makeWAV(t, 8000, 8000)}
	var ended atomic.Int32

	h, err := Discard{}.Play(file, 1, func() { ended.Add(1) })
	require.NoError(t, err)
	h.Stop()
	h.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), ended.Load())
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, clampVolume(-0.5))
	assert.Equal(t, 0.25, clampVolume(0.25))
	assert.Equal(t, 1.0, clampVolume(3))
}

func TestDiscardConvertsUnsupportedFormats(t *testing.T) {
	var calls int
	convert := func(_ context.Context, file clip.AudioFile) (clip.AudioFile, error) {
		calls++
		file.Name = "voice.wav"
		file.MIMEType = "audio/wav"
		file.Data = makeWAV(t, 8000, 80)
		return file, nil
	}
	file := clip.AudioFile{Name: "voice.m4a", MIMEType: "audio/mp4", Data: []byte("aac")}

	_, err := Discard{}.Play(file, 1, func() {})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	h, err := Discard{Convert: convert}.Play(file, 1, func() {})
	require.NoError(t, err)
	h.Stop()
	assert.Equal(t, 1, calls)

	// decodable files never reach the converter
	h, err = Discard{Convert: convert}.Play(clip.AudioFile{Name: "a.wav", Data: makeWAV(t, 8000, 80)}, 1, func() {})
	require.NoError(t, err)
	h.Stop()
	assert.Equal(t, 1, calls)
}

func TestConvertFailureKeepsCause(t *testing.T) {
	failed := errors.New("ffmpeg exploded")
	convert := func(context.Context, clip.AudioFile) (clip.AudioFile, error) {
		return clip.AudioFile{}, failed
	}
	_, err := Discard{Convert: convert}.Play(clip.AudioFile{Name: "x.webm", Data: []byte{1}}, 1, func() {})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, failed)
}
