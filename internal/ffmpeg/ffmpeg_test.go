package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treefix50/soundboard/internal/clip"
)

func TestBuildConvertArgs(t *testing.T) {
	args := buildConvertArgs(ConvertOptions{
		InputPath:  "/tmp/in.m4a",
		OutputPath: "/tmp/out.wav",
		SampleRate: 48000,
		Channels:   2,
	})
	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", "/tmp/in.m4a", "-vn", "-acodec", "pcm_s16le",
		"-ar", "48000", "-ac", "2",
		"-f", "wav", "/tmp/out.wav",
	}, args)

	args = buildConvertArgs(ConvertOptions{InputPath: "a", OutputPath: "b"})
	assert.NotContains(t, args, "-ar")
	assert.NotContains(t, args, "-ac")
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg-custom")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := Locate(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	_, err = Locate(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Locate("definitely-not-a-real-ffmpeg-binary")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConvertRejectsEmptyInput(t *testing.T) {
	c := NewConverter("", 0)
	_, err := c.Convert(context.Background(), clip.AudioFile{Name: "a.m4a", Data: []byte{1}})
	assert.Error(t, err)

	c = NewConverter("ffmpeg", 0)
	_, err = c.Convert(context.Background(), clip.AudioFile{Name: "a.m4a"})
	assert.Error(t, err)
}

func TestConvertWithFFmpeg(t *testing.T) {
	bin, err := Locate("")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	c := NewConverter(bin, 8000)
	_, err = c.Convert(context.Background(), clip.AudioFile{ID: "x", Name: "junk.m4a", Data: []byte("not audio")})
	assert.Error(t, err)
}
