package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/treefix50/soundboard/internal/clip"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
)

// ConvertOptions defines the PCM output of a conversion.
type ConvertOptions struct {
	InputPath  string
	OutputPath string
	SampleRate int
	Channels   int
}

// Converter rewrites audio files into 16-bit PCM WAV.
type Converter struct {
	bin        string
	sampleRate int
}

func NewConverter(bin string, sampleRate int) *Converter {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Converter{bin: bin, sampleRate: sampleRate}
}

// Convert returns file re-encoded as WAV. The result keeps the ID and label
// of the original.
func (c *Converter) Convert(ctx context.Context, file clip.AudioFile) (clip.AudioFile, error) {
	if c.bin == "" {
		return clip.AudioFile{}, fmt.Errorf("ffmpeg path is empty")
	}
	if len(file.Data) == 0 {
		return clip.AudioFile{}, fmt.Errorf("convert %s: empty file", file.Name)
	}

	dir, err := os.MkdirTemp("", "soundboard-convert-*")
	if err != nil {
		return clip.AudioFile{}, err
	}
	defer os.RemoveAll(dir)

	// the extension is ffmpeg's only hint for raw AAC and similar streams
	in := filepath.Join(dir, "input"+strings.ToLower(filepath.Ext(file.Name)))
	if err := os.WriteFile(in, file.Data, 0o600); err != nil {
		return clip.AudioFile{}, err
	}
	opts := ConvertOptions{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "output.wav"),
		SampleRate: c.sampleRate,
		Channels:   defaultChannels,
	}

	cmd := exec.CommandContext(ctx, c.bin, buildConvertArgs(opts)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return clip.AudioFile{}, fmt.Errorf("ffmpeg failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		return clip.AudioFile{}, fmt.Errorf("read converted audio: %w", err)
	}
	out := file
	out.Name = strings.TrimSuffix(file.Name, filepath.Ext(file.Name)) + ".wav"
	out.MIMEType = "audio/wav"
	out.Size = int64(len(data))
	out.Data = data
	return out, nil
}

func buildConvertArgs(opts ConvertOptions) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", opts.InputPath,
		"-vn",
		"-acodec", "pcm_s16le",
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	return append(args, "-f", "wav", opts.OutputPath)
}
