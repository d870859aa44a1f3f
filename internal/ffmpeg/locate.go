// Package ffmpeg converts audio files the built-in decoders cannot read.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var ErrNotFound = errors.New("ffmpeg not found")

// Locate resolves the ffmpeg binary. bin may be a path, a name looked up in
// PATH, or empty for "ffmpeg".
func Locate(bin string) (string, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		bin = exe("ffmpeg")
	}
	if strings.ContainsAny(bin, `/\`) {
		if fileExists(bin) {
			return bin, nil
		}
		return "", fmt.Errorf("%w at %s", ErrNotFound, bin)
	}
	p, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w in PATH: %w", ErrNotFound, err)
	}
	return p, nil
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
