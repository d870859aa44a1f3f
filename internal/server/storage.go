package server

import (
	"context"

	"github.com/treefix50/soundboard/internal/clip"
)

// BlobStore serves uploaded audio files back to clients.
type BlobStore interface {
	GetBlob(ctx context.Context, id string) (clip.AudioFile, bool, error)
}
