package clip

import (
	"path/filepath"
	"strings"
	"time"
)

// AudioFile is an uploaded sound kept in the blob store.
type AudioFile struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Name      string    `json:"name"`
	MIMEType  string    `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Data      []byte    `json:"-"`
}

// DefaultLabel derives a label from a file name by dropping its extension.
func DefaultLabel(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
