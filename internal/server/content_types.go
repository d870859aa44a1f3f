package server

import (
	"path/filepath"
	"strings"
)

const (
	jsonContentType   = "application/json; charset=utf-8"
	textContentType   = "text/plain; charset=utf-8"
	htmlContentType   = "text/html; charset=utf-8"
	binaryContentType = "application/octet-stream"
)

var audioTypesByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".webm": "audio/webm",
}

// audioContentType prefers the type recorded at upload, then the extension.
func audioContentType(mimeType, name string) string {
	if mt := strings.TrimSpace(mimeType); mt != "" && mt != binaryContentType {
		return mt
	}
	if mt, ok := audioTypesByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return binaryContentType
}
