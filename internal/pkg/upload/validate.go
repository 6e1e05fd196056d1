package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var allowedExt = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
}

var allowedMime = map[string]bool{
	"audio/mpeg":   true,
	"audio/mp3":    true,
	"audio/flac":   true,
	"audio/x-flac": true,
	"audio/ogg":    true,
	"audio/mp4":    true,
	"audio/wav":    true,
	"audio/wave":   true,
	"audio/x-wav":  true,
}

// ValidateAudioBySniff checks the provided filename (extension) and the first
// bytes (head) against a whitelist of audio types. Returns the content type
// to store or an error.
func ValidateAudioBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extMime, ok := allowedExt[ext]
	if !ok {
		return "", errors.New("only MP3, FLAC, OGG, M4A and WAV files are supported")
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", errors.New("invalid file type: HTML content is not allowed")
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", errors.New("invalid file type: XML content is not allowed")
	}

	// FLAC, M4A and some MP3 encodings come back as octet-stream depending on
	// the Go version; trust the extension whitelist in that case.
	if detected == "application/octet-stream" {
		return extMime, nil
	}

	if allowedMime[detected] {
		return detected, nil
	}

	return "", errors.New("the file type is not supported")
}
