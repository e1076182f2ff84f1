package media

import (
	"net/http"
	"path/filepath"
	"strings"
)

// audioTypes maps recording extensions to the MIME types transcription
// services accept.
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// AudioMIMEType guesses a MIME type from a recording's file name.
func AudioMIMEType(name string) string {
	if t, ok := audioTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "audio/webm"
}

// IsAudioFile reports whether name has a known recording extension.
func IsAudioFile(name string) bool {
	_, ok := audioTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AudioExtension is the inverse of AudioMIMEType.
func AudioExtension(mimeType string) string {
	base := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	for ext, t := range audioTypes {
		if t == base {
			return ext
		}
	}
	return ".webm"
}

// SniffImage returns the detected MIME type of data if it is an image.
func SniffImage(data []byte) (string, bool) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	return detected, strings.HasPrefix(detected, "image/")
}
