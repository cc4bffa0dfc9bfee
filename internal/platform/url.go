package platform

import (
	"errors"
	"regexp"
	"strings"
)

// Validation errors. Neither is ever produced by a network call.
var (
	ErrEmptyURL   = errors.New("empty URL")
	ErrInvalidURL = errors.New("not a YouTube URL")
)

// youTubeURLPattern accepts youtube.com and youtu.be links with an optional
// scheme and www prefix, followed by a non-empty path.
var youTubeURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)

// CleanURL strips control characters pasted along with a URL
func CleanURL(raw string) string {
	clean := strings.ReplaceAll(raw, "\n", "")
	clean = strings.ReplaceAll(clean, "\r", "")
	clean = strings.ReplaceAll(clean, "\t", " ")
	return strings.TrimSpace(clean)
}

// ValidateVideoURL cleans raw and checks it against the supported hosts
func ValidateVideoURL(raw string) (string, error) {
	clean := CleanURL(raw)
	if clean == "" {
		return "", ErrEmptyURL
	}
	if !IsVideoURL(clean) {
		return "", ErrInvalidURL
	}
	return clean, nil
}

// IsVideoURL reports whether url points at a supported video host
func IsVideoURL(url string) bool {
	return youTubeURLPattern.MatchString(url)
}
