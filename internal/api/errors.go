package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for responses that are well-formed but unusable
var (
	ErrNoFormats      = errors.New("no download formats available")
	ErrMissingVideoID = errors.New("server did not return a video ID")
	ErrUnknownStatus  = errors.New("unknown job status")
)

// RemoteError is a failure reported by the service, either through a
// non-success HTTP status or through the payload's error field.
type RemoteError struct {
	Op         string // endpoint path
	StatusCode int    // HTTP status; 200 for payload-level errors
	Message    string // server message or generic fallback
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
}

// RemoteMessage extracts the server-supplied message if err carries one
func RemoteMessage(err error) (string, bool) {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message, true
	}
	return "", false
}
