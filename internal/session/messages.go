package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ytget/yt-webclient/internal/api"
	"github.com/ytget/yt-webclient/internal/platform"
)

// Local failures of a session
var (
	ErrNoMetadata          = errors.New("no video metadata loaded")
	ErrUnknownFormat       = errors.New("format is not offered for this video")
	ErrMissingDownloadPath = errors.New("server did not return a download path")
	ErrSuperseded          = errors.New("superseded by a newer request")
	ErrClosed              = errors.New("session controller closed")
)

// JobError is a terminal "error" status reported by the service
type JobError struct {
	VideoID string
	Message string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("download job %s failed: %s", e.VideoID, e.Message)
}

// User-facing texts
const (
	MsgEmptyURL         = "Please enter a YouTube URL"
	MsgInvalidURL       = "Invalid YouTube URL"
	MsgNoFormats        = "No download formats available"
	MsgMissingVideoID   = "Server did not return a video ID"
	MsgMissingPath      = "Server did not return a download path"
	MsgNoMetadata       = "Fetch video information first"
	MsgUnknownFormat    = "Selected format is not available"
	MsgJobFailed        = "Download failed"
	MsgPreparing        = "Preparing download..."
	MsgProcessing       = "Processing video..."
	MsgComplete         = "Download complete! Starting file download..."
	MsgCompleteWithSize = "Download complete (%s MB)! Starting file download..."
	MsgFetchFailed      = api.MsgMetadataFailed
	MsgDownloadFailed   = api.MsgDownloadFailed
)

// CompletionMessage renders the final status line, with the size when known
func CompletionMessage(fileSizeMB *float64) string {
	if fileSizeMB == nil || *fileSizeMB <= 0 {
		return MsgComplete
	}
	return fmt.Sprintf(MsgCompleteWithSize, strconv.FormatFloat(*fileSizeMB, 'f', -1, 64))
}

// UserMessage maps err to the text shown in the error banner
func UserMessage(err error, fallback string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, platform.ErrEmptyURL):
		return MsgEmptyURL
	case errors.Is(err, platform.ErrInvalidURL):
		return MsgInvalidURL
	case errors.Is(err, api.ErrNoFormats):
		return MsgNoFormats
	case errors.Is(err, api.ErrMissingVideoID):
		return MsgMissingVideoID
	case errors.Is(err, ErrMissingDownloadPath):
		return MsgMissingPath
	case errors.Is(err, ErrNoMetadata):
		return MsgNoMetadata
	case errors.Is(err, ErrUnknownFormat):
		return MsgUnknownFormat
	}

	var jobErr *JobError
	if errors.As(err, &jobErr) {
		if jobErr.Message != "" {
			return jobErr.Message
		}
		return MsgJobFailed
	}
	if msg, ok := api.RemoteMessage(err); ok {
		return msg
	}
	return fallback
}
