package compress

import (
	"github.com/ytget/yt-webclient/internal/model"
)

// Compressor defines the interface for the post-retrieval compression service.
type Compressor interface {
	SetUpdateCallback(func(*model.CompressionTask))
	StartCompression(inputPath string) (*model.CompressionTask, error)
	StopCompression(taskID string) error
	GetTask(taskID string) (*model.CompressionTask, bool)

	// HandleRetrieved compresses a completed retrieval when it is a video
	HandleRetrieved(task *model.DownloadTask)

	// Available reports whether ffmpeg and ffprobe can be found
	Available() bool

	// Wait blocks until every started compression has finished
	Wait()
}

var _ Compressor = (*Service)(nil)
