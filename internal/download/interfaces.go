package download

import (
	"github.com/ytget/yt-webclient/internal/model"
)

// Retriever defines the interface for the file retrieval service.
type Retriever interface {
	SetUpdateCallback(func(*model.DownloadTask))
	Navigate(fileURL string) error
	AddTask(fileURL string) (*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	StopTask(id string) error
	RemoveTask(id string) error

	// SetMaxParallelDownloads sets the maximum number of parallel retrievals
	SetMaxParallelDownloads(max int)

	// SetDownloadDirectory sets the directory new files are written to
	SetDownloadDirectory(dir string)
}

var _ Retriever = (*Service)(nil)
