package model

import (
	"strings"
	"time"
)

// DownloadTask is the local retrieval of a finished server-side file
type DownloadTask struct {
	ID         string
	URL        string // absolute file URL handed over by the session
	Status     TaskStatus
	Progress   float64   // 0.0 to 1.0
	Percent    int       // 0 to 100
	Speed      string    // human readable speed (e.g., "1.20 MB/s")
	ETASec     int       // ETA in seconds, -1 if unknown
	LastError  string    // last error message if any
	OutputPath string    // path of the written file
	StartedAt  time.Time // when retrieval started
	FinishedAt time.Time // when retrieval finished
	Title      string    // filename announced by the server
	FileSize   int64     // total size in bytes, 0 if unknown
	Downloaded int64     // bytes written so far
}

// CompressionTask represents a single compression task
type CompressionTask struct {
	ID         string
	InputPath  string
	OutputPath string
	Status     TaskStatus
	Progress   float64 // 0.0 to 1.0
	Percent    int     // 0 to 100
	LastError  string  // last error message if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (dt *DownloadTask) GetETAString() string {
	if dt.ETASec <= 0 {
		return DashPlaceholder
	}
	return FormatDuration(dt.ETASec)
}

// GetDisplayTitle returns title, filename, or URL in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Title != "" && !strings.HasPrefix(dt.Title, "http") {
		return dt.Title
	}

	if dt.OutputPath != "" {
		parts := strings.FieldsFunc(dt.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}

	return dt.URL
}
