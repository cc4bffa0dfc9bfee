package model

// JobStatus is the server-side state of a download job as reported by the
// status endpoint.
type JobStatus string

const (
	// JobStatusDownloading means the server is still fetching the media
	JobStatusDownloading JobStatus = "downloading"

	// JobStatusProcessing means the server is merging/transcoding the media
	JobStatusProcessing JobStatus = "processing"

	// JobStatusComplete means the file is ready for retrieval
	JobStatusComplete JobStatus = "complete"

	// JobStatusError means the job failed
	JobStatusError JobStatus = "error"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsKnown reports whether the status is one of the four documented values
func (js JobStatus) IsKnown() bool {
	switch js {
	case JobStatusDownloading, JobStatusProcessing, JobStatusComplete, JobStatusError:
		return true
	}
	return false
}

// IsTerminal returns true once no further polling should happen
func (js JobStatus) IsTerminal() bool {
	return js == JobStatusComplete || js == JobStatusError
}

// CanTransitionTo reports whether next is a legal successor of js.
// downloading -> any; processing -> processing|complete|error; terminal -> none.
func (js JobStatus) CanTransitionTo(next JobStatus) bool {
	if !next.IsKnown() {
		return false
	}
	switch js {
	case JobStatusDownloading:
		return true
	case JobStatusProcessing:
		return next != JobStatusDownloading
	default:
		return false
	}
}

// TaskStatus represents the status of a local retrieval or compression task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusStarting means the task is in the process of starting
	TaskStatusStarting TaskStatus = "Starting"

	// TaskStatusDownloading means the transfer is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusStopping means the task is in the process of stopping
	TaskStatusStopping TaskStatus = "Stopping"

	// TaskStatusStopped means the task was stopped by user
	TaskStatusStopped TaskStatus = "Stopped"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in an active state
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarting || ts == TaskStatusDownloading || ts == TaskStatusStopping
}

// IsFinished returns true if the task is in a finished state (completed, stopped, or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusStopped || ts == TaskStatusError
}
