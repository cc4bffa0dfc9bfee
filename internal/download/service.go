package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/model"
	"github.com/ytget/yt-webclient/internal/platform"
)

// Retrieval tuning
const (
	DefaultMaxParallel    = 2
	MaxRetries            = 1
	DefaultRetryDelay     = 2 * time.Second
	ProgressInterval      = 500 * time.Millisecond
	PartialFileSuffix     = ".part"
	TaskIDPrefix          = "task-"
	PathQueryParam        = "path"
	FilePermissions       = 0644
	MaxErrorBodyBytes     = 64 << 10
	ContentDispositionKey = "Content-Disposition"
)

// Errors returned when a task cannot be queued or changed
var (
	ErrDuplicateTask = errors.New("task already exists for URL")
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskNotActive = errors.New("task is not active")
	ErrInvalidURL    = errors.New("file URL must be absolute http(s)")
)

// HTTPError is a non-success response to a file request
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Service handles file retrieval
type Service struct {
	tasks       map[string]*model.DownloadTask
	cancels     map[string]context.CancelFunc
	tasksMutex  sync.RWMutex
	maxParallel int
	activeCount int
	downloadDir string
	onUpdate    func(*model.DownloadTask) // callback for UI updates
	wg          sync.WaitGroup

	httpClient *http.Client
	retryDelay time.Duration
	log        *logrus.Entry
}

// Option configures a Service
type Option func(*Service)

// WithHTTPClient sets the client used for file requests
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = logger.Component(log, "download")
		}
	}
}

// WithRetryDelay sets the pause before a failed transfer is retried
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

// NewService creates a new retrieval service
func NewService(downloadDir string, maxParallel int, opts ...Option) *Service {
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	s := &Service{
		tasks:       make(map[string]*model.DownloadTask),
		cancels:     make(map[string]context.CancelFunc),
		maxParallel: maxParallel,
		downloadDir: downloadDir,
		httpClient:  &http.Client{},
		retryDelay:  DefaultRetryDelay,
		log:         logger.Component(logger.Discard(), "download"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUpdateCallback sets the callback function for task updates. The
// callback receives a copy and may be invoked from any goroutine.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	s.onUpdate = callback
}

// SetMaxParallelDownloads sets the maximum number of parallel retrievals
func (s *Service) SetMaxParallelDownloads(max int) {
	if max < 1 {
		max = 1
	}
	s.tasksMutex.Lock()
	s.maxParallel = max
	s.tasksMutex.Unlock()

	s.startPendingTasks()
}

// SetDownloadDirectory sets the directory new files are written to
func (s *Service) SetDownloadDirectory(dir string) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	s.downloadDir = dir
}

// Navigate queues retrieval of fileURL
func (s *Service) Navigate(fileURL string) error {
	_, err := s.AddTask(fileURL)
	return err
}

// AddTask adds a new retrieval task
func (s *Service) AddTask(fileURL string) (*model.DownloadTask, error) {
	u, err := url.Parse(fileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, fileURL)
	}

	s.tasksMutex.Lock()
	for _, task := range s.tasks {
		if task.URL == fileURL && !task.Status.IsFinished() {
			s.tasksMutex.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, fileURL)
		}
	}

	task := &model.DownloadTask{
		ID:        generateTaskID(),
		URL:       fileURL,
		Title:     fileNameFromURL(u),
		Status:    model.TaskStatusPending,
		ETASec:    -1,
		StartedAt: time.Now(),
	}
	s.tasks[task.ID] = task
	snapshot := *task
	s.tasksMutex.Unlock()

	s.log.WithFields(logrus.Fields{"task": task.ID, "url": fileURL}).Info("Task queued")
	s.notifyUpdate(&snapshot)
	s.startPendingTasks()
	return &snapshot, nil
}

// GetTask returns a copy of a task by ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// GetAllTasks returns copies of all tasks, oldest first
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		snapshot := *task
		tasks = append(tasks, &snapshot)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StartedAt.Equal(tasks[j].StartedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].StartedAt.Before(tasks[j].StartedAt)
	})
	return tasks
}

// StopTask stops a pending or running task
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()
	task, exists := s.tasks[id]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	switch {
	case task.Status == model.TaskStatusPending:
		task.Status = model.TaskStatusStopped
		task.FinishedAt = time.Now()
	case task.Status.IsActive():
		task.Status = model.TaskStatusStopping
		if cancel, ok := s.cancels[id]; ok {
			cancel()
		}
	default:
		s.tasksMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotActive, task.Status)
	}
	snapshot := *task
	s.tasksMutex.Unlock()

	s.notifyUpdate(&snapshot)
	return nil
}

// RemoveTask forgets a finished task; the retrieved file is kept
func (s *Service) RemoveTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !task.Status.IsFinished() {
		return fmt.Errorf("cannot remove task in status %s", task.Status)
	}
	delete(s.tasks, id)
	return nil
}

// Wait blocks until every started task has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// startPendingTasks starts pending tasks, oldest first, while capacity allows
func (s *Service) startPendingTasks() {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	for s.activeCount < s.maxParallel {
		var next *model.DownloadTask
		for _, task := range s.tasks {
			if task.Status != model.TaskStatusPending {
				continue
			}
			if next == nil || task.StartedAt.Before(next.StartedAt) {
				next = task
			}
		}
		if next == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		s.cancels[next.ID] = cancel
		next.Status = model.TaskStatusStarting
		s.activeCount++
		s.wg.Add(1)
		go s.startTask(ctx, next)
	}
}

// startTask retrieves one file
func (s *Service) startTask(ctx context.Context, task *model.DownloadTask) {
	defer s.wg.Done()

	s.tasksMutex.Lock()
	dir := s.downloadDir
	task.Status = model.TaskStatusDownloading
	snapshot := *task
	s.tasksMutex.Unlock()
	s.notifyUpdate(&snapshot)

	entry := s.log.WithFields(logrus.Fields{"task": task.ID, "url": task.URL})
	entry.Info("Retrieving file")

	outputPath, err := s.retrieveWithRetry(ctx, task, dir)

	// Read before releasing the context below
	stopped := ctx.Err() != nil

	s.tasksMutex.Lock()
	if cancel, ok := s.cancels[task.ID]; ok {
		cancel()
		delete(s.cancels, task.ID)
	}
	s.activeCount--
	switch {
	case err != nil && stopped:
		task.Status = model.TaskStatusStopped
	case err != nil:
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
	default:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
		task.ETASec = 0
		task.OutputPath = outputPath
	}
	task.FinishedAt = time.Now()
	snapshot = *task
	s.tasksMutex.Unlock()

	switch snapshot.Status {
	case model.TaskStatusCompleted:
		entry.WithField("path", outputPath).Info("File retrieved")
	case model.TaskStatusStopped:
		entry.Info("Retrieval stopped")
	default:
		entry.WithError(err).Error("Retrieval failed")
	}

	s.notifyUpdate(&snapshot)
	s.startPendingTasks()
}

// retrieveWithRetry retries once after a transport failure. Responses from
// the server, including errors, are final.
func (s *Service) retrieveWithRetry(ctx context.Context, task *model.DownloadTask, dir string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			s.log.WithFields(logrus.Fields{"task": task.ID, "attempt": attempt + 1}).Warn("Retrying retrieval")
		}

		outputPath, err := s.retrieve(ctx, task, dir)
		if err == nil {
			return outputPath, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if ctx.Err() != nil || errors.As(err, &httpErr) {
			return "", err
		}
	}
	return "", lastErr
}

// retrieve streams the file into dir through a partial file that is renamed
// once complete
func (s *Service) retrieve(ctx context.Context, task *model.DownloadTask, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", readHTTPError(resp)
	}

	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	name := fileNameFor(resp)
	outputPath, f, err := platform.ReservePath(dir, name, PartialFileSuffix, FilePermissions)
	if err != nil {
		return "", err
	}
	partPath := outputPath + PartialFileSuffix

	s.tasksMutex.Lock()
	task.Title = name
	if resp.ContentLength > 0 {
		task.FileSize = resp.ContentLength
	}
	task.Downloaded = 0
	s.tasksMutex.Unlock()

	pw := &progressWriter{
		service: s,
		task:    task,
		total:   resp.ContentLength,
		started: time.Now(),
	}
	_, copyErr := io.Copy(io.MultiWriter(f, pw), resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(partPath)
		if copyErr != nil {
			return "", fmt.Errorf("write file: %w", copyErr)
		}
		return "", fmt.Errorf("close file: %w", closeErr)
	}

	if err := os.Rename(partPath, outputPath); err != nil {
		_ = os.Remove(partPath)
		return "", fmt.Errorf("finalize file: %w", err)
	}
	return outputPath, nil
}

// progressWriter counts written bytes and publishes throttled progress
type progressWriter struct {
	service    *Service
	task       *model.DownloadTask
	total      int64
	written    int64
	started    time.Time
	lastNotify time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	now := time.Now()
	if now.Sub(p.lastNotify) < ProgressInterval && p.written != p.total {
		return len(b), nil
	}
	p.lastNotify = now
	p.service.updateTaskProgress(p.task, p.written, p.total, now.Sub(p.started))
	return len(b), nil
}

// updateTaskProgress updates percent, speed and ETA of a running task
func (s *Service) updateTaskProgress(task *model.DownloadTask, written, total int64, elapsed time.Duration) {
	s.tasksMutex.Lock()
	task.Downloaded = written
	if total > 0 {
		percent := float64(written) / float64(total) * 100
		task.Percent = int(percent)
		task.Progress = percent / 100.0
	}

	if secs := elapsed.Seconds(); secs > 0 {
		bytesPerSecond := float64(written) / secs
		task.Speed = model.FormatSpeed(&bytesPerSecond)
		if total > 0 && bytesPerSecond > 0 {
			task.ETASec = int(float64(total-written) / bytesPerSecond)
		}
	}
	snapshot := *task
	s.tasksMutex.Unlock()

	s.notifyUpdate(&snapshot)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	s.tasksMutex.RLock()
	callback := s.onUpdate
	s.tasksMutex.RUnlock()
	if callback != nil {
		callback(task)
	}
}

// fileNameFor picks the local name: Content-Disposition, then the path
// query parameter, then the last URL path segment
func fileNameFor(resp *http.Response) string {
	if cd := resp.Header.Get(ContentDispositionKey); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return platform.SanitizeFileName(params["filename"])
		}
	}
	return fileNameFromURL(resp.Request.URL)
}

func fileNameFromURL(u *url.URL) string {
	if p := u.Query().Get(PathQueryParam); p != "" {
		return platform.SanitizeFileName(p)
	}
	return platform.SanitizeFileName(path.Base(u.Path))
}

func readHTTPError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, MaxErrorBodyBytes)).Decode(&body)
	return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error}
}

// generateTaskID generates a unique, time-ordered task ID using UUID v7
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
