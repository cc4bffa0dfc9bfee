// Package compress re-encodes retrieved videos with ffmpeg into smaller MP4
// files next to the original.
package compress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/model"
)

// FFmpeg constants for compression settings
const (
	VideoCodec    = "libx264"
	VideoPreset   = "medium"
	VideoCRF      = "23"
	AudioCodec    = "aac"
	AudioBitrate  = "128k"
	FastStartFlag = "+faststart"

	CompressedSuffix   = "-compressed"
	OutputExtensionMP4 = ".mp4"
	TaskIDPrefix       = "compress-"

	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	MicrosPerSecond     = 1_000_000.0
)

// VideoExtensions are the containers worth re-encoding; audio-only files are skipped
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
	".flv":  true,
}

// Errors returned by StartCompression
var (
	ErrNotVideo      = errors.New("not a video file")
	ErrAlreadyActive = errors.New("compression already in progress")
)

// Service handles video compression operations
type Service struct {
	tasks      map[string]*model.CompressionTask
	cancels    map[string]context.CancelFunc
	tasksMutex sync.RWMutex
	onUpdate   func(*model.CompressionTask) // callback for UI updates
	wg         sync.WaitGroup

	ffmpeg  string
	ffprobe string
	log     *logrus.Entry
}

// Option configures a Service
type Option func(*Service)

// WithBinaries overrides the ffmpeg and ffprobe executables
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(s *Service) {
		if ffmpeg != "" {
			s.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			s.ffprobe = ffprobe
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = logger.Component(log, "compress")
		}
	}
}

// NewService creates a new compression service
func NewService(opts ...Option) *Service {
	s := &Service{
		tasks:   make(map[string]*model.CompressionTask),
		cancels: make(map[string]context.CancelFunc),
		ffmpeg:  FFmpegCommand,
		ffprobe: FFprobeCommand,
		log:     logger.Component(logger.Discard(), "compress"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.CompressionTask)) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	s.onUpdate = callback
}

// Available reports whether both executables are on PATH
func (s *Service) Available() bool {
	if _, err := exec.LookPath(s.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(s.ffprobe)
	return err == nil
}

// Wait blocks until every started compression has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// HandleRetrieved starts compression for a completed retrieval of a video
// file; anything else is ignored
func (s *Service) HandleRetrieved(task *model.DownloadTask) {
	if task == nil || task.Status != model.TaskStatusCompleted || task.OutputPath == "" {
		return
	}
	if !IsVideoFile(task.OutputPath) {
		s.log.WithField("path", task.OutputPath).Debug("Skipping compression of non-video file")
		return
	}
	if _, err := s.StartCompression(task.OutputPath); err != nil {
		s.log.WithField("path", task.OutputPath).WithError(err).Warn("Compression not started")
	}
}

// StartCompression starts compressing a video file
func (s *Service) StartCompression(inputPath string) (*model.CompressionTask, error) {
	if !IsVideoFile(inputPath) {
		return nil, fmt.Errorf("%w: %s", ErrNotVideo, inputPath)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	s.tasksMutex.Lock()
	for _, task := range s.tasks {
		if task.InputPath == inputPath && (task.Status.IsActive() || task.Status == model.TaskStatusPending) {
			s.tasksMutex.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, inputPath)
		}
	}

	task := &model.CompressionTask{
		ID:         generateTaskID(),
		InputPath:  inputPath,
		OutputPath: OutputPath(inputPath),
		Status:     model.TaskStatusPending,
		StartedAt:  time.Now(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.tasks[task.ID] = task
	s.cancels[task.ID] = cancel
	snapshot := *task
	s.tasksMutex.Unlock()

	s.log.WithFields(logrus.Fields{"task": task.ID, "input": inputPath}).Info("Compression queued")
	s.wg.Add(1)
	go s.runCompression(ctx, task)
	return &snapshot, nil
}

// StopCompression stops a running compression task
func (s *Service) StopCompression(taskID string) error {
	s.tasksMutex.Lock()
	task, exists := s.tasks[taskID]
	if !exists {
		s.tasksMutex.Unlock()
		return fmt.Errorf("compression task not found: %s", taskID)
	}
	if task.Status.IsFinished() {
		s.tasksMutex.Unlock()
		return fmt.Errorf("compression task is not active: %s", task.Status)
	}

	task.Status = model.TaskStatusStopping
	if cancel, ok := s.cancels[taskID]; ok {
		cancel()
	}
	snapshot := *task
	s.tasksMutex.Unlock()

	s.notifyUpdate(&snapshot)
	return nil
}

// GetTask returns a copy of a compression task by ID
func (s *Service) GetTask(taskID string) (*model.CompressionTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[taskID]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

func (s *Service) runCompression(ctx context.Context, task *model.CompressionTask) {
	defer s.wg.Done()
	entry := s.log.WithFields(logrus.Fields{"task": task.ID, "input": task.InputPath})

	s.setStatus(task, model.TaskStatusStarting)

	duration, err := s.probeDuration(ctx, task.InputPath)
	if err != nil {
		entry.WithError(err).Error("Failed to get video duration")
		s.finish(ctx, task, err)
		return
	}

	s.setStatus(task, model.TaskStatusDownloading)

	cmd := exec.CommandContext(ctx, s.ffmpeg, BuildFFmpegArgs(task.InputPath, task.OutputPath)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.finish(ctx, task, fmt.Errorf("failed to create stderr pipe: %w", err))
		return
	}
	if err := cmd.Start(); err != nil {
		s.finish(ctx, task, fmt.Errorf("failed to start ffmpeg: %w", err))
		return
	}

	s.monitorProgress(stderr, task, duration)
	err = cmd.Wait()
	if err != nil {
		entry.WithError(err).Warn("ffmpeg exited with error")
	}
	s.finish(ctx, task, err)
}

// finish records the final state; partial output is removed on failure
func (s *Service) finish(ctx context.Context, task *model.CompressionTask, err error) {
	s.tasksMutex.Lock()
	switch {
	case ctx.Err() != nil:
		task.Status = model.TaskStatusStopped
		_ = os.Remove(task.OutputPath)
	case err != nil:
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
		_ = os.Remove(task.OutputPath)
	default:
		task.Status = model.TaskStatusCompleted
		task.Progress = 1.0
		task.Percent = 100
	}
	task.FinishedAt = time.Now()
	if cancel, ok := s.cancels[task.ID]; ok {
		cancel()
		delete(s.cancels, task.ID)
	}
	snapshot := *task
	s.tasksMutex.Unlock()

	s.log.WithFields(logrus.Fields{"task": task.ID, "status": snapshot.Status}).Info("Compression finished")
	s.notifyUpdate(&snapshot)
}

func (s *Service) setStatus(task *model.CompressionTask, status model.TaskStatus) {
	s.tasksMutex.Lock()
	if task.Status == model.TaskStatusStopping {
		s.tasksMutex.Unlock()
		return
	}
	task.Status = status
	snapshot := *task
	s.tasksMutex.Unlock()
	s.notifyUpdate(&snapshot)
}

// probeDuration gets the duration of a video file in seconds using ffprobe
func (s *Service) probeDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// monitorProgress reads ffmpeg's -progress output until the stream closes
func (s *Service) monitorProgress(stderr io.Reader, task *model.CompressionTask, totalDuration float64) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		progress, ok := ParseProgressLine(scanner.Text(), totalDuration)
		if !ok {
			continue
		}

		s.tasksMutex.Lock()
		task.Progress = progress
		task.Percent = int(progress * 100)
		snapshot := *task
		s.tasksMutex.Unlock()

		s.notifyUpdate(&snapshot)
	}
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.CompressionTask) {
	s.tasksMutex.RLock()
	callback := s.onUpdate
	s.tasksMutex.RUnlock()
	if callback != nil {
		callback(task)
	}
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-movflags", FastStartFlag,
		"-progress", ProgressPipeTarget,
		"-nostats",
		outputPath,
	}
}

// ParseProgressLine turns an "out_time_us=N" line into a 0..1 fraction
func ParseProgressLine(line string, totalDuration float64) (float64, bool) {
	line = strings.TrimSpace(line)
	if totalDuration <= 0 || !strings.HasPrefix(line, ProgressTimePrefix) {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}

	progress := float64(micros) / MicrosPerSecond / totalDuration
	if progress > 1.0 {
		progress = 1.0
	}
	return progress, true
}

// IsVideoFile reports whether path has a video container extension
func IsVideoFile(path string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(path))]
}

// OutputPath returns the compressed file path for inputPath
func OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + CompressedSuffix + OutputExtensionMP4
}

// generateTaskID generates a unique, time-ordered task ID using UUID v7
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
