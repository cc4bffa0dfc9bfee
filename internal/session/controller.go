// Package session drives one user-facing download flow: URL validation,
// metadata fetch, job start, status polling and hand-off of the finished
// file. All screen changes go through a view.Presenter.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/api"
	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/model"
	"github.com/ytget/yt-webclient/internal/platform"
	"github.com/ytget/yt-webclient/internal/view"
)

// Timing defaults
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultResetDelay   = 3 * time.Second
)

// Progress values shown outside the downloading phase
const (
	InitialProgress  = 10.0
	CompleteProgress = 100.0
)

// ErrNoJob is returned by Wait before any download was started
var ErrNoJob = errors.New("no download job started")

// Navigator receives the absolute URL of a finished file
type Navigator interface {
	Navigate(fileURL string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(fileURL string) error

// Navigate calls f(fileURL)
func (f NavigatorFunc) Navigate(fileURL string) error { return f(fileURL) }

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	ResetDelay   time.Duration
	Navigator    Navigator
	Logger       logrus.FieldLogger
}

// Controller coordinates the service calls of a download flow. At most one
// status-polling loop is active at any time.
type Controller struct {
	svc          api.Service
	presenter    view.Presenter
	nav          Navigator
	log          *logrus.Entry
	pollInterval time.Duration
	resetDelay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    view.State
	meta     *model.VideoMetadata
	metaURL  string
	seq      uint64
	poll     *pollSession
	last     *pollSession
	reset    *time.Timer
	resetGen uint64
	closed   bool
}

// New creates a controller. presenter may be nil for headless use.
func New(svc api.Service, presenter view.Presenter, opts Options) *Controller {
	if presenter == nil {
		presenter = view.PresenterFunc(func(view.State) {})
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	c := &Controller{
		svc:          svc,
		presenter:    presenter,
		nav:          opts.Navigator,
		log:          logger.Component(opts.Logger, "session"),
		pollInterval: opts.PollInterval,
		resetDelay:   opts.ResetDelay,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// State returns a snapshot of the current screen state
func (c *Controller) State() view.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Metadata returns the last successfully fetched metadata, if any
func (c *Controller) Metadata() (model.VideoMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meta == nil {
		return model.VideoMetadata{}, false
	}
	return *c.meta, true
}

// Polling reports whether a status loop is currently active
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll != nil
}

// Submit validates rawURL and fetches its metadata. Invalid input is
// reported without touching the network; valid input abandons any active
// poll loop and pending reset.
func (c *Controller) Submit(ctx context.Context, rawURL string) error {
	videoURL, err := platform.ValidateVideoURL(rawURL)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.showErrorLocked(UserMessage(err, MsgInvalidURL))
		c.mu.Unlock()
		c.log.WithField("url", rawURL).WithError(err).Debug("URL rejected")
		return err
	}

	c.stopActivityLocked(ErrSuperseded)
	c.seq++
	seq := c.seq
	c.meta = nil
	c.metaURL = ""
	c.state = view.State{LoadingVisible: true}
	c.renderLocked()
	c.mu.Unlock()

	c.log.WithField("url", videoURL).Info("Fetching video info")
	meta, err := c.svc.FetchMetadata(ctx, videoURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if seq != c.seq {
		return ErrSuperseded
	}

	c.state.LoadingVisible = false
	if err != nil {
		c.log.WithField("url", videoURL).WithError(err).Error("Error fetching video info")
		c.showErrorLocked(UserMessage(err, MsgFetchFailed))
		return fmt.Errorf("fetch video info: %w", err)
	}

	c.meta = meta
	c.metaURL = videoURL
	c.state.Video = view.NewVideoPanel(*meta)
	c.state.MetadataVisible = true
	c.renderLocked()
	return nil
}

// Download starts a server job for formatID of the last fetched video and
// begins polling it. Any previous poll loop is canceled first.
func (c *Controller) Download(ctx context.Context, formatID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.meta == nil {
		c.showErrorLocked(MsgNoMetadata)
		c.mu.Unlock()
		return ErrNoMetadata
	}
	if !hasFormat(c.meta, formatID) {
		c.showErrorLocked(MsgUnknownFormat)
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownFormat, formatID)
	}

	c.stopActivityLocked(ErrSuperseded)
	c.seq++
	seq := c.seq
	videoURL := c.metaURL

	c.state.ErrorVisible = false
	c.state.ErrorText = ""
	c.state.MetadataVisible = false
	c.state.ProgressVisible = true
	c.state.Progress = view.ProgressPanel{
		Percent:    InitialProgress,
		StatusText: MsgPreparing,
		Speed:      model.Calculating,
		ETA:        model.Calculating,
		Size:       model.Calculating,
	}
	c.renderLocked()
	c.mu.Unlock()

	entry := c.log.WithFields(logrus.Fields{"url": videoURL, "format_id": formatID})
	entry.Info("Starting download")
	job, err := c.svc.StartDownload(ctx, videoURL, formatID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if seq != c.seq {
		return ErrSuperseded
	}
	if err != nil {
		entry.WithError(err).Error("Error starting download")
		c.failLocked(UserMessage(err, MsgDownloadFailed))
		return fmt.Errorf("start download: %w", err)
	}

	c.startPollLocked(*job)
	return nil
}

// Wait blocks until the most recent job reaches a terminal state, is
// superseded, or ctx ends. It returns the final status and, on success,
// the absolute URL of the finished file.
func (c *Controller) Wait(ctx context.Context) (*model.DownloadStatus, string, error) {
	c.mu.Lock()
	p := c.last
	c.mu.Unlock()
	if p == nil {
		return nil, "", ErrNoJob
	}

	select {
	case <-p.done:
		return p.result, p.fileURL, p.err
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

// Close stops polling and pending timers and waits for the poll goroutine
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopActivityLocked(ErrClosed)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) startPollLocked(job model.DownloadJob) {
	p := newPollSession(c.ctx, job)
	c.poll = p
	c.last = p

	c.log.WithFields(logrus.Fields{
		"session":  p.id,
		"video_id": job.VideoID,
		"filename": job.Filename,
	}).Info("Polling download status")

	c.wg.Add(1)
	go c.runPoll(p)
}

// handleTick applies one poll result and reports whether the loop is done
func (c *Controller) handleTick(p *pollSession, st *model.DownloadStatus, err error) bool {
	c.mu.Lock()
	if c.poll != p {
		c.mu.Unlock()
		return true
	}

	entry := c.log.WithFields(logrus.Fields{"session": p.id, "video_id": p.job.VideoID})
	if err != nil {
		c.mu.Unlock()
		entry.WithError(err).Warn("Error checking download status")
		return false
	}

	if p.last != "" && !p.last.CanTransitionTo(st.Status) {
		entry.WithFields(logrus.Fields{"from": p.last, "to": st.Status}).Warn("Unexpected status transition")
	}
	p.last = st.Status

	switch st.Status {
	case model.JobStatusDownloading:
		c.state.Progress = view.DownloadingPanel(*st, c.state.Progress.Percent)
		c.renderLocked()
		c.mu.Unlock()
		return false

	case model.JobStatusProcessing:
		c.state.Progress = view.ProgressPanel{
			Percent:       CompleteProgress,
			Indeterminate: true,
			StatusText:    MsgProcessing,
			Speed:         model.DashPlaceholder,
			ETA:           model.DashPlaceholder,
			Size:          c.state.Progress.Size,
		}
		c.renderLocked()
		c.mu.Unlock()
		return false

	case model.JobStatusComplete:
		fileURL := c.completeLocked(p, st)
		c.mu.Unlock()
		if fileURL != "" {
			entry.WithField("file_url", fileURL).Info("Download ready")
			c.navigate(fileURL)
		}
		return true

	case model.JobStatusError:
		c.poll = nil
		jobErr := &JobError{VideoID: p.job.VideoID, Message: st.Error}
		p.finish(st, "", jobErr)
		c.failLocked(UserMessage(jobErr, MsgJobFailed))
		c.mu.Unlock()
		entry.WithField("error", st.Error).Error("Download failed")
		return true

	default:
		c.mu.Unlock()
		entry.WithField("status", st.Status).Warn("Ignoring unknown status")
		return false
	}
}

// completeLocked finishes p and schedules the reset; it returns the file
// URL to navigate to, or "" when the completion could not be used.
func (c *Controller) completeLocked(p *pollSession, st *model.DownloadStatus) string {
	c.poll = nil

	fileURL, err := c.resolveDownloadPath(st.DownloadPath)
	if err != nil {
		p.finish(st, "", err)
		c.log.WithField("video_id", p.job.VideoID).WithError(err).Error("Unusable completion")
		c.failLocked(UserMessage(err, MsgMissingPath))
		return ""
	}
	p.finish(st, fileURL, nil)

	c.state.Progress.Percent = CompleteProgress
	c.state.Progress.Indeterminate = false
	c.state.Progress.StatusText = CompletionMessage(st.FileSizeMB)
	c.renderLocked()
	c.scheduleResetLocked()
	return fileURL
}

func (c *Controller) resolveDownloadPath(path string) (string, error) {
	if path == "" {
		return "", ErrMissingDownloadPath
	}
	fileURL, err := c.svc.ResolveURL(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingDownloadPath, err)
	}
	return fileURL, nil
}

func (c *Controller) navigate(fileURL string) {
	if c.nav == nil {
		return
	}
	if err := c.nav.Navigate(fileURL); err != nil {
		c.log.WithField("file_url", fileURL).WithError(err).Warn("Navigator refused file")
	}
}

// scheduleResetLocked hides the progress panel and shows the format list
// again once the reset delay has passed
func (c *Controller) scheduleResetLocked() {
	c.resetGen++
	gen := c.resetGen
	c.reset = time.AfterFunc(c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.reset == nil || c.resetGen != gen {
			return
		}
		c.reset = nil
		c.state.ProgressVisible = false
		c.state.MetadataVisible = c.meta != nil
		c.renderLocked()
	})
}

// stopActivityLocked cancels the active poll loop and any pending reset
func (c *Controller) stopActivityLocked(reason error) {
	if c.poll != nil {
		c.log.WithField("session", c.poll.id).Debug("Canceling poll loop")
		c.poll.finish(nil, "", reason)
		c.poll = nil
	}
	if c.reset != nil {
		c.reset.Stop()
		c.reset = nil
	}
}

func (c *Controller) showErrorLocked(msg string) {
	c.state.ErrorVisible = true
	c.state.ErrorText = msg
	c.renderLocked()
}

// failLocked returns the screen to its pre-flow state with msg shown
func (c *Controller) failLocked(msg string) {
	c.state.LoadingVisible = false
	c.state.MetadataVisible = false
	c.state.ProgressVisible = false
	c.state.ErrorVisible = true
	c.state.ErrorText = msg
	c.renderLocked()
}

func (c *Controller) renderLocked() {
	c.presenter.Render(c.state.Clone())
}

func hasFormat(meta *model.VideoMetadata, formatID string) bool {
	for _, f := range meta.Formats {
		if f.FormatID == formatID {
			return true
		}
	}
	return false
}
