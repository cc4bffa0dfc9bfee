package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/yt-webclient/internal/model"
)

// pollSession is one status-polling loop for one server job. It owns the
// context that bounds every request it makes; once finished, nothing it
// receives afterwards is rendered.
type pollSession struct {
	id     string
	job    model.DownloadJob
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// guarded by Controller.mu
	last model.JobStatus

	// written once before done is closed
	result  *model.DownloadStatus
	fileURL string
	err     error
}

func newPollSession(parent context.Context, job model.DownloadJob) *pollSession {
	ctx, cancel := context.WithCancel(parent)
	return &pollSession{
		id:     newSessionID(),
		job:    job,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// finish records the outcome and stops the loop; later calls are no-ops
func (p *pollSession) finish(st *model.DownloadStatus, fileURL string, err error) {
	p.once.Do(func() {
		p.result = st
		p.fileURL = fileURL
		p.err = err
		p.cancel()
		close(p.done)
	})
}

// runPoll issues one status request per tick until the session finishes.
// A tick that arrives while a request is still in flight is dropped by the
// ticker, so requests of one session never overlap.
func (c *Controller) runPoll(p *pollSession) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.svc.PollStatus(p.ctx, p.job)
		if p.ctx.Err() != nil {
			return
		}
		if c.handleTick(p, st, err) {
			return
		}
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
