package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-webclient/internal/api"
	"github.com/ytget/yt-webclient/internal/apitest"
	"github.com/ytget/yt-webclient/internal/model"
	"github.com/ytget/yt-webclient/internal/platform"
	"github.com/ytget/yt-webclient/internal/view"
)

const (
	testVideoURL     = "https://www.youtube.com/watch?v=abc123"
	testPollInterval = 10 * time.Millisecond
	testResetDelay   = 60 * time.Millisecond
	waitTimeout      = 3 * time.Second
)

type recorder struct {
	mu     sync.Mutex
	states []view.State
}

func (r *recorder) Render(s view.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []view.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]view.State(nil), r.states...)
}

func (r *recorder) any(match func(view.State) bool) bool {
	for _, s := range r.all() {
		if match(s) {
			return true
		}
	}
	return false
}

type navRecorder struct {
	mu   sync.Mutex
	urls []string
}

func (n *navRecorder) Navigate(fileURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, fileURL)
	return nil
}

func (n *navRecorder) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

type fixture struct {
	backend *apitest.Backend
	rec     *recorder
	nav     *navRecorder
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := apitest.New(t)
	client, err := api.NewClient(backend.URL(), api.WithHTTPClient(backend.Client()))
	require.NoError(t, err)

	f := &fixture{backend: backend, rec: &recorder{}, nav: &navRecorder{}}
	f.ctrl = New(client, f.rec, Options{
		PollInterval: testPollInterval,
		ResetDelay:   testResetDelay,
		Navigator:    f.nav,
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) submit(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Submit(context.Background(), testVideoURL))
}

func (f *fixture) wait(t *testing.T) (*model.DownloadStatus, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	return f.ctrl.Wait(ctx)
}

// assertPollingStopped checks that no further status requests are made
func (f *fixture) assertPollingStopped(t *testing.T) {
	t.Helper()
	calls := f.backend.Calls(apitest.PathCheckStatus)
	time.Sleep(10 * testPollInterval)
	assert.Equal(t, calls, f.backend.Calls(apitest.PathCheckStatus), "status polled after terminal state")
	assert.False(t, f.ctrl.Polling())
}

func TestSubmit_InvalidInputNeverReachesNetwork(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{"empty", "", platform.ErrEmptyURL, MsgEmptyURL},
		{"whitespace", "  \n\t ", platform.ErrEmptyURL, MsgEmptyURL},
		{"other host", "https://vimeo.com/123", platform.ErrInvalidURL, MsgInvalidURL},
		{"host without path", "https://youtube.com", platform.ErrInvalidURL, MsgInvalidURL},
		{"host in path", "https://example.com/youtube.com/watch?v=x", platform.ErrInvalidURL, MsgInvalidURL},
		{"plain text", "not a url", platform.ErrInvalidURL, MsgInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.ctrl.Submit(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Zero(t, f.backend.Calls(apitest.PathVideoInfo))
			st := f.ctrl.State()
			assert.True(t, st.ErrorVisible)
			assert.Equal(t, tt.wantMsg, st.ErrorText)
			assert.False(t, st.LoadingVisible)
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	f.submit(t)

	states := f.rec.all()
	require.NotEmpty(t, states)
	first := states[0]
	assert.True(t, first.LoadingVisible)
	assert.False(t, first.ErrorVisible)
	assert.False(t, first.MetadataVisible)
	assert.False(t, first.ProgressVisible)

	st := f.ctrl.State()
	assert.False(t, st.LoadingVisible)
	assert.False(t, st.ErrorVisible)
	assert.True(t, st.MetadataVisible)
	assert.Equal(t, "Sample Video", st.Video.Title)
	assert.Equal(t, "Sample Channel", st.Video.Uploader)
	assert.Equal(t, "01:01:01", st.Video.Duration)
	require.Len(t, st.Video.Formats, 2)
	assert.Equal(t, "137", st.Video.Formats[0].FormatID)
	assert.Equal(t, "mp4 - H.264", st.Video.Formats[0].Description)
	assert.Equal(t, "52.4 MB", st.Video.Formats[0].Size)
	assert.Equal(t, "m4a (128kbps)", st.Video.Formats[1].Description)
	assert.Equal(t, "Unknown", st.Video.Formats[1].Size)

	meta, ok := f.ctrl.Metadata()
	require.True(t, ok)
	assert.Len(t, meta.Formats, 2)
}

func TestSubmit_EmptyFormatsMatchesFetchFailure(t *testing.T) {
	replies := map[string]apitest.Reply{
		"empty formats":  apitest.JSON(http.StatusOK, gin.H{"title": "x", "formats": []gin.H{}}),
		"server failure": apitest.Text(http.StatusInternalServerError, ""),
		"payload error":  apitest.JSON(http.StatusOK, gin.H{"error": "Video unavailable"}),
	}
	wantText := map[string]string{
		"empty formats":  MsgNoFormats,
		"server failure": MsgFetchFailed,
		"payload error":  "Video unavailable",
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.SetMetadata(reply)

			err := f.ctrl.Submit(context.Background(), testVideoURL)
			require.Error(t, err)

			st := f.ctrl.State()
			assert.False(t, st.LoadingVisible)
			assert.True(t, st.ErrorVisible)
			assert.False(t, st.MetadataVisible)
			assert.False(t, st.ProgressVisible)
			assert.Equal(t, wantText[name], st.ErrorText)

			_, ok := f.ctrl.Metadata()
			assert.False(t, ok)
		})
	}
}

func TestDownload_RequiresMetadata(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Download(context.Background(), "137")
	require.ErrorIs(t, err, ErrNoMetadata)
	assert.Zero(t, f.backend.Calls(apitest.PathDownload))
	assert.Equal(t, MsgNoMetadata, f.ctrl.State().ErrorText)

	f.submit(t)
	err = f.ctrl.Download(context.Background(), "999")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Zero(t, f.backend.Calls(apitest.PathDownload))
}

func TestDownload_FullFlow(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(
		apitest.JSON(http.StatusOK, gin.H{"status": "downloading"}),
		apitest.JSON(http.StatusOK, gin.H{
			"status": "downloading", "percent": 50, "speed": 2 * model.BytesPerMB, "eta": 65,
			"downloaded_bytes": 5 * model.BytesPerMB, "total_bytes": 10 * model.BytesPerMB,
		}),
		apitest.JSON(http.StatusOK, gin.H{"status": "processing"}),
		apitest.JSON(http.StatusOK, gin.H{
			"status": "complete", "file_size_mb": 12.5, "download_path": "/download_file?path=Sample.mp4",
		}),
	)
	f.submit(t)

	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	reqs := f.backend.Requests(apitest.PathDownload)
	require.Len(t, reqs, 1)
	assert.Equal(t, testVideoURL, reqs[0].URL)
	assert.Equal(t, "137", reqs[0].FormatID)

	st, fileURL, err := f.wait(t)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, st.Status)
	wantURL := f.backend.URL() + "/download_file?path=Sample.mp4"
	assert.Equal(t, wantURL, fileURL)
	assert.Eventually(t, func() bool {
		return len(f.nav.visited()) == 1 && f.nav.visited()[0] == wantURL
	}, waitTimeout, testPollInterval, "navigator not called with the file URL")

	for _, q := range f.backend.StatusQueries() {
		assert.Equal(t, "abc123", q["video_id"])
		assert.Equal(t, "Sample.mp4", q["filename"])
	}

	assert.True(t, f.rec.any(func(s view.State) bool {
		return s.ProgressVisible && !s.MetadataVisible &&
			s.Progress.Percent == InitialProgress && s.Progress.StatusText == MsgPreparing
	}), "preparing state not rendered")
	assert.True(t, f.rec.any(func(s view.State) bool {
		p := s.Progress
		return p.StatusText != MsgPreparing && p.Speed == model.Calculating &&
			p.ETA == model.Calculating && p.Size == model.Calculating
	}), "placeholder state not rendered")
	assert.True(t, f.rec.any(func(s view.State) bool {
		p := s.Progress
		return p.Percent == 50 && p.Speed == "2.00 MB/s" && p.ETA == "1m 5s" && p.Size == "5.00 MB / 10.00 MB"
	}), "downloading state not rendered")
	assert.True(t, f.rec.any(func(s view.State) bool {
		return s.Progress.Indeterminate && s.Progress.StatusText == MsgProcessing
	}), "processing state not rendered")
	assert.True(t, f.rec.any(func(s view.State) bool {
		return s.ProgressVisible && s.Progress.Percent == CompleteProgress &&
			s.Progress.StatusText == "Download complete (12.5 MB)! Starting file download..."
	}), "completion state not rendered")

	f.assertPollingStopped(t)

	assert.Eventually(t, func() bool {
		s := f.ctrl.State()
		return !s.ProgressVisible && s.MetadataVisible && len(s.Video.Formats) == 2
	}, waitTimeout, testPollInterval, "format list not shown again after reset delay")
}

func TestPoll_CompleteWithoutSize(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(apitest.JSON(http.StatusOK, gin.H{
		"status": "complete", "download_path": "/download_file?path=Sample.mp4",
	}))
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	_, _, err := f.wait(t)
	require.NoError(t, err)
	assert.True(t, f.rec.any(func(s view.State) bool {
		return s.Progress.StatusText == MsgComplete
	}))
}

func TestPoll_TextualFiguresStillRender(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(
		apitest.JSON(http.StatusOK, gin.H{"status": "downloading", "percent": "45.2%", "speed": "N/A"}),
		apitest.JSON(http.StatusOK, gin.H{
			"status": "complete", "download_path": "/download_file?path=Sample.mp4",
		}),
	)
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	_, _, err := f.wait(t)
	require.NoError(t, err)
	assert.True(t, f.rec.any(func(s view.State) bool {
		return s.Progress.Percent == 45.2 && s.Progress.Speed == model.Calculating
	}), "textual percent dropped the tick")
	assert.False(t, f.rec.any(func(s view.State) bool { return s.ErrorVisible }))
}

func TestPoll_CompleteWithoutPathIsError(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(apitest.JSON(http.StatusOK, gin.H{"status": "complete"}))
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	_, _, err := f.wait(t)
	require.ErrorIs(t, err, ErrMissingDownloadPath)
	assert.Empty(t, f.nav.visited())

	st := f.ctrl.State()
	assert.True(t, st.ErrorVisible)
	assert.Equal(t, MsgMissingPath, st.ErrorText)
	assert.False(t, st.ProgressVisible)
	f.assertPollingStopped(t)
}

func TestPoll_ErrorStatusTerminates(t *testing.T) {
	tests := []struct {
		name    string
		body    gin.H
		code    int
		wantMsg string
	}{
		{"with message", gin.H{"status": "error", "error": "ffmpeg exited with code 1"}, http.StatusOK, "ffmpeg exited with code 1"},
		{"without message", gin.H{"status": "error"}, http.StatusOK, MsgJobFailed},
		{"on failure code", gin.H{"status": "error", "error": "Job not found"}, http.StatusNotFound, "Job not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.ScriptStatus(
				apitest.JSON(http.StatusOK, gin.H{"status": "downloading", "percent": 20}),
				apitest.JSON(tt.code, tt.body),
			)
			f.submit(t)
			require.NoError(t, f.ctrl.Download(context.Background(), "137"))

			_, _, err := f.wait(t)
			var jobErr *JobError
			require.True(t, errors.As(err, &jobErr), "got %v", err)

			f.assertPollingStopped(t)
			st := f.ctrl.State()
			assert.True(t, st.ErrorVisible)
			assert.Equal(t, tt.wantMsg, st.ErrorText)
			assert.False(t, st.ProgressVisible)
			assert.False(t, st.MetadataVisible)
			assert.Empty(t, f.nav.visited())
		})
	}
}

func TestPoll_TransportFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(
		apitest.Text(http.StatusServiceUnavailable, "busy"),
		apitest.Text(http.StatusOK, "not json"),
		apitest.JSON(http.StatusOK, gin.H{"status": "queued"}),
		apitest.JSON(http.StatusOK, gin.H{"status": "complete", "download_path": "/download_file?path=Sample.mp4"}),
	)
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	st, _, err := f.wait(t)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, st.Status)
	assert.GreaterOrEqual(t, f.backend.Calls(apitest.PathCheckStatus), 4)
	assert.False(t, f.rec.any(func(s view.State) bool { return s.ErrorVisible }), "transport failure surfaced")
}

func TestDownload_StartFailureResetsPanels(t *testing.T) {
	tests := []struct {
		name    string
		reply   apitest.Reply
		wantErr error
		wantMsg string
	}{
		{"server message", apitest.JSON(http.StatusBadRequest, gin.H{"error": "Format not available"}), nil, "Format not available"},
		{"no body", apitest.Text(http.StatusInternalServerError, ""), nil, MsgDownloadFailed},
		{"missing video id", apitest.JSON(http.StatusOK, gin.H{"filename": "x.mp4"}), api.ErrMissingVideoID, MsgMissingVideoID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.SetJob(tt.reply)
			f.submit(t)

			err := f.ctrl.Download(context.Background(), "137")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			st := f.ctrl.State()
			assert.True(t, st.ErrorVisible)
			assert.Equal(t, tt.wantMsg, st.ErrorText)
			assert.False(t, st.ProgressVisible)
			assert.False(t, st.MetadataVisible)
			assert.False(t, f.ctrl.Polling())
			assert.Zero(t, f.backend.Calls(apitest.PathCheckStatus))
		})
	}
}

func TestDownload_SecondDownloadCancelsFirstLoop(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(apitest.JSON(http.StatusOK, gin.H{"status": "downloading", "percent": 5}))
	f.submit(t)

	require.NoError(t, f.ctrl.Download(context.Background(), "137"))
	f.ctrl.mu.Lock()
	first := f.ctrl.poll
	f.ctrl.mu.Unlock()
	require.NotNil(t, first)

	require.NoError(t, f.ctrl.Download(context.Background(), "140"))
	f.ctrl.mu.Lock()
	second := f.ctrl.poll
	f.ctrl.mu.Unlock()

	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	select {
	case <-first.done:
	default:
		t.Fatal("second download did not cancel the first poll loop")
	}
	assert.ErrorIs(t, first.err, ErrSuperseded)
	assert.Error(t, first.ctx.Err())
	assert.NoError(t, second.ctx.Err())

	require.NoError(t, f.ctrl.Download(context.Background(), "137"))
	select {
	case <-second.done:
	case <-time.After(waitTimeout):
		t.Fatal("second loop still active after a third download")
	}
	assert.True(t, f.ctrl.Polling())
}

func TestSubmit_CancelsPendingReset(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(apitest.JSON(http.StatusOK, gin.H{
		"status": "complete", "download_path": "/download_file?path=Sample.mp4",
	}))
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))
	_, _, err := f.wait(t)
	require.NoError(t, err)

	f.backend.SetMetadata(apitest.JSON(http.StatusInternalServerError, gin.H{"error": "gone"}))
	require.Error(t, f.ctrl.Submit(context.Background(), testVideoURL))

	time.Sleep(2 * testResetDelay)
	st := f.ctrl.State()
	assert.False(t, st.MetadataVisible, "stale reset re-opened the format list")
	assert.Equal(t, "gone", st.ErrorText)
}

func TestClose_StopsPolling(t *testing.T) {
	f := newFixture(t)
	f.backend.ScriptStatus(apitest.JSON(http.StatusOK, gin.H{"status": "downloading"}))
	f.submit(t)
	require.NoError(t, f.ctrl.Download(context.Background(), "137"))

	f.ctrl.Close()
	_, _, err := f.wait(t)
	assert.ErrorIs(t, err, ErrClosed)
	f.assertPollingStopped(t)

	assert.ErrorIs(t, f.ctrl.Submit(context.Background(), testVideoURL), ErrClosed)
	assert.ErrorIs(t, f.ctrl.Download(context.Background(), "137"), ErrClosed)
}

func TestWait_NoJob(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.wait(t)
	assert.ErrorIs(t, err, ErrNoJob)
}
