package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/model"
)

// Endpoint paths
const (
	PathVideoInfo   = "/get_video_info"
	PathDownload    = "/download"
	PathCheckStatus = "/check_download_status"
)

// Query parameters of the status endpoint
const (
	ParamVideoID  = "video_id"
	ParamFilename = "filename"
)

// Fallback messages when the service gives no error text
const (
	MsgMetadataFailed = "Failed to fetch video information"
	MsgDownloadFailed = "Failed to download video"
	MsgStatusFailed   = "Failed to check download status"
)

// Transport constants
const (
	DefaultTimeout   = 30 * time.Second
	MaxResponseBytes = 10 << 20
	ContentTypeJSON  = "application/json"
)

// Service is the set of calls a download session makes
type Service interface {
	FetchMetadata(ctx context.Context, videoURL string) (*model.VideoMetadata, error)
	StartDownload(ctx context.Context, videoURL, formatID string) (*model.DownloadJob, error)
	PollStatus(ctx context.Context, job model.DownloadJob) (*model.DownloadStatus, error)
	ResolveURL(path string) (string, error)
}

// Client talks to the download service over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *logrus.Entry
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout; zero disables it
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = logger.Component(log, "api")
		}
	}
}

// NewClient creates a client for the service rooted at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service URL must start with http:// or https://, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("service URL %q has no host", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger.Component(logger.Discard(), "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type videoInfoRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

type downloadResponse struct {
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// FetchMetadata resolves the video behind videoURL. A payload error, a
// non-success status and an empty format list are all reported as errors.
func (c *Client) FetchMetadata(ctx context.Context, videoURL string) (*model.VideoMetadata, error) {
	resp, err := c.postJSON(ctx, PathVideoInfo, videoInfoRequest{URL: videoURL})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, c.remoteError(PathVideoInfo, resp, MsgMetadataFailed)
	}

	var meta model.VideoMetadata
	if err := decodeJSON(resp.Body, &meta); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", PathVideoInfo, err)
	}
	if meta.Error != "" {
		return nil, &RemoteError{Op: PathVideoInfo, StatusCode: resp.StatusCode, Message: meta.Error}
	}
	if len(meta.Formats) == 0 {
		return nil, ErrNoFormats
	}

	c.log.WithFields(logrus.Fields{
		"title":   meta.Title,
		"formats": len(meta.Formats),
	}).Debug("Video info received")
	return &meta, nil
}

// StartDownload asks the service to start a job for one format
func (c *Client) StartDownload(ctx context.Context, videoURL, formatID string) (*model.DownloadJob, error) {
	resp, err := c.postJSON(ctx, PathDownload, downloadRequest{URL: videoURL, FormatID: formatID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, c.remoteError(PathDownload, resp, MsgDownloadFailed)
	}

	var body downloadResponse
	if err := decodeJSON(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", PathDownload, err)
	}
	if body.Error != "" {
		return nil, &RemoteError{Op: PathDownload, StatusCode: resp.StatusCode, Message: body.Error}
	}
	if body.VideoID == "" {
		return nil, ErrMissingVideoID
	}

	c.log.WithFields(logrus.Fields{
		"video_id": body.VideoID,
		"filename": body.Filename,
	}).Info("Download job started")
	return &model.DownloadJob{VideoID: body.VideoID, Filename: body.Filename}, nil
}

// PollStatus fetches the current state of job. Any body carrying a known
// status is returned as-is, including {status:"error"} on a failure code;
// everything else is a transport-level error.
func (c *Client) PollStatus(ctx context.Context, job model.DownloadJob) (*model.DownloadStatus, error) {
	endpoint := c.endpoint(PathCheckStatus)
	q := url.Values{}
	q.Set(ParamVideoID, job.VideoID)
	q.Set(ParamFilename, job.Filename)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", PathCheckStatus, err)
	}
	req.Header.Set("Accept", ContentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PathCheckStatus, err)
	}
	defer resp.Body.Close()

	var status model.DownloadStatus
	decodeErr := decodeJSON(resp.Body, &status)
	if decodeErr == nil && status.Status.IsKnown() {
		return &status, nil
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &RemoteError{Op: PathCheckStatus, StatusCode: resp.StatusCode, Message: MsgStatusFailed}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", PathCheckStatus, decodeErr)
	}
	return nil, fmt.Errorf("%s: %w %q", PathCheckStatus, ErrUnknownStatus, status.Status)
}

// ResolveURL turns a server-relative path (e.g. /download_file?path=x.mp4)
// into an absolute URL against the service root. Absolute URLs pass through.
func (c *Client) ResolveURL(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty download path")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid download path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set("Accept", ContentTypeJSON)

	c.log.WithField("endpoint", path).Debug("POST")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}

// remoteError builds a RemoteError from a failed response, preferring the
// body's error field over the fallback message
func (c *Client) remoteError(op string, resp *http.Response, fallback string) error {
	msg := fallback
	var body errorResponse
	if err := decodeJSON(resp.Body, &body); err == nil && body.Error != "" {
		msg = body.Error
	}

	c.log.WithFields(logrus.Fields{
		"endpoint": op,
		"status":   resp.StatusCode,
		"error":    msg,
	}).Warn("Service returned an error")
	return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, MaxResponseBytes)).Decode(v)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
