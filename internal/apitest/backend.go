// Package apitest provides a scripted in-process fake of the download service
// for tests. It is built on gin and served through httptest.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Paths served by the fake
const (
	PathVideoInfo   = "/get_video_info"
	PathDownload    = "/download"
	PathCheckStatus = "/check_download_status"
	PathFile        = "/download_file"
)

// Reply is one scripted response. Raw, when set, is written verbatim
// instead of encoding Body as JSON.
type Reply struct {
	Code int
	Body any
	Raw  string
}

// JSON builds a Reply with a JSON body
func JSON(code int, body any) Reply {
	return Reply{Code: code, Body: body}
}

// Text builds a Reply with a raw, usually undecodable, body
func Text(code int, raw string) Reply {
	return Reply{Code: code, Raw: raw}
}

// Request is a recorded POST body
type Request struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// Backend is the fake service
type Backend struct {
	srv *httptest.Server

	mu       sync.Mutex
	metadata Reply
	job      Reply
	statuses []Reply
	files    map[string][]byte
	calls    map[string]int
	requests map[string][]Request
	queries  []map[string]string
}

// New starts a backend and registers its shutdown with t
func New(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		metadata: JSON(http.StatusOK, SampleMetadata()),
		job:      JSON(http.StatusOK, gin.H{"video_id": "abc123", "filename": "Sample.mp4"}),
		statuses: []Reply{JSON(http.StatusOK, gin.H{"status": "downloading", "percent": 0})},
		files:    make(map[string][]byte),
		calls:    make(map[string]int),
		requests: make(map[string][]Request),
	}

	r := gin.New()
	r.POST(PathVideoInfo, b.handleVideoInfo)
	r.POST(PathDownload, b.handleDownload)
	r.GET(PathCheckStatus, b.handleCheckStatus)
	r.GET(PathFile, b.handleFile)

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the base URL of the backend
func (b *Backend) URL() string {
	return b.srv.URL
}

// Client returns an HTTP client wired to the backend
func (b *Backend) Client() *http.Client {
	return b.srv.Client()
}

// SetMetadata scripts the metadata endpoint
func (b *Backend) SetMetadata(reply Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata = reply
}

// SetJob scripts the download-start endpoint
func (b *Backend) SetJob(reply Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.job = reply
}

// ScriptStatus sets the sequence of status replies. Each poll consumes one
// reply; the last one repeats forever.
func (b *Backend) ScriptStatus(replies ...Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append([]Reply(nil), replies...)
}

// AddFile makes name retrievable through /download_file?path=name
func (b *Backend) AddFile(name string, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = content
}

// Calls returns how many requests hit path
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// Requests returns the decoded POST bodies received on path
func (b *Backend) Requests(path string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests[path]...)
}

// StatusQueries returns the query parameters of every status poll
func (b *Backend) StatusQueries() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.queries...)
}

func (b *Backend) handleVideoInfo(c *gin.Context) {
	b.record(c, PathVideoInfo)
	b.mu.Lock()
	reply := b.metadata
	b.mu.Unlock()
	write(c, reply)
}

func (b *Backend) handleDownload(c *gin.Context) {
	b.record(c, PathDownload)
	b.mu.Lock()
	reply := b.job
	b.mu.Unlock()
	write(c, reply)
}

func (b *Backend) handleCheckStatus(c *gin.Context) {
	b.mu.Lock()
	b.calls[PathCheckStatus]++
	b.queries = append(b.queries, map[string]string{
		"video_id": c.Query("video_id"),
		"filename": c.Query("filename"),
	})
	var reply Reply
	if len(b.statuses) > 0 {
		reply = b.statuses[0]
		if len(b.statuses) > 1 {
			b.statuses = b.statuses[1:]
		}
	}
	b.mu.Unlock()
	write(c, reply)
}

func (b *Backend) handleFile(c *gin.Context) {
	name := c.Query("path")

	b.mu.Lock()
	b.calls[PathFile]++
	content, ok := b.files[name]
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/octet-stream", content)
}

func (b *Backend) record(c *gin.Context, path string) {
	var req Request
	_ = c.ShouldBindJSON(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[path]++
	b.requests[path] = append(b.requests[path], req)
}

func write(c *gin.Context, reply Reply) {
	code := reply.Code
	if code == 0 {
		code = http.StatusOK
	}
	if reply.Raw != "" || reply.Body == nil {
		c.Data(code, "text/plain; charset=utf-8", []byte(reply.Raw))
		return
	}
	c.JSON(code, reply.Body)
}

// SampleMetadata is a metadata payload with one video and one audio-only format
func SampleMetadata() gin.H {
	return gin.H{
		"title":     "Sample Video",
		"uploader":  "Sample Channel",
		"duration":  3661,
		"thumbnail": "https://i.ytimg.com/vi/abc123/hqdefault.jpg",
		"formats": []gin.H{
			{
				"format_id":         "137",
				"resolution":        "1920x1080",
				"extension":         "mp4",
				"fps":               30,
				"final_size_mb":     52.4,
				"codec_description": "H.264",
				"vcodec":            "avc1.640028",
				"has_audio":         true,
			},
			{
				"format_id":     "140",
				"resolution":    "Audio only",
				"extension":     "m4a",
				"final_size_mb": "Unknown",
				"audio_quality": "128kbps",
			},
		},
	}
}
