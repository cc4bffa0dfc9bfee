package download

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ytget/yt-webclient/internal/apitest"
	"github.com/ytget/yt-webclient/internal/model"
)

func waitForStatus(t *testing.T, s *Service, id string, want model.TaskStatus) *model.DownloadTask {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := s.GetTask(id); ok && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := s.GetTask(id)
	t.Fatalf("task %s did not reach %s, last state %+v", id, want, task)
	return nil
}

func TestNewService(t *testing.T) {
	service := NewService("/tmp", 2)

	if service.downloadDir != "/tmp" {
		t.Errorf("Expected downloadDir to be '/tmp', got '%s'", service.downloadDir)
	}
	if service.maxParallel != 2 {
		t.Errorf("Expected maxParallel to be 2, got %d", service.maxParallel)
	}
	if len(service.tasks) != 0 {
		t.Errorf("Expected empty tasks map, got %d items", len(service.tasks))
	}

	service = NewService("/tmp", 0)
	if service.maxParallel != DefaultMaxParallel {
		t.Errorf("Expected maxParallel to default to %d, got %d", DefaultMaxParallel, service.maxParallel)
	}
}

func TestNavigate_RetrievesFile(t *testing.T) {
	backend := apitest.New(t)
	content := []byte(strings.Repeat("video-bytes", 1000))
	backend.AddFile("My Video.mp4", content)

	dir := t.TempDir()
	service := NewService(dir, 1, WithHTTPClient(backend.Client()))

	var mu sync.Mutex
	var statuses []model.TaskStatus
	service.SetUpdateCallback(func(task *model.DownloadTask) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, task.Status)
	})

	fileURL := backend.URL() + "/download_file?path=" + url.QueryEscape("My Video.mp4")
	if err := service.Navigate(fileURL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	service.Wait()

	tasks := service.GetAllTasks()
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Status != model.TaskStatusCompleted {
		t.Fatalf("Expected Completed, got %s (%s)", task.Status, task.LastError)
	}
	if task.Percent != 100 {
		t.Errorf("Expected 100%%, got %d", task.Percent)
	}
	if want := filepath.Join(dir, "My Video.mp4"); task.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", task.OutputPath, want)
	}
	if !strings.HasPrefix(task.ID, TaskIDPrefix) {
		t.Errorf("Task ID %q lacks prefix %q", task.ID, TaskIDPrefix)
	}

	got, err := os.ReadFile(task.OutputPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("File content mismatch: got %d bytes, want %d", len(got), len(content))
	}
	if _, err := os.Stat(task.OutputPath + PartialFileSuffix); !os.IsNotExist(err) {
		t.Error("Partial file left behind")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 || statuses[len(statuses)-1] != model.TaskStatusCompleted {
		t.Errorf("Last update should be Completed, got %v", statuses)
	}
}

func TestNavigate_KeepsExistingFiles(t *testing.T) {
	backend := apitest.New(t)
	backend.AddFile("clip.mp4", []byte("new"))

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	service := NewService(dir, 1, WithHTTPClient(backend.Client()))
	task, err := service.AddTask(backend.URL() + "/download_file?path=clip.mp4")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	service.Wait()

	done := waitForStatus(t, service, task.ID, model.TaskStatusCompleted)
	if want := filepath.Join(dir, "clip (1).mp4"); done.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", done.OutputPath, want)
	}
	old, _ := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	if string(old) != "old" {
		t.Error("Existing file was overwritten")
	}
}

func TestNavigate_ServerError(t *testing.T) {
	backend := apitest.New(t)
	service := NewService(t.TempDir(), 1, WithHTTPClient(backend.Client()), WithRetryDelay(time.Millisecond))

	task, err := service.AddTask(backend.URL() + "/download_file?path=missing.mp4")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	service.Wait()

	failed := waitForStatus(t, service, task.ID, model.TaskStatusError)
	if !strings.Contains(failed.LastError, "File not found") {
		t.Errorf("LastError = %q, want server message", failed.LastError)
	}
	if calls := backend.Calls(apitest.PathFile); calls != 1 {
		t.Errorf("Server errors must not be retried, got %d calls", calls)
	}
}

func TestNavigate_TransportErrorAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	fileURL := srv.URL + "/download_file?path=clip.mp4"
	srv.Close()

	service := NewService(t.TempDir(), 1, WithRetryDelay(time.Millisecond))
	task, err := service.AddTask(fileURL)
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	service.Wait()

	failed := waitForStatus(t, service, task.ID, model.TaskStatusError)
	if !strings.Contains(failed.LastError, "request file") {
		t.Errorf("LastError = %q, want transport failure", failed.LastError)
	}
}

func TestNavigate_SameNameInParallel(t *testing.T) {
	backend := apitest.New(t)
	content := []byte(strings.Repeat("clip", 4096))
	backend.AddFile("clip.mp4", content)

	dir := t.TempDir()
	service := NewService(dir, 2, WithHTTPClient(backend.Client()))

	for _, n := range []string{"1", "2"} {
		if _, err := service.AddTask(backend.URL() + "/download_file?path=clip.mp4&n=" + n); err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
	}
	service.Wait()

	paths := make(map[string]bool)
	for _, task := range service.GetAllTasks() {
		if task.Status != model.TaskStatusCompleted {
			t.Fatalf("Expected Completed, got %s (%s)", task.Status, task.LastError)
		}
		paths[task.OutputPath] = true
		got, err := os.ReadFile(task.OutputPath)
		if err != nil {
			t.Fatalf("read %s: %v", task.OutputPath, err)
		}
		if string(got) != string(content) {
			t.Errorf("%s holds %d bytes, want %d", task.OutputPath, len(got), len(content))
		}
	}
	if len(paths) != 2 {
		t.Errorf("Expected two distinct files, got %v", paths)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*"+PartialFileSuffix))
	if len(leftovers) != 0 {
		t.Errorf("Partial files left behind: %v", leftovers)
	}
}

func TestAddTask_Validation(t *testing.T) {
	service := NewService(t.TempDir(), 1)

	tests := []struct {
		name string
		url  string
	}{
		{"relative", "/download_file?path=x.mp4"},
		{"ftp", "ftp://example.com/x.mp4"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.AddTask(tt.url)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("AddTask(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestAddTask_DuplicateRefusedWhileActive(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	service := NewService(t.TempDir(), 1, WithHTTPClient(srv.Client()))
	fileURL := srv.URL + "/download_file?path=a.mp4"

	first, err := service.AddTask(fileURL)
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if _, err := service.AddTask(fileURL); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("Expected ErrDuplicateTask, got %v", err)
	}

	close(release)
	service.Wait()
	waitForStatus(t, service, first.ID, model.TaskStatusCompleted)

	if _, err := service.AddTask(fileURL); err != nil {
		t.Errorf("Finished URL should be accepted again, got %v", err)
	}
	service.Wait()
}

func TestMaxParallel(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	inFlight, peak := 0, 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		<-release

		mu.Lock()
		inFlight--
		mu.Unlock()
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	service := NewService(t.TempDir(), 2, WithHTTPClient(srv.Client()))
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"} {
		if _, err := service.AddTask(srv.URL + "/download_file?path=" + name); err != nil {
			t.Fatalf("AddTask(%s) error = %v", name, err)
		}
	}

	pending := 0
	for _, task := range service.GetAllTasks() {
		if task.Status == model.TaskStatusPending {
			pending++
		}
	}
	if pending != 2 {
		t.Errorf("Expected 2 pending tasks, got %d", pending)
	}

	close(release)
	service.Wait()

	for _, task := range service.GetAllTasks() {
		if task.Status != model.TaskStatusCompleted {
			t.Errorf("Task %s: status %s, want Completed", task.Title, task.Status)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("Peak parallelism %d exceeds limit 2", peak)
	}
}

func TestStopTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	dir := t.TempDir()
	service := NewService(dir, 1, WithHTTPClient(srv.Client()))
	task, err := service.AddTask(srv.URL + "/download_file?path=long.mp4")
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	waitForStatus(t, service, task.ID, model.TaskStatusDownloading)

	if err := service.StopTask(task.ID); err != nil {
		t.Fatalf("StopTask() error = %v", err)
	}
	service.Wait()
	waitForStatus(t, service, task.ID, model.TaskStatusStopped)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Stopped task left %d files behind", len(entries))
	}

	if err := service.StopTask(task.ID); !errors.Is(err, ErrTaskNotActive) {
		t.Errorf("Expected ErrTaskNotActive, got %v", err)
	}
	if err := service.StopTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if err := service.RemoveTask(task.ID); err != nil {
		t.Errorf("RemoveTask() error = %v", err)
	}
	if _, ok := service.GetTask(task.ID); ok {
		t.Error("Task still present after RemoveTask")
	}
}

func TestFileNameFor(t *testing.T) {
	tests := []struct {
		name        string
		rawURL      string
		disposition string
		want        string
	}{
		{"content disposition", "http://h/download_file?path=x.mp4", `attachment; filename="Real Name.mp4"`, "Real Name.mp4"},
		{"path query", "http://h/download_file?path=" + url.QueryEscape("downloads/Clip: one.webm"), "", "Clip one.webm"},
		{"url base", "http://h/files/song.m4a", "", "song.m4a"},
		{"nothing usable", "http://h/", "", "download"},
		{"bad disposition", "http://h/download_file?path=y.mp4", "attachment; filename=", "y.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatal(err)
			}
			resp := &http.Response{Header: http.Header{}, Request: &http.Request{URL: u}}
			if tt.disposition != "" {
				resp.Header.Set(ContentDispositionKey, tt.disposition)
			}
			if got := fileNameFor(resp); got != tt.want {
				t.Errorf("fileNameFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateTaskIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateTaskID()
		if ids[id] {
			t.Fatalf("Duplicate task ID generated: %s", id)
		}
		ids[id] = true
	}
}
