package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func TestOpenFileInManager_NonExistentFile(t *testing.T) {
	nonExistentFile := filepath.Join(t.TempDir(), "nonexistent.txt")

	err := OpenFileInManager(nonExistentFile)
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "file does not exist:") {
		t.Errorf("Error message should contain 'file does not exist:', got: %v", err)
	}
}

func TestOpenFileWithDefaultApp_EmptyPath(t *testing.T) {
	if err := OpenFileWithDefaultApp(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Video.mp4", "My Video.mp4"},
		{`What? "Live" <2024>.mp4`, "What Live 2024.mp4"},
		{"../../etc/passwd", "passwd"},
		{`dir\name.mp3`, "name.mp3"},
		{"   ", DefaultFileName},
		{"...", DefaultFileName},
		{"a:b|c*d.webm", "abcd.webm"},
	}

	for _, test := range tests {
		result := SanitizeFileName(test.input)
		if result != test.expected {
			t.Errorf("SanitizeFileName(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestSanitizeFileName_LongNameKeepsExtension(t *testing.T) {
	long := strings.Repeat("x", 500) + ".mp4"
	result := SanitizeFileName(long)

	if len(result) > MaxFileNameLength {
		t.Errorf("expected at most %d chars, got %d", MaxFileNameLength, len(result))
	}
	if !strings.HasSuffix(result, ".mp4") {
		t.Errorf("extension lost: %s", result)
	}
}

func TestReservePath(t *testing.T) {
	dir := t.TempDir()

	first, f, err := ReservePath(dir, "clip.mp4", ".part", 0o644)
	if err != nil {
		t.Fatalf("ReservePath: %v", err)
	}
	f.Close()
	if first != filepath.Join(dir, "clip.mp4") {
		t.Errorf("unexpected first path: %s", first)
	}
	if _, err := os.Stat(first + ".part"); err != nil {
		t.Errorf("partial file not created: %v", err)
	}

	// the partial file alone keeps the name taken
	second, f, err := ReservePath(dir, "clip.mp4", ".part", 0o644)
	if err != nil {
		t.Fatalf("ReservePath: %v", err)
	}
	f.Close()
	if second != filepath.Join(dir, "clip (1).mp4") {
		t.Errorf("unexpected second path: %s", second)
	}

	if err := os.Rename(first+".part", first); err != nil {
		t.Fatalf("rename: %v", err)
	}
	third, f, err := ReservePath(dir, "clip.mp4", ".part", 0o644)
	if err != nil {
		t.Fatalf("ReservePath: %v", err)
	}
	f.Close()
	if third != filepath.Join(dir, "clip (2).mp4") {
		t.Errorf("unexpected third path: %s", third)
	}
}
