package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{"zero", 0, "0 B"},
		{"one byte", 1, "1.0 B"},
		{"just under a kilobyte", 1023, "1023.0 B"},
		{"exactly a kilobyte", 1024, "1.0 KB"},
		{"one and a half kilobytes", 1536, "1.5 KB"},
		{"megabytes", 5 * 1024 * 1024, "5.0 MB"},
		{"gigabytes", 2 * 1024 * 1024 * 1024, "2.0 GB"},
		{"terabytes", 3 * 1024 * 1024 * 1024 * 1024, "3.0 TB"},
		{"beyond terabytes stays in TB", 2048 * 1024 * 1024 * 1024 * 1024, "2048.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFileSize(tt.size); got != tt.want {
				t.Errorf("FormatFileSize(%d) = %s, want %s", tt.size, got, tt.want)
			}
		})
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "movie.mkv", "movie.mkv"},
		{"path traversal", "../../etc/passwd", "passwd"},
		{"absolute path", "/etc/shadow", "shadow"},
		{"empty", "", "download"},
		{"dot", ".", "download"},
		{"nested path", "a/b/c.txt", "c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFileName(tt.input); got != tt.want {
				t.Errorf("SafeFileName(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	fileOps := NewFileOperations()
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := fileOps.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if !fileOps.FileExists(dir) {
		t.Error("directory was not created")
	}

	// Idempotent for an existing directory.
	if err := fileOps.EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir() on existing dir error = %v", err)
	}
}

func TestGetFileSize(t *testing.T) {
	fileOps := NewFileOperations()
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, make([]byte, 1234), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	size, err := fileOps.GetFileSize(path)
	if err != nil {
		t.Fatalf("GetFileSize() error = %v", err)
	}
	if size != 1234 {
		t.Errorf("GetFileSize() = %d, want 1234", size)
	}

	if _, err := fileOps.GetFileSize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("GetFileSize() on missing file: expected error")
	}
}

func TestListDownloads(t *testing.T) {
	fileOps := NewFileOperations()
	dir := t.TempDir()

	now := time.Now()
	files := []struct {
		name string
		size int
		age  time.Duration
	}{
		{"old.zip", 100, 2 * time.Hour},
		{"new.mkv", 2048, 0},
		{"middle.iso", 512, time.Hour},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, make([]byte, f.size), 0644); err != nil {
			t.Fatalf("writing %s: %v", f.name, err)
		}
		mtime := now.Add(-f.age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("setting mtime on %s: %v", f.name, err)
		}
	}

	// Subdirectories are not downloads.
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatalf("creating subdir: %v", err)
	}

	listing, err := fileOps.ListDownloads(dir)
	if err != nil {
		t.Fatalf("ListDownloads() error = %v", err)
	}

	wantOrder := []string{"new.mkv", "middle.iso", "old.zip"}
	if len(listing) != len(wantOrder) {
		t.Fatalf("got %d files, want %d", len(listing), len(wantOrder))
	}
	for i, want := range wantOrder {
		if listing[i].Name != want {
			t.Errorf("listing[%d] = %s, want %s", i, listing[i].Name, want)
		}
	}

	if listing[0].Size != 2048 || listing[0].SizeFormatted != "2.0 KB" {
		t.Errorf("listing[0] size = %d (%s), want 2048 (2.0 KB)", listing[0].Size, listing[0].SizeFormatted)
	}
}

func TestListDownloadsMissingDir(t *testing.T) {
	fileOps := NewFileOperations()

	listing, err := fileOps.ListDownloads(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("ListDownloads() on missing dir error = %v", err)
	}
	if len(listing) != 0 {
		t.Errorf("got %d files from a missing directory, want 0", len(listing))
	}
}

func TestMarkWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	fileOps := NewFileOperations()
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	if err := fileOps.MarkWorldReadable(path); err != nil {
		t.Fatalf("MarkWorldReadable() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0644 {
		t.Errorf("permissions = %o, want 644", perm)
	}
}
