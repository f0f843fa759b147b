package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wsfetch/internal"
)

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates the directory (and parents) if it doesn't exist
func (f *FileOperations) EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file
func (f *FileOperations) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ListDownloads returns the regular files in dir, newest-first. A missing
// directory yields an empty listing, not an error.
func (f *FileOperations) ListDownloads(dir string) ([]internal.LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []internal.LocalFile{}, nil
		}
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	files := make([]internal.LocalFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, internal.LocalFile{
			Name:          entry.Name(),
			Size:          info.Size(),
			SizeFormatted: FormatFileSize(info.Size()),
			Modified:      info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})

	return files, nil
}

// MarkWorldReadable sets 0644 permissions on path so downloads are readable
// by group and others.
func (f *FileOperations) MarkWorldReadable(path string) error {
	return os.Chmod(path, 0644)
}

// FormatFileSize formats a byte count as a human-readable string with a
// 1024-based unit suffix: 0 → "0 B", 1023 → "1023.0 B", 1536 → "1.5 KB".
func FormatFileSize(sizeBytes int64) string {
	if sizeBytes == 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(sizeBytes)
	i := 0
	for size >= 1024.0 && i < len(units)-1 {
		size /= 1024.0
		i++
	}

	return fmt.Sprintf("%.1f %s", size, units[i])
}

// SafeFileName strips path separators from a remote-supplied file name so a
// crafted name cannot escape the download directory.
func SafeFileName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "download"
	}
	return base
}
