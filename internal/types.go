package internal

import "time"

// SearchResult is one catalog entry returned by the remote search API.
// Immutable once constructed.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	SizeFormatted string `json:"sizeFormatted"`
	Type          string `json:"type"`
	Downloads     int64  `json:"downloads"`
	Rating        int64  `json:"rating"`
	Added         string `json:"date"`
}

// ResolvedLink is the result of resolving a file id to a direct download URL.
type ResolvedLink struct {
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"` // 0 = unknown
}

// JobStatus is the lifecycle state of a download job.
type JobStatus string

const (
	StatusDownloading JobStatus = "downloading"
	StatusCompleted   JobStatus = "completed"
	StatusError       JobStatus = "error"
)

// DownloadJob tracks one download attempt from start to completion or error.
// The orchestrator owns the authoritative copy; callers only ever see
// snapshots.
type DownloadJob struct {
	FileID     string    `json:"fileId"`
	FileName   string    `json:"fileName"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"` // 0..100
	Message    string    `json:"message"`
	TotalSize  int64     `json:"totalSize,omitempty"` // 0 = unknown
	Downloaded int64     `json:"downloadedSize,omitempty"`
	FilePath   string    `json:"filePath,omitempty"`  // set on completion
	FinalSize  int64     `json:"finalSize,omitempty"` // set on completion
	Error      string    `json:"error,omitempty"`     // set on error
	StartedAt  time.Time `json:"startTime"`
}

// LocalFile describes an already-downloaded file in the download directory.
type LocalFile struct {
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	Modified      time.Time `json:"modified"`
}
