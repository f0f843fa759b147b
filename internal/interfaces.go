package internal

import "context"

// LinkResolver resolves a catalog file id to a direct download link.
type LinkResolver interface {
	ResolveDownloadLink(fileID string) (*ResolvedLink, error)
}

// RateLimiter controls bandwidth usage during downloads.
type RateLimiter interface {
	Wait(ctx context.Context, n int) error
	SetRate(bytesPerSecond int64)
}
