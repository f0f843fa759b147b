package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"wsfetch/internal"
)

// TokenBucketLimiter implements bandwidth limiting for download streams
// using the token bucket algorithm.
type TokenBucketLimiter struct {
	rate       int64
	bucket     int64
	maxBucket  int64
	lastUpdate time.Time
	mutex      sync.Mutex
}

// NewTokenBucketLimiter creates a new rate limiter. bytesPerSecond of 0
// disables limiting.
func NewTokenBucketLimiter(bytesPerSecond int64) internal.RateLimiter {
	return &TokenBucketLimiter{
		rate:       bytesPerSecond,
		bucket:     bytesPerSecond,
		maxBucket:  bytesPerSecond,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until the specified number of bytes can be consumed
func (r *TokenBucketLimiter) Wait(ctx context.Context, n int) error {
	r.mutex.Lock()
	if r.rate <= 0 {
		r.mutex.Unlock()
		return nil // No rate limiting
	}

	// Refill tokens based on elapsed time
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)
	r.lastUpdate = now

	r.bucket += int64(elapsed.Seconds() * float64(r.rate))
	if r.bucket > r.maxBucket {
		r.bucket = r.maxBucket
	}

	needed := int64(n)
	if r.bucket >= needed {
		r.bucket -= needed
		r.mutex.Unlock()
		return nil
	}

	// Consume what is available and wait out the deficit
	deficit := needed - r.bucket
	r.bucket = 0
	rate := r.rate
	r.mutex.Unlock()

	waitTime := time.Duration(float64(deficit) / float64(rate) * float64(time.Second))

	select {
	case <-time.After(waitTime):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetRate updates the bandwidth limit
func (r *TokenBucketLimiter) SetRate(bytesPerSecond int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.rate = bytesPerSecond
	r.maxBucket = bytesPerSecond
	if r.bucket > r.maxBucket {
		r.bucket = r.maxBucket
	}
}

// ParseRateLimit parses a human-readable rate limit string like "5M" or
// "500K" into bytes per second.
func ParseRateLimit(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("rate limit cannot be empty")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("rate limit must be positive, got %d", value)
	}

	return value * multiplier, nil
}
