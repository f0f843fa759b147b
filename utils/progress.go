package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// ProgressTracker renders download progress for the CLI with live speed and
// ETA. In quiet mode it only accumulates statistics.
type ProgressTracker struct {
	bar       *pb.ProgressBar
	quiet     bool
	startTime time.Time
	total     int64
	current   int64
	mutex     sync.RWMutex
}

// DownloadSummary contains final download statistics
type DownloadSummary struct {
	TotalBytes   int64
	TotalTime    time.Duration
	AverageSpeed float64 // bytes per second
	Filename     string
}

// NewProgressTracker creates a new progress tracker. total of 0 renders a
// counter without a percentage.
func NewProgressTracker(total int64, quiet bool) *ProgressTracker {
	tracker := &ProgressTracker{
		quiet:     quiet,
		startTime: time.Now(),
		total:     total,
	}

	if !quiet {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
		bar := pb.ProgressBarTemplate(tmpl).Start64(total)
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", "Downloading: ")
		tracker.bar = bar
	}

	return tracker
}

// Add advances the progress bar by n bytes.
func (p *ProgressTracker) Add(n int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current += n
	if p.bar != nil {
		p.bar.SetCurrent(p.current)
	}
}

// Finish completes the progress bar and returns download summary
func (p *ProgressTracker) Finish() *DownloadSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	totalTime := time.Since(p.startTime)

	if p.bar != nil {
		p.bar.Finish()
	}

	var averageSpeed float64
	if totalTime.Seconds() > 0 {
		averageSpeed = float64(p.current) / totalTime.Seconds()
	}

	summary := &DownloadSummary{
		TotalBytes:   p.current,
		TotalTime:    totalTime,
		AverageSpeed: averageSpeed,
	}

	if !p.quiet {
		p.displaySummary(summary)
	}

	return summary
}

// displaySummary prints the download summary statistics
func (p *ProgressTracker) displaySummary(summary *DownloadSummary) {
	fmt.Printf("\n")
	fmt.Printf("Download completed successfully!\n")
	fmt.Printf("Total size: %s\n", FormatFileSize(summary.TotalBytes))
	fmt.Printf("Total time: %v\n", summary.TotalTime.Round(time.Millisecond))
	fmt.Printf("Average speed: %s/s\n", FormatFileSize(int64(summary.AverageSpeed)))
}

// Current returns the number of bytes recorded so far.
func (p *ProgressTracker) Current() int64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.current
}

// IsQuiet returns whether the tracker is in quiet mode
func (p *ProgressTracker) IsQuiet() bool {
	return p.quiet
}
