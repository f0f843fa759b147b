package webshare

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wsfetch/internal"
	"wsfetch/utils"
)

// downloadChunkSize is the read granularity for download streams; progress
// is updated once per chunk.
const downloadChunkSize = 8192

// defaultCleanupDelay is how long a completed job stays visible to status
// polls before it is reaped. Error jobs are never reaped.
const defaultCleanupDelay = 30 * time.Second

// OrchestratorConfig configures a download orchestrator.
type OrchestratorConfig struct {
	// HTTPClient streams download content. It must not carry an overall
	// request timeout or long downloads get cut off mid-stream.
	HTTPClient *utils.HTTPClient

	// CleanupDelay overrides how long completed jobs remain visible.
	CleanupDelay time.Duration

	// RateLimit caps download bandwidth in bytes per second. 0 = unlimited.
	RateLimit int64
}

// Orchestrator runs downloads in the background and exposes poll-based
// progress. Jobs are keyed by file id; a second Start for an id that is
// already tracked short-circuits to the existing job, so at most one worker
// runs per id at any time.
type Orchestrator struct {
	resolver     internal.LinkResolver
	httpClient   *utils.HTTPClient
	fileOps      *utils.FileOperations
	limiter      internal.RateLimiter
	cleanupDelay time.Duration

	mutex  sync.Mutex
	jobs   map[string]*internal.DownloadJob
	timers map[string]*time.Timer
	closed bool
}

// NewOrchestrator creates an orchestrator with default configuration.
func NewOrchestrator(resolver internal.LinkResolver) *Orchestrator {
	return NewOrchestratorWithConfig(resolver, &OrchestratorConfig{})
}

// NewOrchestratorWithConfig creates an orchestrator with custom configuration.
func NewOrchestratorWithConfig(resolver internal.LinkResolver, config *OrchestratorConfig) *Orchestrator {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{Timeout: 0})
	}

	cleanupDelay := config.CleanupDelay
	if cleanupDelay <= 0 {
		cleanupDelay = defaultCleanupDelay
	}

	var limiter internal.RateLimiter
	if config.RateLimit > 0 {
		limiter = utils.NewTokenBucketLimiter(config.RateLimit)
	}

	return &Orchestrator{
		resolver:     resolver,
		httpClient:   httpClient,
		fileOps:      utils.NewFileOperations(),
		limiter:      limiter,
		cleanupDelay: cleanupDelay,
		jobs:         make(map[string]*internal.DownloadJob),
		timers:       make(map[string]*time.Timer),
	}
}

// Start begins downloading fileID into destDir without blocking. If a job
// for fileID already exists in any state, its current snapshot is returned
// and no second worker is spawned. fileName may be empty; the resolved link
// then supplies the name.
func (o *Orchestrator) Start(fileID, fileName, destDir string) internal.DownloadJob {
	o.mutex.Lock()

	// Existence check and registration are a single step under the lock;
	// this is what upholds the one-worker-per-id invariant.
	if existing, ok := o.jobs[fileID]; ok {
		snapshot := *existing
		o.mutex.Unlock()
		internal.LogDebug("Download already tracked for %s (status: %s)", fileID, snapshot.Status)
		return snapshot
	}

	job := &internal.DownloadJob{
		FileID:    fileID,
		FileName:  fileName,
		Status:    internal.StatusDownloading,
		Progress:  0,
		Message:   "Starting download...",
		StartedAt: time.Now(),
	}
	o.jobs[fileID] = job
	snapshot := *job
	o.mutex.Unlock()

	go o.runDownload(fileID, fileName, destDir)

	return snapshot
}

// Status returns a snapshot of the job for fileID. ok is false for an
// unknown id or one whose completed job has already been reaped.
func (o *Orchestrator) Status(fileID string) (internal.DownloadJob, bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	job, ok := o.jobs[fileID]
	if !ok {
		return internal.DownloadJob{}, false
	}
	return *job, true
}

// Close stops pending cleanup timers. Workers already streaming run to
// completion; downloads are not cancellable once started.
func (o *Orchestrator) Close() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.closed = true
	for id, timer := range o.timers {
		timer.Stop()
		delete(o.timers, id)
	}
}

// update applies fn to the job for fileID under the orchestrator lock.
func (o *Orchestrator) update(fileID string, fn func(*internal.DownloadJob)) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if job, ok := o.jobs[fileID]; ok {
		fn(job)
	}
}

// fail moves the job to its terminal error state. Error jobs stay in the
// map until process restart so callers can observe what went wrong.
func (o *Orchestrator) fail(fileID string, err error) {
	internal.LogError("Background download failed for %s: %v", fileID, err)
	o.update(fileID, func(job *internal.DownloadJob) {
		job.Status = internal.StatusError
		job.Progress = 0
		job.Message = fmt.Sprintf("Download failed: %v", err)
		job.Error = err.Error()
	})
}

// scheduleCleanup removes the completed job after the cleanup delay.
func (o *Orchestrator) scheduleCleanup(fileID string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.closed {
		return
	}
	o.timers[fileID] = time.AfterFunc(o.cleanupDelay, func() {
		o.mutex.Lock()
		defer o.mutex.Unlock()
		delete(o.jobs, fileID)
		delete(o.timers, fileID)
	})
}

// runDownload drives one download to completion or error. It runs detached
// from any caller, so every failure is converted into job state instead of
// being propagated.
func (o *Orchestrator) runDownload(fileID, fileName, destDir string) {
	link, err := o.resolver.ResolveDownloadLink(fileID)
	if err != nil {
		o.fail(fileID, err)
		return
	}

	if fileName == "" {
		fileName = link.FileName
	}
	fileName = utils.SafeFileName(fileName)

	if err := o.fileOps.EnsureDir(destDir); err != nil {
		o.fail(fileID, internal.NewIOError("failed to create download directory", err))
		return
	}

	o.update(fileID, func(job *internal.DownloadJob) {
		job.FileName = fileName
		job.Progress = 5
		job.Message = "Connecting to server..."
	})

	internal.LogInfo("Starting download of %s...", fileName)

	resp, err := o.httpClient.Get(link.DownloadURL)
	if err != nil {
		o.fail(fileID, internal.NewNetworkError("download", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.fail(fileID, internal.NewNetworkError("download", fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)))
		return
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		totalSize = link.FileSize
	}

	o.update(fileID, func(job *internal.DownloadJob) {
		job.Progress = 10
		job.Message = "Downloading... 0%"
		job.TotalSize = totalSize
	})

	filePath := filepath.Join(destDir, fileName)
	out, err := os.Create(filePath)
	if err != nil {
		o.fail(fileID, internal.NewIOError("failed to create output file", err))
		return
	}

	downloaded, err := o.copyStream(fileID, out, resp.Body, totalSize)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = internal.NewIOError("failed to close output file", cerr)
	}
	if err != nil {
		// The partial file stays on disk as-is; only the job record
		// distinguishes it from a finished download.
		o.fail(fileID, err)
		return
	}

	if err := o.fileOps.MarkWorldReadable(filePath); err != nil {
		internal.LogWarn("Could not set file permissions for %s: %v", fileName, err)
	}

	o.update(fileID, func(job *internal.DownloadJob) {
		job.Status = internal.StatusCompleted
		job.Progress = 100
		job.Message = "Download completed!"
		job.FilePath = filePath
		job.FinalSize = downloaded
	})

	internal.LogInfo("Download completed: %s (%s)", fileName, utils.FormatFileSize(downloaded))

	o.scheduleCleanup(fileID)
}

// copyStream copies the response body to dst in fixed-size chunks, updating
// job progress after each chunk.
func (o *Orchestrator) copyStream(fileID string, dst io.Writer, src io.Reader, totalSize int64) (int64, error) {
	buf := make([]byte, downloadChunkSize)
	var downloaded int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if o.limiter != nil {
				if err := o.limiter.Wait(context.Background(), n); err != nil {
					return downloaded, internal.NewIOError("rate limiter interrupted", err)
				}
			}

			written, writeErr := dst.Write(buf[:n])
			downloaded += int64(written)
			if writeErr != nil {
				return downloaded, internal.NewIOError("failed to write to output file", writeErr)
			}

			progress := progressPercent(downloaded, totalSize)
			o.update(fileID, func(job *internal.DownloadJob) {
				job.Downloaded = downloaded
				if totalSize > 0 {
					job.Progress = progress
					job.Message = fmt.Sprintf("Downloading... %d%%", progress-10)
				}
			})
		}

		if readErr != nil {
			if readErr == io.EOF {
				return downloaded, nil
			}
			return downloaded, internal.NewNetworkError("download stream", readErr)
		}
	}
}

// progressPercent maps stream progress onto the 10..90 band: the first 10%
// is reserved for connection setup and the last 10% for finalization, so a
// running download never claims completion before the stream actually ends.
func progressPercent(downloaded, totalSize int64) int {
	if totalSize <= 0 {
		return 10
	}
	progress := 10 + int(downloaded*80/totalSize)
	if progress > 90 {
		progress = 90
	}
	return progress
}
