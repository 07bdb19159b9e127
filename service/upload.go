package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"newcam-dvr/config"
	"newcam-dvr/database"
	"newcam-dvr/storage"
)

const claimBatchSize = 10

// UploadService drives the upload queue: a bounded pool of workers claims
// pending items, streams the files to object storage and reports the outcome
// back through the queue's state machine.
type UploadService struct {
	db    database.Database
	store storage.ObjectStore
	cfg   config.Config
	sem   *semaphore.Weighted
}

// NewUploadService creates a new upload service
func NewUploadService(db database.Database, store storage.ObjectStore, cfg config.Config) *UploadService {
	concurrency := cfg.UploadWorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &UploadService{
		db:    db,
		store: store,
		cfg:   cfg,
		sem:   semaphore.NewWeighted(int64(concurrency)),
	}
}

// Start runs the claim loop until the context is cancelled
func (s *UploadService) Start(ctx context.Context) {
	go func() {
		log.Printf("Starting upload worker pool (concurrency: %d)", s.cfg.UploadWorkerConcurrency)
		for {
			select {
			case <-ctx.Done():
				log.Println("Upload worker pool stopping")
				return
			default:
			}

			claimed := s.claimAndProcess(ctx)
			if !claimed {
				// Nothing ready, idle before polling again
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
			}
		}
	}()
}

// claimAndProcess claims the oldest ready pending item, if any, and hands it
// to a worker goroutine. Returns false when nothing was ready to claim.
func (s *UploadService) claimAndProcess(ctx context.Context) bool {
	items, err := s.db.ListQueueItemsByStatus(database.QueuePending, claimBatchSize)
	if err != nil {
		log.Printf("Error fetching pending upload items: %v", err)
		return false
	}

	now := time.Now()
	for _, item := range items {
		if !s.readyForRetry(item, now) {
			continue
		}

		ok, err := s.db.ClaimUploadItem(item.ID)
		if err != nil {
			log.Printf("Error claiming upload item %d: %v", item.ID, err)
			continue
		}
		if !ok {
			// Another worker won the claim
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Shutting down; put the claim back for the next run
			s.db.ReleaseUploadItem(item.ID, item.RetryCount, "")
			return false
		}

		go func(item database.UploadQueueItem) {
			defer s.sem.Release(1)
			s.processItem(item)
		}(item)
		return true
	}

	return false
}

// readyForRetry reports whether an item's backoff window has elapsed
func (s *UploadService) readyForRetry(item database.UploadQueueItem, now time.Time) bool {
	if item.RetryCount == 0 {
		return true
	}
	return now.Sub(item.UpdatedAt) >= s.backoffDelay(item.RetryCount)
}

// backoffDelay computes base * 2^retryCount, capped
func (s *UploadService) backoffDelay(retryCount int) time.Duration {
	delay := s.cfg.UploadBackoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= s.cfg.UploadBackoffCap {
			return s.cfg.UploadBackoffCap
		}
	}
	return delay
}

// processItem uploads one claimed queue item
func (s *UploadService) processItem(item database.UploadQueueItem) {
	rec, err := s.db.GetRecording(item.RecordingID)
	if err != nil {
		log.Printf("Error fetching recording %s for upload: %v", item.RecordingID, err)
		s.db.ReleaseUploadItem(item.ID, item.RetryCount, fmt.Sprintf("fetch failed: %v", err))
		return
	}
	if rec == nil {
		log.Printf("Queue item %d references missing recording %s, dropping", item.ID, item.RecordingID)
		s.db.FailUploadItem(item.ID, item.RetryCount, "recording no longer exists")
		return
	}

	if rec.UploadStatus == database.UploadUploaded {
		// Already durable (e.g. manual upload); just close out the item
		s.db.CompleteUploadItem(item.ID)
		return
	}

	// Optimistic transition from the status we observed. Losing the race
	// means another actor moved the recording; back off.
	ok, err := s.db.SetUploadStatusIf(rec.ID, rec.UploadStatus, database.UploadUploading)
	if err != nil || !ok {
		log.Printf("Recording %s changed state under us, releasing claim", rec.ID)
		s.db.ReleaseUploadItem(item.ID, item.RetryCount, "")
		return
	}

	log.Printf("Uploading recording %s (%s)", rec.ID, rec.StorageKey)

	// The file may have been deleted or truncated since registration
	info, err := os.Stat(rec.CanonicalPath)
	if err != nil {
		s.handleFailure(rec, item, fmt.Errorf("local file missing: %v", err))
		return
	}
	if rec.FileSize > 0 && info.Size() != rec.FileSize {
		s.handleFailure(rec, item, fmt.Errorf("file size changed: recorded %d bytes, found %d", rec.FileSize, info.Size()))
		return
	}

	objectURL, err := s.store.UploadRecording(rec.CanonicalPath, rec.StorageKey)
	if err != nil {
		s.handleFailure(rec, item, err)
		return
	}

	if err := s.db.MarkRecordingUploaded(rec.ID, rec.StorageKey, objectURL); err != nil {
		log.Printf("Error marking recording %s uploaded: %v", rec.ID, err)
	}
	if err := s.db.CompleteUploadItem(item.ID); err != nil {
		log.Printf("Error completing upload item %d: %v", item.ID, err)
	}

	log.Printf("Successfully uploaded recording %s to %s", rec.ID, objectURL)
}

// handleFailure routes an upload error into either another retry with backoff
// or a terminal failure.
func (s *UploadService) handleFailure(rec *database.Recording, item database.UploadQueueItem, cause error) {
	attempts := rec.UploadAttempts + 1
	retryCount := item.RetryCount + 1
	errMsg := cause.Error()

	permanent := storage.IsPermanentUploadError(cause)
	exhausted := attempts >= s.cfg.MaxUploadAttempts

	if permanent || exhausted {
		reason := "max attempts exhausted"
		if permanent {
			reason = "permanent error"
		}
		log.Printf("Upload of recording %s failed terminally (%s, attempt %d): %v", rec.ID, reason, attempts, cause)
		if err := s.db.MarkRecordingUploadFailed(rec.ID, attempts, errMsg); err != nil {
			log.Printf("Error marking recording %s failed: %v", rec.ID, err)
		}
		if err := s.db.FailUploadItem(item.ID, retryCount, errMsg); err != nil {
			log.Printf("Error failing upload item %d: %v", item.ID, err)
		}
		return
	}

	log.Printf("Upload of recording %s failed (attempt %d/%d), retrying in %s: %v",
		rec.ID, attempts, s.cfg.MaxUploadAttempts, s.backoffDelay(retryCount), cause)

	if err := s.db.IncrementUploadAttempts(rec.ID, errMsg); err != nil {
		log.Printf("Error incrementing attempts for recording %s: %v", rec.ID, err)
	}
	if _, err := s.db.SetUploadStatusIf(rec.ID, database.UploadUploading, database.UploadPending); err != nil {
		log.Printf("Error resetting upload status for recording %s: %v", rec.ID, err)
	}
	if err := s.db.ReleaseUploadItem(item.ID, retryCount, errMsg); err != nil {
		log.Printf("Error releasing upload item %d: %v", item.ID, err)
	}
}

// RequeueStuck resets items that have been processing past the stuck timeout,
// covering workers that crashed without releasing their claim.
func (s *UploadService) RequeueStuck() (int, error) {
	cutoff := time.Now().Add(-s.cfg.StuckUploadTimeout)
	return s.db.ResetStuckUploadItems(cutoff)
}

// RetryRecording is the manual requeue control: attempts are reset to zero and
// the recording goes back to pending regardless of its current state.
func (s *UploadService) RetryRecording(id string) error {
	rec, err := s.db.GetRecording(id)
	if err != nil {
		return fmt.Errorf("error fetching recording %s: %v", id, err)
	}
	if rec == nil {
		return fmt.Errorf("recording %s not found", id)
	}
	if rec.UploadStatus == database.UploadUploaded {
		return fmt.Errorf("recording %s is already uploaded", id)
	}
	return s.db.ResetUploadState(id)
}
