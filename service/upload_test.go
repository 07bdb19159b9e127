package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"

	"newcam-dvr/database"
)

// fakeStore scripts upload outcomes per call
type fakeStore struct {
	mu      sync.Mutex
	errs    []error // consumed in order; nil means success
	calls   int
	baseURL string
}

func (f *fakeStore) UploadRecording(localPath, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.calls < len(f.errs) {
		err = f.errs[f.calls]
	}
	f.calls++
	if err != nil {
		return "", err
	}
	return f.baseURL + "/" + key, nil
}

func (f *fakeStore) Exists(key string) (bool, error) {
	return false, nil
}

// setupClaimedItem registers a recording with its file on disk and claims the
// queue item, returning both ready for processItem.
func setupClaimedItem(t *testing.T, db *database.SQLiteDB, root string) (*database.Recording, database.UploadQueueItem) {
	t.Helper()
	writeSegmentFile(t, root, "live/CAM1/2025-01-01/seg.mp4", 2048)

	rec := database.Recording{
		ID:            "rec-1",
		CameraID:      "cam-1",
		Filename:      "seg.mp4",
		CanonicalPath: root + "/live/CAM1/2025-01-01/seg.mp4",
		StorageKey:    "live/CAM1/2025-01-01/seg.mp4",
		FileSize:      2048,
		Duration:      60,
		StartTime:     time.Now(),
		Status:        database.StatusCompleted,
		UploadStatus:  database.UploadPending,
	}
	if err := db.CreateRecordingWithQueueItem(rec); err != nil {
		t.Fatalf("Failed to create recording: %v", err)
	}

	item, err := db.GetQueueItemByRecording(rec.ID)
	if err != nil || item == nil {
		t.Fatalf("Failed to get queue item: %v", err)
	}
	ok, err := db.ClaimUploadItem(item.ID)
	if err != nil || !ok {
		t.Fatalf("Failed to claim queue item: %v", err)
	}
	claimed, _ := db.GetQueueItemByRecording(rec.ID)
	return &rec, *claimed
}

func TestProcessItemSuccess(t *testing.T) {
	db, cfg := newTestEnv(t)
	store := &fakeStore{baseURL: "https://cdn.example.com"}
	svc := NewUploadService(db, store, cfg)

	_, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	svc.processItem(item)

	rec, _ := db.GetRecording("rec-1")
	if rec.UploadStatus != database.UploadUploaded {
		t.Errorf("Expected uploaded status, got %s", rec.UploadStatus)
	}
	if rec.ObjectURL != "https://cdn.example.com/live/CAM1/2025-01-01/seg.mp4" {
		t.Errorf("Unexpected object URL %s", rec.ObjectURL)
	}

	done, _ := db.GetQueueItemByRecording("rec-1")
	if done.Status != database.QueueUploaded {
		t.Errorf("Expected uploaded queue item, got %s", done.Status)
	}
	if store.calls != 1 {
		t.Errorf("Expected exactly one upload call, got %d", store.calls)
	}
}

func TestProcessItemTransientFailureReleasesForRetry(t *testing.T) {
	db, cfg := newTestEnv(t)
	store := &fakeStore{baseURL: "https://cdn.example.com", errs: []error{errors.New("connection reset")}}
	svc := NewUploadService(db, store, cfg)

	_, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	svc.processItem(item)

	rec, _ := db.GetRecording("rec-1")
	if rec.UploadStatus != database.UploadPending {
		t.Errorf("Expected recording back to pending, got %s", rec.UploadStatus)
	}
	if rec.UploadAttempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", rec.UploadAttempts)
	}

	released, _ := db.GetQueueItemByRecording("rec-1")
	if released.Status != database.QueuePending {
		t.Errorf("Expected queue item back to pending, got %s", released.Status)
	}
	if released.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", released.RetryCount)
	}
	if released.ErrorMessage == "" {
		t.Error("Expected error message on released item")
	}
}

func TestProcessItemRetriesThenSucceeds(t *testing.T) {
	db, cfg := newTestEnv(t)
	store := &fakeStore{baseURL: "https://cdn.example.com", errs: []error{errors.New("timeout"), nil}}
	svc := NewUploadService(db, store, cfg)

	_, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	svc.processItem(item)

	// Reclaim and retry as the worker loop would once the backoff elapses
	released, _ := db.GetQueueItemByRecording("rec-1")
	ok, err := db.ClaimUploadItem(released.ID)
	if err != nil || !ok {
		t.Fatalf("Failed to reclaim item: %v", err)
	}
	reclaimed, _ := db.GetQueueItemByRecording("rec-1")
	svc.processItem(*reclaimed)

	rec, _ := db.GetRecording("rec-1")
	if rec.UploadStatus != database.UploadUploaded {
		t.Errorf("Expected uploaded after retry, got %s", rec.UploadStatus)
	}
	if store.calls != 2 {
		t.Errorf("Expected 2 upload calls, got %d", store.calls)
	}
}

func TestProcessItemExhaustsAttempts(t *testing.T) {
	db, cfg := newTestEnv(t)
	cfg.MaxUploadAttempts = 2
	store := &fakeStore{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	svc := NewUploadService(db, store, cfg)

	_, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	svc.processItem(item)

	released, _ := db.GetQueueItemByRecording("rec-1")
	if ok, _ := db.ClaimUploadItem(released.ID); !ok {
		t.Fatal("Failed to reclaim item")
	}
	reclaimed, _ := db.GetQueueItemByRecording("rec-1")
	svc.processItem(*reclaimed)

	rec, _ := db.GetRecording("rec-1")
	if rec.UploadStatus != database.UploadFailed {
		t.Errorf("Expected failed after exhausting attempts, got %s", rec.UploadStatus)
	}
	if rec.UploadAttempts != 2 {
		t.Errorf("Expected 2 attempts recorded, got %d", rec.UploadAttempts)
	}

	failed, _ := db.GetQueueItemByRecording("rec-1")
	if failed.Status != database.QueueFailed {
		t.Errorf("Expected failed queue item, got %s", failed.Status)
	}
}

func TestProcessItemPermanentErrorFailsImmediately(t *testing.T) {
	db, cfg := newTestEnv(t)
	store := &fakeStore{errs: []error{awserr.New("AccessDenied", "access denied", nil)}}
	svc := NewUploadService(db, store, cfg)

	_, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	svc.processItem(item)

	rec, _ := db.GetRecording("rec-1")
	if rec.UploadStatus != database.UploadFailed {
		t.Errorf("Expected immediate failure on permanent error, got %s", rec.UploadStatus)
	}
	if rec.UploadAttempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", rec.UploadAttempts)
	}

	failed, _ := db.GetQueueItemByRecording("rec-1")
	if failed.Status != database.QueueFailed {
		t.Errorf("Expected failed queue item, got %s", failed.Status)
	}
	if store.calls != 1 {
		t.Errorf("Expected one upload call, got %d", store.calls)
	}
}

func TestProcessItemMissingRecordingDropsItem(t *testing.T) {
	db, cfg := newTestEnv(t)
	svc := NewUploadService(db, &fakeStore{}, cfg)

	// A queue item whose recording has vanished
	if err := db.EnqueueUpload("ghost"); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	item, _ := db.GetQueueItemByRecording("ghost")
	if ok, _ := db.ClaimUploadItem(item.ID); !ok {
		t.Fatal("Failed to claim item")
	}
	claimed, _ := db.GetQueueItemByRecording("ghost")

	svc.processItem(*claimed)

	orphan, _ := db.GetQueueItemByRecording("ghost")
	if orphan.Status != database.QueueFailed {
		t.Errorf("Expected orphan item failed, got %s", orphan.Status)
	}
}

func TestBackoffDelay(t *testing.T) {
	_, cfg := newTestEnv(t)
	cfg.UploadBackoffBase = time.Second
	cfg.UploadBackoffCap = 8 * time.Second
	svc := NewUploadService(nil, nil, cfg)

	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := svc.backoffDelay(tc.retryCount); got != tc.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tc.retryCount, got, tc.want)
		}
	}
}

func TestReadyForRetry(t *testing.T) {
	_, cfg := newTestEnv(t)
	cfg.UploadBackoffBase = time.Minute
	cfg.UploadBackoffCap = time.Hour
	svc := NewUploadService(nil, nil, cfg)

	now := time.Now()

	fresh := database.UploadQueueItem{RetryCount: 0, UpdatedAt: now}
	if !svc.readyForRetry(fresh, now) {
		t.Error("Expected first attempt to be ready immediately")
	}

	waiting := database.UploadQueueItem{RetryCount: 1, UpdatedAt: now.Add(-time.Minute)}
	if svc.readyForRetry(waiting, now) {
		t.Error("Expected item inside backoff window to wait")
	}

	elapsed := database.UploadQueueItem{RetryCount: 1, UpdatedAt: now.Add(-3 * time.Minute)}
	if !svc.readyForRetry(elapsed, now) {
		t.Error("Expected item past backoff window to be ready")
	}
}

func TestRetryRecording(t *testing.T) {
	db, cfg := newTestEnv(t)
	svc := NewUploadService(db, &fakeStore{}, cfg)

	rec, item := setupClaimedItem(t, db, cfg.RecordingsRoot)
	if err := db.FailUploadItem(item.ID, 5, "access denied"); err != nil {
		t.Fatalf("Failed to fail item: %v", err)
	}
	if err := db.MarkRecordingUploadFailed(rec.ID, 5, "access denied"); err != nil {
		t.Fatalf("Failed to mark recording failed: %v", err)
	}

	if err := svc.RetryRecording(rec.ID); err != nil {
		t.Fatalf("RetryRecording failed: %v", err)
	}

	reset, _ := db.GetRecording(rec.ID)
	if reset.UploadStatus != database.UploadPending {
		t.Errorf("Expected pending after manual retry, got %s", reset.UploadStatus)
	}
	if reset.UploadAttempts != 0 {
		t.Errorf("Expected attempts reset, got %d", reset.UploadAttempts)
	}

	// Already-uploaded recordings cannot be requeued
	if err := db.MarkRecordingUploaded(rec.ID, rec.StorageKey, "https://cdn.example.com/x"); err != nil {
		t.Fatalf("Failed to mark uploaded: %v", err)
	}
	if err := svc.RetryRecording(rec.ID); err == nil {
		t.Error("Expected error when retrying an uploaded recording")
	}

	if err := svc.RetryRecording("no-such-id"); err == nil {
		t.Error("Expected error for unknown recording")
	}
}
