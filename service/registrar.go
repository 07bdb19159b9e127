package service

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"newcam-dvr/config"
	"newcam-dvr/database"
	"newcam-dvr/recording"
)

// Registration errors. The webhook handler maps these onto response codes.
var (
	// ErrUnknownCamera means the stream identifier does not map to a known
	// camera. The notification is acknowledged and dropped so the media
	// server does not retry forever.
	ErrUnknownCamera = errors.New("stream does not map to a known camera")
	// ErrFileNotFound means the file was still missing after the bounded
	// stat retries. A failed stub recording is left behind for the
	// reconciler to repair if the file shows up later.
	ErrFileNotFound = errors.New("recording file not found on disk")
)

// Notification carries the fields of a recording-finished webhook
type Notification struct {
	StartTime int64   // Unix seconds; zero means unknown
	FileSize  int64   // Size reported by the media server
	TimeLen   float64 // Duration in seconds
	FilePath  string
	FileName  string
	Stream    string
	App       string
}

// RegisterResult reports the outcome of a registration
type RegisterResult struct {
	RecordingID string `json:"recordingId"`
	Created     bool   `json:"created"` // False on duplicate webhook delivery
}

// Registrar converts recording-finished notifications into Recording rows and
// upload queue items.
type Registrar struct {
	db  database.Database
	cfg config.Config
}

// NewRegistrar creates a new registrar
func NewRegistrar(db database.Database, cfg config.Config) *Registrar {
	return &Registrar{db: db, cfg: cfg}
}

// Register processes one notification. It is idempotent: redelivering the
// same notification updates the existing recording instead of creating a
// duplicate.
func (r *Registrar) Register(n Notification) (*RegisterResult, error) {
	camera, err := r.db.GetCameraByStream(n.Stream)
	if err != nil {
		return nil, fmt.Errorf("camera lookup failed: %v", err)
	}
	if camera == nil {
		log.Printf("Dropping notification for unknown stream %q (file: %s)", n.Stream, n.FileName)
		return nil, ErrUnknownCamera
	}

	resolved, err := recording.Resolve(n.FilePath, n.FileName, r.cfg.ForeignRootPrefix, r.cfg.RecordingsRoot)
	if err != nil {
		// Leave a failed stub behind so the drop is visible to operators.
		r.recordFailedStub(camera.ID, n, nil, err)
		return nil, fmt.Errorf("path resolution failed for %q: %w", n.FilePath, err)
	}

	// The media server may fire the webhook before the file is fully
	// flushed, so a missing file is transient for a bounded window.
	fileInfo, err := r.statWithRetry(resolved.CanonicalPath)
	if err != nil {
		r.recordFailedStub(camera.ID, n, resolved, ErrFileNotFound)
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, resolved.CanonicalPath)
	}

	startTime := time.Now()
	if n.StartTime > 0 {
		startTime = time.Unix(n.StartTime, 0)
	}
	endTime := time.Now()

	// Duplicate webhook delivery: refresh size/duration and return the
	// existing id.
	existing, err := r.db.FindRecordingByPath(camera.ID, resolved.CanonicalPath)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %v", err)
	}
	if existing != nil {
		log.Printf("Duplicate notification for recording %s (%s), updating metadata", existing.ID, resolved.Filename)
		if err := r.db.UpdateRecordingFileInfo(existing.ID, fileInfo.Size(), n.TimeLen); err != nil {
			return nil, fmt.Errorf("failed to update duplicate recording: %v", err)
		}
		return &RegisterResult{RecordingID: existing.ID, Created: false}, nil
	}

	rec := database.Recording{
		ID:            uuid.New().String(),
		CameraID:      camera.ID,
		Filename:      resolved.Filename,
		CanonicalPath: resolved.CanonicalPath,
		StorageKey:    resolved.StorageKey,
		FileSize:      fileInfo.Size(),
		Duration:      n.TimeLen,
		StartTime:     startTime,
		EndTime:       &endTime,
		Status:        database.StatusCompleted,
		UploadStatus:  database.UploadPending,
	}

	if err := r.db.CreateRecordingWithQueueItem(rec); err != nil {
		// The unique index may have raced with a concurrent delivery of the
		// same webhook; if so, resolve to the winner.
		existing, findErr := r.db.FindRecordingByPath(camera.ID, resolved.CanonicalPath)
		if findErr == nil && existing != nil {
			log.Printf("Concurrent registration for %s resolved to recording %s", resolved.Filename, existing.ID)
			return &RegisterResult{RecordingID: existing.ID, Created: false}, nil
		}
		return nil, fmt.Errorf("failed to create recording: %v", err)
	}

	log.Printf("Registered recording %s for camera %s (%s, %d bytes, %.1fs)",
		rec.ID, camera.Name, resolved.Filename, rec.FileSize, rec.Duration)

	return &RegisterResult{RecordingID: rec.ID, Created: true}, nil
}

// statWithRetry stats the canonical path, retrying a bounded number of times
// while the media server may still be flushing the file.
func (r *Registrar) statWithRetry(path string) (os.FileInfo, error) {
	attempts := r.cfg.StatRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return info, nil
			}
			lastErr = fmt.Errorf("%s is a directory", path)
		} else {
			lastErr = err
		}
		if attempt < attempts {
			log.Printf("File not ready yet (attempt %d/%d): %s", attempt, attempts, path)
			time.Sleep(r.cfg.StatRetryDelay)
		}
	}
	return nil, lastErr
}

// recordFailedStub persists a failed recording so dropped notifications stay
// observable, and so the reconciler can repair the record if the file shows
// up later. Best effort: a stub that cannot be written is only logged.
func (r *Registrar) recordFailedStub(cameraID string, n Notification, resolved *recording.ResolvedPath, cause error) {
	startTime := time.Now()
	if n.StartTime > 0 {
		startTime = time.Unix(n.StartTime, 0)
	}

	// Resolution failures keep the raw path verbatim; there is no canonical form.
	canonicalPath := n.FilePath
	storageKey := ""
	filename := n.FileName
	if resolved != nil {
		canonicalPath = resolved.CanonicalPath
		storageKey = resolved.StorageKey
		filename = resolved.Filename

		existing, err := r.db.FindRecordingByPath(cameraID, canonicalPath)
		if err == nil && existing != nil {
			return // redelivery of an already-recorded failure
		}
	}

	stub := database.Recording{
		ID:            uuid.New().String(),
		CameraID:      cameraID,
		Filename:      filename,
		CanonicalPath: canonicalPath,
		StorageKey:    storageKey,
		FileSize:      n.FileSize,
		Duration:      n.TimeLen,
		StartTime:     startTime,
		Status:        database.StatusFailed,
		UploadStatus:  database.UploadFailed,
		ErrorMessage:  cause.Error(),
	}
	if err := r.db.CreateRecording(stub); err != nil {
		log.Printf("Failed to record failed stub for %s: %v", n.FileName, err)
	}
}
