package database

import (
	"time"
)

// RecordingStatus represents the local capture lifecycle of a recording
type RecordingStatus string

const (
	StatusRecording RecordingStatus = "recording" // Segment is still being written by the media server
	StatusCompleted RecordingStatus = "completed" // File is closed and validated on disk
	StatusFailed    RecordingStatus = "failed"    // File could not be validated or never materialized
)

// UploadStatus represents the durable storage lifecycle of a recording
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"   // Waiting in the upload queue
	UploadUploading UploadStatus = "uploading" // An upload worker holds the claim
	UploadUploaded  UploadStatus = "uploaded"  // Object storage copy is authoritative
	UploadFailed    UploadStatus = "failed"    // Max attempts exhausted or permanent error
)

// QueueStatus represents the state of an upload queue item
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueUploaded   QueueStatus = "uploaded"
	QueueFailed     QueueStatus = "failed"
)

// Recording represents the metadata for a recorded video segment
type Recording struct {
	ID             string          `json:"id"`             // Unique identifier, generated at registration
	CameraID       string          `json:"cameraId"`       // Owning camera
	Filename       string          `json:"filename"`       // Base file name of the segment
	CanonicalPath  string          `json:"canonicalPath"`  // Host-absolute path inside the recordings root
	StorageKey     string          `json:"storageKey"`     // Root-relative path, used as the object storage key
	FileSize       int64           `json:"fileSize"`       // Size in bytes, confirmed against the file on disk
	Duration       float64         `json:"duration"`       // Duration in seconds as reported by the media server
	StartTime      time.Time       `json:"startTime"`      // When the segment started recording
	EndTime        *time.Time      `json:"endTime"`        // When the segment finished (nil while recording)
	Status         RecordingStatus `json:"status"`         // Local capture lifecycle
	UploadStatus   UploadStatus    `json:"uploadStatus"`   // Durable storage lifecycle
	UploadAttempts int             `json:"uploadAttempts"` // Total upload attempts made so far
	ErrorMessage   string          `json:"errorMessage"`   // Last failure reason, empty when healthy
	ObjectKey      string          `json:"objectKey"`      // Key in object storage once uploaded
	ObjectURL      string          `json:"objectUrl"`      // Public URL once uploaded
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// UploadQueueItem represents one pending upload task, one per recording
type UploadQueueItem struct {
	ID           int64       `json:"id"`
	RecordingID  string      `json:"recordingId"`
	Status       QueueStatus `json:"status"`
	RetryCount   int         `json:"retryCount"`
	StartedAt    *time.Time  `json:"startedAt"` // Set when claimed, cleared on completion or reset
	ErrorMessage string      `json:"errorMessage"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Camera represents a camera known to the system. Cameras are managed by an
// external collaborator; this subsystem only needs the stream-to-camera mapping.
type Camera struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Stream  string `json:"stream"` // Stream identifier the media server publishes under
	Enabled bool   `json:"enabled"`
}

// QueueStats summarises upload queue depth by status
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Uploaded   int `json:"uploaded"`
	Failed     int `json:"failed"`
}

// Database defines the interface for metadata store operations
type Database interface {
	// Recording operations
	CreateRecording(rec Recording) error
	CreateRecordingWithQueueItem(rec Recording) error
	GetRecording(id string) (*Recording, error)
	FindRecordingByPath(cameraID, canonicalPath string) (*Recording, error)
	UpdateRecordingFileInfo(id string, fileSize int64, duration float64) error
	ListRecordings(cameraID, status string, limit, offset int) ([]Recording, error)
	ListAllRecordings() ([]Recording, error)
	DeleteRecording(id string) error

	// Upload status transitions. Conditional variants return false when the
	// row was not in the expected state, which means another worker won.
	SetUploadStatusIf(id string, from, to UploadStatus) (bool, error)
	MarkRecordingUploaded(id, objectKey, objectURL string) error
	MarkRecordingUploadFailed(id string, attempts int, errMsg string) error
	MarkRecordingStatusIf(id string, from, to RecordingStatus, errMsg string) (bool, error)
	ResetUploadState(id string) error
	IncrementUploadAttempts(id string, errMsg string) error

	// Upload queue operations
	EnqueueUpload(recordingID string) error
	GetQueueItemByRecording(recordingID string) (*UploadQueueItem, error)
	ListQueueItemsByStatus(status QueueStatus, limit int) ([]UploadQueueItem, error)
	ClaimUploadItem(id int64) (bool, error)
	CompleteUploadItem(id int64) error
	ReleaseUploadItem(id int64, retryCount int, errMsg string) error
	FailUploadItem(id int64, retryCount int, errMsg string) error
	ResetStuckUploadItems(stuckSince time.Time) (int, error)
	GetQueueStats() (*QueueStats, error)

	// Camera operations
	GetCameraByStream(stream string) (*Camera, error)
	ListCameras() ([]Camera, error)
	InsertCameras(cameras []Camera) error

	// Helper operations
	Close() error
}
