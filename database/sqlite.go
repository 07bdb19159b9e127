package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB implements the Database interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %v", err)
	}

	// Create tables if they don't exist
	err = initTables(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %v", err)
	}

	return &SQLiteDB{db: db}, nil
}

// GetDB exposes the underlying sql.DB for callers that need raw queries
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			camera_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			canonical_path TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			file_size INTEGER DEFAULT 0,
			duration REAL DEFAULT 0,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP,
			status TEXT NOT NULL,
			upload_status TEXT NOT NULL,
			upload_attempts INTEGER DEFAULT 0,
			error_message TEXT,
			object_key TEXT,
			object_url TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// One recording per physical file
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_recordings_camera_path
		ON recordings (camera_id, canonical_path)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_recordings_upload_status ON recordings (upload_status)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS upload_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			retry_count INTEGER DEFAULT 0,
			started_at TIMESTAMP,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_upload_queue_status ON upload_queue (status, created_at)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cameras (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			stream TEXT NOT NULL UNIQUE,
			enabled INTEGER DEFAULT 1
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// CreateRecording inserts a new recording record into the database
func (s *SQLiteDB) CreateRecording(rec Recording) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO recordings (
			id, camera_id, filename, canonical_path, storage_key,
			file_size, duration, start_time, end_time, status,
			upload_status, upload_attempts, error_message, object_key, object_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.CameraID,
		rec.Filename,
		rec.CanonicalPath,
		rec.StorageKey,
		rec.FileSize,
		rec.Duration,
		rec.StartTime,
		rec.EndTime,
		rec.Status,
		rec.UploadStatus,
		rec.UploadAttempts,
		rec.ErrorMessage,
		rec.ObjectKey,
		rec.ObjectURL,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create recording: %v", err)
	}

	return nil
}

// CreateRecordingWithQueueItem inserts a recording and its upload queue item in
// one transaction, so a recording never exists without a matching queue item.
func (s *SQLiteDB) CreateRecordingWithQueueItem(rec Recording) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO recordings (
			id, camera_id, filename, canonical_path, storage_key,
			file_size, duration, start_time, end_time, status,
			upload_status, upload_attempts, error_message, object_key, object_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.CameraID, rec.Filename, rec.CanonicalPath, rec.StorageKey,
		rec.FileSize, rec.Duration, rec.StartTime, rec.EndTime, rec.Status,
		rec.UploadStatus, rec.UploadAttempts, rec.ErrorMessage, rec.ObjectKey, rec.ObjectURL,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recording: %v", err)
	}

	_, err = tx.Exec(`
		INSERT INTO upload_queue (recording_id, status, retry_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
	`, rec.ID, QueuePending, now, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue upload: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recording: %v", err)
	}

	return nil
}

const recordingColumns = `
	id, camera_id, filename, canonical_path, storage_key,
	file_size, duration, start_time, end_time, status,
	upload_status, upload_attempts, error_message, object_key, object_url,
	created_at, updated_at
`

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var endTime sql.NullTime
	var errorMessage, objectKey, objectURL sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.CameraID,
		&rec.Filename,
		&rec.CanonicalPath,
		&rec.StorageKey,
		&rec.FileSize,
		&rec.Duration,
		&rec.StartTime,
		&endTime,
		&rec.Status,
		&rec.UploadStatus,
		&rec.UploadAttempts,
		&errorMessage,
		&objectKey,
		&objectURL,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		rec.EndTime = &endTime.Time
	}
	if errorMessage.Valid {
		rec.ErrorMessage = errorMessage.String
	}
	if objectKey.Valid {
		rec.ObjectKey = objectKey.String
	}
	if objectURL.Valid {
		rec.ObjectURL = objectURL.String
	}

	return &rec, nil
}

// GetRecording retrieves a recording by its ID
func (s *SQLiteDB) GetRecording(id string) (*Recording, error) {
	row := s.db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %v", err)
	}
	return rec, nil
}

// FindRecordingByPath retrieves a recording by its physical file identity
func (s *SQLiteDB) FindRecordingByPath(cameraID, canonicalPath string) (*Recording, error) {
	row := s.db.QueryRow(`
		SELECT `+recordingColumns+` FROM recordings
		WHERE camera_id = ? AND canonical_path = ?
	`, cameraID, canonicalPath)
	rec, err := scanRecording(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recording by path: %v", err)
	}
	return rec, nil
}

// UpdateRecordingFileInfo refreshes size and duration from a re-stat of the file
func (s *SQLiteDB) UpdateRecordingFileInfo(id string, fileSize int64, duration float64) error {
	_, err := s.db.Exec(`
		UPDATE recordings SET file_size = ?, duration = ?, updated_at = ? WHERE id = ?
	`, fileSize, duration, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update recording file info: %v", err)
	}
	return nil
}

// ListRecordings retrieves recordings with pagination, newest first
func (s *SQLiteDB) ListRecordings(cameraID, status string, limit, offset int) ([]Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE 1=1`
	args := []interface{}{}
	if cameraID != "" {
		query += ` AND camera_id = ?`
		args = append(args, cameraID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %v", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

// ListAllRecordings retrieves every recording, used by the reconciler sweep
func (s *SQLiteDB) ListAllRecordings() ([]Recording, error) {
	rows, err := s.db.Query(`SELECT ` + recordingColumns + ` FROM recordings ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %v", err)
	}
	defer rows.Close()

	return collectRecordings(rows)
}

func collectRecordings(rows *sql.Rows) ([]Recording, error) {
	var recordings []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording row: %v", err)
		}
		recordings = append(recordings, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %v", err)
	}
	return recordings, nil
}

// DeleteRecording removes a recording and its queue item
func (s *SQLiteDB) DeleteRecording(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM upload_queue WHERE recording_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete queue item: %v", err)
	}
	if _, err := tx.Exec("DELETE FROM recordings WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete recording: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %v", err)
	}
	return nil
}

// SetUploadStatusIf transitions upload_status only from the expected state.
// Returns false when the row was not in that state, so concurrent workers
// cannot double-process a recording.
func (s *SQLiteDB) SetUploadStatusIf(id string, from, to UploadStatus) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE recordings SET upload_status = ?, updated_at = ?
		WHERE id = ? AND upload_status = ?
	`, to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update upload status: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %v", err)
	}
	return affected == 1, nil
}

// MarkRecordingUploaded records a successful upload and clears old errors
func (s *SQLiteDB) MarkRecordingUploaded(id, objectKey, objectURL string) error {
	_, err := s.db.Exec(`
		UPDATE recordings
		SET status = ?, upload_status = ?, object_key = ?, object_url = ?, error_message = '', updated_at = ?
		WHERE id = ?
	`, StatusCompleted, UploadUploaded, objectKey, objectURL, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark recording uploaded: %v", err)
	}
	log.Printf("Recording %s marked uploaded (key: %s)", id, objectKey)
	return nil
}

// MarkRecordingUploadFailed records a terminal upload failure
func (s *SQLiteDB) MarkRecordingUploadFailed(id string, attempts int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE recordings
		SET upload_status = ?, upload_attempts = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, UploadFailed, attempts, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark recording upload failed: %v", err)
	}
	log.Printf("Recording %s upload permanently failed after %d attempts: %s", id, attempts, errMsg)
	return nil
}

// MarkRecordingStatusIf transitions status only from the expected state
func (s *SQLiteDB) MarkRecordingStatusIf(id string, from, to RecordingStatus, errMsg string) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE recordings SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, errMsg, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update recording status: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %v", err)
	}
	return affected == 1, nil
}

// ResetUploadState puts a recording back to pending with zero attempts and
// re-creates its queue item if necessary. Used by the manual requeue control.
func (s *SQLiteDB) ResetUploadState(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE recordings
		SET upload_status = ?, upload_attempts = 0, error_message = '', updated_at = ?
		WHERE id = ?
	`, UploadPending, now, id)
	if err != nil {
		return fmt.Errorf("failed to reset upload state: %v", err)
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM upload_queue WHERE recording_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("failed to check queue item: %v", err)
	}

	if count == 0 {
		_, err = tx.Exec(`
			INSERT INTO upload_queue (recording_id, status, retry_count, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?)
		`, id, QueuePending, now, now)
	} else {
		_, err = tx.Exec(`
			UPDATE upload_queue
			SET status = ?, retry_count = 0, started_at = NULL, error_message = '', updated_at = ?
			WHERE recording_id = ?
		`, QueuePending, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to reset queue item: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %v", err)
	}

	log.Printf("Recording %s requeued for upload", id)
	return nil
}

// IncrementUploadAttempts bumps the attempt counter after a failed try
func (s *SQLiteDB) IncrementUploadAttempts(id string, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE recordings
		SET upload_attempts = upload_attempts + 1, error_message = ?, updated_at = ?
		WHERE id = ?
	`, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment upload attempts: %v", err)
	}
	return nil
}

// EnqueueUpload creates a pending queue item for a recording
func (s *SQLiteDB) EnqueueUpload(recordingID string) error {
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO upload_queue (recording_id, status, retry_count, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
	`, recordingID, QueuePending, now, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue upload: %v", err)
	}
	return nil
}

func scanQueueItem(row rowScanner) (*UploadQueueItem, error) {
	var item UploadQueueItem
	var startedAt sql.NullTime
	var errorMessage sql.NullString

	err := row.Scan(
		&item.ID,
		&item.RecordingID,
		&item.Status,
		&item.RetryCount,
		&startedAt,
		&errorMessage,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		item.StartedAt = &startedAt.Time
	}
	if errorMessage.Valid {
		item.ErrorMessage = errorMessage.String
	}

	return &item, nil
}

const queueColumns = `id, recording_id, status, retry_count, started_at, error_message, created_at, updated_at`

// GetQueueItemByRecording retrieves the queue item for a recording, if any
func (s *SQLiteDB) GetQueueItemByRecording(recordingID string) (*UploadQueueItem, error) {
	row := s.db.QueryRow(`SELECT `+queueColumns+` FROM upload_queue WHERE recording_id = ?`, recordingID)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %v", err)
	}
	return item, nil
}

// ListQueueItemsByStatus retrieves queue items in a given status, oldest first
func (s *SQLiteDB) ListQueueItemsByStatus(status QueueStatus, limit int) ([]UploadQueueItem, error) {
	rows, err := s.db.Query(`
		SELECT `+queueColumns+` FROM upload_queue
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %v", err)
	}
	defer rows.Close()

	var items []UploadQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %v", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %v", err)
	}
	return items, nil
}

// ClaimUploadItem atomically transitions a pending item to processing and
// stamps started_at. Returns false when another worker already claimed it.
func (s *SQLiteDB) ClaimUploadItem(id int64) (bool, error) {
	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE upload_queue SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, QueueProcessing, now, now, id, QueuePending)
	if err != nil {
		return false, fmt.Errorf("failed to claim upload item: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %v", err)
	}
	return affected == 1, nil
}

// CompleteUploadItem marks a claimed item uploaded and clears the claim
func (s *SQLiteDB) CompleteUploadItem(id int64) error {
	_, err := s.db.Exec(`
		UPDATE upload_queue
		SET status = ?, started_at = NULL, error_message = '', updated_at = ?
		WHERE id = ?
	`, QueueUploaded, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete upload item: %v", err)
	}
	return nil
}

// ReleaseUploadItem puts a claimed item back to pending for a later retry
func (s *SQLiteDB) ReleaseUploadItem(id int64, retryCount int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE upload_queue
		SET status = ?, started_at = NULL, retry_count = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, QueuePending, retryCount, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to release upload item: %v", err)
	}
	return nil
}

// FailUploadItem marks an item terminally failed
func (s *SQLiteDB) FailUploadItem(id int64, retryCount int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE upload_queue
		SET status = ?, started_at = NULL, retry_count = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, QueueFailed, retryCount, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to fail upload item: %v", err)
	}
	return nil
}

// ResetStuckUploadItems requeues items claimed before the cutoff, incrementing
// retry_count exactly once per item. Covers workers that crashed mid-upload.
func (s *SQLiteDB) ResetStuckUploadItems(stuckSince time.Time) (int, error) {
	result, err := s.db.Exec(`
		UPDATE upload_queue
		SET status = ?, started_at = NULL, retry_count = retry_count + 1, updated_at = ?
		WHERE status = ? AND started_at IS NOT NULL AND started_at < ?
	`, QueuePending, time.Now(), QueueProcessing, stuckSince)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck upload items: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %v", err)
	}
	if affected > 0 {
		log.Printf("Requeued %d stuck upload item(s)", affected)
	}
	return int(affected), nil
}

// GetQueueStats returns queue depth by status
func (s *SQLiteDB) GetQueueStats() (*QueueStats, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM upload_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %v", err)
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var status QueueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %v", err)
		}
		switch status {
		case QueuePending:
			stats.Pending = count
		case QueueProcessing:
			stats.Processing = count
		case QueueUploaded:
			stats.Uploaded = count
		case QueueFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %v", err)
	}
	return &stats, nil
}

// GetCameraByStream resolves a media server stream identifier to a camera
func (s *SQLiteDB) GetCameraByStream(stream string) (*Camera, error) {
	var cam Camera
	var enabled int
	err := s.db.QueryRow(`
		SELECT id, name, stream, enabled FROM cameras WHERE stream = ?
	`, stream).Scan(&cam.ID, &cam.Name, &cam.Stream, &enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera by stream: %v", err)
	}
	cam.Enabled = enabled != 0
	return &cam, nil
}

// ListCameras retrieves all cameras
func (s *SQLiteDB) ListCameras() ([]Camera, error) {
	rows, err := s.db.Query(`SELECT id, name, stream, enabled FROM cameras ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %v", err)
	}
	defer rows.Close()

	var cameras []Camera
	for rows.Next() {
		var cam Camera
		var enabled int
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.Stream, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan camera row: %v", err)
		}
		cam.Enabled = enabled != 0
		cameras = append(cameras, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %v", err)
	}
	return cameras, nil
}

// InsertCameras stores cameras, replacing existing entries with the same id
func (s *SQLiteDB) InsertCameras(cameras []Camera) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, cam := range cameras {
		enabled := 0
		if cam.Enabled {
			enabled = 1
		}
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO cameras (id, name, stream, enabled) VALUES (?, ?, ?, ?)
		`, cam.ID, cam.Name, cam.Stream, enabled)
		if err != nil {
			return fmt.Errorf("failed to insert camera %s: %v", cam.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cameras: %v", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
