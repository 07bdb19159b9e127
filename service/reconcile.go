package service

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"newcam-dvr/config"
	"newcam-dvr/database"
)

// ReconcileStats summarises one reconciliation sweep
type ReconcileStats struct {
	FilesScanned          int `json:"filesScanned"`
	OrphanFilesRegistered int `json:"orphanFilesRegistered"`
	OrphanFilesDeleted    int `json:"orphanFilesDeleted"`
	OrphanFilesIgnored    int `json:"orphanFilesIgnored"`
	OrphanRecordsFailed   int `json:"orphanRecordsFailed"`
	RecordsRepaired       int `json:"recordsRepaired"`
	LocalFilesCleaned     int `json:"localFilesCleaned"`
}

// Reconciler periodically compares the filesystem against the metadata store
// and repairs orphans in either direction. All of its mutations are
// conditional updates, so it is safe to run concurrently with ingestion and
// the upload workers.
type Reconciler struct {
	db  database.Database
	cfg config.Config
}

// NewReconciler creates a new reconciler
func NewReconciler(db database.Database, cfg config.Config) *Reconciler {
	return &Reconciler{db: db, cfg: cfg}
}

// Run executes one full sweep. Errors on individual files or records are
// logged and skipped; they never abort the rest of the sweep.
func (r *Reconciler) Run() ReconcileStats {
	var stats ReconcileStats

	files := r.scanRecordingFiles()
	stats.FilesScanned = len(files)

	recordings, err := r.db.ListAllRecordings()
	if err != nil {
		log.Printf("Reconcile: error listing recordings: %v", err)
		return stats
	}

	byPath := make(map[string]*database.Recording, len(recordings))
	for i := range recordings {
		byPath[recordings[i].CanonicalPath] = &recordings[i]
	}

	cameras, err := r.db.ListCameras()
	if err != nil {
		log.Printf("Reconcile: error listing cameras: %v", err)
		cameras = nil
	}

	now := time.Now()

	// Orphan files: on disk, no matching record
	for path, info := range files {
		if _, known := byPath[path]; known {
			continue
		}
		r.handleOrphanFile(path, info, cameras, now, &stats)
	}

	// Orphan records: record exists, file missing (or came back)
	for i := range recordings {
		r.handleRecord(&recordings[i], files, now, &stats)
	}

	log.Printf("Reconcile: %d files scanned, %d orphan files registered, %d deleted, %d orphan records failed, %d repaired, %d local files cleaned",
		stats.FilesScanned, stats.OrphanFilesRegistered, stats.OrphanFilesDeleted,
		stats.OrphanRecordsFailed, stats.RecordsRepaired, stats.LocalFilesCleaned)

	return stats
}

// scanRecordingFiles walks the recordings root for finished segment files.
// Dot-prefixed names are in-progress temp files from the media server and
// are skipped.
func (r *Reconciler) scanRecordingFiles() map[string]fs.FileInfo {
	files := make(map[string]fs.FileInfo)
	root := filepath.Clean(r.cfg.RecordingsRoot)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("Reconcile: error walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), r.cfg.RecordingExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Printf("Reconcile: error statting %s: %v", path, err)
			return nil
		}
		files[path] = info
		return nil
	})
	if err != nil {
		log.Printf("Reconcile: error walking recordings root: %v", err)
	}

	return files
}

// handleOrphanFile applies the configured orphan-file policy to a file that
// has no matching recording record.
func (r *Reconciler) handleOrphanFile(path string, info fs.FileInfo, cameras []database.Camera, now time.Time, stats *ReconcileStats) {
	switch r.cfg.OrphanFilePolicy {
	case config.OrphanPolicyRegister:
		rel, err := filepath.Rel(filepath.Clean(r.cfg.RecordingsRoot), path)
		if err != nil {
			log.Printf("Reconcile: cannot relativize orphan file %s: %v", path, err)
			return
		}
		storageKey := filepath.ToSlash(rel)

		camera := matchCameraBySegment(cameras, storageKey)
		if camera == nil {
			log.Printf("Reconcile: orphan file %s matches no known camera, leaving alone", path)
			stats.OrphanFilesIgnored++
			return
		}

		rec := database.Recording{
			ID:            uuid.New().String(),
			CameraID:      camera.ID,
			Filename:      info.Name(),
			CanonicalPath: path,
			StorageKey:    storageKey,
			FileSize:      info.Size(),
			StartTime:     info.ModTime(),
			Status:        database.StatusCompleted,
			UploadStatus:  database.UploadPending,
		}
		end := info.ModTime()
		rec.EndTime = &end

		if err := r.db.CreateRecordingWithQueueItem(rec); err != nil {
			log.Printf("Reconcile: error registering orphan file %s: %v", path, err)
			return
		}
		log.Printf("Reconcile: registered orphan file %s as recording %s (camera %s)", path, rec.ID, camera.Name)
		stats.OrphanFilesRegistered++

	case config.OrphanPolicyDelete:
		if now.Sub(info.ModTime()) < r.cfg.OrphanGracePeriod {
			return // might still get a webhook
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Reconcile: error deleting orphan file %s: %v", path, err)
			return
		}
		log.Printf("Reconcile: deleted orphan file %s (%.1f hours old)", path, now.Sub(info.ModTime()).Hours())
		stats.OrphanFilesDeleted++

	default: // ignore
		stats.OrphanFilesIgnored++
	}
}

// handleRecord checks one recording against the filesystem scan
func (r *Reconciler) handleRecord(rec *database.Recording, files map[string]fs.FileInfo, now time.Time, stats *ReconcileStats) {
	info, fileExists := files[rec.CanonicalPath]

	// Uploaded recordings are durable in object storage; local absence means
	// nothing. Local presence past the retention window gets cleaned up —
	// the reconciler is the only component allowed to delete media files.
	if rec.UploadStatus == database.UploadUploaded {
		if fileExists && r.cfg.LocalRetentionHours > 0 {
			age := now.Sub(rec.UpdatedAt)
			if age > time.Duration(r.cfg.LocalRetentionHours)*time.Hour {
				if err := os.Remove(rec.CanonicalPath); err != nil {
					log.Printf("Reconcile: error cleaning local file %s: %v", rec.CanonicalPath, err)
					return
				}
				log.Printf("Reconcile: cleaned local copy of uploaded recording %s (%.1f hours old)", rec.ID, age.Hours())
				stats.LocalFilesCleaned++
			}
		}
		return
	}

	if fileExists {
		// A failed record whose file showed up after all can go back
		// through the upload pipeline, as long as the path resolved to a
		// usable storage key when it was registered.
		if rec.Status == database.StatusFailed && rec.StorageKey != "" {
			ok, err := r.db.MarkRecordingStatusIf(rec.ID, database.StatusFailed, database.StatusCompleted, "")
			if err != nil {
				log.Printf("Reconcile: error repairing recording %s: %v", rec.ID, err)
				return
			}
			if !ok {
				return // someone else got there first
			}
			if err := r.db.UpdateRecordingFileInfo(rec.ID, info.Size(), rec.Duration); err != nil {
				log.Printf("Reconcile: error updating file info for %s: %v", rec.ID, err)
			}
			if err := r.db.ResetUploadState(rec.ID); err != nil {
				log.Printf("Reconcile: error requeueing repaired recording %s: %v", rec.ID, err)
				return
			}
			log.Printf("Reconcile: repaired recording %s, file materialized at %s", rec.ID, rec.CanonicalPath)
			stats.RecordsRepaired++
		}
		return
	}

	// File missing and not uploaded: after the grace period the promised
	// file is considered lost (disk full, media server crash).
	if rec.Status == database.StatusFailed {
		return // already terminal
	}
	if now.Sub(rec.CreatedAt) < r.cfg.OrphanGracePeriod {
		return
	}
	ok, err := r.db.MarkRecordingStatusIf(rec.ID, rec.Status, database.StatusFailed, "file never materialized on disk")
	if err != nil {
		log.Printf("Reconcile: error failing orphan record %s: %v", rec.ID, err)
		return
	}
	if ok {
		log.Printf("Reconcile: marked orphan record %s failed (file %s never appeared)", rec.ID, rec.CanonicalPath)
		stats.OrphanRecordsFailed++
	}
}

// matchCameraBySegment finds the camera whose stream identifier appears as a
// path segment of the storage key. The media server lays files out as
// app/stream/date/file, so the stream segment identifies the owner.
func matchCameraBySegment(cameras []database.Camera, storageKey string) *database.Camera {
	segments := strings.Split(storageKey, "/")
	for i := range cameras {
		for _, seg := range segments {
			if cameras[i].Stream == seg {
				return &cameras[i]
			}
		}
	}
	return nil
}
