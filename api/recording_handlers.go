package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"newcam-dvr/database"

	"github.com/gin-gonic/gin"
)

// recordingResponse is the API-facing shape of a recording
type recordingResponse struct {
	ID           string   `json:"id"`
	CameraID     string   `json:"cameraId"`
	Filename     string   `json:"filename"`
	StorageKey   string   `json:"storageKey"`
	FileSize     int64    `json:"fileSize"`
	Duration     float64  `json:"duration"`
	StartTime    string   `json:"startTime"`
	EndTime      *string  `json:"endTime,omitempty"`
	Status       string   `json:"status"`
	UploadStatus string   `json:"uploadStatus"`
	ObjectURL    string   `json:"objectUrl,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	StreamURL    string   `json:"streamUrl"`
	DownloadURL  string   `json:"downloadUrl"`
	CreatedAt    string   `json:"createdAt"`
}

func (s *Server) toResponse(rec *database.Recording) recordingResponse {
	resp := recordingResponse{
		ID:           rec.ID,
		CameraID:     rec.CameraID,
		Filename:     rec.Filename,
		StorageKey:   rec.StorageKey,
		FileSize:     rec.FileSize,
		Duration:     rec.Duration,
		StartTime:    rec.StartTime.UTC().Format(time.RFC3339),
		Status:       string(rec.Status),
		UploadStatus: string(rec.UploadStatus),
		ObjectURL:    rec.ObjectURL,
		ErrorMessage: rec.ErrorMessage,
		StreamURL:    fmt.Sprintf("%s/api/recordings/%s/stream", s.config.BaseURL, rec.ID),
		DownloadURL:  fmt.Sprintf("%s/api/recordings/%s/download", s.config.BaseURL, rec.ID),
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.EndTime != nil {
		end := rec.EndTime.UTC().Format(time.RFC3339)
		resp.EndTime = &end
	}
	return resp
}

// listRecordings returns recordings, newest first, with optional camera_id
// and status filters plus limit/offset paging.
func (s *Server) listRecordings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	recordings, err := s.db.ListRecordings(c.Query("camera_id"), c.Query("status"), limit, offset)
	if err != nil {
		log.Printf("API: error listing recordings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recordings"})
		return
	}

	responses := make([]recordingResponse, 0, len(recordings))
	for i := range recordings {
		responses = append(responses, s.toResponse(&recordings[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"recordings": responses,
		"count":      len(responses),
		"limit":      limit,
		"offset":     offset,
	})
}

func (s *Server) getRecording(c *gin.Context) {
	rec, err := s.db.GetRecording(c.Param("id"))
	if err != nil {
		log.Printf("API: error fetching recording %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recording"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return
	}
	c.JSON(http.StatusOK, s.toResponse(rec))
}

// streamRecording serves the local media file with range support so players
// can seek. Once the local copy is gone the client is redirected to the
// object storage URL.
func (s *Server) streamRecording(c *gin.Context) {
	s.serveRecordingFile(c, false)
}

// downloadRecording is streamRecording plus a Content-Disposition header
func (s *Server) downloadRecording(c *gin.Context) {
	s.serveRecordingFile(c, true)
}

func (s *Server) serveRecordingFile(c *gin.Context, asAttachment bool) {
	rec, err := s.db.GetRecording(c.Param("id"))
	if err != nil {
		log.Printf("API: error fetching recording %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recording"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return
	}

	info, statErr := os.Stat(rec.CanonicalPath)
	if statErr != nil || info.IsDir() {
		// Local copy gone. Uploaded recordings live on in object storage.
		if rec.UploadStatus == database.UploadUploaded && rec.ObjectURL != "" {
			c.Redirect(http.StatusFound, rec.ObjectURL)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording file not available"})
		return
	}

	if asAttachment {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	}
	serveFileWithCache(c, rec.CanonicalPath, info)
}

// serveFileWithCache writes a media file honoring conditional and single
// byte-range requests. The validator is a weak ETag derived from size and
// mtime, so re-opens of an unchanged file hit 304s instead of re-downloads.
func serveFileWithCache(c *gin.Context, path string, info os.FileInfo) {
	size := info.Size()
	modTime := info.ModTime()
	etag := fmt.Sprintf(`W/"%d-%d"`, size, modTime.Unix())

	c.Header("ETag", etag)
	c.Header("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	c.Header("Cache-Control", "private, max-age=300, must-revalidate")
	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Type", "video/mp4")

	if match := c.GetHeader("If-None-Match"); match != "" {
		if etagMatches(match, etag) {
			c.Status(http.StatusNotModified)
			return
		}
	} else if since := c.GetHeader("If-Modified-Since"); since != "" {
		if t, err := http.ParseTime(since); err == nil && !modTime.Truncate(time.Second).After(t) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	start, end, ok, valid := parseRangeHeader(c.GetHeader("Range"), size)
	if !valid {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("API: error opening %s: %v", path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open recording file"})
		return
	}
	defer f.Close()

	if !ok {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
		c.Status(http.StatusOK)
		io.Copy(c.Writer, f)
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to seek recording file"})
		return
	}
	length := end - start + 1
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Header("Content-Length", strconv.FormatInt(length, 10))
	c.Status(http.StatusPartialContent)
	io.CopyN(c.Writer, f, length)
}

// parseRangeHeader handles a single bytes=start-end range. Returns
// ok=false when no usable Range header is present (serve the whole file)
// and valid=false when a range was requested but cannot be satisfied.
func parseRangeHeader(header string, size int64) (start, end int64, ok, valid bool) {
	if header == "" || !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false, true
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		// Multipart ranges are not worth the complexity for video playback;
		// fall back to the full file.
		return 0, 0, false, true
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, true
	}

	if parts[0] == "" {
		// Suffix range: last N bytes
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, true
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false, false
	}
	if start >= size {
		return 0, 0, false, false
	}

	if parts[1] == "" {
		return start, size - 1, true, true
	}
	end, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < start {
		return 0, 0, false, false
	}
	if end >= size {
		end = size - 1
	}
	return start, end, true, true
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// retryUpload requeues a failed recording for upload
func (s *Server) retryUpload(c *gin.Context) {
	if s.uploadService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is disabled"})
		return
	}
	id := c.Param("id")
	if err := s.uploadService.RetryRecording(id); err != nil {
		log.Printf("API: error requeueing recording %s: %v", id, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "queued", "recording_id": id})
}
