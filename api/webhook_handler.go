package api

import (
	"errors"
	"log"
	"net/http"

	"newcam-dvr/recording"
	"newcam-dvr/service"

	"github.com/gin-gonic/gin"
)

// recordFinishedPayload is the JSON body the media server posts when it
// closes a segment file.
type recordFinishedPayload struct {
	App       string  `json:"app"`
	Stream    string  `json:"stream"`
	FileName  string  `json:"file_name"`
	FilePath  string  `json:"file_path"`
	FileSize  int64   `json:"file_size"`
	StartTime int64   `json:"start_time"`
	TimeLen   float64 `json:"time_len"`
}

// handleRecordFinished ingests a segment notification from the media server.
// The media server retries on non-200 responses, so notifications we can
// never act on (unknown camera, bad path) still get a 200 with a non-zero
// code. Only our own store faults return 500.
func (s *Server) handleRecordFinished(c *gin.Context) {
	var payload recordFinishedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Webhook: malformed record notification: %v", err)
		c.JSON(http.StatusOK, gin.H{"code": -1, "msg": "malformed payload"})
		return
	}

	n := service.Notification{
		App:       payload.App,
		Stream:    payload.Stream,
		FileName:  payload.FileName,
		FilePath:  payload.FilePath,
		FileSize:  payload.FileSize,
		StartTime: payload.StartTime,
		TimeLen:   payload.TimeLen,
	}

	result, err := s.registrar.Register(n)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCamera),
			errors.Is(err, recording.ErrInvalidInput),
			errors.Is(err, recording.ErrPathTraversal),
			errors.Is(err, service.ErrFileNotFound):
			log.Printf("Webhook: dropped notification for %s/%s: %v", payload.App, payload.Stream, err)
			c.JSON(http.StatusOK, gin.H{"code": -1, "msg": err.Error()})
		default:
			log.Printf("Webhook: error registering %s/%s: %v", payload.App, payload.Stream, err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": -1, "msg": "internal error"})
		}
		return
	}

	if !result.Created {
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "duplicate", "recording_id": result.RecordingID})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "success", "recording_id": result.RecordingID})
}
