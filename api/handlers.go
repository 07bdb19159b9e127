package api

import (
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// getQueueStats returns upload queue counts per status
func (s *Server) getQueueStats(c *gin.Context) {
	stats, err := s.db.GetQueueStats()
	if err != nil {
		log.Printf("API: error getting queue stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get queue stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending":    stats.Pending,
		"processing": stats.Processing,
		"uploaded":   stats.Uploaded,
		"failed":     stats.Failed,
	})
}

// runReconcile triggers a reconciliation sweep on demand
func (s *Server) runReconcile(c *gin.Context) {
	stats := s.reconciler.Run()
	c.JSON(http.StatusOK, gin.H{"status": "completed", "stats": stats})
}

func (s *Server) listCameras(c *gin.Context) {
	cameras, err := s.db.ListCameras()
	if err != nil {
		log.Printf("API: error listing cameras: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cameras"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras, "count": len(cameras)})
}

// getSystemHealth provides health information for deployment checks
func (s *Server) getSystemHealth(c *gin.Context) {
	startTime := time.Now()

	healthResponse := gin.H{
		"status":    "healthy",
		"timestamp": startTime.UTC().Format(time.RFC3339),
	}

	// Check database connectivity with a simple query
	queueStats, err := s.db.GetQueueStats()
	if err != nil {
		healthResponse["status"] = "unhealthy"
		healthResponse["database"] = gin.H{
			"status": "failed",
			"error":  err.Error(),
		}
		c.JSON(http.StatusServiceUnavailable, healthResponse)
		return
	}
	healthResponse["database"] = gin.H{"status": "connected"}
	healthResponse["upload_queue"] = gin.H{
		"pending":    queueStats.Pending,
		"processing": queueStats.Processing,
		"uploaded":   queueStats.Uploaded,
		"failed":     queueStats.Failed,
	}

	// A growing failed count means uploads are not draining
	if queueStats.Failed > 0 {
		healthResponse["status"] = "degraded"
	}

	if s.monitor != nil {
		if usage, err := s.monitor.ResourceUsage(); err == nil {
			healthResponse["system"] = gin.H{
				"cpu_percent":   usage.CPUPercent,
				"memory_mb":     usage.MemoryUsedMB,
				"goroutines":    usage.NumGoroutines,
				"go_version":    runtime.Version(),
			}
		}
		if diskUsage, err := s.monitor.RecordingsDiskUsage(); err == nil {
			healthResponse["storage"] = diskUsage
			if diskUsage.UsedPercent > 90 {
				healthResponse["status"] = "degraded"
			}
		}
	}

	healthResponse["response_time_ms"] = time.Since(startTime).Milliseconds()
	c.JSON(http.StatusOK, healthResponse)
}
