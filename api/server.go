package api

import (
	"fmt"

	"newcam-dvr/config"
	"newcam-dvr/database"
	"newcam-dvr/monitoring"
	"newcam-dvr/service"
	"newcam-dvr/storage"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config        config.Config
	db            database.Database
	store         storage.ObjectStore
	registrar     *service.Registrar
	uploadService *service.UploadService
	reconciler    *service.Reconciler
	monitor       *monitoring.SystemMonitor
}

func NewServer(cfg config.Config, db database.Database, store storage.ObjectStore, registrar *service.Registrar, uploadService *service.UploadService, reconciler *service.Reconciler, monitor *monitoring.SystemMonitor) *Server {
	return &Server{
		config:        cfg,
		db:            db,
		store:         store,
		registrar:     registrar,
		uploadService: uploadService,
		reconciler:    reconciler,
		monitor:       monitor,
	}
}

func (s *Server) Start() {
	r := gin.Default()
	s.setupCORS(r)
	s.setupRoutes(r)
	portAddr := ":" + s.config.ServerPort
	fmt.Printf("Starting API server on %s\n", portAddr)
	r.Run(portAddr)
}

func (s *Server) setupCORS(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range, If-None-Match, If-Modified-Since")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
}

func (s *Server) setupRoutes(r *gin.Engine) {
	// Media server webhooks
	r.POST("/webhooks/on_record_finished", s.handleRecordFinished)

	// API routes
	api := r.Group("/api")
	{
		api.GET("/recordings", s.listRecordings)
		api.GET("/recordings/:id", s.getRecording)
		api.GET("/recordings/:id/stream", s.streamRecording)
		api.GET("/recordings/:id/download", s.downloadRecording)
		api.POST("/recordings/:id/retry-upload", s.retryUpload)
		api.POST("/reconcile", s.runReconcile)
		api.GET("/upload-queue/stats", s.getQueueStats)
		api.GET("/cameras", s.listCameras)
		api.GET("/system_health", s.getSystemHealth)
	}
}
