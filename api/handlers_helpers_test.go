package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"newcam-dvr/config"
	"newcam-dvr/database"
	"newcam-dvr/service"

	"github.com/gin-gonic/gin"
)

// newTestServer builds a server over a temp database and recordings root
// with all routes registered.
func newTestServer(t *testing.T) (*Server, *gin.Engine, *database.SQLiteDB, config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tempDir, err := os.MkdirTemp("", "newcam-dvr-api-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	db, err := database.NewSQLiteDB(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	recordingsRoot := filepath.Join(tempDir, "recordings")
	if err := os.MkdirAll(recordingsRoot, 0755); err != nil {
		t.Fatalf("Failed to create recordings root: %v", err)
	}

	err = db.InsertCameras([]database.Camera{
		{ID: "cam-1", Name: "Front Gate", Stream: "CAM1", Enabled: true},
	})
	if err != nil {
		t.Fatalf("Failed to seed camera: %v", err)
	}

	cfg := config.Config{
		RecordingsRoot:    recordingsRoot,
		ForeignRootPrefix: "/foreign/root/",
		RecordingExt:      ".mp4",
		BaseURL:           "http://localhost:8080",
		StatRetryAttempts: 1,
		StatRetryDelay:    time.Millisecond,
		OrphanGracePeriod: 30 * time.Minute,
		OrphanFilePolicy:  config.OrphanPolicyRegister,
	}

	registrar := service.NewRegistrar(db, cfg)
	reconciler := service.NewReconciler(db, cfg)
	server := NewServer(cfg, db, nil, registrar, nil, reconciler, nil)

	r := gin.New()
	server.setupRoutes(r)
	return server, r, db, cfg
}

// performJSONRequest performs a request with a JSON body and returns the recorder
func performJSONRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

// performRequest performs a bodyless request with optional extra headers
func performRequest(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

// createSegmentFile writes a media file of the given size under the recordings root
func createSegmentFile(t *testing.T, root, relPath string, size int) string {
	t.Helper()
	fullPath := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("Failed to create segment directory: %v", err)
	}
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		t.Fatalf("Failed to write segment file: %v", err)
	}
	return fullPath
}
