package recording

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolveStripsForeignPrefix(t *testing.T) {
	resolved, err := Resolve("/foreign/root/live/CAM1/2025-01-01/seg.mp4", "seg.mp4", "/foreign/root/", "/data/recordings")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	wantCanonical := filepath.Join("/data/recordings", "live", "CAM1", "2025-01-01", "seg.mp4")
	if resolved.CanonicalPath != wantCanonical {
		t.Errorf("Expected canonical path %s, got %s", wantCanonical, resolved.CanonicalPath)
	}
	if resolved.StorageKey != "live/CAM1/2025-01-01/seg.mp4" {
		t.Errorf("Expected storage key live/CAM1/2025-01-01/seg.mp4, got %s", resolved.StorageKey)
	}
	if resolved.Filename != "seg.mp4" {
		t.Errorf("Expected filename seg.mp4, got %s", resolved.Filename)
	}
}

func TestResolveCollapsesDuplicatedChain(t *testing.T) {
	cases := []struct {
		name    string
		rawPath string
		wantKey string
	}{
		{
			name:    "single duplication",
			rawPath: "/foreign/root/live/CAM1/live/CAM1/2025-01-01/seg.mp4",
			wantKey: "live/CAM1/2025-01-01/seg.mp4",
		},
		{
			name:    "triple duplication",
			rawPath: "/foreign/root/live/CAM1/live/CAM1/live/CAM1/2025-01-01/seg.mp4",
			wantKey: "live/CAM1/2025-01-01/seg.mp4",
		},
		{
			name:    "duplicated single segment",
			rawPath: "/foreign/root/live/live/CAM1/2025-01-01/seg.mp4",
			wantKey: "live/CAM1/2025-01-01/seg.mp4",
		},
		{
			name:    "no duplication left alone",
			rawPath: "/foreign/root/live/CAM1/2025-01-01/seg.mp4",
			wantKey: "live/CAM1/2025-01-01/seg.mp4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := Resolve(tc.rawPath, "seg.mp4", "/foreign/root/", "/data/recordings")
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if resolved.StorageKey != tc.wantKey {
				t.Errorf("Expected storage key %s, got %s", tc.wantKey, resolved.StorageKey)
			}
		})
	}
}

func TestResolveBackslashPaths(t *testing.T) {
	resolved, err := Resolve(`C:\media\live\CAM1\2025-01-01\seg.mp4`, "seg.mp4", `C:\media\`, "/data/recordings")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.StorageKey != "live/CAM1/2025-01-01/seg.mp4" {
		t.Errorf("Expected storage key live/CAM1/2025-01-01/seg.mp4, got %s", resolved.StorageKey)
	}
}

func TestResolveFallsBackToFileName(t *testing.T) {
	resolved, err := Resolve("", "seg", "/foreign/root/", "/data/recordings")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.StorageKey != "seg.mp4" {
		t.Errorf("Expected storage key seg.mp4, got %s", resolved.StorageKey)
	}
	if resolved.Filename != "seg.mp4" {
		t.Errorf("Expected filename seg.mp4, got %s", resolved.Filename)
	}
}

func TestResolveRejectsEmptyInput(t *testing.T) {
	_, err := Resolve("", "", "/foreign/root/", "/data/recordings")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	cases := []string{
		"/foreign/root/../etc/passwd",
		"/foreign/root/live/../../../../etc/passwd",
		"../../etc/passwd",
	}
	for _, rawPath := range cases {
		if _, err := Resolve(rawPath, "seg.mp4", "/foreign/root/", "/data/recordings"); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("Expected ErrPathTraversal for %q, got %v", rawPath, err)
		}
	}
}

func TestResolvePurePathOnly(t *testing.T) {
	// Resolution must not require the file to exist
	resolved, err := Resolve("/foreign/root/live/CAM1/definitely-not-on-disk.mp4", "", "/foreign/root/", "/data/recordings")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.CanonicalPath == "" {
		t.Error("Expected canonical path for nonexistent file")
	}
}
