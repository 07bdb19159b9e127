package recording

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// Path resolution errors. Callers match these with errors.Is.
var (
	// ErrInvalidInput means the notification carried neither a usable path
	// nor a file name.
	ErrInvalidInput = errors.New("file path or file name is required")
	// ErrPathTraversal means the cleaned path would escape the recordings root.
	ErrPathTraversal = errors.New("path escapes recordings root")
)

// ResolvedPath is the canonical identity of a recording file on disk.
type ResolvedPath struct {
	CanonicalPath string // Host-absolute location inside the recordings root
	StorageKey    string // Root-relative remainder, stable object storage key
	Filename      string // Base name of the file
}

// Resolve converts the raw path fields of a recording-finished notification
// into a canonical on-disk location plus a storage-relative key.
//
// The media server reports paths under its own mount point and is known to
// occasionally repeat a subdirectory chain (e.g. "live/CAM1/live/CAM1/...").
// A naive prefix strip leaves the path one level too deep, so repeated chains
// are collapsed down to their last occurrence before joining onto the root.
//
// Resolve is pure: it never touches the filesystem.
func Resolve(rawPath, rawFileName, foreignPrefix, recordingsRoot string) (*ResolvedPath, error) {
	working := rawPath
	if working == "" {
		if rawFileName == "" {
			return nil, ErrInvalidInput
		}
		working = rawFileName
		if path.Ext(working) == "" {
			working += ".mp4"
		}
	}

	normalized := strings.ReplaceAll(working, "\\", "/")

	// Strip the media server's own mount point wherever it appears.
	if foreignPrefix != "" {
		prefix := strings.ReplaceAll(foreignPrefix, "\\", "/")
		if idx := strings.Index(normalized, prefix); idx >= 0 {
			normalized = normalized[idx+len(prefix):]
		}
	}

	segments := splitSegments(normalized)
	if len(segments) == 0 {
		return nil, ErrInvalidInput
	}
	segments = collapseRepeatedChains(segments)

	// Reject traversal before joining; path.Join would silently resolve "..".
	for _, seg := range segments {
		if seg == ".." {
			return nil, ErrPathTraversal
		}
	}

	storageKey := path.Join(segments...)
	if storageKey == "" || storageKey == "." {
		return nil, ErrInvalidInput
	}

	root := filepath.Clean(recordingsRoot)
	canonical := filepath.Join(root, filepath.FromSlash(storageKey))
	if canonical != root && !strings.HasPrefix(canonical, root+string(filepath.Separator)) {
		return nil, ErrPathTraversal
	}

	return &ResolvedPath{
		CanonicalPath: canonical,
		StorageKey:    storageKey,
		Filename:      path.Base(storageKey),
	}, nil
}

// splitSegments breaks a slash path into non-empty segments, dropping
// repeated and leading separators and "." components.
func splitSegments(p string) []string {
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// collapseRepeatedChains removes consecutive duplicated segment chains,
// keeping only the last occurrence. Longer chains are collapsed first so
// "live/CAM1/live/CAM1" becomes "live/CAM1" rather than losing one segment
// at a time.
func collapseRepeatedChains(segments []string) []string {
	changed := true
	for changed {
		changed = false
		for k := len(segments) / 2; k >= 1 && !changed; k-- {
			for i := 0; i+2*k <= len(segments); i++ {
				if chainsEqual(segments[i:i+k], segments[i+k:i+2*k]) {
					segments = append(segments[:i], segments[i+k:]...)
					changed = true
					break
				}
			}
		}
	}
	return segments
}

func chainsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
