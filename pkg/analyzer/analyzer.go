package analyzer

import (
	"context"
	"os"
)

// SourceAnalyzer analyzes a set of files whose content comes from a
// ContentSource. Implementations read every file through src so callers can
// substitute in-memory or cached content.
type SourceAnalyzer[T any] interface {
	// Analyze processes the files and returns the analysis result.
	// The context carries cancellation and an optional progress Tracker.
	Analyze(ctx context.Context, files []string, src ContentSource) (T, error)
}

// ContentSource provides file content by path.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MemorySource serves content from a map. Missing paths return
// os.ErrNotExist.
type MemorySource map[string][]byte

// Read implements ContentSource.
func (m MemorySource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, &os.PathError{Op: "read", Path: path, Err: os.ErrNotExist}
	}
	return content, nil
}
