package docview

import (
	"context"
	"io"
	"time"
)

// FileInfo represents file/directory metadata
type FileInfo struct {
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	Size        int64             `json:"size"`
	ModTime     time.Time         `json:"modTime"`
	IsDir       bool              `json:"isDir"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ============================================================================
// Core Interfaces
// ============================================================================

// FileReader provides read-only access to a document store.
// The viewer never writes, so this is all a store driver has to implement.
type FileReader interface {
	// Read returns a stream for reading file content.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadAll reads entire file into memory.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// Stat returns file/directory metadata. ContentType holds the type
	// declared by the store, if any.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// ListContents lists directory contents.
	// If recursive is true, includes all descendants.
	ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error)
}

// FileWriter provides write operations for stores that are filled by the
// application itself, such as the in-memory store.
type FileWriter interface {
	// Write writes content from reader to path.
	Write(ctx context.Context, path string, r io.Reader, opts ...WriteOption) error

	// Delete removes a file.
	Delete(ctx context.Context, path string) error
}

// FileSystem provides full read-write access.
type FileSystem interface {
	FileReader
	FileWriter
}

// ============================================================================
// File Watching Interface (ChangeToken Pattern)
// ============================================================================

// ChangeToken represents a change notification token.
//
// Consumers can either:
// 1. Poll HasChanged() periodically
// 2. Register a callback via RegisterChangeCallback()
type ChangeToken interface {
	// HasChanged returns true if a change has occurred.
	// Once true, it remains true (tokens are single-use).
	HasChanged() bool

	// ActiveChangeCallbacks indicates if the token proactively raises callbacks.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback to be invoked when change occurs.
	// Returns a function to unregister the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CanWatch indicates the store supports change notifications.
// Not all backends support watching - check with type assertion.
//
// Example:
//
//	if watcher, ok := store.(CanWatch); ok {
//	    token, err := watcher.Watch(ctx, "**/*.pdf")
//	    if err != nil {
//	        return err
//	    }
//	    token.RegisterChangeCallback(func() {
//	        log.Println("document set changed")
//	    })
//	}
type CanWatch interface {
	// Watch creates a change token for the specified glob pattern.
	// The token signals when any matching file is created, modified, or deleted.
	Watch(ctx context.Context, pattern string) (ChangeToken, error)
}
