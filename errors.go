package docview

import (
	"errors"
	"fmt"
)

// Common viewer errors
var (
	ErrNotExist       = errors.New("file does not exist")
	ErrExist          = errors.New("file already exists")
	ErrNotDir         = errors.New("not a directory")
	ErrIsDir          = errors.New("is a directory")
	ErrNotAllowed     = errors.New("operation not allowed")
	ErrNotSupported   = errors.New("operation not supported")
	ErrTooLarge       = errors.New("document too large")
	ErrNoFile         = errors.New("no file selected")
	ErrDownload       = errors.New("download failed")
	ErrNoPlugin       = errors.New("no viewer plugin for file type")
	ErrPluginDisabled = errors.New("viewer plugin disabled")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// WrapPathErr wraps err in a *PathError, or returns nil if err is nil
func WrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsTooLarge reports whether an error indicates that a document exceeded the
// configured size limit
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
