package filetype

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrorKind represents the different ways classification can fall short
type ErrorKind string

const (
	// KindUnidentified means no signature, extension or MIME rule matched.
	KindUnidentified ErrorKind = "unidentified"
	// KindAmbiguousLegacy means the buffer is an OLE or ZIP container whose
	// concrete subtype could not be confirmed. The descriptor is still usable.
	KindAmbiguousLegacy ErrorKind = "ambiguous"
	// KindMalformed means the buffer was too short to sample.
	KindMalformed ErrorKind = "malformed"
)

// Sentinel errors matched by errors.Is against a *ClassificationError
var (
	ErrUnidentifiedFormat    = errors.New("unidentified file format")
	ErrAmbiguousLegacyFormat = errors.New("ambiguous legacy container format")
	ErrMalformedInput        = errors.New("malformed input")
)

// ClassificationError describes a failed or low-confidence classification.
// It carries enough of the input to diagnose the failure without the buffer.
type ClassificationError struct {
	// Kind categorizes the failure for programmatic handling.
	Kind ErrorKind

	// MIMEType is the MIME type declared by the caller.
	MIMEType string

	// FileName is the name supplied by the caller.
	FileName string

	// Header holds the sampled leading bytes (at most SampleSize).
	Header []byte
}

// Error implements the error interface
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s file type: name=%q mime=%q header=%s",
		e.Kind, e.FileName, e.MIMEType, hex.EncodeToString(e.Header))
}

// Is lets errors.Is match the sentinel for the error kind. A malformed buffer
// is also reported as unidentified.
func (e *ClassificationError) Is(target error) bool {
	switch target {
	case ErrUnidentifiedFormat:
		return e.Kind == KindUnidentified || e.Kind == KindMalformed
	case ErrMalformedInput:
		return e.Kind == KindMalformed
	case ErrAmbiguousLegacyFormat:
		return e.Kind == KindAmbiguousLegacy
	}
	return false
}

func newClassificationError(kind ErrorKind, data []byte, fileName, mimeType string) *ClassificationError {
	header := sample(data, 0, SampleSize)
	return &ClassificationError{
		Kind:     kind,
		MIMEType: mimeType,
		FileName: fileName,
		Header:   append([]byte(nil), header...),
	}
}

// IsClassificationError checks if an error is a ClassificationError
func IsClassificationError(err error) bool {
	var classErr *ClassificationError
	return errors.As(err, &classErr)
}

// IsErrorOfKind checks if an error is a ClassificationError of the given kind
func IsErrorOfKind(err error, kind ErrorKind) bool {
	var classErr *ClassificationError
	if errors.As(err, &classErr) {
		return classErr.Kind == kind
	}
	return false
}

// GetErrorKind returns the kind of a ClassificationError, or empty string
func GetErrorKind(err error) ErrorKind {
	var classErr *ClassificationError
	if errors.As(err, &classErr) {
		return classErr.Kind
	}
	return ""
}
