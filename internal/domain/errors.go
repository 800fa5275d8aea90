package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrInvalidMove is returned when a folder would become its own ancestor.
	ErrInvalidMove = errors.New("invalid move")

	// Transport failures. Opaque to API clients.
	ErrUploadFailed      = errors.New("upload failed")
	ErrRemoteUnavailable = errors.New("remote storage unavailable")

	// Integrity failures. Logged with context, never repaired silently.
	ErrCredentialCorrupted = errors.New("credentials missing or corrupted")
	ErrBrokenChain         = errors.New("folder ancestry is broken")
	ErrBlobRefMissing      = errors.New("file content handle missing")

	ErrPartialDelete = errors.New("delete partially failed")
)

// ConflictError represents a namespace collision with details about the existing item
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // "file" or "folder"
	ResourceID   string // ID of the existing item
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// UploadError carries the reason reported by the remote transport.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %s: %v", e.Reason, e.Err)
	}
	return "upload failed: " + e.Reason
}

func (e *UploadError) StatusCode() int { return http.StatusBadGateway }

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

// DeleteFailure describes one subtree member a cascading delete could not remove.
type DeleteFailure struct {
	Kind string `json:"kind"` // "file" or "folder"
	ID   string `json:"id"`
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// Reason returns the failure message for API responses.
func (f DeleteFailure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// PartialDeleteError lists every member of a folder subtree that survived a delete.
type PartialDeleteError struct {
	FolderID string
	Failures []DeleteFailure
}

func (e *PartialDeleteError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s %s: %v", f.Kind, f.ID, f.Err))
	}
	return fmt.Sprintf("delete folder %s: %d members not removed: %s",
		e.FolderID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialDeleteError) StatusCode() int { return http.StatusInternalServerError }

func (e *PartialDeleteError) Is(target error) bool {
	return target == ErrPartialDelete
}
