package drive

import (
	"context"
	"io"

	"tgdrive/internal/domain/models/drive"
)

// FileService handles uploads and file metadata
type FileService interface {
	// UploadFile stores the content remotely, then records the metadata row
	UploadFile(ctx context.Context, req *UploadFileRequest) (*drive.File, error)

	GetFile(ctx context.Context, ownerID, id string) (*drive.File, error)

	RenameFile(ctx context.Context, ownerID, id, name string) (*drive.File, error)

	MoveFile(ctx context.Context, ownerID, id string, newParentID *string) (*drive.File, error)

	// UpdateFile applies a rename and/or move as one unit
	UpdateFile(ctx context.Context, ownerID, id string, req *UpdateItemRequest) (*drive.File, error)

	// DeleteFile deletes the remote blob (best-effort) and the metadata row
	DeleteFile(ctx context.Context, ownerID string, creds drive.Credentials, id string) error

	// GetDownloadLink returns a transient URL for the content
	GetDownloadLink(ctx context.Context, ownerID string, creds drive.Credentials, id string) (*drive.DownloadLink, error)

	// OpenContent streams the content; the caller closes Body
	OpenContent(ctx context.Context, ownerID string, creds drive.Credentials, id string) (*FileContent, error)
}

// UploadFileRequest carries one multipart upload
type UploadFileRequest struct {
	OwnerID     string
	Credentials drive.Credentials
	ParentID    *string
	Name        string
	MimeType    string // optional, sniffed from content when empty or generic
	Content     io.Reader
}

// FileContent is an open content stream with its metadata
type FileContent struct {
	File *drive.File
	Body io.ReadCloser
}
