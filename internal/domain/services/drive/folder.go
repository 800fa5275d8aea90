package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// FolderService handles folder business logic
type FolderService interface {
	// CreateFolder creates a folder under ParentID (nil = root)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*drive.Folder, error)

	// GetFolder retrieves a single folder
	GetFolder(ctx context.Context, ownerID, id string) (*drive.Folder, error)

	// ListChildren lists child folders and files with the breadcrumb of folderID
	ListChildren(ctx context.Context, ownerID string, folderID *string) (*drive.FolderContents, error)

	// RenameFolder renames a folder within its current parent
	RenameFolder(ctx context.Context, ownerID, id, name string) (*drive.Folder, error)

	// MoveFolder re-parents a folder (nil = root)
	MoveFolder(ctx context.Context, ownerID, id string, newParentID *string) (*drive.Folder, error)

	// UpdateFolder applies a rename and/or move as one unit
	UpdateFolder(ctx context.Context, ownerID, id string, req *UpdateItemRequest) (*drive.Folder, error)

	// DeleteFolder removes the folder with every descendant folder and file
	DeleteFolder(ctx context.Context, ownerID string, creds drive.Credentials, id string) error

	// ResolveAncestorPath returns the breadcrumb root to id, inclusive
	ResolveAncestorPath(ctx context.Context, ownerID, id string) ([]drive.PathEntry, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	OwnerID  string  `json:"-"` // Set by handler from auth context
	Name     string  `json:"name"`
	ParentID *string `json:"parent_folder_id,omitempty"`
}

// UpdateItemRequest combines a rename and a move. Move=false leaves the parent alone;
// Move=true with ParentID nil moves to the root.
type UpdateItemRequest struct {
	Name     *string
	Move     bool
	ParentID *string
}
