package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// FolderRepository defines data access operations for folders.
// Every method is scoped by owner; a folder of another owner is reported as not found.
type FolderRepository interface {
	// Create creates a new folder and fills in its ID and timestamps
	Create(ctx context.Context, folder *drive.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id, ownerID string) (*drive.Folder, error)

	// Update persists name and parent changes
	Update(ctx context.Context, folder *drive.Folder) error

	// Delete deletes a single folder row (children must already be gone)
	Delete(ctx context.Context, id, ownerID string) error

	// ListChildren lists immediate child folders (parentID nil = root)
	ListChildren(ctx context.Context, parentID *string, ownerID string) ([]drive.Folder, error)

	// FindByName returns the folder holding name in a directory, or nil
	FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*drive.Folder, error)

	// CountByOwner returns the number of folders an owner has
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// GetAllByOwner retrieves all folders of an owner (flat list)
	GetAllByOwner(ctx context.Context, ownerID string) ([]drive.Folder, error)
}
