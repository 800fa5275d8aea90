package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// FileRepository defines data access operations for file metadata
type FileRepository interface {
	// Create creates a new file row and fills in its ID and timestamps
	Create(ctx context.Context, file *drive.File) error

	// GetByID retrieves a file by ID
	GetByID(ctx context.Context, id, ownerID string) (*drive.File, error)

	// Update persists name and parent changes
	Update(ctx context.Context, file *drive.File) error

	// Delete deletes a file row
	Delete(ctx context.Context, id, ownerID string) error

	// ListByFolder lists files directly inside a folder (parentID nil = root)
	ListByFolder(ctx context.Context, parentID *string, ownerID string) ([]drive.File, error)

	// FindByName returns the file holding name in a directory, or nil
	FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*drive.File, error)
}
