package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// HierarchyStore answers the structural questions shared by folders and files.
type HierarchyStore interface {
	// FindNameCollision reports which file or folder (other than excludeID)
	// already holds name in the directory, or nil.
	FindNameCollision(ctx context.Context, ownerID string, parentID *string, name, excludeID string) (*drive.NameCollision, error)

	// ResolveAncestorPath follows parent links from folderID up to the root.
	ResolveAncestorPath(ctx context.Context, ownerID, folderID string) ([]drive.PathEntry, error)

	// RequireFolder fails with not found unless parentID is nil or an owned folder.
	RequireFolder(ctx context.Context, ownerID string, parentID *string) error
}

// MoveValidator decides whether re-parenting a folder keeps the hierarchy a forest.
type MoveValidator interface {
	ValidateMove(ctx context.Context, ownerID, folderID string, newParentID *string) error
}

// TreeService materializes an owner's folders as a nested tree
type TreeService interface {
	GetTree(ctx context.Context, ownerID string) ([]*drive.FolderTreeNode, error)
}
