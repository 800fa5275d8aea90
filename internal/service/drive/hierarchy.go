package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
)

type collision = models.NameCollision

type hierarchyStore struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	logger     *slog.Logger
}

// NewHierarchyStore creates the structural query service
func NewHierarchyStore(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	logger *slog.Logger,
) driveSvc.HierarchyStore {
	return &hierarchyStore{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		logger:     logger,
	}
}

// FindNameCollision checks folders and files; both kinds share one namespace per directory
func (h *hierarchyStore) FindNameCollision(ctx context.Context, ownerID string, parentID *string, name, excludeID string) (*models.NameCollision, error) {
	folder, err := h.folderRepo.FindByName(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("check folder names: %w", err)
	}
	if folder != nil && folder.ID != excludeID {
		return &models.NameCollision{Kind: "folder", ID: folder.ID}, nil
	}

	file, err := h.fileRepo.FindByName(ctx, ownerID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("check file names: %w", err)
	}
	if file != nil && file.ID != excludeID {
		return &models.NameCollision{Kind: "file", ID: file.ID}, nil
	}

	return nil, nil
}

// ResolveAncestorPath walks parent links upward. The walk is bounded by the
// owner's folder count so corrupted cyclic data terminates.
func (h *hierarchyStore) ResolveAncestorPath(ctx context.Context, ownerID, folderID string) ([]models.PathEntry, error) {
	limit, err := h.folderRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var path []models.PathEntry
	current := folderID
	for step := 0; ; step++ {
		if step > 0 && step >= limit {
			h.logger.Error("ancestor walk exceeded folder count",
				"folder_id", folderID,
				"owner_id", ownerID,
				"limit", limit,
			)
			return nil, fmt.Errorf("folder %s: %w", folderID, domain.ErrBrokenChain)
		}

		folder, err := h.folderRepo.GetByID(ctx, current, ownerID)
		if err != nil {
			if step > 0 && errors.Is(err, domain.ErrNotFound) {
				h.logger.Error("dangling parent reference",
					"folder_id", folderID,
					"missing_id", current,
					"owner_id", ownerID,
				)
				return nil, fmt.Errorf("folder %s: ancestor %s: %w", folderID, current, domain.ErrBrokenChain)
			}
			return nil, err
		}

		path = append(path, models.PathEntry{ID: folder.ID, Name: folder.Name})
		if folder.ParentID == nil {
			break
		}
		current = *folder.ParentID
	}

	slices.Reverse(path)
	return path, nil
}

// RequireFolder accepts the root (nil) or a folder of ownerID
func (h *hierarchyStore) RequireFolder(ctx context.Context, ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if _, err := h.folderRepo.GetByID(ctx, *parentID, ownerID); err != nil {
		return fmt.Errorf("parent folder: %w", err)
	}
	return nil
}
