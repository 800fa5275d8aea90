package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tgdrive/internal/domain"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
)

type moveValidator struct {
	folderRepo driveRepo.FolderRepository
	logger     *slog.Logger
}

// NewMoveValidator creates the folder cycle check
func NewMoveValidator(folderRepo driveRepo.FolderRepository, logger *slog.Logger) driveSvc.MoveValidator {
	return &moveValidator{folderRepo: folderRepo, logger: logger}
}

// ValidateMove rejects moving a folder into itself or into one of its
// descendants. Moving to the root is always legal.
func (v *moveValidator) ValidateMove(ctx context.Context, ownerID, folderID string, newParentID *string) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == folderID {
		return fmt.Errorf("%w: cannot move folder into itself", domain.ErrInvalidMove)
	}

	limit, err := v.folderRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	current := *newParentID
	for step := 0; ; step++ {
		if step > 0 && step >= limit {
			v.logger.Error("move check exceeded folder count",
				"folder_id", folderID,
				"new_parent_id", *newParentID,
				"owner_id", ownerID,
			)
			return fmt.Errorf("folder %s: %w", *newParentID, domain.ErrBrokenChain)
		}

		folder, err := v.folderRepo.GetByID(ctx, current, ownerID)
		if err != nil {
			if step > 0 && errors.Is(err, domain.ErrNotFound) {
				v.logger.Error("dangling parent reference during move check",
					"folder_id", folderID,
					"missing_id", current,
					"owner_id", ownerID,
				)
				return fmt.Errorf("folder %s: ancestor %s: %w", *newParentID, current, domain.ErrBrokenChain)
			}
			return fmt.Errorf("destination folder: %w", err)
		}

		if folder.ID == folderID {
			return fmt.Errorf("%w: cannot move folder into its own descendant", domain.ErrInvalidMove)
		}
		if folder.ParentID == nil {
			return nil
		}
		current = *folder.ParentID
	}
}
