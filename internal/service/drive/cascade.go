package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	"tgdrive/internal/events"
)

// errBlocked marks a folder kept because something inside it survived
var errBlocked = errors.New("kept because a member could not be deleted")

// cascadeDeleter removes a folder subtree with an explicit worklist
type cascadeDeleter struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	files      *fileDeleter
	bus        Publisher
	logger     *slog.Logger
}

// deleteTree removes root and everything below it. A failing member does not
// stop the rest; its ancestors are kept so no row references a deleted parent,
// and every survivor is reported in a *domain.PartialDeleteError.
func (c *cascadeDeleter) deleteTree(ctx context.Context, ownerID string, creds models.Credentials, root *models.Folder) error {
	order, err := c.collect(ctx, ownerID, root)
	if err != nil {
		return err
	}

	var failures []domain.DeleteFailure
	blocked := make(map[string]bool)

	// Reverse discovery order visits every child before its parent
	for i := len(order) - 1; i >= 0; i-- {
		folder := order[i]
		reason := c.deleteFiles(ctx, ownerID, creds, &folder, &failures)
		if reason == nil && blocked[folder.ID] {
			reason = errBlocked
		}

		if reason == nil {
			if err := c.folderRepo.Delete(ctx, folder.ID, ownerID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				reason = err
			}
		}

		if reason != nil {
			failures = append(failures, domain.DeleteFailure{Kind: "folder", ID: folder.ID, Name: folder.Name, Err: reason})
			if i > 0 && folder.ParentID != nil {
				blocked[*folder.ParentID] = true
			}
			continue
		}

		c.bus.Publish(ctx, events.Event{
			Kind:     events.FolderDeleted,
			OwnerID:  ownerID,
			ItemID:   folder.ID,
			Name:     folder.Name,
			ParentID: folder.ParentID,
		})
		c.logger.Debug("deleted folder", "id", folder.ID, "name", folder.Name)
	}

	if len(failures) > 0 {
		c.logger.Error("folder delete incomplete",
			"id", root.ID,
			"owner_id", ownerID,
			"failures", len(failures),
		)
		return &domain.PartialDeleteError{FolderID: root.ID, Failures: failures}
	}

	c.logger.Info("folder deleted",
		"id", root.ID,
		"name", root.Name,
		"owner_id", ownerID,
		"folders", len(order),
	)
	return nil
}

// collect lists root and its descendants, parents before children. The
// visited set stops a corrupted cycle from looping.
func (c *cascadeDeleter) collect(ctx context.Context, ownerID string, root *models.Folder) ([]models.Folder, error) {
	order := []models.Folder{*root}
	visited := map[string]bool{root.ID: true}
	stack := []string{root.ID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := c.folderRepo.ListChildren(ctx, &id, ownerID)
		if err != nil {
			return nil, fmt.Errorf("list subfolders of %s: %w", id, err)
		}

		for _, child := range children {
			if visited[child.ID] {
				c.logger.Error("folder reachable twice during delete", "id", child.ID, "owner_id", ownerID)
				continue
			}
			visited[child.ID] = true
			order = append(order, child)
			stack = append(stack, child.ID)
		}
	}

	return order, nil
}

// deleteFiles removes the files directly inside folder. It returns a reason to
// keep the folder, or nil when every file is gone.
func (c *cascadeDeleter) deleteFiles(ctx context.Context, ownerID string, creds models.Credentials, folder *models.Folder, failures *[]domain.DeleteFailure) error {
	files, err := c.fileRepo.ListByFolder(ctx, &folder.ID, ownerID)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var reason error
	for i := range files {
		file := &files[i]
		err := c.files.delete(ctx, creds, file)
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			continue
		}

		c.logger.Error("file delete failed during folder delete",
			"id", file.ID,
			"folder_id", folder.ID,
			"owner_id", ownerID,
			"error", err,
		)
		*failures = append(*failures, domain.DeleteFailure{Kind: "file", ID: file.ID, Name: file.Name, Err: err})
		reason = errBlocked
	}
	return reason
}
