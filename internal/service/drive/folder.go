package drive

import (
	"context"
	"log/slog"
	"time"

	"tgdrive/internal/blob"
	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/domain/repositories"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/events"
)

type folderService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	hierarchy  driveSvc.HierarchyStore
	moves      driveSvc.MoveValidator
	cascade    *cascadeDeleter
	txManager  repositories.TransactionManager
	bus        Publisher
	logger     *slog.Logger
}

// FolderServiceDeps groups the collaborators of the folder service
type FolderServiceDeps struct {
	FolderRepo driveRepo.FolderRepository
	FileRepo   driveRepo.FileRepository
	Hierarchy  driveSvc.HierarchyStore
	Moves      driveSvc.MoveValidator
	TxManager  repositories.TransactionManager
	Blobs      blob.Provider
	Bus        Publisher
	Logger     *slog.Logger

	// RemoteTimeout bounds each transport call of a subtree delete
	RemoteTimeout time.Duration
}

// NewFolderService creates a new folder service
func NewFolderService(deps FolderServiceDeps) driveSvc.FolderService {
	files := &fileDeleter{
		fileRepo: deps.FileRepo,
		remote:   newRemote(deps.Blobs, deps.RemoteTimeout),
		bus:      deps.Bus,
		logger:   deps.Logger,
	}
	return &folderService{
		folderRepo: deps.FolderRepo,
		fileRepo:   deps.FileRepo,
		hierarchy:  deps.Hierarchy,
		moves:      deps.Moves,
		cascade: &cascadeDeleter{
			folderRepo: deps.FolderRepo,
			fileRepo:   deps.FileRepo,
			files:      files,
			bus:        deps.Bus,
			logger:     deps.Logger,
		},
		txManager: deps.TxManager,
		bus:       deps.Bus,
		logger:    deps.Logger,
	}
}

// CreateFolder creates a folder under an existing parent (or the root)
func (s *folderService) CreateFolder(ctx context.Context, req *driveSvc.CreateFolderRequest) (*models.Folder, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	parentID := normalizeParent(req.ParentID)

	now := time.Now().UTC()
	folder := &models.Folder{
		OwnerID:   req.OwnerID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.hierarchy.RequireFolder(ctx, req.OwnerID, parentID); err != nil {
			return err
		}
		c, err := s.hierarchy.FindNameCollision(ctx, req.OwnerID, parentID, name, "")
		if err != nil {
			return err
		}
		if c != nil {
			return conflictError(name, c)
		}
		return s.folderRepo.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.Event{
		Kind:     events.FolderCreated,
		OwnerID:  folder.OwnerID,
		ItemID:   folder.ID,
		Name:     folder.Name,
		ParentID: folder.ParentID,
	})

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", folder.OwnerID,
		"parent_folder_id", folder.ParentID,
	)

	return folder, nil
}

// GetFolder retrieves a folder owned by ownerID
func (s *folderService) GetFolder(ctx context.Context, ownerID, id string) (*models.Folder, error) {
	return s.folderRepo.GetByID(ctx, id, ownerID)
}

// ListChildren lists a directory. folderID nil is the root, which has an empty path.
func (s *folderService) ListChildren(ctx context.Context, ownerID string, folderID *string) (*models.FolderContents, error) {
	folderID = normalizeParent(folderID)
	contents := &models.FolderContents{Path: []models.PathEntry{}}

	if folderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, *folderID, ownerID)
		if err != nil {
			return nil, err
		}
		contents.Folder = folder

		path, err := s.hierarchy.ResolveAncestorPath(ctx, ownerID, folder.ID)
		if err != nil {
			return nil, err
		}
		contents.Path = path
	}

	folders, err := s.folderRepo.ListChildren(ctx, folderID, ownerID)
	if err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByFolder(ctx, folderID, ownerID)
	if err != nil {
		return nil, err
	}

	contents.Folders = folders
	contents.Files = files
	return contents, nil
}

// RenameFolder renames a folder within its current parent
func (s *folderService) RenameFolder(ctx context.Context, ownerID, id, name string) (*models.Folder, error) {
	return s.UpdateFolder(ctx, ownerID, id, &driveSvc.UpdateItemRequest{Name: &name})
}

// MoveFolder re-parents a folder (nil = root)
func (s *folderService) MoveFolder(ctx context.Context, ownerID, id string, newParentID *string) (*models.Folder, error) {
	return s.UpdateFolder(ctx, ownerID, id, &driveSvc.UpdateItemRequest{Move: true, ParentID: newParentID})
}

// UpdateFolder validates the move, then the destination namespace, then persists
func (s *folderService) UpdateFolder(ctx context.Context, ownerID, id string, req *driveSvc.UpdateItemRequest) (*models.Folder, error) {
	var (
		folder    *models.Folder
		oldName   string
		oldParent *string
	)

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		folder, err = s.folderRepo.GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		oldName, oldParent = folder.Name, folder.ParentID

		if req.Name != nil {
			if folder.Name, err = normalizeName(*req.Name); err != nil {
				return err
			}
		}
		if req.Move {
			newParent := normalizeParent(req.ParentID)
			if err := s.moves.ValidateMove(ctx, ownerID, folder.ID, newParent); err != nil {
				return err
			}
			folder.ParentID = newParent
		}

		if folder.Name == oldName && sameParent(folder.ParentID, oldParent) {
			return nil
		}

		c, err := s.hierarchy.FindNameCollision(ctx, ownerID, folder.ParentID, folder.Name, folder.ID)
		if err != nil {
			return err
		}
		if c != nil {
			return conflictError(folder.Name, c)
		}

		folder.UpdatedAt = time.Now().UTC()
		return s.folderRepo.Update(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	if folder.Name != oldName {
		s.bus.Publish(ctx, events.Event{
			Kind:     events.FolderRenamed,
			OwnerID:  ownerID,
			ItemID:   folder.ID,
			Name:     folder.Name,
			ParentID: folder.ParentID,
			OldName:  oldName,
		})
	}
	if !sameParent(folder.ParentID, oldParent) {
		s.bus.Publish(ctx, events.Event{
			Kind:      events.FolderMoved,
			OwnerID:   ownerID,
			ItemID:    folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			OldParent: oldParent,
		})
	}

	s.logger.Info("folder updated",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", ownerID,
		"parent_folder_id", folder.ParentID,
	)

	return folder, nil
}

// DeleteFolder removes the folder and its whole subtree
func (s *folderService) DeleteFolder(ctx context.Context, ownerID string, creds models.Credentials, id string) error {
	folder, err := s.folderRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	return s.cascade.deleteTree(ctx, ownerID, creds, folder)
}

// ResolveAncestorPath returns the breadcrumb of an owned folder
func (s *folderService) ResolveAncestorPath(ctx context.Context, ownerID, id string) ([]models.PathEntry, error) {
	return s.hierarchy.ResolveAncestorPath(ctx, ownerID, id)
}
