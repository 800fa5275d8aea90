package memory

import (
	"context"
	"fmt"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
)

// FolderRepository is the memory FolderRepository
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a folder repository over store
func NewFolderRepository(store *Store) driveRepo.FolderRepository {
	return &FolderRepository{store: store}
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFolderWrite(folder, ""); err != nil {
		return err
	}

	folder.ID = s.newID()
	s.stamp(&folder.CreatedAt, &folder.UpdatedAt)

	stored := *folder
	stored.ParentID = cloneParent(folder.ParentID)
	s.folders[folder.ID] = stored
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	folder.ParentID = cloneParent(folder.ParentID)
	return &folder, nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.folders[folder.ID]
	if !ok || current.OwnerID != folder.OwnerID {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	if err := s.checkFolderWrite(folder, folder.ID); err != nil {
		return err
	}

	current.Name = folder.Name
	current.ParentID = cloneParent(folder.ParentID)
	current.UpdatedAt = folder.UpdatedAt
	if current.UpdatedAt.IsZero() {
		current.UpdatedAt = s.now().UTC()
	}
	s.folders[folder.ID] = current
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, id, ownerID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	// ON DELETE RESTRICT
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			return &domain.ConflictError{Message: "cannot delete folder with children", ResourceType: "folder", ResourceID: id}
		}
	}
	for _, f := range s.files {
		if f.ParentID != nil && *f.ParentID == id {
			return &domain.ConflictError{Message: "cannot delete folder with children", ResourceType: "folder", ResourceID: id}
		}
	}

	delete(s.folders, id)
	return nil
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string, ownerID string) ([]models.Folder, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := []models.Folder{}
	for _, f := range s.folders {
		if f.OwnerID == ownerID && sameParent(f.ParentID, parentID) {
			f.ParentID = cloneParent(f.ParentID)
			folders = append(folders, f)
		}
	}
	sortFolders(folders)
	return folders, nil
}

func (r *FolderRepository) FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.folderByName(ownerID, parentID, name); ok {
		f.ParentID = cloneParent(f.ParentID)
		return &f, nil
	}
	return nil, nil
}

func (r *FolderRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, f := range s.folders {
		if f.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *FolderRepository) GetAllByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := []models.Folder{}
	for _, f := range s.folders {
		if f.OwnerID == ownerID {
			f.ParentID = cloneParent(f.ParentID)
			folders = append(folders, f)
		}
	}
	sortFolders(folders)
	return folders, nil
}

func (s *Store) folderByName(ownerID string, parentID *string, name string) (models.Folder, bool) {
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.ParentID, parentID) {
			return f, true
		}
	}
	return models.Folder{}, false
}

// checkParent mirrors the parent foreign key; a parent of another owner does not exist
func (s *Store) checkParent(ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, ok := s.folders[*parentID]
	if !ok || parent.OwnerID != ownerID {
		return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
	}
	return nil
}

// checkFolderWrite mirrors folders_owner_parent_name_key and the parent reference
func (s *Store) checkFolderWrite(folder *models.Folder, selfID string) error {
	if err := s.checkParent(folder.OwnerID, folder.ParentID); err != nil {
		return err
	}
	if existing, ok := s.folderByName(folder.OwnerID, folder.ParentID, folder.Name); ok && existing.ID != selfID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("folder '%s' already exists in this location", folder.Name),
			ResourceType: "folder",
			ResourceID:   existing.ID,
		}
	}
	return nil
}
