package memory

import (
	"context"
	"fmt"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
)

// FileRepository is the memory FileRepository
type FileRepository struct {
	store *Store
}

// NewFileRepository creates a file repository over store
func NewFileRepository(store *Store) driveRepo.FileRepository {
	return &FileRepository{store: store}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFileWrite(file, ""); err != nil {
		return err
	}

	file.ID = s.newID()
	s.stamp(&file.CreatedAt, &file.UpdatedAt)

	s.files[file.ID] = cloneFile(*file)
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id, ownerID string) (*models.File, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file = cloneFile(file)
	return &file, nil
}

func (r *FileRepository) Update(ctx context.Context, file *models.File) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.files[file.ID]
	if !ok || current.OwnerID != file.OwnerID {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	if err := s.checkFileWrite(file, file.ID); err != nil {
		return err
	}

	current.Name = file.Name
	current.ParentID = cloneParent(file.ParentID)
	current.UpdatedAt = file.UpdatedAt
	if current.UpdatedAt.IsZero() {
		current.UpdatedAt = s.now().UTC()
	}
	s.files[file.ID] = current
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id, ownerID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok || file.OwnerID != ownerID {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(s.files, id)
	return nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, parentID *string, ownerID string) ([]models.File, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := []models.File{}
	for _, f := range s.files {
		if f.OwnerID == ownerID && sameParent(f.ParentID, parentID) {
			files = append(files, cloneFile(f))
		}
	}
	sortFiles(files)
	return files, nil
}

func (r *FileRepository) FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*models.File, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.files {
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.ParentID, parentID) {
			f = cloneFile(f)
			return &f, nil
		}
	}
	return nil, nil
}

func (s *Store) checkFileWrite(file *models.File, selfID string) error {
	if err := s.checkParent(file.OwnerID, file.ParentID); err != nil {
		return err
	}
	for _, f := range s.files {
		if f.ID != selfID && f.OwnerID == file.OwnerID && f.Name == file.Name && sameParent(f.ParentID, file.ParentID) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("file '%s' already exists in this location", file.Name),
				ResourceType: "file",
				ResourceID:   f.ID,
			}
		}
	}
	return nil
}

func cloneFile(f models.File) models.File {
	f.ParentID = cloneParent(f.ParentID)
	if f.RemoteBlobRef != nil {
		ref := *f.RemoteBlobRef
		f.RemoteBlobRef = &ref
	}
	return f
}
