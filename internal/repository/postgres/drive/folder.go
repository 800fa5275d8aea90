package drive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/domain/repositories"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	"tgdrive/internal/repository/postgres"
)

const folderColumns = `id, owner_id, parent_id, name, created_at, updated_at`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   postgres.Pool
	logger *slog.Logger
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *postgres.RepositoryConfig) driveRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (owner_id, parent_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.OwnerID,
		folder.ParentID,
		folder.Name,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		return r.writeError(ctx, err, folder)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND owner_id = $2`

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Update persists name and parent changes
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := `
		UPDATE folders
		SET parent_id = $1, name = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.UpdatedAt,
		folder.ID,
		folder.OwnerID,
	)
	if err != nil {
		return r.writeError(ctx, err, folder)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a single folder row
func (r *PostgresFolderRepository) Delete(ctx context.Context, id, ownerID string) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.ConflictError{
				Message:      "cannot delete folder with children",
				ResourceType: "folder",
				ResourceID:   id,
			}
		}
		if postgres.IsPgInvalidTextError(err) {
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders ordered by name
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID *string, ownerID string) ([]models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY name ASC
	`
	return r.queryFolders(ctx, query, ownerID, parentID)
}

// FindByName returns the folder holding name in a directory, or nil
func (r *PostgresFolderRepository) FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid AND name = $3
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, ownerID, parentID, name))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find folder by name: %w", err)
	}

	return folder, nil
}

// CountByOwner returns the number of folders an owner has
func (r *PostgresFolderRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, `SELECT COUNT(*) FROM folders WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count folders: %w", err)
	}
	return count, nil
}

// GetAllByOwner retrieves all folders of an owner (flat list)
func (r *PostgresFolderRepository) GetAllByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	query := `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE owner_id = $1
		ORDER BY name ASC
	`
	return r.queryFolders(ctx, query, ownerID)
}

func (r *PostgresFolderRepository) queryFolders(ctx context.Context, query string, args ...any) ([]models.Folder, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// writeError maps insert/update failures onto domain errors
func (r *PostgresFolderRepository) writeError(ctx context.Context, err error, folder *models.Folder) error {
	switch {
	case postgres.IsPgDuplicateError(err):
		conflict := &domain.ConflictError{
			Message:      fmt.Sprintf("folder '%s' already exists in this location", folder.Name),
			ResourceType: "folder",
		}
		// The failed statement aborted any surrounding transaction; read from the pool
		if existing, lookupErr := r.FindByName(repositories.WithTx(ctx, nil), folder.OwnerID, folder.ParentID, folder.Name); lookupErr == nil && existing != nil {
			conflict.ResourceID = existing.ID
		}
		return conflict
	case postgres.IsPgForeignKeyError(err):
		// parent row vanished between the service check and the write
		return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
	case postgres.IsPgInvalidTextError(err):
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	default:
		r.logger.Error("folder write failed", "id", folder.ID, "owner_id", folder.OwnerID, "error", err)
		return fmt.Errorf("write folder: %w", err)
	}
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}
