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

const fileColumns = `id, owner_id, parent_id, name, size, mime_type, remote_message_ref, remote_blob_ref, created_at, updated_at`

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   postgres.Pool
	logger *slog.Logger
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *postgres.RepositoryConfig) driveRepo.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Create inserts the metadata row of an uploaded file
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (owner_id, parent_id, name, size, mime_type, remote_message_ref, remote_blob_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.OwnerID,
		file.ParentID,
		file.Name,
		file.Size,
		file.MimeType,
		file.RemoteMessageRef,
		file.RemoteBlobRef,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		return r.writeError(ctx, err, file)
	}

	return nil
}

// GetByID retrieves a file by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id, ownerID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2`

	executor := postgres.GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// Update persists name and parent changes
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET parent_id = $1, name = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		file.ParentID,
		file.Name,
		file.UpdatedAt,
		file.ID,
		file.OwnerID,
	)
	if err != nil {
		return r.writeError(ctx, err, file)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a file row
func (r *PostgresFileRepository) Delete(ctx context.Context, id, ownerID string) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, `DELETE FROM files WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists files directly inside a folder ordered by name
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, parentID *string, ownerID string) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY name ASC
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// FindByName returns the file holding name in a directory, or nil
func (r *PostgresFileRepository) FindByName(ctx context.Context, ownerID string, parentID *string, name string) (*models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2::uuid AND name = $3
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, ownerID, parentID, name))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find file by name: %w", err)
	}

	return file, nil
}

func (r *PostgresFileRepository) writeError(ctx context.Context, err error, file *models.File) error {
	switch {
	case postgres.IsPgDuplicateError(err):
		conflict := &domain.ConflictError{
			Message:      fmt.Sprintf("file '%s' already exists in this location", file.Name),
			ResourceType: "file",
		}
		if existing, lookupErr := r.FindByName(repositories.WithTx(ctx, nil), file.OwnerID, file.ParentID, file.Name); lookupErr == nil && existing != nil {
			conflict.ResourceID = existing.ID
		}
		return conflict
	case postgres.IsPgForeignKeyError(err):
		return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
	case postgres.IsPgInvalidTextError(err):
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	default:
		r.logger.Error("file write failed", "id", file.ID, "owner_id", file.OwnerID, "error", err)
		return fmt.Errorf("write file: %w", err)
	}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.ParentID,
		&file.Name,
		&file.Size,
		&file.MimeType,
		&file.RemoteMessageRef,
		&file.RemoteBlobRef,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}
