package drive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	"tgdrive/internal/repository/postgres"
)

const accountColumns = `id, email, password_hash, encrypted_token, encrypted_destination, transport, created_at`

// PostgresAccountRepository implements the AccountRepository interface
type PostgresAccountRepository struct {
	pool postgres.Pool
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(config *postgres.RepositoryConfig) driveRepo.AccountRepository {
	return &PostgresAccountRepository{pool: config.Pool}
}

// Create inserts an account. An empty ID is generated by the database.
// A taken email or ID is a conflict.
func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, encrypted_token, encrypted_destination, transport, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.EncryptedToken,
		account.EncryptedDestination,
		account.Transport,
		account.CreatedAt,
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "an account with this email already exists",
				ResourceType: "account",
			}
		}
		if postgres.IsPgInvalidTextError(err) {
			return fmt.Errorf("account id %q: %w", account.ID, domain.ErrValidation)
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	account, err := scanAccount(executor.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidTextError(err) {
			return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email, case-insensitively
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	account, err := scanAccount(executor.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.EncryptedToken,
		&account.EncryptedDestination,
		&account.Transport,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
