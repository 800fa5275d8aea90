package memory

import (
	"context"
	"fmt"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
)

// AccountRepository is the memory AccountRepository
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates an account repository over store
func NewAccountRepository(store *Store) driveRepo.AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	for _, a := range s.accounts {
		if normalizeEmail(a.Email) == email {
			return &domain.ConflictError{Message: "an account with this email already exists", ResourceType: "account"}
		}
	}

	if account.ID == "" {
		account.ID = s.newID()
	} else if _, taken := s.accounts[account.ID]; taken {
		return &domain.ConflictError{Message: "account already exists", ResourceType: "account", ResourceID: account.ID}
	}
	s.stamp(&account.CreatedAt, nil)
	s.accounts[account.ID] = *account
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = normalizeEmail(email)
	for _, a := range s.accounts {
		if normalizeEmail(a.Email) == email {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
}
