package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// AccountRepository stores accounts and their encrypted credentials
type AccountRepository interface {
	Create(ctx context.Context, account *drive.Account) error
	GetByID(ctx context.Context, id string) (*drive.Account, error)
	GetByEmail(ctx context.Context, email string) (*drive.Account, error)
}
