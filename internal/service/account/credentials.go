package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tgdrive/internal/credential"
	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
)

type credentialResolver struct {
	accountRepo driveRepo.AccountRepository
	cipher      *credential.Cipher
	transport   string
	logger      *slog.Logger
}

// NewCredentialResolver creates the per-request credential lookup
func NewCredentialResolver(
	accountRepo driveRepo.AccountRepository,
	cipher *credential.Cipher,
	transport string,
	logger *slog.Logger,
) driveSvc.CredentialResolver {
	return &credentialResolver{
		accountRepo: accountRepo,
		cipher:      cipher,
		transport:   transport,
		logger:      logger,
	}
}

// Resolve decrypts the transport credentials of ownerID. Anything unreadable
// is ErrCredentialCorrupted; it is never repaired here.
func (r *credentialResolver) Resolve(ctx context.Context, ownerID string) (models.Credentials, error) {
	account, err := r.accountRepo.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return models.Credentials{}, fmt.Errorf("no account for caller: %w", domain.ErrForbidden)
		}
		return models.Credentials{}, err
	}

	if account.Transport != r.transport {
		r.logger.Warn("account registered for another transport",
			"owner_id", ownerID,
			"account_transport", account.Transport,
			"server_transport", r.transport,
		)
	}

	token, err := r.cipher.Decrypt(account.EncryptedToken)
	if err != nil {
		r.logger.Error("decrypt transport token failed", "owner_id", ownerID, "cipher", r.cipher.Strategy(), "error", err)
		return models.Credentials{}, fmt.Errorf("account %s token: %w", ownerID, err)
	}
	destination, err := r.cipher.Decrypt(account.EncryptedDestination)
	if err != nil {
		r.logger.Error("decrypt destination failed", "owner_id", ownerID, "cipher", r.cipher.Strategy(), "error", err)
		return models.Credentials{}, fmt.Errorf("account %s destination: %w", ownerID, err)
	}

	if token == "" || destination == "" {
		r.logger.Error("empty credential after decrypt", "owner_id", ownerID)
		return models.Credentials{}, fmt.Errorf("account %s: empty credential: %w", ownerID, domain.ErrCredentialCorrupted)
	}

	return models.Credentials{Token: token, Destination: destination}, nil
}
