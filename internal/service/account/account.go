package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"

	"tgdrive/internal/blob"
	"tgdrive/internal/credential"
	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
)

type accountService struct {
	accountRepo   driveRepo.AccountRepository
	blobs         blob.Registrar
	cipher        *credential.Cipher
	transport     string
	remoteTimeout time.Duration
	logger        *slog.Logger
}

// Config holds the settings registration depends on
type Config struct {
	Transport     string // recorded on each new account
	RemoteTimeout time.Duration
}

// NewAccountService creates the registration service
func NewAccountService(
	accountRepo driveRepo.AccountRepository,
	blobs blob.Registrar,
	cipher *credential.Cipher,
	cfg Config,
	logger *slog.Logger,
) driveSvc.AccountService {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = time.Minute
	}
	return &accountService{
		accountRepo:   accountRepo,
		blobs:         blobs,
		cipher:        cipher,
		transport:     cfg.Transport,
		remoteTimeout: cfg.RemoteTimeout,
		logger:        logger,
	}
}

// Register checks the credential against the transport and the destination
// with a probe, then stores both encrypted
func (s *accountService) Register(ctx context.Context, req *driveSvc.RegisterRequest) (*models.Account, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Token = strings.TrimSpace(req.Token)
	req.Destination = strings.TrimSpace(req.Destination)

	if err := validateRegister(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err == nil {
		return nil, &domain.ConflictError{
			Message:      "this identity already has an account",
			ResourceType: "account",
			ResourceID:   req.AccountID,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing, err := s.accountRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, &domain.ConflictError{
			Message:      "an account with this email already exists",
			ResourceType: "account",
			ResourceID:   existing.ID,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	store, err := s.blobs.Peek(req.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: transport credential rejected: %v", domain.ErrValidation, err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()
	if !store.ValidateCredential(rctx) {
		s.logger.Info("registration rejected: credential invalid", "email", req.Email)
		return nil, fmt.Errorf("%w: transport credential rejected", domain.ErrValidation)
	}
	if !store.SendProbe(rctx, req.Destination) {
		s.logger.Info("registration rejected: destination unreachable", "email", req.Email)
		return nil, fmt.Errorf("%w: cannot deliver to destination", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	encToken, err := s.cipher.Encrypt(req.Token)
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}
	encDestination, err := s.cipher.Encrypt(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("encrypt destination: %w", err)
	}

	account := &models.Account{
		ID:                   req.AccountID,
		Email:                req.Email,
		PasswordHash:         string(hash),
		EncryptedToken:       encToken,
		EncryptedDestination: encDestination,
		Transport:            s.transport,
		CreatedAt:            time.Now().UTC(),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	s.blobs.Adopt(req.Token, store)

	s.logger.Info("account registered",
		"id", account.ID,
		"email", account.Email,
		"transport", account.Transport,
		"cipher", s.cipher.Strategy(),
	)

	return account, nil
}

// GetAccount returns the account registered for id
func (s *accountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func validateRegister(req *driveSvc.RegisterRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.AccountID, validation.Required),
		validation.Field(&req.Email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		// bcrypt only reads the first 72 bytes
		validation.Field(&req.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&req.Token, validation.Required),
		validation.Field(&req.Destination, validation.Required),
	)
}
