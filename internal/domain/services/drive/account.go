package drive

import (
	"context"

	"tgdrive/internal/domain/models/drive"
)

// AccountService registers accounts with their transport credentials
type AccountService interface {
	// Register validates the credential against the transport, sends a probe to the
	// destination and stores both values encrypted.
	Register(ctx context.Context, req *RegisterRequest) (*drive.Account, error)

	// GetAccount returns the account registered for the verified subject
	GetAccount(ctx context.Context, id string) (*drive.Account, error)
}

// CredentialResolver decrypts an account's transport credentials
type CredentialResolver interface {
	Resolve(ctx context.Context, ownerID string) (drive.Credentials, error)
}

// RegisterRequest represents an account registration
type RegisterRequest struct {
	AccountID   string `json:"-"` // Set by handler from the token subject
	Email       string `json:"email"`
	Password    string `json:"password"`
	Token       string `json:"bot_token"`
	Destination string `json:"chat_id"`
}
