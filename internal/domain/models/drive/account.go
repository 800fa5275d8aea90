package drive

import "time"

// Account owns one transport credential pair, stored as cipher envelopes.
type Account struct {
	ID                   string    `json:"id" db:"id"`
	Email                string    `json:"email" db:"email"`
	PasswordHash         string    `json:"-" db:"password_hash"`
	EncryptedToken       string    `json:"-" db:"encrypted_token"`
	EncryptedDestination string    `json:"-" db:"encrypted_destination"`
	Transport            string    `json:"transport" db:"transport"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// Credentials are the decrypted transport credentials for one request.
type Credentials struct {
	Token       string
	Destination string
}
