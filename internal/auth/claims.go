package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the token claims the drive relies on. The subject is the account id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// OwnerID returns the account id from the subject claim
func (c *Claims) OwnerID() string {
	return c.Subject
}
