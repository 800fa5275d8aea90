package httputil

import (
	"context"
	"net/http"

	"tgdrive/internal/domain/models/drive"
)

// Context key type to avoid collisions
type contextKey string

const (
	ownerIDKey     contextKey = "ownerID"
	credentialsKey contextKey = "credentials"
)

// WithOwnerID adds the verified account id to the request context
func WithOwnerID(r *http.Request, ownerID string) *http.Request {
	ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
	return r.WithContext(ctx)
}

// GetOwnerID retrieves the account id from context, returns empty string if not found
func GetOwnerID(r *http.Request) string {
	ownerID, _ := r.Context().Value(ownerIDKey).(string)
	return ownerID
}

// WithCredentials adds the decrypted transport credentials to the request context
func WithCredentials(r *http.Request, creds drive.Credentials) *http.Request {
	ctx := context.WithValue(r.Context(), credentialsKey, creds)
	return r.WithContext(ctx)
}

// GetCredentials retrieves the transport credentials; ok is false when the
// credential middleware did not run for this route
func GetCredentials(r *http.Request) (drive.Credentials, bool) {
	creds, ok := r.Context().Value(credentialsKey).(drive.Credentials)
	return creds, ok
}
