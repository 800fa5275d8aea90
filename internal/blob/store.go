// Package blob maps file content onto a remote message transport.
package blob

import (
	"context"
	"io"
)

// Store is one client bound to one transport credential.
type Store interface {
	// StoreBlob uploads content to destination. Transport errors and responses
	// missing a handle fail with a *domain.UploadError.
	StoreBlob(ctx context.Context, destination string, r io.Reader, name string) (*StoredBlob, error)

	// GetBlobLink returns a transient fetch URL.
	GetBlobLink(ctx context.Context, blobRef string) (string, error)

	// GetBlobStream opens the content for proxying. The caller closes it.
	GetBlobStream(ctx context.Context, blobRef string) (io.ReadCloser, error)

	// DeleteBlob is best-effort: remote failures yield false, never an error.
	DeleteBlob(ctx context.Context, destination, messageRef string) bool

	// ValidateCredential and SendProbe are used at registration only.
	ValidateCredential(ctx context.Context) bool
	SendProbe(ctx context.Context, destination string) bool
}

// StoredBlob holds the handles the transport returned for an upload.
type StoredBlob struct {
	MessageRef string // needed to delete
	BlobRef    string // needed to fetch
}

// Factory builds a Store for a credential token.
type Factory func(token string) (Store, error)

// Provider hands out the Store for a credential token.
type Provider interface {
	Get(token string) (Store, error)
}

// Registrar vets a credential before it is kept. Peek must not retain the
// Store it builds; Adopt keeps one that passed validation.
type Registrar interface {
	Peek(token string) (Store, error)
	Adopt(token string, s Store) Store
}
