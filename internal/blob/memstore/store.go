// Package memstore is a process-local blob transport for development and tests.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"tgdrive/internal/blob"
	"tgdrive/internal/domain"
)

// Backend holds the blobs of every Store it hands out.
type Backend struct {
	mu          sync.Mutex
	blobs       map[string][]byte // blobRef -> content
	messages    map[string]string // destination/messageRef -> blobRef
	nextMessage int64
	deletes     []string

	failStore  string
	failDelete bool
	rejected   map[string]bool // tokens and destinations refused at registration
}

// NewBackend creates an empty backend
func NewBackend() *Backend {
	return &Backend{
		blobs:    make(map[string][]byte),
		messages: make(map[string]string),
		rejected: make(map[string]bool),
	}
}

// Factory returns a blob.Factory whose stores share this backend
func (b *Backend) Factory() blob.Factory {
	return func(token string) (blob.Store, error) {
		return &Store{backend: b, token: token}, nil
	}
}

// SetFailStore makes every upload fail with reason (empty disables)
func (b *Backend) SetFailStore(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStore = reason
}

// SetFailDelete makes every delete report failure
func (b *Backend) SetFailDelete(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDelete = fail
}

// Reject makes ValidateCredential or SendProbe fail for a token or destination
func (b *Backend) Reject(value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejected[value] = true
}

func (b *Backend) isRejected(value string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return value == "" || b.rejected[value]
}

// DeleteCalls returns the message refs passed to DeleteBlob, in order
func (b *Backend) DeleteCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deletes...)
}

// Count returns the number of stored blobs
func (b *Backend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// Store is a blob.Store over a Backend
type Store struct {
	backend *Backend
	token   string
}

func messageKey(destination, messageRef string) string {
	return destination + "/" + messageRef
}

func (s *Store) StoreBlob(ctx context.Context, destination string, r io.Reader, name string) (*blob.StoredBlob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.UploadError{Reason: "read content", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.UploadError{Reason: "cancelled", Err: err}
	}

	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failStore != "" {
		return nil, &domain.UploadError{Reason: b.failStore}
	}

	b.nextMessage++
	messageRef := strconv.FormatInt(b.nextMessage, 10)
	blobRef := uuid.NewString()
	b.blobs[blobRef] = data
	b.messages[messageKey(destination, messageRef)] = blobRef

	return &blob.StoredBlob{MessageRef: messageRef, BlobRef: blobRef}, nil
}

func (s *Store) GetBlobLink(_ context.Context, blobRef string) (string, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.blobs[blobRef]; !ok {
		return "", fmt.Errorf("blob %s: %w", blobRef, domain.ErrRemoteUnavailable)
	}
	return "memory://" + blobRef, nil
}

func (s *Store) GetBlobStream(_ context.Context, blobRef string) (io.ReadCloser, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.blobs[blobRef]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", blobRef, domain.ErrRemoteUnavailable)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) DeleteBlob(_ context.Context, destination, messageRef string) bool {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deletes = append(b.deletes, messageRef)
	if b.failDelete {
		return false
	}

	key := messageKey(destination, messageRef)
	blobRef, ok := b.messages[key]
	if !ok {
		return false
	}
	delete(b.messages, key)
	delete(b.blobs, blobRef)
	return true
}

func (s *Store) ValidateCredential(context.Context) bool {
	return !s.backend.isRejected(s.token)
}

func (s *Store) SendProbe(_ context.Context, destination string) bool {
	return !s.backend.isRejected(destination)
}
