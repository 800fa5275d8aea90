// Package memory holds process-local repositories for development and tests.
// They enforce the same uniqueness and reference rules as the PostgreSQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/domain/repositories"
)

// Store is the shared state behind the memory repositories
type Store struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	folders  map[string]models.Folder
	files    map[string]models.File
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]models.Account),
		folders:  make(map[string]models.Folder),
		files:    make(map[string]models.File),
		now:      time.Now,
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// stamp fills zero timestamps the way column defaults do
func (s *Store) stamp(created, updated *time.Time) {
	now := s.now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = now
	}
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneParent(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortFolders(folders []models.Folder) {
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
}

func sortFiles(files []models.File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TransactionManager runs fn directly. Each memory repository call is
// atomic on its own; there is no rollback.
type TransactionManager struct{}

// NewTransactionManager returns the memory transaction manager
func NewTransactionManager() repositories.TransactionManager {
	return TransactionManager{}
}

// ExecTx implements repositories.TransactionManager
func (TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
