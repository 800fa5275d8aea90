package account

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgdrive/internal/blob"
	"tgdrive/internal/blob/memstore"
	"tgdrive/internal/credential"
	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/repository/memory"
)

type fixture struct {
	repo     driveRepo.AccountRepository
	backend  *memstore.Backend
	cache    *blob.Cache
	cipher   *credential.Cipher
	service  driveSvc.AccountService
	resolver driveSvc.CredentialResolver
}

func newFixture(t *testing.T, strategy credential.Strategy) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cipher, err := credential.New(strategy, []byte(strings.Repeat("k", credential.KeySize)))
	require.NoError(t, err)

	repo := memory.NewAccountRepository(memory.NewStore())
	backend := memstore.NewBackend()
	cache := blob.NewCache(backend.Factory(), nil, logger)

	return &fixture{
		repo:     repo,
		backend:  backend,
		cache:    cache,
		cipher:   cipher,
		service:  NewAccountService(repo, cache, cipher, Config{Transport: "memory", RemoteTimeout: time.Second}, logger),
		resolver: NewCredentialResolver(repo, cipher, "memory", logger),
	}
}

func validRequest() *driveSvc.RegisterRequest {
	return &driveSvc.RegisterRequest{
		AccountID:   "0b6a8a7e-5f0e-4d57-9a52-7d1c3f1e2a10",
		Email:       " Alice@Example.com ",
		Password:    "correct horse",
		Token:       "123456:ABC-DEF",
		Destination: "-1001234567890",
	}
}

func TestRegisterAndResolve(t *testing.T) {
	for _, strategy := range credential.Strategies() {
		t.Run(string(strategy), func(t *testing.T) {
			f := newFixture(t, strategy)
			ctx := context.Background()

			account, err := f.service.Register(ctx, validRequest())
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", account.Email)
			assert.Equal(t, "memory", account.Transport)

			// stored encrypted, never in the clear
			assert.NotContains(t, account.EncryptedToken, "ABC-DEF")
			assert.Equal(t, strings.Count(account.EncryptedToken, ":"), 2)
			assert.NotEqual(t, "correct horse", account.PasswordHash)

			creds, err := f.resolver.Resolve(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "123456:ABC-DEF", creds.Token)
			assert.Equal(t, "-1001234567890", creds.Destination)
		})
	}
}

func TestRegister_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*driveSvc.RegisterRequest)
		setup   func(*memstore.Backend)
		wantErr error
	}{
		{name: "bad email", mutate: func(r *driveSvc.RegisterRequest) { r.Email = "nope" }, wantErr: domain.ErrValidation},
		{name: "short password", mutate: func(r *driveSvc.RegisterRequest) { r.Password = "short" }, wantErr: domain.ErrValidation},
		{name: "missing token", mutate: func(r *driveSvc.RegisterRequest) { r.Token = " " }, wantErr: domain.ErrValidation},
		{name: "missing destination", mutate: func(r *driveSvc.RegisterRequest) { r.Destination = "" }, wantErr: domain.ErrValidation},
		{name: "token refused", setup: func(b *memstore.Backend) { b.Reject("123456:ABC-DEF") }, wantErr: domain.ErrValidation},
		{name: "destination unreachable", setup: func(b *memstore.Backend) { b.Reject("-1001234567890") }, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, credential.AESGCM)
			req := validRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}
			if tt.setup != nil {
				tt.setup(f.backend)
			}

			_, err := f.service.Register(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = f.repo.GetByEmail(context.Background(), "alice@example.com")
			assert.ErrorIs(t, err, domain.ErrNotFound, "nothing stored")
		})
	}
}

func TestRegister_RejectedTokensNotCached(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		token := fmt.Sprintf("%d:rejected", i)
		f.backend.Reject(token)
		req := validRequest()
		req.Token = token
		_, err := f.service.Register(ctx, req)
		require.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Equal(t, 0, f.cache.Len())

	// unreachable destination with an accepted token
	f.backend.Reject("-100999")
	req := validRequest()
	req.Destination = "-100999"
	_, err := f.service.Register(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, f.cache.Len())

	_, err = f.service.Register(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()

	_, err := f.service.Register(ctx, validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.AccountID = "5d2f1c9e-8a40-4b8e-b6a1-0c7e3d9f4b21"
	req.Email = "ALICE@example.com"
	_, err = f.service.Register(ctx, req)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_SubjectAlreadyRegistered(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()

	account, err := f.service.Register(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "0b6a8a7e-5f0e-4d57-9a52-7d1c3f1e2a10", account.ID)

	req := validRequest()
	req.Email = "other@example.com"
	_, err = f.service.Register(ctx, req)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, account.ID, conflict.ResourceID)
}

func TestRegister_MissingSubject(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	req := validRequest()
	req.AccountID = ""
	_, err := f.service.Register(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()
	account, err := f.service.Register(ctx, validRequest())
	require.NoError(t, err)

	got, err := f.service.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = f.service.GetAccount(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_Corrupted(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()
	account, err := f.service.Register(ctx, validRequest())
	require.NoError(t, err)

	// a resolver holding a different key cannot open the envelopes
	otherCipher, err := credential.New(credential.AESGCM, []byte(strings.Repeat("z", credential.KeySize)))
	require.NoError(t, err)
	other := NewCredentialResolver(f.repo, otherCipher, "memory", slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = other.Resolve(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrCredentialCorrupted)
}

func TestResolve_EmptyCredential(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	ctx := context.Background()

	empty, err := f.cipher.Encrypt("")
	require.NoError(t, err)
	token, err := f.cipher.Encrypt("tok")
	require.NoError(t, err)

	account := &models.Account{Email: "e@example.com", EncryptedToken: token, EncryptedDestination: empty, Transport: "memory"}
	require.NoError(t, f.repo.Create(ctx, account))

	_, err = f.resolver.Resolve(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrCredentialCorrupted)
}

func TestResolve_UnknownAccount(t *testing.T) {
	f := newFixture(t, credential.AESGCM)
	_, err := f.resolver.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
