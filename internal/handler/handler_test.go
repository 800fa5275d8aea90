package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgdrive/internal/auth"
	"tgdrive/internal/blob"
	"tgdrive/internal/blob/memstore"
	"tgdrive/internal/credential"
	"tgdrive/internal/events"
	"tgdrive/internal/middleware"
	"tgdrive/internal/repository/memory"
	accountSvc "tgdrive/internal/service/account"
	driveService "tgdrive/internal/service/drive"
)

const (
	alice = "0b6a8a7e-5f0e-4d57-9a52-7d1c3f1e2a10"
	bob   = "5d2f1c9e-8a40-4b8e-b6a1-0c7e3d9f4b21"
)

var jwtSecret = []byte(strings.Repeat("s", 32))

type server struct {
	handler http.Handler
	backend *memstore.Backend
}

func newServer(t *testing.T, maxUpload int64) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	fileRepo := memory.NewFileRepository(store)
	accountRepo := memory.NewAccountRepository(store)
	tx := memory.NewTransactionManager()

	backend := memstore.NewBackend()
	cache := blob.NewCache(backend.Factory(), nil, logger)
	bus := events.NewBus(logger)

	cipher, err := credential.New(credential.AESGCM, []byte(strings.Repeat("k", credential.KeySize)))
	require.NoError(t, err)
	verifier, err := auth.NewHMACVerifier(jwtSecret, logger)
	require.NoError(t, err)

	hierarchy := driveService.NewHierarchyStore(folderRepo, fileRepo, logger)
	folders := driveService.NewFolderService(driveService.FolderServiceDeps{
		FolderRepo: folderRepo,
		FileRepo:   fileRepo,
		Hierarchy:  hierarchy,
		Moves:      driveService.NewMoveValidator(folderRepo, logger),
		TxManager:  tx,
		Blobs:      cache,
		Bus:        bus,
		Logger:     logger,
	})
	files := driveService.NewFileService(driveService.FileServiceDeps{
		FileRepo:       fileRepo,
		Hierarchy:      hierarchy,
		TxManager:      tx,
		Blobs:          cache,
		Bus:            bus,
		Logger:         logger,
		MaxUploadBytes: maxUpload,
	})
	accounts := accountSvc.NewAccountService(accountRepo, cache, cipher, accountSvc.Config{Transport: "memory"}, logger)
	resolver := accountSvc.NewCredentialResolver(accountRepo, cipher, "memory", logger)

	mux := NewRouter(Routes{
		Accounts:     NewAccountHandler(accounts, logger),
		Folders:      NewFolderHandler(folders, logger),
		Files:        NewFileHandler(files, maxUpload, logger),
		Tree:         NewTreeHandler(driveService.NewTreeService(folderRepo, logger), logger),
		Health:       NewHealthHandler(nil, logger),
		Authenticate: middleware.Auth(verifier, logger),
		Resolve:      middleware.Credentials(resolver, logger),
	})

	return &server{handler: middleware.Recovery(logger)(mux), backend: backend}
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwtSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *server) do(t *testing.T, subject, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	if subject != "" {
		r.Header.Set("Authorization", bearer(t, subject))
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func (s *server) register(t *testing.T, subject, email string) {
	t.Helper()
	w := s.do(t, subject, http.MethodPost, "/api/accounts", map[string]string{
		"email":     email,
		"password":  "correct horse",
		"bot_token": "123456:" + subject,
		"chat_id":   "-100" + email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *server) upload(t *testing.T, subject, parentID, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if parentID != "" {
		require.NoError(t, mw.WriteField("parent_folder_id", parentID))
	}
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Authorization", bearer(t, subject))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_folder_id"`
	Size     int64   `json:"size"`
	MimeType string  `json:"mime_type"`
}

func (s *server) mkdir(t *testing.T, subject, name, parentID string) item {
	t.Helper()
	body := map[string]interface{}{"name": name}
	if parentID != "" {
		body["parent_folder_id"] = parentID
	}
	w := s.do(t, subject, http.MethodPost, "/api/folders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[item](t, w)
}

func TestAccountRoutes(t *testing.T) {
	s := newServer(t, 0)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "", http.MethodGet, "/api/accounts/me", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, alice, http.MethodGet, "/api/accounts/me", nil).Code)

	s.register(t, alice, "alice@example.com")

	w := s.do(t, alice, http.MethodGet, "/api/accounts/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
	assert.NotContains(t, w.Body.String(), "encrypted")
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, alice, http.MethodPost, "/api/accounts", map[string]string{
		"email": "alice2@example.com", "password": "correct horse", "bot_token": "t", "chat_id": "c",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	s.backend.Reject("123456:" + bob)
	w = s.do(t, bob, http.MethodPost, "/api/accounts", map[string]string{
		"email": "bob@example.com", "password": "correct horse", "bot_token": "123456:" + bob, "chat_id": "c",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDriveRoutes_RequireAccount(t *testing.T) {
	s := newServer(t, 0)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "", http.MethodGet, "/api/folders", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, alice, http.MethodGet, "/api/folders", nil).Code)

	s.register(t, alice, "alice@example.com")
	assert.Equal(t, http.StatusOK, s.do(t, alice, http.MethodGet, "/api/folders", nil).Code)
}

func TestFolderRoutes(t *testing.T) {
	s := newServer(t, 0)
	s.register(t, alice, "alice@example.com")

	a := s.mkdir(t, alice, "A", "")
	b := s.mkdir(t, alice, "B", a.ID)

	// duplicate folder returns the existing one
	w := s.do(t, alice, http.MethodPost, "/api/folders", map[string]string{"name": "A"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, a.ID, decode[item](t, w).ID)

	// cycle
	w = s.do(t, alice, http.MethodPatch, "/api/folders/"+a.ID, map[string]string{"parent_folder_id": b.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// breadcrumb
	w = s.do(t, alice, http.MethodGet, "/api/folders/"+b.ID+"/path", nil)
	require.Equal(t, http.StatusOK, w.Code)
	path := decode[[]item](t, w)
	require.Len(t, path, 2)
	assert.Equal(t, "A", path[0].Name)
	assert.Equal(t, "B", path[1].Name)

	// listing
	w = s.do(t, alice, http.MethodGet, "/api/folders/"+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[struct {
		Folders []item `json:"folders"`
		Path    []item `json:"path"`
	}](t, w)
	require.Len(t, listing.Folders, 1)
	assert.Equal(t, b.ID, listing.Folders[0].ID)
	assert.Len(t, listing.Path, 1)

	// rename, then move to root with an explicit null
	w = s.do(t, alice, http.MethodPatch, "/api/folders/"+b.ID, map[string]string{"name": "B2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "B2", decode[item](t, w).Name)

	w = s.do(t, alice, http.MethodPatch, "/api/folders/"+b.ID, `{"parent_folder_id": null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[item](t, w).ParentID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, alice, http.MethodPatch, "/api/folders/"+b.ID, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, alice, http.MethodPost, "/api/folders", map[string]string{"name": "a/b"}).Code)

	// tree
	w = s.do(t, alice, http.MethodGet, "/api/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]item](t, w), 2)
}

func TestOwnershipIsolation(t *testing.T) {
	s := newServer(t, 0)
	s.register(t, alice, "alice@example.com")
	s.register(t, bob, "bob@example.com")

	a := s.mkdir(t, alice, "A", "")
	f := decode[item](t, s.upload(t, alice, "", "x.txt", "hello"))

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/folders/" + a.ID},
		{http.MethodGet, "/api/folders/" + a.ID + "/path"},
		{http.MethodDelete, "/api/folders/" + a.ID},
		{http.MethodGet, "/api/files/" + f.ID},
		{http.MethodGet, "/api/files/" + f.ID + "/content"},
		{http.MethodDelete, "/api/files/" + f.ID},
	} {
		assert.Equal(t, http.StatusNotFound, s.do(t, bob, req.method, req.path, nil).Code, req.path)
	}

	w := s.do(t, bob, http.MethodPost, "/api/folders", map[string]string{"name": "mine", "parent_folder_id": a.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusOK, s.do(t, alice, http.MethodGet, "/api/files/"+f.ID, nil).Code)
}

func TestFileRoutes(t *testing.T) {
	s := newServer(t, 0)
	s.register(t, alice, "alice@example.com")
	a := s.mkdir(t, alice, "A", "")

	w := s.upload(t, alice, a.ID, "doc.txt", "0123456789")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "remote")
	doc := decode[item](t, w)
	assert.EqualValues(t, 10, doc.Size)
	assert.True(t, strings.HasPrefix(doc.MimeType, "text/plain"))
	require.NotNil(t, doc.ParentID)
	assert.Equal(t, a.ID, *doc.ParentID)

	// a folder cannot take the file's name
	w = s.do(t, alice, http.MethodPost, "/api/folders", map[string]string{"name": "doc.txt", "parent_folder_id": a.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), doc.ID)

	w = s.do(t, alice, http.MethodGet, "/api/files/"+doc.ID+"/link", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory://")

	w = s.do(t, alice, http.MethodGet, "/api/files/"+doc.ID+"/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=doc.txt`)

	w = s.do(t, alice, http.MethodPatch, "/api/files/"+doc.ID, `{"name": "notes.txt", "parent_folder_id": null}`)
	require.Equal(t, http.StatusOK, w.Code)
	moved := decode[item](t, w)
	assert.Equal(t, "notes.txt", moved.Name)
	assert.Nil(t, moved.ParentID)

	require.Equal(t, http.StatusNoContent, s.do(t, alice, http.MethodDelete, "/api/files/"+doc.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, alice, http.MethodGet, "/api/files/"+doc.ID, nil).Code)
	assert.Len(t, s.backend.DeleteCalls(), 1)
}

func TestDeleteFolder_Cascades(t *testing.T) {
	s := newServer(t, 0)
	s.register(t, alice, "alice@example.com")
	a := s.mkdir(t, alice, "A", "")
	b := s.mkdir(t, alice, "B", a.ID)
	require.Equal(t, http.StatusCreated, s.upload(t, alice, a.ID, "one.bin", "1").Code)
	require.Equal(t, http.StatusCreated, s.upload(t, alice, b.ID, "two.bin", "2").Code)

	require.Equal(t, http.StatusNoContent, s.do(t, alice, http.MethodDelete, "/api/folders/"+a.ID, nil).Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, alice, http.MethodGet, "/api/folders/"+b.ID, nil).Code)
	assert.Len(t, s.backend.DeleteCalls(), 2)

	w := s.do(t, alice, http.MethodGet, "/api/tree", nil)
	assert.Len(t, decode[[]item](t, w), 0)
}

func TestUpload_Failures(t *testing.T) {
	s := newServer(t, 16)
	s.register(t, alice, "alice@example.com")

	w := s.upload(t, alice, "", "big.bin", strings.Repeat("x", 100))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, alice, "", "", "abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, alice, "7f6e2d9c-0000-4000-8000-000000000000", "x.txt", "abc")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.backend.SetFailStore("chat not found")
	w = s.upload(t, alice, "", "x.txt", "abc")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "chat not found")

	r := httptest.NewRequest(http.MethodPost, "/api/files", strings.NewReader("plain"))
	r.Header.Set("Authorization", bearer(t, alice))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t, 0)
	w := s.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
