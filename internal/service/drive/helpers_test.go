package drive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tgdrive/internal/blob"
	"tgdrive/internal/blob/memstore"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/events"
	"tgdrive/internal/repository/memory"
)

var testCreds = models.Credentials{Token: "bot-token", Destination: "chat-1"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyFiles injects metadata failures into a file repository
type flakyFiles struct {
	driveRepo.FileRepository
	mu         sync.Mutex
	failDelete map[string]bool
	failCreate bool
}

func (f *flakyFiles) Create(ctx context.Context, file *models.File) error {
	f.mu.Lock()
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return errors.New("metadata store unavailable")
	}
	return f.FileRepository.Create(ctx, file)
}

func (f *flakyFiles) Delete(ctx context.Context, id, ownerID string) error {
	f.mu.Lock()
	fail := f.failDelete[id]
	f.mu.Unlock()
	if fail {
		return errors.New("metadata store unavailable")
	}
	return f.FileRepository.Delete(ctx, id, ownerID)
}

// eventLog records every published event
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, evt events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	return nil
}

func (l *eventLog) count(kind events.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) last(kind events.Kind) (events.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return events.Event{}, false
}

type harness struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   *flakyFiles
	backend    *memstore.Backend
	log        *eventLog

	hierarchy driveSvc.HierarchyStore
	moves     driveSvc.MoveValidator
	folders   driveSvc.FolderService
	files     driveSvc.FileService
	tree      driveSvc.TreeService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithLimit(t, 0)
}

func newHarnessWithLimit(t *testing.T, maxUpload int64) *harness {
	t.Helper()
	logger := discardLogger()

	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	fileRepo := &flakyFiles{FileRepository: memory.NewFileRepository(store), failDelete: map[string]bool{}}
	tx := memory.NewTransactionManager()

	backend := memstore.NewBackend()
	cache := blob.NewCache(backend.Factory(), nil, logger)

	bus := events.NewBus(logger)
	log := &eventLog{}
	bus.SubscribeAll(log.handle)

	hierarchy := NewHierarchyStore(folderRepo, fileRepo, logger)
	moves := NewMoveValidator(folderRepo, logger)

	return &harness{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		backend:    backend,
		log:        log,
		hierarchy:  hierarchy,
		moves:      moves,
		folders: NewFolderService(FolderServiceDeps{
			FolderRepo: folderRepo,
			FileRepo:   fileRepo,
			Hierarchy:  hierarchy,
			Moves:      moves,
			TxManager:  tx,
			Blobs:      cache,
			Bus:        bus,
			Logger:     logger,
		}),
		files: NewFileService(FileServiceDeps{
			FileRepo:       fileRepo,
			Hierarchy:      hierarchy,
			TxManager:      tx,
			Blobs:          cache,
			Bus:            bus,
			Logger:         logger,
			MaxUploadBytes: maxUpload,
		}),
		tree: NewTreeService(folderRepo, logger),
	}
}

func (h *harness) mkdir(t *testing.T, owner, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	req := &driveSvc.CreateFolderRequest{OwnerID: owner, Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	folder, err := h.folders.CreateFolder(context.Background(), req)
	require.NoError(t, err)
	return folder
}

func (h *harness) upload(t *testing.T, owner, name string, parent *models.Folder, content string) *models.File {
	t.Helper()
	file, err := h.files.UploadFile(context.Background(), h.uploadReq(owner, name, parent, content))
	require.NoError(t, err)
	return file
}

func (h *harness) uploadReq(owner, name string, parent *models.Folder, content string) *driveSvc.UploadFileRequest {
	req := &driveSvc.UploadFileRequest{
		OwnerID:     owner,
		Credentials: testCreds,
		Name:        name,
		MimeType:    "text/plain",
		Content:     strings.NewReader(content),
	}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	return req
}

func ptr(s string) *string { return &s }
