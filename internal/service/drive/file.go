package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"tgdrive/internal/blob"
	"tgdrive/internal/config"
	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/domain/repositories"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/events"
)

// sniffBytes is how much of an upload is read to detect its type
const sniffBytes = 3072

const genericMimeType = "application/octet-stream"

type fileService struct {
	fileRepo       driveRepo.FileRepository
	hierarchy      driveSvc.HierarchyStore
	txManager      repositories.TransactionManager
	remote         *remote
	deleter        *fileDeleter
	bus            Publisher
	maxUploadBytes int64
	logger         *slog.Logger
}

// FileServiceDeps groups the collaborators of the file service
type FileServiceDeps struct {
	FileRepo  driveRepo.FileRepository
	Hierarchy driveSvc.HierarchyStore
	TxManager repositories.TransactionManager
	Blobs     blob.Provider
	Bus       Publisher
	Logger    *slog.Logger

	RemoteTimeout  time.Duration
	MaxUploadBytes int64 // 0 = config.MaxUploadBytes
}

// NewFileService creates a new file service
func NewFileService(deps FileServiceDeps) driveSvc.FileService {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = config.MaxUploadBytes
	}
	r := newRemote(deps.Blobs, deps.RemoteTimeout)
	return &fileService{
		fileRepo:  deps.FileRepo,
		hierarchy: deps.Hierarchy,
		txManager: deps.TxManager,
		remote:    r,
		deleter: &fileDeleter{
			fileRepo: deps.FileRepo,
			remote:   r,
			bus:      deps.Bus,
			logger:   deps.Logger,
		},
		bus:            deps.Bus,
		maxUploadBytes: maxBytes,
		logger:         deps.Logger,
	}
}

// UploadFile stores the content remotely and records the metadata row only
// after the transport confirmed it. If the row cannot be written, the stored
// blob is deleted again.
func (s *fileService) UploadFile(ctx context.Context, req *driveSvc.UploadFileRequest) (*models.File, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", domain.ErrValidation)
	}
	parentID := normalizeParent(req.ParentID)

	// Fail fast before spending an upload on a doomed write
	if err := s.checkDestination(ctx, req.OwnerID, parentID, name, ""); err != nil {
		return nil, err
	}

	mimeType, body, err := detectMimeType(req.MimeType, req.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	store, err := s.remote.store(req.Credentials)
	if err != nil {
		return nil, err
	}

	guard := &sizeGuard{r: body, limit: s.maxUploadBytes}
	rctx, cancel := s.remote.withTimeout(ctx)
	stored, err := store.StoreBlob(rctx, req.Credentials.Destination, guard, name)
	cancel()
	if guard.exceeded {
		if err == nil {
			s.compensate(ctx, store, req.Credentials, stored.MessageRef)
		}
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, s.maxUploadBytes)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrUploadFailed) {
			err = &domain.UploadError{Reason: "transport error", Err: err}
		}
		s.logger.Error("upload failed", "name", name, "owner_id", req.OwnerID, "error", err)
		return nil, err
	}
	if stored == nil || stored.MessageRef == "" {
		return nil, &domain.UploadError{Reason: "remote returned no message handle"}
	}

	now := time.Now().UTC()
	file := &models.File{
		OwnerID:          req.OwnerID,
		ParentID:         parentID,
		Name:             name,
		Size:             guard.n,
		MimeType:         mimeType,
		RemoteMessageRef: stored.MessageRef,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if stored.BlobRef != "" {
		ref := stored.BlobRef
		file.RemoteBlobRef = &ref
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.checkDestination(ctx, req.OwnerID, parentID, name, ""); err != nil {
			return err
		}
		return s.fileRepo.Create(ctx, file)
	})
	if err != nil {
		s.compensate(ctx, store, req.Credentials, stored.MessageRef)
		return nil, err
	}

	s.bus.Publish(ctx, events.Event{
		Kind:     events.FileUploaded,
		OwnerID:  file.OwnerID,
		ItemID:   file.ID,
		Name:     file.Name,
		ParentID: file.ParentID,
		Size:     file.Size,
	})

	s.logger.Info("file uploaded",
		"id", file.ID,
		"name", file.Name,
		"owner_id", file.OwnerID,
		"size", file.Size,
		"mime_type", file.MimeType,
	)

	return file, nil
}

// compensate removes a blob whose metadata row was never written
func (s *fileService) compensate(ctx context.Context, store blob.Store, creds models.Credentials, messageRef string) {
	rctx, cancel := s.remote.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if !store.DeleteBlob(rctx, creds.Destination, messageRef) {
		s.logger.Warn("orphaned remote blob after failed metadata write", "message_ref", messageRef)
	}
}

// checkDestination requires an owned parent and a free name in it
func (s *fileService) checkDestination(ctx context.Context, ownerID string, parentID *string, name, excludeID string) error {
	if err := s.hierarchy.RequireFolder(ctx, ownerID, parentID); err != nil {
		return err
	}
	c, err := s.hierarchy.FindNameCollision(ctx, ownerID, parentID, name, excludeID)
	if err != nil {
		return err
	}
	if c != nil {
		return conflictError(name, c)
	}
	return nil
}

// GetFile retrieves a file owned by ownerID
func (s *fileService) GetFile(ctx context.Context, ownerID, id string) (*models.File, error) {
	return s.fileRepo.GetByID(ctx, id, ownerID)
}

// RenameFile renames a file within its folder
func (s *fileService) RenameFile(ctx context.Context, ownerID, id, name string) (*models.File, error) {
	return s.UpdateFile(ctx, ownerID, id, &driveSvc.UpdateItemRequest{Name: &name})
}

// MoveFile moves a file to another owned folder (nil = root)
func (s *fileService) MoveFile(ctx context.Context, ownerID, id string, newParentID *string) (*models.File, error) {
	return s.UpdateFile(ctx, ownerID, id, &driveSvc.UpdateItemRequest{Move: true, ParentID: newParentID})
}

// UpdateFile applies a rename and/or a move. Files are leaves, so no cycle check.
func (s *fileService) UpdateFile(ctx context.Context, ownerID, id string, req *driveSvc.UpdateItemRequest) (*models.File, error) {
	var (
		file      *models.File
		oldName   string
		oldParent *string
	)

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		file, err = s.fileRepo.GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		oldName, oldParent = file.Name, file.ParentID

		if req.Name != nil {
			if file.Name, err = normalizeName(*req.Name); err != nil {
				return err
			}
		}
		if req.Move {
			file.ParentID = normalizeParent(req.ParentID)
		}

		if file.Name == oldName && sameParent(file.ParentID, oldParent) {
			return nil
		}

		if err := s.checkDestination(ctx, ownerID, file.ParentID, file.Name, file.ID); err != nil {
			return err
		}

		file.UpdatedAt = time.Now().UTC()
		return s.fileRepo.Update(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if file.Name != oldName {
		s.bus.Publish(ctx, events.Event{
			Kind:     events.FileRenamed,
			OwnerID:  ownerID,
			ItemID:   file.ID,
			Name:     file.Name,
			ParentID: file.ParentID,
			OldName:  oldName,
		})
	}
	if !sameParent(file.ParentID, oldParent) {
		s.bus.Publish(ctx, events.Event{
			Kind:      events.FileMoved,
			OwnerID:   ownerID,
			ItemID:    file.ID,
			Name:      file.Name,
			ParentID:  file.ParentID,
			OldParent: oldParent,
		})
	}

	s.logger.Info("file updated",
		"id", file.ID,
		"name", file.Name,
		"owner_id", ownerID,
		"parent_folder_id", file.ParentID,
	)

	return file, nil
}

// DeleteFile removes the remote blob (best-effort) and the metadata row
func (s *fileService) DeleteFile(ctx context.Context, ownerID string, creds models.Credentials, id string) error {
	file, err := s.fileRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}
	return s.deleter.delete(ctx, creds, file)
}

// GetDownloadLink returns a transient URL for the file content
func (s *fileService) GetDownloadLink(ctx context.Context, ownerID string, creds models.Credentials, id string) (*models.DownloadLink, error) {
	file, ref, store, err := s.openable(ctx, ownerID, creds, id)
	if err != nil {
		return nil, err
	}

	rctx, cancel := s.remote.withTimeout(ctx)
	defer cancel()
	url, err := store.GetBlobLink(rctx, ref)
	if err != nil {
		s.logger.Warn("get blob link failed", "id", file.ID, "owner_id", ownerID, "error", err)
		return nil, err
	}

	s.publishDownload(ctx, file)
	return &models.DownloadLink{File: file, URL: url}, nil
}

// OpenContent opens the file content for proxying; the deadline ends when Body is closed
func (s *fileService) OpenContent(ctx context.Context, ownerID string, creds models.Credentials, id string) (*driveSvc.FileContent, error) {
	file, ref, store, err := s.openable(ctx, ownerID, creds, id)
	if err != nil {
		return nil, err
	}

	rctx, cancel := s.remote.withTimeout(ctx)
	body, err := store.GetBlobStream(rctx, ref)
	if err != nil {
		cancel()
		s.logger.Warn("open blob stream failed", "id", file.ID, "owner_id", ownerID, "error", err)
		return nil, err
	}

	s.publishDownload(ctx, file)
	return &driveSvc.FileContent{File: file, Body: &cancelOnClose{ReadCloser: body, cancel: cancel}}, nil
}

// openable loads a file whose content can be fetched
func (s *fileService) openable(ctx context.Context, ownerID string, creds models.Credentials, id string) (*models.File, string, blob.Store, error) {
	file, err := s.fileRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, "", nil, err
	}

	ref, ok := file.BlobRef()
	if !ok {
		s.logger.Error("file has no blob reference", "id", file.ID, "owner_id", ownerID, "message_ref", file.RemoteMessageRef)
		return nil, "", nil, fmt.Errorf("file %s: %w", file.ID, domain.ErrBlobRefMissing)
	}

	store, err := s.remote.store(creds)
	if err != nil {
		return nil, "", nil, err
	}
	return file, ref, store, nil
}

func (s *fileService) publishDownload(ctx context.Context, file *models.File) {
	s.bus.Publish(ctx, events.Event{
		Kind:     events.FileDownloaded,
		OwnerID:  file.OwnerID,
		ItemID:   file.ID,
		Name:     file.Name,
		ParentID: file.ParentID,
		Size:     file.Size,
	})
}

// detectMimeType keeps a specific client-supplied type and otherwise sniffs
// the leading bytes. The returned reader yields the full content.
func detectMimeType(supplied string, r io.Reader) (string, io.Reader, error) {
	if supplied != "" && supplied != genericMimeType {
		return supplied, r, nil
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// sizeGuard counts bytes and fails the read once limit is passed
type sizeGuard struct {
	r        io.Reader
	limit    int64
	n        int64
	exceeded bool
}

var errTooLarge = errors.New("upload exceeds size limit")

func (g *sizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.n += int64(n)
	if g.n > g.limit {
		g.exceeded = true
		return n, errTooLarge
	}
	return n, err
}
