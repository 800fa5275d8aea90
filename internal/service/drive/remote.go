package drive

import (
	"context"
	"io"
	"log/slog"
	"time"

	"tgdrive/internal/blob"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	"tgdrive/internal/events"
)

// Publisher receives mutation events
type Publisher interface {
	Publish(ctx context.Context, evt events.Event)
}

// remote resolves the cached adapter for a request's credentials and bounds
// every transport call with a deadline
type remote struct {
	blobs   blob.Provider
	timeout time.Duration
}

func newRemote(blobs blob.Provider, timeout time.Duration) *remote {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &remote{blobs: blobs, timeout: timeout}
}

func (r *remote) store(creds models.Credentials) (blob.Store, error) {
	return r.blobs.Get(creds.Token)
}

func (r *remote) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// cancelOnClose releases a stream's deadline when the caller closes it
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// fileDeleter removes one file: remote blob first (best-effort), then the row.
// Shared by single-file delete and the folder cascade.
type fileDeleter struct {
	fileRepo driveRepo.FileRepository
	remote   *remote
	bus      Publisher
	logger   *slog.Logger
}

func (d *fileDeleter) delete(ctx context.Context, creds models.Credentials, file *models.File) error {
	store, err := d.remote.store(creds)
	if err != nil {
		return err
	}

	rctx, cancel := d.remote.withTimeout(ctx)
	removed := store.DeleteBlob(rctx, creds.Destination, file.RemoteMessageRef)
	cancel()
	if !removed {
		// Content without metadata is visible to the remote owner; metadata
		// without content is not. Drop the row either way.
		d.logger.Warn("remote delete failed, removing metadata anyway",
			"id", file.ID,
			"owner_id", file.OwnerID,
			"message_ref", file.RemoteMessageRef,
		)
	}

	if err := d.fileRepo.Delete(ctx, file.ID, file.OwnerID); err != nil {
		return err
	}

	d.bus.Publish(ctx, events.Event{
		Kind:     events.FileDeleted,
		OwnerID:  file.OwnerID,
		ItemID:   file.ID,
		Name:     file.Name,
		ParentID: file.ParentID,
		Size:     file.Size,
	})

	d.logger.Info("file deleted",
		"id", file.ID,
		"name", file.Name,
		"owner_id", file.OwnerID,
		"remote_removed", removed,
	)
	return nil
}
