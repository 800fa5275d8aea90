package drive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	"tgdrive/internal/events"
)

func TestDeleteFolder_RemovesWholeSubtree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// 1 root + 3 children + 6 grandchildren = 10 folders, 2 files in each
	root := h.mkdir(t, "u1", "root", nil)
	all := []*models.Folder{root}
	for i := 0; i < 3; i++ {
		child := h.mkdir(t, "u1", fmt.Sprintf("c%d", i), root)
		all = append(all, child)
		for j := 0; j < 2; j++ {
			all = append(all, h.mkdir(t, "u1", fmt.Sprintf("g%d", j), child))
		}
	}
	var files []*models.File
	for _, f := range all {
		for k := 0; k < 2; k++ {
			files = append(files, h.upload(t, "u1", fmt.Sprintf("f%d.txt", k), f, "data"))
		}
	}
	keep := h.mkdir(t, "u1", "keep", nil)

	require.NoError(t, h.folders.DeleteFolder(ctx, "u1", testCreds, root.ID))

	for _, f := range all {
		_, err := h.folders.GetFolder(ctx, "u1", f.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	for _, f := range files {
		_, err := h.files.GetFile(ctx, "u1", f.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	assert.Len(t, h.backend.DeleteCalls(), len(files))
	assert.Zero(t, h.backend.Count())
	assert.Equal(t, len(all), h.log.count(events.FolderDeleted))
	assert.Equal(t, len(files), h.log.count(events.FileDeleted))

	_, err := h.folders.GetFolder(ctx, "u1", keep.ID)
	assert.NoError(t, err)
}

func TestDeleteFolder_RemoteFailuresDoNotBlock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.mkdir(t, "u1", "A", nil)
	h.upload(t, "u1", "x.txt", a, "x")
	h.backend.SetFailDelete(true)

	require.NoError(t, h.folders.DeleteFolder(ctx, "u1", testCreds, a.ID))

	_, err := h.folders.GetFolder(ctx, "u1", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFolder_PartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// root { bad { stuck.txt }, good { fine.txt }, top.txt }
	root := h.mkdir(t, "u1", "root", nil)
	bad := h.mkdir(t, "u1", "bad", root)
	good := h.mkdir(t, "u1", "good", root)
	stuck := h.upload(t, "u1", "stuck.txt", bad, "x")
	fine := h.upload(t, "u1", "fine.txt", good, "x")
	top := h.upload(t, "u1", "top.txt", root, "x")
	h.fileRepo.failDelete[stuck.ID] = true

	err := h.folders.DeleteFolder(ctx, "u1", testCreds, root.ID)
	require.ErrorIs(t, err, domain.ErrPartialDelete)

	var partial *domain.PartialDeleteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, root.ID, partial.FolderID)

	byID := map[string]domain.DeleteFailure{}
	for _, f := range partial.Failures {
		byID[f.ID] = f
	}
	require.Len(t, byID, 3)
	assert.Equal(t, "file", byID[stuck.ID].Kind)
	assert.Equal(t, "folder", byID[bad.ID].Kind)
	assert.ErrorIs(t, byID[bad.ID].Err, errBlocked)
	assert.ErrorIs(t, byID[root.ID].Err, errBlocked)

	// everything not on the failing path is gone
	_, err = h.folders.GetFolder(ctx, "u1", good.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.files.GetFile(ctx, "u1", fine.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.files.GetFile(ctx, "u1", top.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the failing path survives intact
	_, err = h.files.GetFile(ctx, "u1", stuck.ID)
	assert.NoError(t, err)
	path, err := h.folders.ResolveAncestorPath(ctx, "u1", bad.ID)
	require.NoError(t, err)
	assert.Len(t, path, 2)

	// a retry after the fault clears finishes the job
	delete(h.fileRepo.failDelete, stuck.ID)
	require.NoError(t, h.folders.DeleteFolder(ctx, "u1", testCreds, root.ID))
	_, err = h.folders.GetFolder(ctx, "u1", root.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFolder_NotFound(t *testing.T) {
	h := newHarness(t)
	err := h.folders.DeleteFolder(context.Background(), "u1", testCreds, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
