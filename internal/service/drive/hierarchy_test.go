package drive

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
)

func TestResolveAncestorPath_Depth(t *testing.T) {
	h := newHarness(t)

	// k = 4 levels below the first folder
	var parent *models.Folder
	var chain []*models.Folder
	for i := 0; i <= 4; i++ {
		parent = h.mkdir(t, "u1", fmt.Sprintf("level-%d", i), parent)
		chain = append(chain, parent)
	}

	path, err := h.hierarchy.ResolveAncestorPath(context.Background(), "u1", parent.ID)
	require.NoError(t, err)
	require.Len(t, path, 5)
	for i, entry := range path {
		assert.Equal(t, chain[i].ID, entry.ID)
		assert.Equal(t, chain[i].Name, entry.Name)
	}
}

func TestResolveAncestorPath_RootFolder(t *testing.T) {
	h := newHarness(t)
	a := h.mkdir(t, "u1", "A", nil)

	path, err := h.hierarchy.ResolveAncestorPath(context.Background(), "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "A"}}, path)
}

func TestResolveAncestorPath_NotFound(t *testing.T) {
	h := newHarness(t)
	a := h.mkdir(t, "u1", "A", nil)

	_, err := h.hierarchy.ResolveAncestorPath(context.Background(), "u2", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrBrokenChain)
}

// fakeFolders serves a fixed, possibly corrupted, parent relation
type fakeFolders struct {
	driveRepo.FolderRepository
	rows map[string]models.Folder
}

func (f *fakeFolders) GetByID(_ context.Context, id, ownerID string) (*models.Folder, error) {
	row, ok := f.rows[id]
	if !ok || row.OwnerID != ownerID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return &row, nil
}

func (f *fakeFolders) CountByOwner(_ context.Context, ownerID string) (int, error) {
	n := 0
	for _, row := range f.rows {
		if row.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func TestResolveAncestorPath_BrokenChain(t *testing.T) {
	tests := []struct {
		name string
		rows map[string]models.Folder
	}{
		{
			name: "dangling parent",
			rows: map[string]models.Folder{
				"c": {ID: "c", OwnerID: "u1", Name: "c", ParentID: ptr("gone")},
			},
		},
		{
			name: "cycle",
			rows: map[string]models.Folder{
				"a": {ID: "a", OwnerID: "u1", Name: "a", ParentID: ptr("b")},
				"b": {ID: "b", OwnerID: "u1", Name: "b", ParentID: ptr("c")},
				"c": {ID: "c", OwnerID: "u1", Name: "c", ParentID: ptr("a")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folders := &fakeFolders{rows: tt.rows}
			store := NewHierarchyStore(folders, nil, discardLogger())

			_, err := store.ResolveAncestorPath(context.Background(), "u1", "c")
			assert.ErrorIs(t, err, domain.ErrBrokenChain)

			mv := NewMoveValidator(folders, discardLogger())
			err = mv.ValidateMove(context.Background(), "u1", "x", ptr("c"))
			assert.ErrorIs(t, err, domain.ErrBrokenChain)
		})
	}
}

func TestFindNameCollision_AcrossKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	folder := h.mkdir(t, "u1", "shared", nil)
	file := h.upload(t, "u1", "notes.txt", nil, "hi")

	c, err := h.hierarchy.FindNameCollision(ctx, "u1", nil, "shared", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, models.NameCollision{Kind: "folder", ID: folder.ID}, *c)

	c, err = h.hierarchy.FindNameCollision(ctx, "u1", nil, "notes.txt", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, models.NameCollision{Kind: "file", ID: file.ID}, *c)

	// the item itself is not a collision
	c, err = h.hierarchy.FindNameCollision(ctx, "u1", nil, "notes.txt", file.ID)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = h.hierarchy.FindNameCollision(ctx, "u2", nil, "shared", "")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRequireFolder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.mkdir(t, "u1", "A", nil)

	assert.NoError(t, h.hierarchy.RequireFolder(ctx, "u1", nil))
	assert.NoError(t, h.hierarchy.RequireFolder(ctx, "u1", &a.ID))
	assert.ErrorIs(t, h.hierarchy.RequireFolder(ctx, "u2", &a.ID), domain.ErrNotFound)
}
