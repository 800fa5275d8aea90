package handler

import (
	"log/slog"
	"net/http"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService driveSvc.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService driveSvc.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// ListRoot lists the folders and files at the owner's root
// GET /api/folders
func (h *FolderHandler) ListRoot(w http.ResponseWriter, r *http.Request) {
	contents, err := h.folderService.ListChildren(r.Context(), httputil.GetOwnerID(r), nil)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// ListChildren lists a folder's children with its breadcrumb
// GET /api/folders/{id}
func (h *FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	contents, err := h.folderService.ListChildren(r.Context(), httputil.GetOwnerID(r), &id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// CreateFolder creates a new folder
// POST /api/folders
// Returns 201 if created, 409 with existing folder if a folder holds the name
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID := httputil.GetOwnerID(r)

	var req driveSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.OwnerID = ownerID
	req.ParentID = optionalParent(derefString(req.ParentID))

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(c *domain.ConflictError) (*models.Folder, error) {
			if c.ResourceType != "folder" {
				return nil, err
			}
			return h.folderService.GetFolder(r.Context(), ownerID, c.ResourceID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// UpdateFolder renames and/or moves a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var body updateItemBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := body.toRequest()
	if err != nil {
		handleError(w, err)
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), httputil.GetOwnerID(r), r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder with everything under it
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentials(w, r)
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), httputil.GetOwnerID(r), creds, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPath returns the breadcrumb from the root to the folder
// GET /api/folders/{id}/path
func (h *FolderHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	path, err := h.folderService.ResolveAncestorPath(r.Context(), httputil.GetOwnerID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, path)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
