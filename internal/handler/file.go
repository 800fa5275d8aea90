package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"tgdrive/internal/domain"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/httputil"
)

// multipartOverhead is allowed on top of the upload limit for boundaries and form fields
const multipartOverhead = 1 << 20

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService    driveSvc.FileService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService driveSvc.FileService, maxUploadBytes int64, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService:    fileService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadFile streams a multipart upload to remote storage
// POST /api/files
// The "file" part is streamed, so a parent_folder_id form field must precede it.
// The parent may also be given as a query parameter.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentials(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	reader, err := r.MultipartReader()
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	parentID := r.URL.Query().Get("parent_folder_id")
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			httputil.RespondError(w, http.StatusBadRequest, "missing file part")
			return
		}
		if err != nil {
			handleError(w, fmt.Errorf("%w: malformed multipart body: %w", domain.ErrValidation, err))
			return
		}

		switch part.FormName() {
		case "parent_folder_id":
			value, err := io.ReadAll(io.LimitReader(part, 64))
			if err != nil {
				handleError(w, fmt.Errorf("%w: %w", domain.ErrValidation, err))
				return
			}
			parentID = string(value)
		case "file":
			file, err := h.fileService.UploadFile(r.Context(), &driveSvc.UploadFileRequest{
				OwnerID:     httputil.GetOwnerID(r),
				Credentials: creds,
				ParentID:    optionalParent(parentID),
				Name:        part.FileName(),
				MimeType:    part.Header.Get("Content-Type"),
				Content:     part,
			})
			if err != nil {
				handleError(w, err)
				return
			}
			httputil.RespondJSON(w, http.StatusCreated, file)
			return
		}
		part.Close()
	}
}

// GetFile returns file metadata
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.fileService.GetFile(r.Context(), httputil.GetOwnerID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// UpdateFile renames and/or moves a file
// PATCH /api/files/{id}
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.fileService.UpdateFile(r.Context(), httputil.GetOwnerID(r), r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile removes the remote content and the metadata
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentials(w, r)
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), httputil.GetOwnerID(r), creds, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLink returns a transient download URL
// GET /api/files/{id}/link
func (h *FileHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentials(w, r)
	if !ok {
		return
	}

	link, err := h.fileService.GetDownloadLink(r.Context(), httputil.GetOwnerID(r), creds, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, link)
}

// GetContent proxies the file content from remote storage
// GET /api/files/{id}/content
func (h *FileHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	creds, ok := credentials(w, r)
	if !ok {
		return
	}

	content, err := h.fileService.OpenContent(r.Context(), httputil.GetOwnerID(r), creds, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Body.Close()

	file := content.File
	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		// Headers are gone; the client sees a short body
		h.logger.Warn("content stream interrupted", "id", file.ID, "error", err)
	}
}
