package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tgdrive/internal/domain"
	models "tgdrive/internal/domain/models/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Integrity and
// transport details stay in the logs; clients get an opaque message.
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr *domain.ConflictError
		partialErr  *domain.PartialDeleteError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidMove):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUploadFailed):
		slog.Error("upload failed", "error", err)
		httputil.RespondError(w, http.StatusBadGateway, "remote storage rejected the upload")
	case errors.Is(err, domain.ErrRemoteUnavailable):
		slog.Error("remote storage unavailable", "error", err)
		httputil.RespondError(w, http.StatusServiceUnavailable, "remote storage unavailable")
	case errors.As(err, &partialErr):
		failures := make([]map[string]string, 0, len(partialErr.Failures))
		for _, f := range partialErr.Failures {
			failures = append(failures, map[string]string{
				"kind":   f.Kind,
				"id":     f.ID,
				"name":   f.Name,
				"reason": f.Reason(),
			})
		}
		httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "some items could not be deleted", map[string]interface{}{
			"failures": failures,
		})
	default:
		// ErrCredentialCorrupted, ErrBrokenChain, ErrBlobRefMissing and anything unexpected
		slog.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict handles conflicts during creation by returning the existing resource with 409
// If the error is a ConflictError, it calls fetchFn to retrieve the existing resource
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(*domain.ConflictError) (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) && conflictErr.ResourceID != "" {
		existing, fetchErr := fetchFn(conflictErr)
		if fetchErr != nil {
			// The conflicting item is of another kind or already gone
			handleError(w, err)
			return
		}

		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// credentials returns the transport credentials set by the credential middleware
func credentials(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	creds, ok := httputil.GetCredentials(r)
	if !ok {
		httputil.RespondError(w, http.StatusForbidden, "no account registered for this identity")
	}
	return creds, ok
}

// optionalParent turns an empty or absent parent id into the root
func optionalParent(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// updateItemBody is the PATCH body shared by files and folders.
// parent_folder_id: absent keeps the parent, null moves to the root.
type updateItemBody struct {
	Name     *string                 `json:"name"`
	ParentID httputil.OptionalString `json:"parent_folder_id"`
}

func (b *updateItemBody) toRequest() (*driveSvc.UpdateItemRequest, error) {
	parentID, move := b.ParentID.Get()
	if b.Name == nil && !move {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	return &driveSvc.UpdateItemRequest{
		Name:     b.Name,
		Move:     move,
		ParentID: parentID,
	}, nil
}
