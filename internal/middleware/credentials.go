package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"tgdrive/internal/domain"
	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/httputil"
)

// Credentials decrypts the caller's transport credentials into the request
// context. Must run after Auth.
func Credentials(resolver driveSvc.CredentialResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := httputil.GetOwnerID(r)
			if ownerID == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			creds, err := resolver.Resolve(r.Context(), ownerID)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrForbidden):
					httputil.RespondError(w, http.StatusForbidden, "no account registered for this identity")
				default:
					logger.Error("resolve credentials", "owner_id", ownerID, "error", err)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			next.ServeHTTP(w, httputil.WithCredentials(r, creds))
		})
	}
}
