package handler

import (
	"log/slog"
	"net/http"

	driveSvc "tgdrive/internal/domain/services/drive"
	"tgdrive/internal/httputil"
)

// AccountHandler handles account registration
type AccountHandler struct {
	accountService driveSvc.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService driveSvc.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Register binds transport credentials to the verified identity
// POST /api/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req driveSvc.RegisterRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AccountID = httputil.GetOwnerID(r)

	account, err := h.accountService.Register(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, account)
}

// Me returns the caller's account
// GET /api/accounts/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), httputil.GetOwnerID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, account)
}
