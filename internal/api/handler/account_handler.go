package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/api/service"
	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create handles opening a new account for a user
func (h *AccountHandler) Create(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), userID, req.Name, req.AccountNumber, req.RoutingNumber)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			RespondNotFound(c, "User not found")
			return
		}
		h.logger.Error("Failed to create account", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc, 0))
}

// GetByID retrieves an account with its derived balance, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, balance, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc, balance))
}

// Deposit books external funds into an account
func (h *AccountHandler) Deposit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.accountService.Deposit(c.Request.Context(), id, req.AmountCents, req.Description)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to book deposit", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// mapAccountToResponse maps an account entity and its balance to a response DTO
func mapAccountToResponse(acc *account.Account, balance int64) AccountResponse {
	return AccountResponse{
		ID:            acc.ID.String(),
		UserID:        acc.UserID.String(),
		Name:          acc.Name,
		AccountNumber: acc.AccountNumber,
		RoutingNumber: acc.RoutingNumber,
		BalanceCents:  balance,
		CreatedAt:     acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapEntryToResponse maps a ledger entry to a response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          entry.ID.String(),
		AccountID:   entry.AccountID.String(),
		TraceID:     entry.TraceID.String(),
		AmountCents: entry.Amount,
		Description: entry.Description,
		Type:        string(entry.Type),
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
}
