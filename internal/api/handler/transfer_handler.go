package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/banking-transfer-engine/internal/api/service"
	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles HTTP requests for transfer operations
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Transfer executes an immediate transfer out of an account and waits for
// the outcome. A wait that times out returns 202; the transfer itself keeps
// running and lands in the ledger when done.
func (h *TransferHandler) Transfer(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	payload := scheduler.TransferMoneyPayload{
		SourceAccountID: sourceID,
		DestinationType: transfer.DestinationType(req.DestinationType),
		AmountCents:     req.AmountCents,
		Description:     req.Description,
	}
	payload.DestinationAccountID, err = parseOptionalUUID(req.DestinationAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination account ID")
		return
	}
	payload.DestinationUserID, err = parseOptionalUUID(req.DestinationUserID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination user ID")
		return
	}

	outcome, err := h.transferService.Transfer(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, jobqueue.ErrWaitTimeout) {
			RespondAccepted(c, gin.H{"status": "processing"})
			return
		}
		h.logger.Error("Failed to execute transfer", "source_account_id", sourceID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	if !outcome.Success {
		RespondUnprocessable(c, outcome.Error)
		return
	}

	response := TransferResponse{Success: true}
	if outcome.Booking != nil {
		response.Booking = &BookingResponse{
			TraceID:              outcome.Booking.TraceID.String(),
			SourceAccountID:      outcome.Booking.SourceAccountID.String(),
			DestinationAccountID: outcome.Booking.DestinationAccountID.String(),
			AmountCents:          outcome.Booking.AmountCents,
		}
	}
	RespondOK(c, response)
}

// Schedule creates a scheduled transfer out of an account
func (h *TransferHandler) Schedule(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req ScheduleTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := scheduler.CreateParams{
		SourceAccountID:    sourceID,
		DestinationType:    transfer.DestinationType(req.DestinationType),
		AmountCents:        req.AmountCents,
		Type:               transfer.Type(req.Type),
		ScheduleDate:       req.ScheduleDate,
		RecurrenceInterval: req.RecurrenceInterval,
		EventTopic:         req.EventTopic,
	}
	params.DestinationAccountID, err = parseOptionalUUID(req.DestinationAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination account ID")
		return
	}
	params.DestinationUserID, err = parseOptionalUUID(req.DestinationUserID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination user ID")
		return
	}
	if req.RecurrenceUnit != nil {
		unit := transfer.RecurrenceUnit(*req.RecurrenceUnit)
		params.RecurrenceUnit = &unit
	}

	t, err := h.transferService.Schedule(c.Request.Context(), params)
	if err != nil {
		var validation transfer.ValidationError
		if errors.As(err, &validation) {
			RespondBadRequest(c, validation.Error())
			return
		}
		h.logger.Error("Failed to schedule transfer", "source_account_id", sourceID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapScheduledTransferToResponse(t))
}

// CancelScheduled cancels a pending scheduled transfer
func (h *TransferHandler) CancelScheduled(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid scheduled transfer ID")
		return
	}

	if err := h.transferService.CancelScheduled(c.Request.Context(), id); err != nil {
		if errors.Is(err, transfer.ErrTransferNotFound{}) {
			RespondNotFound(c, "Scheduled transfer not found")
			return
		}
		if errors.Is(err, scheduler.ErrTransferNotCancellable{}) {
			RespondConflict(c, "Scheduled transfer already started or finished")
			return
		}
		h.logger.Error("Failed to cancel scheduled transfer", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// ListScheduledByUser returns the user's scheduled transfers
func (h *TransferHandler) ListScheduledByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	transfers, err := h.transferService.ListScheduledByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list scheduled transfers", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ScheduledTransferResponse, 0, len(transfers))
	for _, t := range transfers {
		responses = append(responses, mapScheduledTransferToResponse(t))
	}
	RespondOK(c, responses)
}

// ListTransactionsByUser returns ledger entries across the user's accounts
func (h *TransferHandler) ListTransactionsByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, err := h.transferService.ListTransactionsByUser(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to list transactions", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}
	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage)
}

// mapScheduledTransferToResponse maps a scheduled transfer entity to a response DTO
func mapScheduledTransferToResponse(t *transfer.ScheduledTransfer) ScheduledTransferResponse {
	resp := ScheduledTransferResponse{
		ID:                 t.ID.String(),
		SourceAccountID:    t.SourceAccountID.String(),
		DestinationType:    string(t.DestinationType),
		AmountCents:        t.AmountCents,
		Type:               string(t.Type),
		ScheduleDate:       t.ScheduleDate,
		RecurrenceInterval: t.RecurrenceInterval,
		EventTopic:         t.EventTopic,
		Status:             string(t.Status),
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
	if t.DestinationAccountID != nil {
		id := t.DestinationAccountID.String()
		resp.DestinationAccountID = &id
	}
	if t.DestinationUserID != nil {
		id := t.DestinationUserID.String()
		resp.DestinationUserID = &id
	}
	if t.RecurrenceUnit != nil {
		unit := string(*t.RecurrenceUnit)
		resp.RecurrenceUnit = &unit
	}
	if t.JobID != nil {
		id := t.JobID.String()
		resp.JobID = &id
	}
	return resp
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
