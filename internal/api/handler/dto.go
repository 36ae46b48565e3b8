package handler

import "time"

// CreateUserRequest represents a request to register a new user
type CreateUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// CreateAccountRequest represents a request to open a new account
type CreateAccountRequest struct {
	Name          string `json:"name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	RoutingNumber string `json:"routing_number" binding:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	BalanceCents  int64  `json:"balance_cents"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// DepositRequest represents a request to book external funds into an account
type DepositRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// TransferRequest represents a request to move funds immediately
type TransferRequest struct {
	DestinationType      string  `json:"destination_type" binding:"required,oneof=ACCOUNT USER"`
	DestinationAccountID *string `json:"destination_account_id,omitempty" binding:"omitempty,uuid"`
	DestinationUserID    *string `json:"destination_user_id,omitempty" binding:"omitempty,uuid"`
	AmountCents          int64   `json:"amount_cents" binding:"required,gt=0"`
	Description          string  `json:"description,omitempty"`
}

// TransferResponse represents the outcome of an immediate transfer
type TransferResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Booking *BookingResponse `json:"booking,omitempty"`
}

// BookingResponse represents the booked double entry of a transfer
type BookingResponse struct {
	TraceID              string `json:"trace_id"`
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	AmountCents          int64  `json:"amount_cents"`
}

// ScheduleTransferRequest represents a request to schedule a transfer
type ScheduleTransferRequest struct {
	DestinationType      string     `json:"destination_type" binding:"required,oneof=ACCOUNT USER"`
	DestinationAccountID *string    `json:"destination_account_id,omitempty" binding:"omitempty,uuid"`
	DestinationUserID    *string    `json:"destination_user_id,omitempty" binding:"omitempty,uuid"`
	AmountCents          int64      `json:"amount_cents" binding:"required,gt=0"`
	Type                 string     `json:"type" binding:"required,oneof=AT_TIME RECURRING ON_DEPOSIT"`
	ScheduleDate         *time.Time `json:"schedule_date,omitempty"`
	RecurrenceInterval   *int       `json:"recurrence_interval,omitempty" binding:"omitempty,gt=0"`
	RecurrenceUnit       *string    `json:"recurrence_unit,omitempty" binding:"omitempty,oneof=DAYS WEEKS MONTHS"`
	EventTopic           *string    `json:"event_topic,omitempty"`
}

// ScheduledTransferResponse represents a scheduled transfer in API responses
type ScheduledTransferResponse struct {
	ID                   string     `json:"id"`
	SourceAccountID      string     `json:"source_account_id"`
	DestinationType      string     `json:"destination_type"`
	DestinationAccountID *string    `json:"destination_account_id,omitempty"`
	DestinationUserID    *string    `json:"destination_user_id,omitempty"`
	AmountCents          int64      `json:"amount_cents"`
	Type                 string     `json:"type"`
	ScheduleDate         *time.Time `json:"schedule_date,omitempty"`
	RecurrenceInterval   *int       `json:"recurrence_interval,omitempty"`
	RecurrenceUnit       *string    `json:"recurrence_unit,omitempty"`
	EventTopic           *string    `json:"event_topic,omitempty"`
	Status               string     `json:"status"`
	JobID                *string    `json:"job_id,omitempty"`
	CreatedAt            string     `json:"created_at"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	TraceID     string `json:"trace_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Type        string `json:"type"`
	CreatedAt   string `json:"created_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
