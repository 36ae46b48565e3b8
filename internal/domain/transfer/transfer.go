package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DestinationType defines how a transfer destination is addressed
type DestinationType string

const (
	DestinationTypeAccount DestinationType = "ACCOUNT"
	DestinationTypeUser    DestinationType = "USER"
)

// Type defines when a scheduled transfer fires
type Type string

const (
	TypeAtTime    Type = "AT_TIME"    // Fires once at a fixed time
	TypeRecurring Type = "RECURRING"  // Fires at a fixed time, then spawns a successor
	TypeOnDeposit Type = "ON_DEPOSIT" // Fires on the next deposit into the source account
)

// Status defines scheduled transfer lifecycle states
type Status string

const (
	StatusSubmitted  Status = "SUBMITTED"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusDeleted    Status = "DELETED"
)

// Terminal reports whether the status can never change again
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDeleted
}

// RecurrenceUnit defines the unit of a recurring transfer's interval
type RecurrenceUnit string

const (
	RecurrenceUnitDays   RecurrenceUnit = "DAYS"
	RecurrenceUnitWeeks  RecurrenceUnit = "WEEKS"
	RecurrenceUnitMonths RecurrenceUnit = "MONTHS"
)

// EventTopicDeposit is the only supported trigger for on-deposit transfers
const EventTopicDeposit = "deposit"

// ValidationError indicates a malformed or inconsistent scheduled transfer
// request. It is never retried and is surfaced to the caller immediately.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid scheduled transfer: " + e.Reason
}

// ScheduledTransfer is a durable instruction to execute a transfer later,
// repeatedly, or on a triggering event. It holds a back-reference to its job
// in the queue (JobID) but never owns the job.
type ScheduledTransfer struct {
	ID                   uuid.UUID       `json:"id"`
	SourceAccountID      uuid.UUID       `json:"source_account_id"`
	DestinationType      DestinationType `json:"destination_type"`
	DestinationAccountID *uuid.UUID      `json:"destination_account_id,omitempty"`
	DestinationUserID    *uuid.UUID      `json:"destination_user_id,omitempty"`
	AmountCents          int64           `json:"amount_cents"`
	Type                 Type            `json:"type"`
	ScheduleDate         *time.Time      `json:"schedule_date,omitempty"`
	RecurrenceInterval   *int            `json:"recurrence_interval,omitempty"`
	RecurrenceUnit       *RecurrenceUnit `json:"recurrence_unit,omitempty"`
	EventTopic           *string         `json:"event_topic,omitempty"`
	Status               Status          `json:"status"`
	JobID                *uuid.UUID      `json:"job_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Validate checks that the kind-specific fields are consistent with the
// transfer's destination type and type
func (t *ScheduledTransfer) Validate() error {
	if t.SourceAccountID == uuid.Nil {
		return ValidationError{Reason: "source account id is required"}
	}
	if t.AmountCents <= 0 {
		return ValidationError{Reason: "amount must be positive"}
	}

	switch t.DestinationType {
	case DestinationTypeAccount:
		if t.DestinationAccountID == nil {
			return ValidationError{Reason: "destination account id is required"}
		}
	case DestinationTypeUser:
		if t.DestinationUserID == nil {
			return ValidationError{Reason: "destination user id is required"}
		}
	default:
		return ValidationError{Reason: fmt.Sprintf("unknown destination type %q", t.DestinationType)}
	}

	switch t.Type {
	case TypeAtTime:
		if t.ScheduleDate == nil {
			return ValidationError{Reason: "schedule date is required"}
		}
	case TypeRecurring:
		if t.ScheduleDate == nil {
			return ValidationError{Reason: "schedule date is required"}
		}
		if t.RecurrenceInterval == nil || *t.RecurrenceInterval <= 0 {
			return ValidationError{Reason: "recurrence interval must be positive"}
		}
		if t.RecurrenceUnit == nil {
			return ValidationError{Reason: "recurrence unit is required"}
		}
		switch *t.RecurrenceUnit {
		case RecurrenceUnitDays, RecurrenceUnitWeeks, RecurrenceUnitMonths:
		default:
			return ValidationError{Reason: fmt.Sprintf("unknown recurrence unit %q", *t.RecurrenceUnit)}
		}
	case TypeOnDeposit:
		if t.EventTopic == nil || *t.EventTopic != EventTopicDeposit {
			return ValidationError{Reason: fmt.Sprintf("unsupported event topic, only %q is available", EventTopicDeposit)}
		}
	default:
		return ValidationError{Reason: fmt.Sprintf("unknown transfer type %q", t.Type)}
	}

	return nil
}

// NextScheduleDate advances the transfer's schedule date by one recurrence
// interval. Only valid for recurring transfers.
func (t *ScheduledTransfer) NextScheduleDate() (time.Time, error) {
	if t.Type != TypeRecurring {
		return time.Time{}, fmt.Errorf("transfer %s is not recurring", t.ID)
	}
	if t.ScheduleDate == nil || t.RecurrenceInterval == nil || t.RecurrenceUnit == nil {
		return time.Time{}, fmt.Errorf("transfer %s is missing recurrence fields", t.ID)
	}

	switch *t.RecurrenceUnit {
	case RecurrenceUnitDays:
		return t.ScheduleDate.AddDate(0, 0, *t.RecurrenceInterval), nil
	case RecurrenceUnitWeeks:
		return t.ScheduleDate.AddDate(0, 0, *t.RecurrenceInterval*7), nil
	case RecurrenceUnitMonths:
		return t.ScheduleDate.AddDate(0, *t.RecurrenceInterval, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence unit %q", *t.RecurrenceUnit)
	}
}

// Successor builds the next instance of a recurring transfer: a brand-new row
// in pending state with the schedule date advanced by one interval. The
// original row keeps its own terminal status.
func (t *ScheduledTransfer) Successor() (*ScheduledTransfer, error) {
	next, err := t.NextScheduleDate()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &ScheduledTransfer{
		ID:                   uuid.New(),
		SourceAccountID:      t.SourceAccountID,
		DestinationType:      t.DestinationType,
		DestinationAccountID: t.DestinationAccountID,
		DestinationUserID:    t.DestinationUserID,
		AmountCents:          t.AmountCents,
		Type:                 TypeRecurring,
		ScheduleDate:         &next,
		RecurrenceInterval:   t.RecurrenceInterval,
		RecurrenceUnit:       t.RecurrenceUnit,
		Status:               StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}
