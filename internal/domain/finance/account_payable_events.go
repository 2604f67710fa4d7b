package finance

import (
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountPayableCreatedEvent is raised when a new payable title is created
type AccountPayableCreatedEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID       `json:"payable_id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	DueDate        time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *AccountPayableCreatedEvent) EventType() string {
	return "AccountPayableCreated"
}

// NewAccountPayableCreatedEvent creates a new AccountPayableCreatedEvent
func NewAccountPayableCreatedEvent(ap *AccountPayable) *AccountPayableCreatedEvent {
	return &AccountPayableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountPayableCreated", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		SupplierID:      ap.SupplierID,
		DocumentNumber:  ap.DocumentNumber,
		Amount:          ap.Terms.Amount().Amount(),
		Currency:        string(ap.Terms.Amount().Currency()),
		DueDate:         ap.Terms.DueDate(),
	}
}

// PaymentRegisteredEvent is raised when a settlement attempt is registered
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	PayableID uuid.UUID       `json:"payable_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Status    PaymentStatus   `json:"payment_status"`
}

// EventType returns the event type name
func (e *PaymentRegisteredEvent) EventType() string {
	return "PaymentRegistered"
}

// NewPaymentRegisteredEvent creates a new PaymentRegisteredEvent
func NewPaymentRegisteredEvent(ap *AccountPayable, p *Payment) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRegistered", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		PaymentID:       p.ID,
		Amount:          p.Amount.Amount(),
		Method:          p.Method,
		Status:          p.Status,
	}
}

// PaymentConfirmedEvent is raised when a pending payment is confirmed
type PaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	PayableID   uuid.UUID       `json:"payable_id"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *PaymentConfirmedEvent) EventType() string {
	return "PaymentConfirmed"
}

// NewPaymentConfirmedEvent creates a new PaymentConfirmedEvent
func NewPaymentConfirmedEvent(ap *AccountPayable, p *Payment) *PaymentConfirmedEvent {
	confirmedAt := time.Now()
	if p.ConfirmedAt != nil {
		confirmedAt = *p.ConfirmedAt
	}
	return &PaymentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentConfirmed", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		PaymentID:       p.ID,
		Amount:          p.Amount.Amount(),
		Method:          p.Method,
		ConfirmedAt:     confirmedAt,
	}
}

// PaymentCompletedEvent is raised when the confirmed settlement total reaches
// full coverage. It carries the most recent confirmed payment.
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID       `json:"payable_id"`
	DocumentNumber string          `json:"document_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// EventType returns the event type name
func (e *PaymentCompletedEvent) EventType() string {
	return "PaymentCompleted"
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(ap *AccountPayable, last *Payment) *PaymentCompletedEvent {
	e := &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCompleted", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		DocumentNumber:  ap.DocumentNumber,
		CompletedAt:     time.Now(),
	}
	if last != nil {
		e.PaymentID = last.ID
		e.Amount = last.Amount.Amount()
		e.Method = last.Method
		if last.ConfirmedAt != nil {
			e.CompletedAt = *last.ConfirmedAt
		}
	}
	return e
}

// AccountPayableCancelledEvent is raised when a payable title is cancelled
type AccountPayableCancelledEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID `json:"payable_id"`
	DocumentNumber string    `json:"document_number"`
	Reason         string    `json:"reason"`
	Actor          uuid.UUID `json:"actor"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *AccountPayableCancelledEvent) EventType() string {
	return "AccountPayableCancelled"
}

// NewAccountPayableCancelledEvent creates a new AccountPayableCancelledEvent
func NewAccountPayableCancelledEvent(ap *AccountPayable, reason string, actor uuid.UUID) *AccountPayableCancelledEvent {
	cancelledAt := time.Now()
	if ap.CancelledAt != nil {
		cancelledAt = *ap.CancelledAt
	}
	return &AccountPayableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountPayableCancelled", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		DocumentNumber:  ap.DocumentNumber,
		Reason:          reason,
		Actor:           actor,
		CancelledAt:     cancelledAt,
	}
}

// AccountPayableRescheduledEvent is raised when a payable's due date changes
type AccountPayableRescheduledEvent struct {
	shared.BaseDomainEvent
	PayableID       uuid.UUID `json:"payable_id"`
	PreviousDueDate time.Time `json:"previous_due_date"`
	NewDueDate      time.Time `json:"new_due_date"`
	Actor           uuid.UUID `json:"actor"`
}

// EventType returns the event type name
func (e *AccountPayableRescheduledEvent) EventType() string {
	return "AccountPayableRescheduled"
}

// NewAccountPayableRescheduledEvent creates a new AccountPayableRescheduledEvent
func NewAccountPayableRescheduledEvent(ap *AccountPayable, previous, next time.Time, actor uuid.UUID) *AccountPayableRescheduledEvent {
	return &AccountPayableRescheduledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountPayableRescheduled", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		PreviousDueDate: previous,
		NewDueDate:      next,
		Actor:           actor,
	}
}

// AccountPayableSplitEvent is raised when a payable is split into installments
type AccountPayableSplitEvent struct {
	shared.BaseDomainEvent
	PayableID      uuid.UUID   `json:"payable_id"`
	DocumentNumber string      `json:"document_number"`
	InstallmentIDs []uuid.UUID `json:"installment_ids"`
	Actor          uuid.UUID   `json:"actor"`
}

// EventType returns the event type name
func (e *AccountPayableSplitEvent) EventType() string {
	return "AccountPayableSplit"
}

// NewAccountPayableSplitEvent creates a new AccountPayableSplitEvent
func NewAccountPayableSplitEvent(ap *AccountPayable, installmentIDs []uuid.UUID, actor uuid.UUID) *AccountPayableSplitEvent {
	return &AccountPayableSplitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountPayableSplit", "AccountPayable", ap.ID, ap.OrganizationID, ap.BranchID),
		PayableID:       ap.ID,
		DocumentNumber:  ap.DocumentNumber,
		InstallmentIDs:  installmentIDs,
		Actor:           actor,
	}
}
