package finance

import (
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountReceivableCreatedEvent is raised when a new receivable title is created
type AccountReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID        `json:"receivable_id"`
	CustomerID     uuid.UUID        `json:"customer_id"`
	DocumentNumber string           `json:"document_number"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	IssueDate      time.Time        `json:"issue_date"`
	DueDate        time.Time        `json:"due_date"`
	Origin         ReceivableOrigin `json:"origin"`
}

// EventType returns the event type name
func (e *AccountReceivableCreatedEvent) EventType() string {
	return "AccountReceivableCreated"
}

// NewAccountReceivableCreatedEvent creates a new AccountReceivableCreatedEvent
func NewAccountReceivableCreatedEvent(ar *AccountReceivable) *AccountReceivableCreatedEvent {
	return &AccountReceivableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivableCreated", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		CustomerID:      ar.CustomerID,
		DocumentNumber:  ar.DocumentNumber,
		Amount:          ar.Terms.Amount().Amount(),
		Currency:        string(ar.Terms.Amount().Currency()),
		IssueDate:       ar.IssueDate,
		DueDate:         ar.Terms.DueDate(),
		Origin:          ar.Origin,
	}
}

// AccountReceivablePaymentReceivedEvent is raised on a partial receipt
type AccountReceivablePaymentReceivedEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID       `json:"receivable_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	Actor          uuid.UUID       `json:"actor"`
}

// EventType returns the event type name
func (e *AccountReceivablePaymentReceivedEvent) EventType() string {
	return "AccountReceivablePaymentReceived"
}

// NewAccountReceivablePaymentReceivedEvent creates a new AccountReceivablePaymentReceivedEvent
func NewAccountReceivablePaymentReceivedEvent(ar *AccountReceivable, amount valueobject.Money, bankAccountID, actor uuid.UUID) *AccountReceivablePaymentReceivedEvent {
	return &AccountReceivablePaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivablePaymentReceived", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		Amount:          amount.Amount(),
		AmountReceived:  ar.AmountReceived,
		BankAccountID:   bankAccountID,
		Actor:           actor,
	}
}

// AccountReceivableReceivedEvent is raised when the title is fully received
type AccountReceivableReceivedEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID       `json:"receivable_id"`
	DocumentNumber string          `json:"document_number"`
	Amount         decimal.Decimal `json:"amount"`
	LastReceipt    decimal.Decimal `json:"last_receipt"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	Actor          uuid.UUID       `json:"actor"`
	ReceivedAt     time.Time       `json:"received_at"`
}

// EventType returns the event type name
func (e *AccountReceivableReceivedEvent) EventType() string {
	return "AccountReceivableReceived"
}

// NewAccountReceivableReceivedEvent creates a new AccountReceivableReceivedEvent
func NewAccountReceivableReceivedEvent(ar *AccountReceivable, lastReceipt valueobject.Money, bankAccountID, actor uuid.UUID) *AccountReceivableReceivedEvent {
	receivedAt := time.Now()
	if ar.ReceiveDate != nil {
		receivedAt = *ar.ReceiveDate
	}
	return &AccountReceivableReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivableReceived", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		DocumentNumber:  ar.DocumentNumber,
		Amount:          ar.Terms.Amount().Amount(),
		LastReceipt:     lastReceipt.Amount(),
		BankAccountID:   bankAccountID,
		Actor:           actor,
		ReceivedAt:      receivedAt,
	}
}

// AccountReceivableCancelledEvent is raised when a receivable title is cancelled
type AccountReceivableCancelledEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID `json:"receivable_id"`
	DocumentNumber string    `json:"document_number"`
	Reason         string    `json:"reason"`
	Actor          uuid.UUID `json:"actor"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *AccountReceivableCancelledEvent) EventType() string {
	return "AccountReceivableCancelled"
}

// NewAccountReceivableCancelledEvent creates a new AccountReceivableCancelledEvent
func NewAccountReceivableCancelledEvent(ar *AccountReceivable, reason string, actor uuid.UUID) *AccountReceivableCancelledEvent {
	cancelledAt := time.Now()
	if ar.CancelledAt != nil {
		cancelledAt = *ar.CancelledAt
	}
	return &AccountReceivableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivableCancelled", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		DocumentNumber:  ar.DocumentNumber,
		Reason:          reason,
		Actor:           actor,
		CancelledAt:     cancelledAt,
	}
}

// AccountReceivableRescheduledEvent is raised when a receivable's due date changes
type AccountReceivableRescheduledEvent struct {
	shared.BaseDomainEvent
	ReceivableID    uuid.UUID `json:"receivable_id"`
	PreviousDueDate time.Time `json:"previous_due_date"`
	NewDueDate      time.Time `json:"new_due_date"`
	Actor           uuid.UUID `json:"actor"`
}

// EventType returns the event type name
func (e *AccountReceivableRescheduledEvent) EventType() string {
	return "AccountReceivableRescheduled"
}

// NewAccountReceivableRescheduledEvent creates a new AccountReceivableRescheduledEvent
func NewAccountReceivableRescheduledEvent(ar *AccountReceivable, previous, next time.Time, actor uuid.UUID) *AccountReceivableRescheduledEvent {
	return &AccountReceivableRescheduledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivableRescheduled", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		PreviousDueDate: previous,
		NewDueDate:      next,
		Actor:           actor,
	}
}

// AccountReceivableOverdueEvent is raised when a title is flagged overdue
type AccountReceivableOverdueEvent struct {
	shared.BaseDomainEvent
	ReceivableID   uuid.UUID       `json:"receivable_id"`
	DocumentNumber string          `json:"document_number"`
	DueDate        time.Time       `json:"due_date"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

// EventType returns the event type name
func (e *AccountReceivableOverdueEvent) EventType() string {
	return "AccountReceivableOverdue"
}

// NewAccountReceivableOverdueEvent creates a new AccountReceivableOverdueEvent
func NewAccountReceivableOverdueEvent(ar *AccountReceivable) *AccountReceivableOverdueEvent {
	return &AccountReceivableOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountReceivableOverdue", "AccountReceivable", ar.ID, ar.OrganizationID, ar.BranchID),
		ReceivableID:    ar.ID,
		DocumentNumber:  ar.DocumentNumber,
		DueDate:         ar.Terms.DueDate(),
		Outstanding:     ar.OutstandingAmount().Amount(),
	}
}
