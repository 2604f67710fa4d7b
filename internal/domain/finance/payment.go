package finance

import (
	"fmt"
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents the status of a settlement attempt
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // Registered, not yet settled
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED" // Settled; reversal is a separate flow
	PaymentStatusCancelled PaymentStatus = "CANCELLED" // Abandoned before settlement
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payment is in a terminal state
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusCancelled
}

// PaymentMethod represents how a payment is executed
type PaymentMethod string

const (
	PaymentMethodPix          PaymentMethod = "PIX"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodBoleto       PaymentMethod = "BOLETO"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodBankTransfer, PaymentMethodBoleto,
		PaymentMethodCash, PaymentMethodCheck:
		return true
	}
	return false
}

// Payment represents one settlement attempt against an account payable.
// It is owned by the AccountPayable aggregate and carries its own small
// state machine: PENDING -> CONFIRMED | CANCELLED.
type Payment struct {
	shared.BaseEntity
	PayableID     uuid.UUID          `json:"payable_id"`
	Amount        valueobject.Money  `json:"amount"`
	Method        PaymentMethod      `json:"method"`
	Status        PaymentStatus      `json:"status"`
	BankAccountID *uuid.UUID         `json:"bank_account_id,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	ConfirmedAt   *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
}

// NewPayment creates a new pending payment against a payable
func NewPayment(
	payableID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	bankAccountID *uuid.UUID,
	transactionID string,
	notes string,
) (*Payment, error) {
	if payableID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PAYABLE_ID", "Payable ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_METHOD", "Payment method is not valid")
	}

	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		PayableID:     payableID,
		Amount:        amount,
		Method:        method,
		Status:        PaymentStatusPending,
		BankAccountID: bankAccountID,
		TransactionID: transactionID,
		Notes:         notes,
	}, nil
}

// ReconstitutePayment rebuilds a payment from storage without validation.
// Only the persistence layer may use this path.
func ReconstitutePayment(
	id uuid.UUID,
	payableID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	status PaymentStatus,
	bankAccountID *uuid.UUID,
	transactionID string,
	notes string,
	confirmedAt, cancelledAt *time.Time,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		BaseEntity: shared.BaseEntity{
			ID:        id,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		PayableID:     payableID,
		Amount:        amount,
		Method:        method,
		Status:        status,
		BankAccountID: bankAccountID,
		TransactionID: transactionID,
		Notes:         notes,
		ConfirmedAt:   confirmedAt,
		CancelledAt:   cancelledAt,
	}
}

// Confirm moves the payment from PENDING to CONFIRMED.
// Confirming twice, or confirming a cancelled payment, fails.
func (p *Payment) Confirm() error {
	if p.Status != PaymentStatusPending {
		return shared.NewStateError("INVALID_PAYMENT_STATE",
			fmt.Sprintf("Cannot confirm payment in %s status", p.Status))
	}
	now := time.Now()
	p.Status = PaymentStatusConfirmed
	p.ConfirmedAt = &now
	p.UpdatedAt = now
	return nil
}

// Cancel moves the payment from PENDING to CANCELLED.
// A confirmed payment cannot be cancelled; settlement reversal is a distinct flow.
func (p *Payment) Cancel() error {
	if p.Status == PaymentStatusConfirmed {
		return shared.NewStateError("PAYMENT_CONFIRMED",
			"Cannot cancel a confirmed payment; reverse the settlement instead")
	}
	if p.Status != PaymentStatusPending {
		return shared.NewStateError("INVALID_PAYMENT_STATE",
			fmt.Sprintf("Cannot cancel payment in %s status", p.Status))
	}
	now := time.Now()
	p.Status = PaymentStatusCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now
	return nil
}

// CanCancel reports, without mutating, whether Cancel would succeed.
// Used by the payable's pre-flight validation pass.
func (p *Payment) CanCancel() bool {
	return p.Status == PaymentStatusPending
}

// IsPending returns true if the payment has not reached a terminal state
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsConfirmed returns true if the payment is confirmed
func (p *Payment) IsConfirmed() bool {
	return p.Status == PaymentStatusConfirmed
}

// IsCancelled returns true if the payment is cancelled
func (p *Payment) IsCancelled() bool {
	return p.Status == PaymentStatusCancelled
}
