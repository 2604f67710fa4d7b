package finance

import (
	"fmt"
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PayableStatus represents the status of an account payable
type PayableStatus string

const (
	PayableStatusOpen       PayableStatus = "OPEN"       // No confirmed settlement yet
	PayableStatusProcessing PayableStatus = "PROCESSING" // Settlement batch in flight (manual latch)
	PayableStatusPartial    PayableStatus = "PARTIAL"    // Partially settled
	PayableStatusPaid       PayableStatus = "PAID"       // Fully settled
	PayableStatusCancelled  PayableStatus = "CANCELLED"  // Cancelled; terminal
)

// IsValid checks if the status is a valid PayableStatus
func (s PayableStatus) IsValid() bool {
	switch s {
	case PayableStatusOpen, PayableStatusProcessing, PayableStatusPartial,
		PayableStatusPaid, PayableStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PayableStatus
func (s PayableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payable accepts no further settlement
func (s PayableStatus) IsTerminal() bool {
	return s == PayableStatusPaid || s == PayableStatusCancelled
}

// CanRegisterPayment returns true if payments can be registered in this status
func (s PayableStatus) CanRegisterPayment() bool {
	return s == PayableStatusOpen || s == PayableStatusProcessing || s == PayableStatusPartial
}

// CanEnterProcessing returns true if the processing latch can be set from this status
func (s PayableStatus) CanEnterProcessing() bool {
	return s == PayableStatusOpen || s == PayableStatusPartial
}

// AccountPayable represents a payable title aggregate root.
// It owns its Payment entities and derives its status from the confirmed
// subset; status is never stored independently of the settlement history.
type AccountPayable struct {
	shared.BranchAggregateRoot
	SupplierID     uuid.UUID                `json:"supplier_id"`
	DocumentNumber string                   `json:"document_number"`
	Description    string                   `json:"description"`
	Terms          valueobject.PaymentTerms `json:"terms"`
	Status         PayableStatus            `json:"status"`
	Payments       []*Payment               `json:"payments"`
	CategoryID     *uuid.UUID               `json:"category_id,omitempty"`
	CostCenterID   *uuid.UUID               `json:"cost_center_id,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	PaidAt         *time.Time               `json:"paid_at,omitempty"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason   string                   `json:"cancel_reason,omitempty"`
}

// NewAccountPayable creates a new payable title
func NewAccountPayable(
	organizationID uuid.UUID,
	branchID uuid.UUID,
	supplierID uuid.UUID,
	documentNumber string,
	description string,
	terms valueobject.PaymentTerms,
) (*AccountPayable, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if documentNumber == "" {
		return nil, shared.NewValidationError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(documentNumber) > 50 {
		return nil, shared.NewValidationError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 50 characters")
	}
	if description == "" {
		return nil, shared.NewValidationError("INVALID_DESCRIPTION", "Description cannot be empty")
	}

	ap := &AccountPayable{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(organizationID, branchID),
		SupplierID:          supplierID,
		DocumentNumber:      documentNumber,
		Description:         description,
		Terms:               terms,
		Status:              PayableStatusOpen,
		Payments:            make([]*Payment, 0),
	}

	ap.AddDomainEvent(NewAccountPayableCreatedEvent(ap))

	return ap, nil
}

// ReconstituteAccountPayable rebuilds a payable from storage without validation
// and without raising events. Only the persistence layer may use this path.
func ReconstituteAccountPayable(
	root shared.BranchAggregateRoot,
	supplierID uuid.UUID,
	documentNumber string,
	description string,
	terms valueobject.PaymentTerms,
	status PayableStatus,
	payments []*Payment,
	categoryID, costCenterID *uuid.UUID,
	notes string,
	paidAt, cancelledAt *time.Time,
	cancelReason string,
) *AccountPayable {
	if payments == nil {
		payments = make([]*Payment, 0)
	}
	return &AccountPayable{
		BranchAggregateRoot: root,
		SupplierID:          supplierID,
		DocumentNumber:      documentNumber,
		Description:         description,
		Terms:               terms,
		Status:              status,
		Payments:            payments,
		CategoryID:          categoryID,
		CostCenterID:        costCenterID,
		Notes:               notes,
		PaidAt:              paidAt,
		CancelledAt:         cancelledAt,
		CancelReason:        cancelReason,
	}
}

// ConfirmedTotal returns the sum of confirmed payment amounts
func (ap *AccountPayable) ConfirmedTotal() valueobject.Money {
	total := valueobject.Zero(ap.Terms.Amount().Currency())
	for _, p := range ap.Payments {
		if p.IsConfirmed() {
			total = total.MustAdd(p.Amount)
		}
	}
	return total
}

// TotalDue returns the amount owed as of the reference date
func (ap *AccountPayable) TotalDue(referenceDate time.Time) valueobject.Money {
	return ap.Terms.CalculateTotalDue(referenceDate)
}

// RemainingAmount returns the outstanding amount as of the reference date
func (ap *AccountPayable) RemainingAmount(referenceDate time.Time) valueobject.Money {
	return ap.TotalDue(referenceDate).MustSubtract(ap.ConfirmedTotal())
}

// FindPayment returns the owned payment with the given ID, or nil
func (ap *AccountPayable) FindPayment(paymentID uuid.UUID) *Payment {
	for _, p := range ap.Payments {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}

// RegisterPayment appends a settlement attempt to the payable.
// The projected confirmed total is checked even for pending payments so an
// over-commitment is rejected before confirmation, not after.
func (ap *AccountPayable) RegisterPayment(payment *Payment) error {
	if !ap.Status.CanRegisterPayment() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot register payment on payable in %s status", ap.Status))
	}
	if payment == nil {
		return shared.NewValidationError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	if payment.PayableID != ap.ID {
		return shared.NewValidationError("PAYMENT_MISMATCH", "Payment does not belong to this payable")
	}
	if payment.Amount.Currency() != ap.Terms.Amount().Currency() {
		return shared.NewValidationError("CURRENCY_MISMATCH",
			fmt.Sprintf("Payment currency %s does not match title currency %s",
				payment.Amount.Currency(), ap.Terms.Amount().Currency()))
	}
	if ap.FindPayment(payment.ID) != nil {
		return shared.NewValidationError("DUPLICATE_PAYMENT", "Payment is already registered")
	}

	now := time.Now()
	projected := ap.ConfirmedTotal().MustAdd(payment.Amount)
	if exceeds, _ := projected.GreaterThan(ap.TotalDue(now)); exceeds {
		return shared.NewInvariantError("EXCEEDS_TOTAL_DUE",
			fmt.Sprintf("Projected settlement %s would exceed total due %s",
				projected, ap.TotalDue(now)))
	}

	ap.Payments = append(ap.Payments, payment)
	ap.AddDomainEvent(NewPaymentRegisteredEvent(ap, payment))
	ap.recalculateStatus()
	ap.touch()

	return nil
}

// ConfirmPayment confirms a previously registered pending payment.
/// The overpayment guard runs again here: two pending payments may each fit the
// outstanding amount alone but not together.
func (ap *AccountPayable) ConfirmPayment(paymentID uuid.UUID) error {
	if ap.Status == PayableStatusCancelled {
		return shared.NewStateError("INVALID_STATE", "Cannot confirm payment on a cancelled payable")
	}
	payment := ap.FindPayment(paymentID)
	if payment == nil {
		return shared.NewValidationError("PAYMENT_NOT_FOUND", "Payment is not registered on this payable")
	}

	now := time.Now()
	projected := ap.ConfirmedTotal().MustAdd(payment.Amount)
	if exceeds, _ := projected.GreaterThan(ap.TotalDue(now)); exceeds {
		return shared.NewInvariantError("EXCEEDS_TOTAL_DUE",
			fmt.Sprintf("Confirming payment %s would raise settlement to %s, exceeding total due %s",
				paymentID, projected, ap.TotalDue(now)))
	}

	if err := payment.Confirm(); err != nil {
		return err
	}

	ap.AddDomainEvent(NewPaymentConfirmedEvent(ap, payment))
	ap.recalculateStatus()
	ap.touch()

	return nil
}

// CancelPayment cancels a pending payment without touching the title itself
func (ap *AccountPayable) CancelPayment(paymentID uuid.UUID) error {
	if ap.Status == PayableStatusCancelled {
		return shared.NewStateError("INVALID_STATE", "Payable is cancelled")
	}
	payment := ap.FindPayment(paymentID)
	if payment == nil {
		return shared.NewValidationError("PAYMENT_NOT_FOUND", "Payment is not registered on this payable")
	}
	if err := payment.Cancel(); err != nil {
		return err
	}

	ap.recalculateStatus()
	ap.touch()

	return nil
}

// MarkAsProcessing sets the processing latch. Only OPEN and PARTIAL titles can
// enter it, and status recomputation will not leave it on its own.
func (ap *AccountPayable) MarkAsProcessing() error {
	if !ap.Status.CanEnterProcessing() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot mark payable as processing from %s status", ap.Status))
	}
	ap.Status = PayableStatusProcessing
	ap.touch()
	return nil
}

// CompleteProcessing releases the processing latch, re-deriving the status
// from the confirmed settlement history.
func (ap *AccountPayable) CompleteProcessing() error {
	if ap.Status != PayableStatusProcessing {
		return shared.NewStateError("INVALID_STATE", "Payable is not in processing status")
	}
	ap.applyDerivedStatus(ap.derivedStatus(time.Now()))
	ap.touch()
	return nil
}

// Cancel cancels the payable and every pending payment it owns, atomically.
//
// The operation is an explicit two-phase protocol: a validation pass over all
// pending payments with zero mutation, then an execution pass that must not
// fail. A failure in the execution pass indicates a logic bug or race and is
// surfaced as an integrity error, never as a partially-cancelled title.
func (ap *AccountPayable) Cancel(reason string, actor uuid.UUID) error {
	if ap.Status == PayableStatusPaid || ap.Status == PayableStatusCancelled || ap.Status == PayableStatusProcessing {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel payable in %s status", ap.Status))
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	for _, p := range ap.Payments {
		if p.IsConfirmed() {
			return shared.NewStateError("HAS_CONFIRMED_PAYMENTS",
				"Cannot cancel payable with confirmed payments; reverse the settlements first")
		}
	}

	// Validation phase: no mutation. If any pending payment cannot be
	// cancelled the whole operation aborts with no side effects.
	for _, p := range ap.Payments {
		if p.IsCancelled() {
			continue
		}
		if !p.CanCancel() {
			return shared.NewStateError("PAYMENT_NOT_CANCELLABLE",
				fmt.Sprintf("Payment %s in %s status blocks cancellation", p.ID, p.Status))
		}
	}

	// Execution phase: every check passed, so each cancellation must succeed.
	for _, p := range ap.Payments {
		if p.IsCancelled() {
			continue
		}
		if err := p.Cancel(); err != nil {
			return shared.NewIntegrityError("CANCELLATION_INTEGRITY",
				fmt.Sprintf("Payment %s failed to cancel after validation passed: %v", p.ID, err))
		}
	}

	now := time.Now()
	ap.Status = PayableStatusCancelled
	ap.CancelledAt = &now
	ap.CancelReason = reason
	ap.touch()

	ap.AddDomainEvent(NewAccountPayableCancelledEvent(ap, reason, actor))

	return nil
}

// Reschedule moves the title to a new due date
func (ap *AccountPayable) Reschedule(newDueDate time.Time, actor uuid.UUID) error {
	if ap.Status.IsTerminal() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot reschedule payable in %s status", ap.Status))
	}
	previousDueDate := ap.Terms.DueDate()
	terms, err := ap.Terms.WithDueDate(newDueDate)
	if err != nil {
		return shared.NewValidationError("INVALID_DUE_DATE", err.Error())
	}
	ap.Terms = terms
	ap.touch()

	ap.AddDomainEvent(NewAccountPayableRescheduledEvent(ap, previousDueDate, newDueDate, actor))

	return nil
}

// Split breaks the title into installment payables whose principals must sum
// exactly to the original principal, then cancels the original through the
// same two-phase protocol. The total outstanding obligation is unchanged.
func (ap *AccountPayable) Split(installments []valueobject.Money, actor uuid.UUID) ([]*AccountPayable, error) {
	if len(installments) < 2 {
		return nil, shared.NewValidationError("INVALID_SPLIT", "Split requires at least two installments")
	}
	for _, p := range ap.Payments {
		if p.IsConfirmed() {
			return nil, shared.NewStateError("HAS_CONFIRMED_PAYMENTS",
				"Cannot split payable with confirmed payments")
		}
	}

	principal := ap.Terms.Amount()
	sum := valueobject.Zero(principal.Currency())
	for i, amount := range installments {
		if !amount.IsPositive() {
			return nil, shared.NewValidationError("INVALID_SPLIT",
				fmt.Sprintf("Installment %d must be positive", i+1))
		}
		if amount.Currency() != principal.Currency() {
			return nil, shared.NewValidationError("CURRENCY_MISMATCH",
				fmt.Sprintf("Installment %d currency %s does not match title currency %s",
					i+1, amount.Currency(), principal.Currency()))
		}
		sum = sum.MustAdd(amount)
	}
	if !sum.Equals(principal) {
		return nil, shared.NewInvariantError("SPLIT_AMOUNT_MISMATCH",
			fmt.Sprintf("Installments sum to %s but the title principal is %s", sum, principal))
	}

	children := make([]*AccountPayable, 0, len(installments))
	for i, amount := range installments {
		terms, err := ap.Terms.WithAmount(amount)
		if err != nil {
			return nil, shared.NewValidationError("INVALID_SPLIT", err.Error())
		}
		child, err := NewAccountPayable(
			ap.OrganizationID,
			ap.BranchID,
			ap.SupplierID,
			fmt.Sprintf("%s-%02d", ap.DocumentNumber, i+1),
			ap.Description,
			terms,
		)
		if err != nil {
			return nil, err
		}
		child.CategoryID = ap.CategoryID
		child.CostCenterID = ap.CostCenterID
		children = append(children, child)
	}

	reason := fmt.Sprintf("Split into %d installments", len(installments))
	if err := ap.Cancel(reason, actor); err != nil {
		return nil, err
	}

	childIDs := make([]uuid.UUID, len(children))
	for i, c := range children {
		childIDs[i] = c.ID
	}
	ap.AddDomainEvent(NewAccountPayableSplitEvent(ap, childIDs, actor))

	return children, nil
}

// derivedStatus computes the status implied by the confirmed settlement
// history at the reference date, ignoring latches.
func (ap *AccountPayable) derivedStatus(referenceDate time.Time) PayableStatus {
	confirmed := ap.ConfirmedTotal()
	if confirmed.IsZero() {
		return PayableStatusOpen
	}
	if covered, _ := confirmed.GreaterThanOrEqual(ap.TotalDue(referenceDate)); covered {
		return PayableStatusPaid
	}
	return PayableStatusPartial
}

// recalculateStatus re-derives the status after a settlement mutation.
// CANCELLED is sticky. PROCESSING is an explicit latch that recomputation
// never drops back to OPEN or PARTIAL; the only automatic exit is full
// confirmed coverage, which always lands on PAID since a fully covered
// title has nothing left in flight.
func (ap *AccountPayable) recalculateStatus() {
	if ap.Status == PayableStatusCancelled {
		return
	}
	derived := ap.derivedStatus(time.Now())
	if ap.Status == PayableStatusProcessing && derived != PayableStatusPaid {
		return
	}
	ap.applyDerivedStatus(derived)
}

func (ap *AccountPayable) applyDerivedStatus(derived PayableStatus) {
	previous := ap.Status
	ap.Status = derived
	if derived == PayableStatusPaid && previous != PayableStatusPaid {
		now := time.Now()
		ap.PaidAt = &now
		ap.AddDomainEvent(NewPaymentCompletedEvent(ap, ap.lastConfirmedPayment()))
	}
}

// lastConfirmedPayment returns the most recently confirmed payment, or nil
func (ap *AccountPayable) lastConfirmedPayment() *Payment {
	var last *Payment
	for _, p := range ap.Payments {
		if !p.IsConfirmed() {
			continue
		}
		if last == nil || (p.ConfirmedAt != nil && last.ConfirmedAt != nil && p.ConfirmedAt.After(*last.ConfirmedAt)) {
			last = p
		}
	}
	return last
}

func (ap *AccountPayable) touch() {
	ap.UpdatedAt = time.Now()
	ap.IncrementVersion()
}

// Helper methods

// IsOpen returns true if no settlement has been confirmed yet
func (ap *AccountPayable) IsOpen() bool {
	return ap.Status == PayableStatusOpen
}

// IsPartial returns true if the payable is partially settled
func (ap *AccountPayable) IsPartial() bool {
	return ap.Status == PayableStatusPartial
}

// IsPaid returns true if the payable is fully settled
func (ap *AccountPayable) IsPaid() bool {
	return ap.Status == PayableStatusPaid
}

// IsCancelled returns true if the payable is cancelled
func (ap *AccountPayable) IsCancelled() bool {
	return ap.Status == PayableStatusCancelled
}

// IsOverdue returns true if the title is past due and not settled or cancelled
func (ap *AccountPayable) IsOverdue() bool {
	if ap.Status.IsTerminal() {
		return false
	}
	return ap.Terms.IsOverdue(time.Now())
}

// PaymentCount returns the number of registered payments
func (ap *AccountPayable) PaymentCount() int {
	return len(ap.Payments)
}

// PendingPayments returns the payments still awaiting confirmation
func (ap *AccountPayable) PendingPayments() []*Payment {
	pending := make([]*Payment, 0)
	for _, p := range ap.Payments {
		if p.IsPending() {
			pending = append(pending, p)
		}
	}
	return pending
}
