package finance

import (
	"fmt"
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableOrigin represents what produced the receivable title
type ReceivableOrigin string

const (
	ReceivableOriginFreightBilling ReceivableOrigin = "FREIGHT_BILLING"
	ReceivableOriginServiceInvoice ReceivableOrigin = "SERVICE_INVOICE"
	ReceivableOriginManual         ReceivableOrigin = "MANUAL"
)

// IsValid checks if the origin is valid
func (o ReceivableOrigin) IsValid() bool {
	switch o {
	case ReceivableOriginFreightBilling, ReceivableOriginServiceInvoice, ReceivableOriginManual:
		return true
	}
	return false
}

// AccountReceivable represents a receivable title aggregate root.
// Receipts are not modeled as discrete sub-entities: only a running received
// total plus last-receipt metadata is kept, so a confirmed receipt has no
// reversal path and partial receipt permanently blocks cancellation.
type AccountReceivable struct {
	shared.BranchAggregateRoot
	CustomerID       uuid.UUID                `json:"customer_id"`
	DocumentNumber   string                   `json:"document_number"`
	Description      string                   `json:"description"`
	Terms            valueobject.PaymentTerms `json:"terms"`
	IssueDate        time.Time                `json:"issue_date"`
	AmountReceived   decimal.Decimal          `json:"amount_received"`
	Status           ReceivableStatus         `json:"status"`
	Origin           ReceivableOrigin         `json:"origin"`
	ReceiveDate      *time.Time               `json:"receive_date,omitempty"`
	LastReceiptAt    *time.Time               `json:"last_receipt_at,omitempty"`
	BankAccountID    *uuid.UUID               `json:"bank_account_id,omitempty"`
	CategoryID       *uuid.UUID               `json:"category_id,omitempty"`
	CostCenterID     *uuid.UUID               `json:"cost_center_id,omitempty"`
	ChartAccountID   *uuid.UUID               `json:"chart_account_id,omitempty"`
	FiscalDocumentID *uuid.UUID               `json:"fiscal_document_id,omitempty"`
	Notes            string                   `json:"notes,omitempty"`
	CancelledAt      *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason     string                   `json:"cancel_reason,omitempty"`
}

// NewAccountReceivable creates a new receivable title
func NewAccountReceivable(
	organizationID uuid.UUID,
	branchID uuid.UUID,
	customerID uuid.UUID,
	documentNumber string,
	description string,
	terms valueobject.PaymentTerms,
	issueDate time.Time,
	origin ReceivableOrigin,
) (*AccountReceivable, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_BRANCH", "Branch ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID cannot be empty")
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
	if issueDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if !origin.IsValid() {
		return nil, shared.NewValidationError("INVALID_ORIGIN", "Origin is not valid")
	}

	ar := &AccountReceivable{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(organizationID, branchID),
		CustomerID:          customerID,
		DocumentNumber:      documentNumber,
		Description:         description,
		Terms:               terms,
		IssueDate:           issueDate,
		AmountReceived:      decimal.Zero,
		Status:              ReceivableStatusOpen,
		Origin:              origin,
	}

	ar.AddDomainEvent(NewAccountReceivableCreatedEvent(ar))

	return ar, nil
}

// ReconstituteAccountReceivable rebuilds a receivable from storage without
// validation and without raising events. Only the persistence layer may use
// this path.
func ReconstituteAccountReceivable(
	root shared.BranchAggregateRoot,
	customerID uuid.UUID,
	documentNumber string,
	description string,
	terms valueobject.PaymentTerms,
	issueDate time.Time,
	amountReceived decimal.Decimal,
	status ReceivableStatus,
	origin ReceivableOrigin,
	receiveDate, lastReceiptAt *time.Time,
	bankAccountID, categoryID, costCenterID, chartAccountID, fiscalDocumentID *uuid.UUID,
	notes string,
	cancelledAt *time.Time,
	cancelReason string,
) *AccountReceivable {
	return &AccountReceivable{
		BranchAggregateRoot: root,
		CustomerID:          customerID,
		DocumentNumber:      documentNumber,
		Description:         description,
		Terms:               terms,
		IssueDate:           issueDate,
		AmountReceived:      amountReceived,
		Status:              status,
		Origin:              origin,
		ReceiveDate:         receiveDate,
		LastReceiptAt:       lastReceiptAt,
		BankAccountID:       bankAccountID,
		CategoryID:          categoryID,
		CostCenterID:        costCenterID,
		ChartAccountID:      chartAccountID,
		FiscalDocumentID:    fiscalDocumentID,
		Notes:               notes,
		CancelledAt:         cancelledAt,
		CancelReason:        cancelReason,
	}
}

// Amount returns the original title amount
func (ar *AccountReceivable) Amount() valueobject.Money {
	return ar.Terms.Amount()
}

// AmountReceivedMoney returns the running received total in the title's currency
func (ar *AccountReceivable) AmountReceivedMoney() valueobject.Money {
	return ar.Amount().WithAmount(ar.AmountReceived)
}

// OutstandingAmount returns the title amount still to be received
func (ar *AccountReceivable) OutstandingAmount() valueobject.Money {
	return ar.Amount().MustSubtract(ar.AmountReceivedMoney())
}

// TotalDue returns the amount owed as of the reference date, including any
// overdue fine and pro-rata interest
func (ar *AccountReceivable) TotalDue(referenceDate time.Time) valueobject.Money {
	return ar.Terms.CalculateTotalDue(referenceDate)
}

// ReceivePayment records a receipt against the running total.
// The cumulative received amount can never exceed the original title amount.
func (ar *AccountReceivable) ReceivePayment(amount valueobject.Money, bankAccountID uuid.UUID, actor uuid.UUID) error {
	if !ar.Status.CanReceivePayment() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot receive payment on receivable in %s status", ar.Status))
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Receipt amount must be positive")
	}
	if amount.Currency() != ar.Terms.Amount().Currency() {
		return shared.NewValidationError("CURRENCY_MISMATCH",
			fmt.Sprintf("Receipt currency %s does not match title currency %s",
				amount.Currency(), ar.Terms.Amount().Currency()))
	}
	if bankAccountID == uuid.Nil {
		return shared.NewValidationError("INVALID_BANK_ACCOUNT", "Bank account ID cannot be empty")
	}

	newTotal := ar.AmountReceived.Add(amount.Amount())
	if newTotal.GreaterThan(ar.Terms.Amount().Amount()) {
		return shared.NewInvariantError("EXCEEDS_AMOUNT",
			fmt.Sprintf("Cumulative receipt %s would exceed the title amount %s",
				newTotal.StringFixed(2), ar.Terms.Amount().StringFixed(2)))
	}

	now := time.Now()
	ar.AmountReceived = newTotal
	ar.BankAccountID = &bankAccountID
	ar.LastReceiptAt = &now

	if newTotal.Equal(ar.Terms.Amount().Amount()) {
		ar.Status = ReceivableStatusReceived
		ar.ReceiveDate = &now
		ar.AddDomainEvent(NewAccountReceivableReceivedEvent(ar, amount, bankAccountID, actor))
	} else {
		ar.Status = ReceivableStatusPartial
		ar.AddDomainEvent(NewAccountReceivablePaymentReceivedEvent(ar, amount, bankAccountID, actor))
	}

	ar.touch()

	return nil
}

// Cancel cancels the receivable. There is no receipt reversal path, so any
// received amount permanently blocks cancellation.
func (ar *AccountReceivable) Cancel(reason string, actor uuid.UUID) error {
	if ar.Status.IsTerminal() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel receivable in %s status", ar.Status))
	}
	if !ar.Status.CanTransitionTo(ReceivableStatusCancelled) {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel receivable in %s status", ar.Status))
	}
	if ar.AmountReceived.GreaterThan(decimal.Zero) {
		return shared.NewStateError("HAS_RECEIPTS",
			"Cannot cancel receivable with received amounts; there is no reversal path")
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	ar.Status = ReceivableStatusCancelled
	ar.CancelledAt = &now
	ar.CancelReason = reason
	ar.touch()

	ar.AddDomainEvent(NewAccountReceivableCancelledEvent(ar, reason, actor))

	return nil
}

// ReceivableUpdate carries the editable fields of a receivable title
type ReceivableUpdate struct {
	Description    *string
	Notes          *string
	CategoryID     *uuid.UUID
	CostCenterID   *uuid.UUID
	ChartAccountID *uuid.UUID
}

// Update edits the mutable fields. Any edit is rejected once the title is in
// a terminal state.
func (ar *AccountReceivable) Update(update ReceivableUpdate, actor uuid.UUID) error {
	if ar.Status.IsTerminal() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot update receivable in %s status", ar.Status))
	}
	if update.Description != nil {
		if *update.Description == "" {
			return shared.NewValidationError("INVALID_DESCRIPTION", "Description cannot be empty")
		}
		ar.Description = *update.Description
	}
	if update.Notes != nil {
		ar.Notes = *update.Notes
	}
	if update.CategoryID != nil {
		ar.CategoryID = update.CategoryID
	}
	if update.CostCenterID != nil {
		ar.CostCenterID = update.CostCenterID
	}
	if update.ChartAccountID != nil {
		ar.ChartAccountID = update.ChartAccountID
	}
	ar.touch()

	return nil
}

// Reschedule moves the title to a new due date
func (ar *AccountReceivable) Reschedule(newDueDate time.Time, actor uuid.UUID) error {
	if ar.Status.IsTerminal() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot reschedule receivable in %s status", ar.Status))
	}
	previousDueDate := ar.Terms.DueDate()
	terms, err := ar.Terms.WithDueDate(newDueDate)
	if err != nil {
		return shared.NewValidationError("INVALID_DUE_DATE", err.Error())
	}
	ar.Terms = terms
	// A rescheduled overdue title is collectible again under the new date.
	if ar.Status == ReceivableStatusOverdue {
		revert := ReceivableStatusOpen
		if ar.AmountReceived.GreaterThan(decimal.Zero) {
			revert = ReceivableStatusPartial
		}
		if !ar.Status.CanTransitionTo(revert) {
			return shared.NewStateError("INVALID_STATE",
				fmt.Sprintf("Cannot revert receivable from %s to %s status", ar.Status, revert))
		}
		ar.Status = revert
	}
	ar.touch()

	ar.AddDomainEvent(NewAccountReceivableRescheduledEvent(ar, previousDueDate, newDueDate, actor))

	return nil
}

// MarkOverdue flags a past-due title. Legal only from OPEN or PARTIAL, and
// only once the due date has actually passed.
func (ar *AccountReceivable) MarkOverdue(referenceDate time.Time) error {
	if !ar.Status.CanTransitionTo(ReceivableStatusOverdue) {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot mark receivable overdue from %s status", ar.Status))
	}
	if !ar.Terms.IsOverdue(referenceDate) {
		return shared.NewStateError("NOT_OVERDUE", "Receivable is not past its due date")
	}
	ar.Status = ReceivableStatusOverdue
	ar.touch()

	ar.AddDomainEvent(NewAccountReceivableOverdueEvent(ar))

	return nil
}

// MarkAsProcessing sets the collection-in-flight latch
func (ar *AccountReceivable) MarkAsProcessing() error {
	if !ar.Status.CanEnterProcessing() {
		return shared.NewStateError("INVALID_STATE",
			fmt.Sprintf("Cannot mark receivable as processing from %s status", ar.Status))
	}
	ar.Status = ReceivableStatusProcessing
	ar.touch()
	return nil
}

// CompleteProcessing releases the processing latch, re-deriving status from
// the received-vs-total comparison.
func (ar *AccountReceivable) CompleteProcessing() error {
	if ar.Status != ReceivableStatusProcessing {
		return shared.NewStateError("INVALID_STATE", "Receivable is not in processing status")
	}
	switch {
	case ar.AmountReceived.Equal(ar.Terms.Amount().Amount()):
		ar.Status = ReceivableStatusReceived
	case ar.AmountReceived.GreaterThan(decimal.Zero):
		ar.Status = ReceivableStatusPartial
	default:
		ar.Status = ReceivableStatusOpen
	}
	ar.touch()
	return nil
}

func (ar *AccountReceivable) touch() {
	ar.UpdatedAt = time.Now()
	ar.IncrementVersion()
}

// Helper methods

// IsOpen returns true if nothing has been received yet
func (ar *AccountReceivable) IsOpen() bool {
	return ar.Status == ReceivableStatusOpen
}

// IsPartial returns true if the receivable is partially received
func (ar *AccountReceivable) IsPartial() bool {
	return ar.Status == ReceivableStatusPartial
}

// IsReceived returns true if the receivable is fully received
func (ar *AccountReceivable) IsReceived() bool {
	return ar.Status == ReceivableStatusReceived
}

// IsCancelled returns true if the receivable is cancelled
func (ar *AccountReceivable) IsCancelled() bool {
	return ar.Status == ReceivableStatusCancelled
}

// IsOverdue returns true if the title is past due and still collectible
func (ar *AccountReceivable) IsOverdue() bool {
	if ar.Status.IsTerminal() {
		return false
	}
	return ar.Terms.IsOverdue(time.Now())
}

// ReceivedPercentage returns the percentage of the title already received (0-100)
func (ar *AccountReceivable) ReceivedPercentage() decimal.Decimal {
	total := ar.Terms.Amount().Amount()
	if total.IsZero() {
		return decimal.NewFromInt(100)
	}
	return ar.AmountReceived.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}
