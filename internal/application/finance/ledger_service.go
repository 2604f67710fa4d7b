// Package finance wires the ledger aggregates to persistence and the outbox.
// Every state change follows the same shape: load, mutate through the
// aggregate, save with an optimistic lock, drain events into the outbox.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/freteflow/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scope identifies the organization, branch and acting user of a request
type Scope struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	ActorID        uuid.UUID
}

// LedgerService provides application-level title ledger operations
type LedgerService struct {
	payableRepo    finance.AccountPayableRepository
	receivableRepo finance.AccountReceivableRepository
	outboxRepo     shared.OutboxRepository
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	payableRepo finance.AccountPayableRepository,
	receivableRepo finance.AccountReceivableRepository,
	outboxRepo shared.OutboxRepository,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		payableRepo:    payableRepo,
		receivableRepo: receivableRepo,
		outboxRepo:     outboxRepo,
		logger:         logger,
	}
}

// ===================== Requests and responses =====================

// TermsRequest carries the payment terms of a new title
type TermsRequest struct {
	Amount         decimal.Decimal  `json:"amount" binding:"required"`
	Currency       string           `json:"currency" binding:"omitempty,currency"`
	DueDate        time.Time        `json:"due_date" binding:"required"`
	DiscountUntil  *time.Time       `json:"discount_until"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	FineRate       decimal.Decimal  `json:"fine_rate"`
	InterestRate   decimal.Decimal  `json:"interest_rate"`
}

func (r TermsRequest) toDomain() (valueobject.PaymentTerms, error) {
	currency := valueobject.DefaultCurrency
	if r.Currency != "" {
		currency = valueobject.Currency(r.Currency)
	}
	amount, err := valueobject.NewMoney(r.Amount, currency)
	if err != nil {
		return valueobject.PaymentTerms{}, shared.NewValidationError("INVALID_CURRENCY", err.Error())
	}
	var discountAmount *valueobject.Money
	if r.DiscountAmount != nil {
		m, err := valueobject.NewMoney(*r.DiscountAmount, currency)
		if err != nil {
			return valueobject.PaymentTerms{}, shared.NewValidationError("INVALID_CURRENCY", err.Error())
		}
		discountAmount = &m
	}
	terms, err := valueobject.NewPaymentTerms(r.DueDate, amount, r.DiscountUntil, discountAmount, r.FineRate, r.InterestRate)
	if err != nil {
		return valueobject.PaymentTerms{}, shared.NewValidationError("INVALID_TERMS", err.Error())
	}
	return terms, nil
}

// CreatePayableRequest carries the fields of a new payable title
type CreatePayableRequest struct {
	SupplierID     uuid.UUID    `json:"supplier_id" binding:"required"`
	DocumentNumber string       `json:"document_number" binding:"required,max=50"`
	Description    string       `json:"description" binding:"required"`
	Terms          TermsRequest `json:"terms" binding:"required"`
	CategoryID     *uuid.UUID   `json:"category_id"`
	CostCenterID   *uuid.UUID   `json:"cost_center_id"`
	Notes          string       `json:"notes"`
}

// RegisterPaymentRequest carries the fields of a settlement attempt
type RegisterPaymentRequest struct {
	Amount        decimal.Decimal       `json:"amount" binding:"required"`
	Currency      string                `json:"currency" binding:"omitempty,currency"`
	Method        finance.PaymentMethod `json:"method" binding:"required"`
	BankAccountID *uuid.UUID            `json:"bank_account_id"`
	TransactionID string                `json:"transaction_id"`
	Notes         string                `json:"notes"`
}

// CancelRequest carries a cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RescheduleRequest carries a new due date
type RescheduleRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
}

// SplitRequest carries the installment amounts of a split
type SplitRequest struct {
	Installments []decimal.Decimal `json:"installments" binding:"required,min=2"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID             `json:"id"`
	Amount        decimal.Decimal       `json:"amount"`
	Method        finance.PaymentMethod `json:"method"`
	Status        finance.PaymentStatus `json:"status"`
	BankAccountID *uuid.UUID            `json:"bank_account_id,omitempty"`
	TransactionID string                `json:"transaction_id,omitempty"`
	ConfirmedAt   *time.Time            `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// PayableResponse represents a payable title in API responses
type PayableResponse struct {
	ID             uuid.UUID             `json:"id"`
	OrganizationID uuid.UUID             `json:"organization_id"`
	BranchID       uuid.UUID             `json:"branch_id"`
	SupplierID     uuid.UUID             `json:"supplier_id"`
	DocumentNumber string                `json:"document_number"`
	Description    string                `json:"description"`
	Amount         decimal.Decimal       `json:"amount"`
	Currency       string                `json:"currency"`
	DueDate        time.Time             `json:"due_date"`
	TotalDue       decimal.Decimal       `json:"total_due"`
	ConfirmedTotal decimal.Decimal       `json:"confirmed_total"`
	Remaining      decimal.Decimal       `json:"remaining"`
	Status         finance.PayableStatus `json:"status"`
	Overdue        bool                  `json:"overdue"`
	Payments       []PaymentResponse     `json:"payments,omitempty"`
	CategoryID     *uuid.UUID            `json:"category_id,omitempty"`
	CostCenterID   *uuid.UUID            `json:"cost_center_id,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	PaidAt         *time.Time            `json:"paid_at,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   string                `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int                   `json:"version"`
}

func toPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		Amount:        p.Amount.Amount(),
		Method:        p.Method,
		Status:        p.Status,
		BankAccountID: p.BankAccountID,
		TransactionID: p.TransactionID,
		ConfirmedAt:   p.ConfirmedAt,
		CancelledAt:   p.CancelledAt,
		CreatedAt:     p.CreatedAt,
	}
}

func toPayableResponse(ap *finance.AccountPayable) *PayableResponse {
	now := time.Now()
	payments := make([]PaymentResponse, len(ap.Payments))
	for i, p := range ap.Payments {
		payments[i] = toPaymentResponse(p)
	}
	return &PayableResponse{
		ID:             ap.ID,
		OrganizationID: ap.OrganizationID,
		BranchID:       ap.BranchID,
		SupplierID:     ap.SupplierID,
		DocumentNumber: ap.DocumentNumber,
		Description:    ap.Description,
		Amount:         ap.Terms.Amount().Amount(),
		Currency:       string(ap.Terms.Amount().Currency()),
		DueDate:        ap.Terms.DueDate(),
		TotalDue:       ap.TotalDue(now).Amount(),
		ConfirmedTotal: ap.ConfirmedTotal().Amount(),
		Remaining:      ap.RemainingAmount(now).Amount(),
		Status:         ap.Status,
		Overdue:        ap.IsOverdue(),
		Payments:       payments,
		CategoryID:     ap.CategoryID,
		CostCenterID:   ap.CostCenterID,
		Notes:          ap.Notes,
		PaidAt:         ap.PaidAt,
		CancelledAt:    ap.CancelledAt,
		CancelReason:   ap.CancelReason,
		CreatedAt:      ap.CreatedAt,
		UpdatedAt:      ap.UpdatedAt,
		Version:        ap.GetVersion(),
	}
}

// ===================== Account Payable operations =====================

// CreatePayable creates a new payable title
func (s *LedgerService) CreatePayable(ctx context.Context, scope Scope, req CreatePayableRequest) (*PayableResponse, error) {
	terms, err := req.Terms.toDomain()
	if err != nil {
		return nil, err
	}

	existing, err := s.payableRepo.FindByDocumentNumber(ctx, scope.OrganizationID, scope.BranchID, req.DocumentNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewValidationError("DUPLICATE_DOCUMENT_NUMBER",
			"A payable with this document number already exists")
	}

	payable, err := finance.NewAccountPayable(
		scope.OrganizationID, scope.BranchID,
		req.SupplierID, req.DocumentNumber, req.Description, terms,
	)
	if err != nil {
		return nil, err
	}
	payable.CategoryID = req.CategoryID
	payable.CostCenterID = req.CostCenterID
	payable.Notes = req.Notes

	if err := s.payableRepo.Save(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	s.logger.Info("payable created",
		zap.String("payable_id", payable.ID.String()),
		zap.String("document_number", payable.DocumentNumber),
		zap.String("organization_id", scope.OrganizationID.String()))

	return toPayableResponse(payable), nil
}

// GetPayableByID gets a payable by ID
func (s *LedgerService) GetPayableByID(ctx context.Context, scope Scope, id uuid.UUID) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toPayableResponse(payable), nil
}

// ListPayables lists payables with filtering
func (s *LedgerService) ListPayables(ctx context.Context, scope Scope, filter finance.AccountPayableFilter) ([]PayableResponse, int64, error) {
	payables, err := s.payableRepo.FindAll(ctx, scope.OrganizationID, scope.BranchID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.payableRepo.Count(ctx, scope.OrganizationID, scope.BranchID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PayableResponse, len(payables))
	for i := range payables {
		responses[i] = *toPayableResponse(&payables[i])
	}
	return responses, total, nil
}

// RegisterPayment registers a settlement attempt against a payable
func (s *LedgerService) RegisterPayment(ctx context.Context, scope Scope, payableID uuid.UUID, req RegisterPaymentRequest) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, payableID)
	if err != nil {
		return nil, err
	}

	currency := payable.Terms.Amount().Currency()
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewValidationError("INVALID_CURRENCY", err.Error())
	}

	payment, err := finance.NewPayment(payable.ID, amount, req.Method, req.BankAccountID, req.TransactionID, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := payable.RegisterPayment(payment); err != nil {
		return nil, err
	}

	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	return toPayableResponse(payable), nil
}

// ConfirmPayment confirms a registered payment
func (s *LedgerService) ConfirmPayment(ctx context.Context, scope Scope, payableID, paymentID uuid.UUID) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, payableID)
	if err != nil {
		return nil, err
	}
	if err := payable.ConfirmPayment(paymentID); err != nil {
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	if payable.IsPaid() {
		s.logger.Info("payable fully settled",
			zap.String("payable_id", payable.ID.String()),
			zap.String("document_number", payable.DocumentNumber))
	}

	return toPayableResponse(payable), nil
}

// CancelPayment cancels a pending payment
func (s *LedgerService) CancelPayment(ctx context.Context, scope Scope, payableID, paymentID uuid.UUID) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, payableID)
	if err != nil {
		return nil, err
	}
	if err := payable.CancelPayment(paymentID); err != nil {
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	return toPayableResponse(payable), nil
}

// CancelPayable cancels a payable and all of its pending payments
func (s *LedgerService) CancelPayable(ctx context.Context, scope Scope, id uuid.UUID, req CancelRequest) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := payable.Cancel(req.Reason, scope.ActorID); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && !domainErr.IsRecoverable() {
			s.logger.Error("payable cancellation integrity failure",
				zap.String("payable_id", id.String()),
				zap.String("code", domainErr.Code),
				zap.String("message", domainErr.Message))
		}
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	return toPayableResponse(payable), nil
}

// ReschedulePayable moves a payable to a new due date
func (s *LedgerService) ReschedulePayable(ctx context.Context, scope Scope, id uuid.UUID, req RescheduleRequest) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := payable.Reschedule(req.DueDate, scope.ActorID); err != nil {
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)

	return toPayableResponse(payable), nil
}

// SplitPayable splits a payable into installment titles. The original is
// cancelled and the children saved in its place; the outstanding obligation
// is unchanged.
func (s *LedgerService) SplitPayable(ctx context.Context, scope Scope, id uuid.UUID, req SplitRequest) ([]PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	currency := payable.Terms.Amount().Currency()
	installments := make([]valueobject.Money, len(req.Installments))
	for i, amount := range req.Installments {
		m, err := valueobject.NewMoney(amount, currency)
		if err != nil {
			return nil, shared.NewValidationError("INVALID_CURRENCY", err.Error())
		}
		installments[i] = m
	}

	children, err := payable.Split(installments, scope.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := s.payableRepo.Save(ctx, child); err != nil {
			return nil, err
		}
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)
	for _, child := range children {
		s.drainEvents(ctx, &child.BaseAggregateRoot)
	}

	s.logger.Info("payable split",
		zap.String("payable_id", id.String()),
		zap.Int("installments", len(children)))

	responses := make([]PayableResponse, len(children))
	for i, child := range children {
		responses[i] = *toPayableResponse(child)
	}
	return responses, nil
}

// MarkPayableProcessing sets the settlement-in-flight latch on a payable
func (s *LedgerService) MarkPayableProcessing(ctx context.Context, scope Scope, id uuid.UUID) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := payable.MarkAsProcessing(); err != nil {
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	return toPayableResponse(payable), nil
}

// CompletePayableProcessing releases the settlement-in-flight latch
func (s *LedgerService) CompletePayableProcessing(ctx context.Context, scope Scope, id uuid.UUID) (*PayableResponse, error) {
	payable, err := s.loadPayable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := payable.CompleteProcessing(); err != nil {
		return nil, err
	}
	if err := s.payableRepo.SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &payable.BaseAggregateRoot)
	return toPayableResponse(payable), nil
}

func (s *LedgerService) loadPayable(ctx context.Context, scope Scope, id uuid.UUID) (*finance.AccountPayable, error) {
	payable, err := s.payableRepo.FindByID(ctx, scope.OrganizationID, scope.BranchID, id)
	if err != nil {
		return nil, err
	}
	if payable == nil {
		return nil, shared.NewValidationError("NOT_FOUND", "Account payable not found")
	}
	return payable, nil
}

// drainEvents moves buffered aggregate events into the outbox. Failures are
// logged and swallowed: the state change has already been committed and the
// outbox sweep will pick up gaps from the aggregate history if needed.
func (s *LedgerService) drainEvents(ctx context.Context, root *shared.BaseAggregateRoot) {
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("event payload marshal failed",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
			continue
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	if len(entries) > 0 {
		if err := s.outboxRepo.Save(ctx, entries...); err != nil {
			s.logger.Error("outbox save failed",
				zap.Int("entries", len(entries)),
				zap.Error(err))
		}
	}
	root.ClearDomainEvents()
}

// ===================== Account Receivable operations =====================

// CreateReceivableRequest carries the fields of a new receivable title
type CreateReceivableRequest struct {
	CustomerID     uuid.UUID                `json:"customer_id" binding:"required"`
	DocumentNumber string                   `json:"document_number" binding:"required,max=50"`
	Description    string                   `json:"description" binding:"required"`
	Terms          TermsRequest             `json:"terms" binding:"required"`
	IssueDate      time.Time                `json:"issue_date" binding:"required"`
	Origin         finance.ReceivableOrigin `json:"origin" binding:"required"`
	CategoryID     *uuid.UUID               `json:"category_id"`
	CostCenterID   *uuid.UUID               `json:"cost_center_id"`
	ChartAccountID *uuid.UUID               `json:"chart_account_id"`
	Notes          string                   `json:"notes"`
}

// ReceivePaymentRequest carries the fields of a receipt
type ReceivePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"omitempty,currency"`
	BankAccountID uuid.UUID       `json:"bank_account_id" binding:"required"`
}

// UpdateReceivableRequest carries the editable fields of a receivable
type UpdateReceivableRequest struct {
	Description    *string    `json:"description"`
	Notes          *string    `json:"notes"`
	CategoryID     *uuid.UUID `json:"category_id"`
	CostCenterID   *uuid.UUID `json:"cost_center_id"`
	ChartAccountID *uuid.UUID `json:"chart_account_id"`
}

// ReceivableResponse represents a receivable title in API responses
type ReceivableResponse struct {
	ID             uuid.UUID                `json:"id"`
	OrganizationID uuid.UUID                `json:"organization_id"`
	BranchID       uuid.UUID                `json:"branch_id"`
	CustomerID     uuid.UUID                `json:"customer_id"`
	DocumentNumber string                   `json:"document_number"`
	Description    string                   `json:"description"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency"`
	DueDate        time.Time                `json:"due_date"`
	IssueDate      time.Time                `json:"issue_date"`
	TotalDue       decimal.Decimal          `json:"total_due"`
	AmountReceived decimal.Decimal          `json:"amount_received"`
	Outstanding    decimal.Decimal          `json:"outstanding"`
	Status         finance.ReceivableStatus `json:"status"`
	Origin         finance.ReceivableOrigin `json:"origin"`
	Overdue        bool                     `json:"overdue"`
	ReceiveDate    *time.Time               `json:"receive_date,omitempty"`
	BankAccountID  *uuid.UUID               `json:"bank_account_id,omitempty"`
	CategoryID     *uuid.UUID               `json:"category_id,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason   string                   `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Version        int                      `json:"version"`
}

func toReceivableResponse(ar *finance.AccountReceivable) *ReceivableResponse {
	return &ReceivableResponse{
		ID:             ar.ID,
		OrganizationID: ar.OrganizationID,
		BranchID:       ar.BranchID,
		CustomerID:     ar.CustomerID,
		DocumentNumber: ar.DocumentNumber,
		Description:    ar.Description,
		Amount:         ar.Terms.Amount().Amount(),
		Currency:       string(ar.Terms.Amount().Currency()),
		DueDate:        ar.Terms.DueDate(),
		IssueDate:      ar.IssueDate,
		TotalDue:       ar.TotalDue(time.Now()).Amount(),
		AmountReceived: ar.AmountReceived,
		Outstanding:    ar.OutstandingAmount().Amount(),
		Status:         ar.Status,
		Origin:         ar.Origin,
		Overdue:        ar.IsOverdue(),
		ReceiveDate:    ar.ReceiveDate,
		BankAccountID:  ar.BankAccountID,
		CategoryID:     ar.CategoryID,
		Notes:          ar.Notes,
		CancelledAt:    ar.CancelledAt,
		CancelReason:   ar.CancelReason,
		CreatedAt:      ar.CreatedAt,
		UpdatedAt:      ar.UpdatedAt,
		Version:        ar.GetVersion(),
	}
}

// CreateReceivable creates a new receivable title
func (s *LedgerService) CreateReceivable(ctx context.Context, scope Scope, req CreateReceivableRequest) (*ReceivableResponse, error) {
	terms, err := req.Terms.toDomain()
	if err != nil {
		return nil, err
	}

	existing, err := s.receivableRepo.FindByDocumentNumber(ctx, scope.OrganizationID, scope.BranchID, req.DocumentNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewValidationError("DUPLICATE_DOCUMENT_NUMBER",
			"A receivable with this document number already exists")
	}

	receivable, err := finance.NewAccountReceivable(
		scope.OrganizationID, scope.BranchID,
		req.CustomerID, req.DocumentNumber, req.Description, terms, req.IssueDate, req.Origin,
	)
	if err != nil {
		return nil, err
	}
	receivable.CategoryID = req.CategoryID
	receivable.CostCenterID = req.CostCenterID
	receivable.ChartAccountID = req.ChartAccountID
	receivable.Notes = req.Notes

	if err := s.receivableRepo.Save(ctx, receivable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &receivable.BaseAggregateRoot)

	s.logger.Info("receivable created",
		zap.String("receivable_id", receivable.ID.String()),
		zap.String("document_number", receivable.DocumentNumber),
		zap.String("origin", string(receivable.Origin)))

	return toReceivableResponse(receivable), nil
}

// GetReceivableByID gets a receivable by ID
func (s *LedgerService) GetReceivableByID(ctx context.Context, scope Scope, id uuid.UUID) (*ReceivableResponse, error) {
	receivable, err := s.loadReceivable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toReceivableResponse(receivable), nil
}

// ListReceivables lists receivables with filtering
func (s *LedgerService) ListReceivables(ctx context.Context, scope Scope, filter finance.AccountReceivableFilter) ([]ReceivableResponse, int64, error) {
	receivables, err := s.receivableRepo.FindAll(ctx, scope.OrganizationID, scope.BranchID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.receivableRepo.Count(ctx, scope.OrganizationID, scope.BranchID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ReceivableResponse, len(receivables))
	for i := range receivables {
		responses[i] = *toReceivableResponse(&receivables[i])
	}
	return responses, total, nil
}

// ReceiveReceivablePayment records a receipt against a receivable
func (s *LedgerService) ReceiveReceivablePayment(ctx context.Context, scope Scope, id uuid.UUID, req ReceivePaymentRequest) (*ReceivableResponse, error) {
	receivable, err := s.loadReceivable(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	currency := receivable.Terms.Amount().Currency()
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewValidationError("INVALID_CURRENCY", err.Error())
	}

	if err := receivable.ReceivePayment(amount, req.BankAccountID, scope.ActorID); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &receivable.BaseAggregateRoot)

	return toReceivableResponse(receivable), nil
}

// CancelReceivable cancels a receivable title
func (s *LedgerService) CancelReceivable(ctx context.Context, scope Scope, id uuid.UUID, req CancelRequest) (*ReceivableResponse, error) {
	receivable, err := s.loadReceivable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := receivable.Cancel(req.Reason, scope.ActorID); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &receivable.BaseAggregateRoot)

	return toReceivableResponse(receivable), nil
}

// RescheduleReceivable moves a receivable to a new due date
func (s *LedgerService) RescheduleReceivable(ctx context.Context, scope Scope, id uuid.UUID, req RescheduleRequest) (*ReceivableResponse, error) {
	receivable, err := s.loadReceivable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := receivable.Reschedule(req.DueDate, scope.ActorID); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		return nil, err
	}
	s.drainEvents(ctx, &receivable.BaseAggregateRoot)

	return toReceivableResponse(receivable), nil
}

// UpdateReceivable edits the mutable fields of a receivable
func (s *LedgerService) UpdateReceivable(ctx context.Context, scope Scope, id uuid.UUID, req UpdateReceivableRequest) (*ReceivableResponse, error) {
	receivable, err := s.loadReceivable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	update := finance.ReceivableUpdate{
		Description:    req.Description,
		Notes:          req.Notes,
		CategoryID:     req.CategoryID,
		CostCenterID:   req.CostCenterID,
		ChartAccountID: req.ChartAccountID,
	}
	if err := receivable.Update(update, scope.ActorID); err != nil {
		return nil, err
	}
	if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
		return nil, err
	}
	return toReceivableResponse(receivable), nil
}

// SweepOverdueReceivables flags every collectible past-due title in the branch.
// Titles that fail to transition individually are logged and skipped so one
// bad row does not block the sweep.
func (s *LedgerService) SweepOverdueReceivables(ctx context.Context, scope Scope, reference time.Time) (int, error) {
	receivables, err := s.receivableRepo.FindOverdue(ctx, scope.OrganizationID, scope.BranchID, reference)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range receivables {
		receivable := &receivables[i]
		if err := receivable.MarkOverdue(reference); err != nil {
			continue
		}
		if err := s.receivableRepo.SaveWithLock(ctx, receivable); err != nil {
			s.logger.Warn("overdue sweep save failed",
				zap.String("receivable_id", receivable.ID.String()),
				zap.Error(err))
			continue
		}
		s.drainEvents(ctx, &receivable.BaseAggregateRoot)
		marked++
	}

	if marked > 0 {
		s.logger.Info("overdue receivables flagged",
			zap.Int("count", marked),
			zap.String("branch_id", scope.BranchID.String()))
	}
	return marked, nil
}

// SweepAllOverdueReceivables runs the overdue sweep for every branch that
// holds collectible past-due titles. Branches that fail are logged and
// skipped.
func (s *LedgerService) SweepAllOverdueReceivables(ctx context.Context, reference time.Time) (int, error) {
	scopes, err := s.receivableRepo.FindOverdueScopes(ctx, reference)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, branch := range scopes {
		marked, err := s.SweepOverdueReceivables(ctx, Scope{
			OrganizationID: branch.OrganizationID,
			BranchID:       branch.BranchID,
		}, reference)
		if err != nil {
			s.logger.Warn("branch overdue sweep failed",
				zap.String("organization_id", branch.OrganizationID.String()),
				zap.String("branch_id", branch.BranchID.String()),
				zap.Error(err))
			continue
		}
		total += marked
	}
	return total, nil
}

func (s *LedgerService) loadReceivable(ctx context.Context, scope Scope, id uuid.UUID) (*finance.AccountReceivable, error) {
	receivable, err := s.receivableRepo.FindByID(ctx, scope.OrganizationID, scope.BranchID, id)
	if err != nil {
		return nil, err
	}
	if receivable == nil {
		return nil, shared.NewValidationError("NOT_FOUND", "Account receivable not found")
	}
	return receivable, nil
}

// ===================== Billing finalization =====================

// FinalizeBillingRequest carries a billed freight service plus the contextual
// withholding flags
type FinalizeBillingRequest struct {
	CustomerID      uuid.UUID        `json:"customer_id" binding:"required"`
	DocumentNumber  string           `json:"document_number" binding:"required,max=50"`
	Description     string           `json:"description" binding:"required"`
	GrossAmount     decimal.Decimal  `json:"gross_amount" binding:"required"`
	DueDate         time.Time        `json:"due_date" binding:"required"`
	FineRate        decimal.Decimal  `json:"fine_rate"`
	InterestRate    decimal.Decimal  `json:"interest_rate"`
	LegalEntity     bool             `json:"legal_entity"`
	SimplesNacional bool             `json:"simples_nacional"`
	ServiceType     tax.ServiceType  `json:"service_type"`
	ISSRetained     bool             `json:"iss_retained"`
	ISSRate         decimal.Decimal  `json:"iss_rate"`
	INSSRetained    bool             `json:"inss_retained"`
	INSSRate        *decimal.Decimal `json:"inss_rate"`
}

// FinalizeBillingResponse pairs the created receivable with the withholding
// breakdown that produced its net amount
type FinalizeBillingResponse struct {
	Receivable  *ReceivableResponse `json:"receivable"`
	Withholding *tax.Outcome        `json:"withholding"`
}

// FinalizeBilling turns a billed freight service into a receivable title.
// Withholding taxes are computed over the gross amount and the title is opened
// for the net value the customer will actually transfer.
func (s *LedgerService) FinalizeBilling(ctx context.Context, scope Scope, req FinalizeBillingRequest) (*FinalizeBillingResponse, error) {
	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = tax.ServiceTypeFreight
	}
	if !serviceType.IsValid() {
		return nil, shared.NewValidationError("INVALID_SERVICE_TYPE", "Service type is not valid")
	}

	gross := valueobject.NewMoneyBRL(req.GrossAmount)
	outcome, err := tax.Calculate(tax.CalculationInput{
		GrossAmount:     gross,
		LegalEntity:     req.LegalEntity,
		SimplesNacional: req.SimplesNacional,
		ServiceType:     serviceType,
		ISSRetained:     req.ISSRetained,
		ISSRate:         req.ISSRate,
		INSSRetained:    req.INSSRetained,
		INSSRate:        req.INSSRate,
	})
	if err != nil {
		return nil, err
	}

	receivable, err := s.CreateReceivable(ctx, scope, CreateReceivableRequest{
		CustomerID:     req.CustomerID,
		DocumentNumber: req.DocumentNumber,
		Description:    req.Description,
		Terms: TermsRequest{
			Amount:       outcome.NetAmount.Amount(),
			DueDate:      req.DueDate,
			FineRate:     req.FineRate,
			InterestRate: req.InterestRate,
		},
		IssueDate: time.Now(),
		Origin:    finance.ReceivableOriginFreightBilling,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("billing finalized",
		zap.String("receivable_id", receivable.ID.String()),
		zap.String("gross", gross.StringFixed(2)),
		zap.String("withheld", outcome.TotalWithholding.StringFixed(2)),
		zap.String("net", outcome.NetAmount.StringFixed(2)))

	return &FinalizeBillingResponse{
		Receivable:  receivable,
		Withholding: outcome,
	}, nil
}

// SimulateWithholding runs the withholding calculator without creating titles
func (s *LedgerService) SimulateWithholding(ctx context.Context, input tax.CalculationInput) (*tax.Outcome, error) {
	return tax.Calculate(input)
}
