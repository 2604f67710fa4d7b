package models

import (
	"fmt"
	"time"

	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TermsColumns holds the flattened payment terms columns shared by payable and
// receivable models.
type TermsColumns struct {
	Amount         decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Currency       string           `gorm:"type:varchar(3);not null;default:'BRL'"`
	DueDate        time.Time        `gorm:"not null;index"`
	DiscountUntil  *time.Time       `gorm:""`
	DiscountAmount *decimal.Decimal `gorm:"type:decimal(18,2)"`
	FineRate       decimal.Decimal  `gorm:"type:decimal(9,4);not null;default:0"`
	InterestRate   decimal.Decimal  `gorm:"type:decimal(9,4);not null;default:0"`
}

// FromTerms populates the columns from a domain PaymentTerms
func (c *TermsColumns) FromTerms(terms valueobject.PaymentTerms) {
	c.Amount = terms.Amount().Amount()
	c.Currency = string(terms.Amount().Currency())
	c.DueDate = terms.DueDate()
	c.DiscountUntil = terms.DiscountUntil()
	c.FineRate = terms.FineRate()
	c.InterestRate = terms.InterestRate()
	if discount := terms.DiscountAmount(); discount != nil {
		amount := discount.Amount()
		c.DiscountAmount = &amount
	} else {
		c.DiscountAmount = nil
	}
}

// ToTerms rebuilds a domain PaymentTerms from the columns
func (c *TermsColumns) ToTerms() (valueobject.PaymentTerms, error) {
	amount, err := valueobject.NewMoney(c.Amount, valueobject.Currency(c.Currency))
	if err != nil {
		return valueobject.PaymentTerms{}, fmt.Errorf("stored amount is invalid: %w", err)
	}
	var discountAmount *valueobject.Money
	if c.DiscountAmount != nil {
		discount, err := valueobject.NewMoney(*c.DiscountAmount, valueobject.Currency(c.Currency))
		if err != nil {
			return valueobject.PaymentTerms{}, fmt.Errorf("stored discount is invalid: %w", err)
		}
		discountAmount = &discount
	}
	terms, err := valueobject.NewPaymentTerms(c.DueDate, amount, c.DiscountUntil, discountAmount, c.FineRate, c.InterestRate)
	if err != nil {
		return valueobject.PaymentTerms{}, fmt.Errorf("stored terms are invalid: %w", err)
	}
	return terms, nil
}

// AccountPayableModel is the persistence model for the AccountPayable aggregate root.
type AccountPayableModel struct {
	BranchAggregateModel
	SupplierID     uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentNumber string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_payable_scope_document,priority:3"`
	Description    string    `gorm:"type:varchar(500);not null"`
	TermsColumns   `gorm:"embedded"`
	Status         finance.PayableStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Payments       []PaymentModel        `gorm:"foreignKey:PayableID;references:ID"`
	CategoryID     *uuid.UUID            `gorm:"type:uuid;index"`
	CostCenterID   *uuid.UUID            `gorm:"type:uuid;index"`
	Notes          string                `gorm:"type:text"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountPayableModel) TableName() string {
	return "account_payables"
}

// ToDomain converts the persistence model to a domain AccountPayable entity.
func (m *AccountPayableModel) ToDomain() (*finance.AccountPayable, error) {
	terms, err := m.ToTerms()
	if err != nil {
		return nil, err
	}
	payments := make([]*finance.Payment, len(m.Payments))
	for i, pm := range m.Payments {
		payment, err := pm.ToDomain()
		if err != nil {
			return nil, err
		}
		payments[i] = payment
	}
	return finance.ReconstituteAccountPayable(
		m.ToBranchAggregateRoot(),
		m.SupplierID,
		m.DocumentNumber,
		m.Description,
		terms,
		m.Status,
		payments,
		m.CategoryID,
		m.CostCenterID,
		m.Notes,
		m.PaidAt,
		m.CancelledAt,
		m.CancelReason,
	), nil
}

// FromDomain populates the persistence model from a domain AccountPayable entity.
func (m *AccountPayableModel) FromDomain(ap *finance.AccountPayable) {
	m.FromDomainBranchAggregateRoot(ap.BranchAggregateRoot)
	m.SupplierID = ap.SupplierID
	m.DocumentNumber = ap.DocumentNumber
	m.Description = ap.Description
	m.FromTerms(ap.Terms)
	m.Status = ap.Status
	m.CategoryID = ap.CategoryID
	m.CostCenterID = ap.CostCenterID
	m.Notes = ap.Notes
	m.PaidAt = ap.PaidAt
	m.CancelledAt = ap.CancelledAt
	m.CancelReason = ap.CancelReason
	m.Payments = make([]PaymentModel, len(ap.Payments))
	for i, payment := range ap.Payments {
		m.Payments[i] = *PaymentModelFromDomain(payment)
	}
}

// AccountPayableModelFromDomain creates a new persistence model from a domain AccountPayable.
func AccountPayableModelFromDomain(ap *finance.AccountPayable) *AccountPayableModel {
	m := &AccountPayableModel{}
	m.FromDomain(ap)
	return m
}

// PaymentModel is the persistence model for the Payment entity.
type PaymentModel struct {
	BaseModel
	PayableID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency      string                `gorm:"type:varchar(3);not null;default:'BRL'"`
	Method        finance.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status        finance.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	BankAccountID *uuid.UUID            `gorm:"type:uuid"`
	TransactionID string                `gorm:"type:varchar(100)"`
	Notes         string                `gorm:"type:varchar(500)"`
	ConfirmedAt   *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() (*finance.Payment, error) {
	amount, err := valueobject.NewMoney(m.Amount, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, fmt.Errorf("stored payment amount is invalid: %w", err)
	}
	return finance.ReconstitutePayment(
		m.ID,
		m.PayableID,
		amount,
		m.Method,
		m.Status,
		m.BankAccountID,
		m.TransactionID,
		m.Notes,
		m.ConfirmedAt,
		m.CancelledAt,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *finance.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.PayableID = p.PayableID
	m.Amount = p.Amount.Amount()
	m.Currency = string(p.Amount.Currency())
	m.Method = p.Method
	m.Status = p.Status
	m.BankAccountID = p.BankAccountID
	m.TransactionID = p.TransactionID
	m.Notes = p.Notes
	m.ConfirmedAt = p.ConfirmedAt
	m.CancelledAt = p.CancelledAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AccountReceivableModel is the persistence model for the AccountReceivable aggregate root.
type AccountReceivableModel struct {
	BranchAggregateModel
	CustomerID       uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentNumber   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_receivable_scope_document,priority:3"`
	Description      string    `gorm:"type:varchar(500);not null"`
	TermsColumns     `gorm:"embedded"`
	IssueDate        time.Time                `gorm:"not null"`
	AmountReceived   decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Status           finance.ReceivableStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Origin           finance.ReceivableOrigin `gorm:"type:varchar(30);not null;index"`
	ReceiveDate      *time.Time
	LastReceiptAt    *time.Time
	BankAccountID    *uuid.UUID `gorm:"type:uuid"`
	CategoryID       *uuid.UUID `gorm:"type:uuid;index"`
	CostCenterID     *uuid.UUID `gorm:"type:uuid;index"`
	ChartAccountID   *uuid.UUID `gorm:"type:uuid"`
	FiscalDocumentID *uuid.UUID `gorm:"type:uuid"`
	Notes            string     `gorm:"type:text"`
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountReceivableModel) TableName() string {
	return "account_receivables"
}

// ToDomain converts the persistence model to a domain AccountReceivable entity.
func (m *AccountReceivableModel) ToDomain() (*finance.AccountReceivable, error) {
	terms, err := m.ToTerms()
	if err != nil {
		return nil, err
	}
	return finance.ReconstituteAccountReceivable(
		m.ToBranchAggregateRoot(),
		m.CustomerID,
		m.DocumentNumber,
		m.Description,
		terms,
		m.IssueDate,
		m.AmountReceived,
		m.Status,
		m.Origin,
		m.ReceiveDate,
		m.LastReceiptAt,
		m.BankAccountID,
		m.CategoryID,
		m.CostCenterID,
		m.ChartAccountID,
		m.FiscalDocumentID,
		m.Notes,
		m.CancelledAt,
		m.CancelReason,
	), nil
}

// FromDomain populates the persistence model from a domain AccountReceivable entity.
func (m *AccountReceivableModel) FromDomain(ar *finance.AccountReceivable) {
	m.FromDomainBranchAggregateRoot(ar.BranchAggregateRoot)
	m.CustomerID = ar.CustomerID
	m.DocumentNumber = ar.DocumentNumber
	m.Description = ar.Description
	m.FromTerms(ar.Terms)
	m.IssueDate = ar.IssueDate
	m.AmountReceived = ar.AmountReceived
	m.Status = ar.Status
	m.Origin = ar.Origin
	m.ReceiveDate = ar.ReceiveDate
	m.LastReceiptAt = ar.LastReceiptAt
	m.BankAccountID = ar.BankAccountID
	m.CategoryID = ar.CategoryID
	m.CostCenterID = ar.CostCenterID
	m.ChartAccountID = ar.ChartAccountID
	m.FiscalDocumentID = ar.FiscalDocumentID
	m.Notes = ar.Notes
	m.CancelledAt = ar.CancelledAt
	m.CancelReason = ar.CancelReason
}

// AccountReceivableModelFromDomain creates a new persistence model from a domain AccountReceivable.
func AccountReceivableModelFromDomain(ar *finance.AccountReceivable) *AccountReceivableModel {
	m := &AccountReceivableModel{}
	m.FromDomain(ar)
	return m
}
