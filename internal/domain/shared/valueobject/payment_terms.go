package valueobject

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTerms is a value object combining a due date, principal amount,
// optional early-payment discount window and fine/interest rates.
// It is immutable - derived amounts are computed against a reference date.
type PaymentTerms struct {
	dueDate        time.Time
	amount         Money
	discountUntil  *time.Time
	discountAmount *Money
	fineRate       decimal.Decimal // flat percent applied once overdue
	interestRate   decimal.Decimal // percent per month, accrued daily after due date
}

// NewPaymentTerms creates payment terms for a title.
// The discount window, when present, must close on or before the due date.
func NewPaymentTerms(
	dueDate time.Time,
	amount Money,
	discountUntil *time.Time,
	discountAmount *Money,
	fineRate decimal.Decimal,
	interestRate decimal.Decimal,
) (PaymentTerms, error) {
	if dueDate.IsZero() {
		return PaymentTerms{}, errors.New("due date is required")
	}
	if !amount.IsPositive() {
		return PaymentTerms{}, errors.New("amount must be positive")
	}
	if (discountUntil == nil) != (discountAmount == nil) {
		return PaymentTerms{}, errors.New("discount window and discount amount must be set together")
	}
	if discountUntil != nil {
		if discountUntil.After(dueDate) {
			return PaymentTerms{}, errors.New("discount window cannot extend past the due date")
		}
		if discountAmount.Currency() != amount.Currency() {
			return PaymentTerms{}, errors.New("discount amount must use the title currency")
		}
		if discountAmount.IsNegative() {
			return PaymentTerms{}, errors.New("discount amount cannot be negative")
		}
		if gt, _ := discountAmount.GreaterThan(amount); gt {
			return PaymentTerms{}, errors.New("discount amount cannot exceed the principal")
		}
	}
	if fineRate.IsNegative() || interestRate.IsNegative() {
		return PaymentTerms{}, errors.New("fine and interest rates cannot be negative")
	}

	return PaymentTerms{
		dueDate:        dueDate,
		amount:         amount,
		discountUntil:  discountUntil,
		discountAmount: discountAmount,
		fineRate:       fineRate,
		interestRate:   interestRate,
	}, nil
}

// DueDate returns the due date
func (t PaymentTerms) DueDate() time.Time {
	return t.dueDate
}

// Amount returns the principal amount
func (t PaymentTerms) Amount() Money {
	return t.amount
}

// DiscountUntil returns the end of the early-payment discount window, if any
func (t PaymentTerms) DiscountUntil() *time.Time {
	return t.discountUntil
}

// DiscountAmount returns the early-payment discount, if any
func (t PaymentTerms) DiscountAmount() *Money {
	return t.discountAmount
}

// FineRate returns the flat overdue fine rate (percent)
func (t PaymentTerms) FineRate() decimal.Decimal {
	return t.fineRate
}

// InterestRate returns the monthly interest rate (percent)
func (t PaymentTerms) InterestRate() decimal.Decimal {
	return t.interestRate
}

// IsOverdue returns true if the reference date is strictly past the due date
func (t PaymentTerms) IsOverdue(referenceDate time.Time) bool {
	return referenceDate.After(t.dueDate)
}

// DaysOverdue returns the overdue day count at the reference date, rounding any
// partial day up. Zero when not overdue.
func (t PaymentTerms) DaysOverdue(referenceDate time.Time) int64 {
	if !t.IsOverdue(referenceDate) {
		return 0
	}
	elapsed := referenceDate.Sub(t.dueDate)
	return int64(math.Ceil(elapsed.Hours() / 24))
}

// HasDiscount returns true when an early-payment discount window exists
func (t PaymentTerms) HasDiscount() bool {
	return t.discountUntil != nil && t.discountAmount != nil
}

// IsDiscountEligible returns true when the reference date falls inside the
// discount window (the window's last day is inclusive)
func (t PaymentTerms) IsDiscountEligible(referenceDate time.Time) bool {
	return t.HasDiscount() && !referenceDate.After(*t.discountUntil)
}

// CalculateWithDiscount returns the principal minus the early-payment discount
// when the reference date is still inside the window, the full principal otherwise.
func (t PaymentTerms) CalculateWithDiscount(referenceDate time.Time) Money {
	if !t.IsDiscountEligible(referenceDate) {
		return t.amount
	}
	return t.amount.MustSubtract(*t.discountAmount)
}

// CalculateFine returns the flat overdue fine (principal * fineRate%)
func (t PaymentTerms) CalculateFine() Money {
	return t.amount.Percentage(t.fineRate)
}

// CalculateInterest returns pro-rata interest accrued at the reference date:
// principal * (interestRate/30 * daysOverdue)%, days counted with ceiling.
func (t PaymentTerms) CalculateInterest(referenceDate time.Time) Money {
	days := t.DaysOverdue(referenceDate)
	if days == 0 {
		return Zero(t.amount.Currency())
	}
	rate := t.interestRate.Div(decimal.NewFromInt(30)).Mul(decimal.NewFromInt(days))
	return t.amount.Percentage(rate)
}

// CalculateTotalDue returns the amount owed as of the reference date.
// Composition order is discount, then fine, then interest; fine and interest
// are both computed over the undiscounted principal.
func (t PaymentTerms) CalculateTotalDue(referenceDate time.Time) Money {
	total := t.CalculateWithDiscount(referenceDate)
	if t.IsOverdue(referenceDate) {
		total = total.MustAdd(t.CalculateFine())
		total = total.MustAdd(t.CalculateInterest(referenceDate))
	}
	return total
}

// WithDueDate returns a copy of the terms moved to a new due date. A discount
// window past the new due date is dropped rather than carried illegally.
func (t PaymentTerms) WithDueDate(dueDate time.Time) (PaymentTerms, error) {
	discountUntil := t.discountUntil
	discountAmount := t.discountAmount
	if discountUntil != nil && discountUntil.After(dueDate) {
		discountUntil = nil
		discountAmount = nil
	}
	return NewPaymentTerms(dueDate, t.amount, discountUntil, discountAmount, t.fineRate, t.interestRate)
}

// WithAmount returns a copy of the terms over a new principal, dropping any
// discount window (a split installment does not inherit the original discount).
func (t PaymentTerms) WithAmount(amount Money) (PaymentTerms, error) {
	return NewPaymentTerms(t.dueDate, amount, nil, nil, t.fineRate, t.interestRate)
}
