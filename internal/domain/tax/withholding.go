// Package tax implements the withholding calculation applied when a billed
// freight service is finalized into a receivable. The calculator is stateless:
// no construction, no mutable fields, a pure function of input to outcome.
package tax

import (
	"fmt"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TaxCode identifies one of the withholding taxes
type TaxCode string

const (
	TaxIRRF   TaxCode = "IRRF"
	TaxPIS    TaxCode = "PIS"
	TaxCOFINS TaxCode = "COFINS"
	TaxCSLL   TaxCode = "CSLL"
	TaxISS    TaxCode = "ISS"
	TaxINSS   TaxCode = "INSS"
)

// ServiceType classifies the billed service for withholding purposes
type ServiceType string

const (
	ServiceTypeFreight          ServiceType = "FREIGHT"
	ServiceTypeGeneral          ServiceType = "GENERAL"
	ServiceTypeCooperativeLabor ServiceType = "COOPERATIVE_LABOR"
)

// IsValid checks if the service type is valid
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceTypeFreight, ServiceTypeGeneral, ServiceTypeCooperativeLabor:
		return true
	}
	return false
}

// Fixed withholding rates (percent)
var (
	irrfRate   = decimal.NewFromFloat(1.5)
	pisRate    = decimal.NewFromFloat(0.65)
	cofinsRate = decimal.NewFromFloat(3.0)
	csllRate   = decimal.NewFromFloat(1.0)
	// INSSDefaultRate is the standard service-retention rate; cooperative
	// labor contracts override it (typically 15%).
	INSSDefaultRate = decimal.NewFromFloat(11.0)
)

// Thresholds and caps (BRL)
var (
	// irrfMinimum: IRRF below this amount is reported but not withheld.
	// The minimum itself is inclusive.
	irrfMinimum = decimal.NewFromFloat(10.00)
	// combinedBaseThreshold: PIS/COFINS/CSLL apply together only when the
	// gross amount is strictly greater than this base.
	combinedBaseThreshold = decimal.NewFromFloat(5000.00)
	// issMaxRate: municipal ISS is bounded at 5% by complementary law.
	issMaxRate = decimal.NewFromFloat(5.0)
	// inssWithholdingCeiling caps the withheld INSS amount; 11% of the
	// INSS contribution ceiling (R$ 8,157.41 for 2025), updated annually.
	// The informational amount in the detail record is never capped.
	inssWithholdingCeiling = decimal.NewFromFloat(897.32)
)

// CalculationInput carries the gross amount and the contextual flags that
// decide which taxes are withheld
type CalculationInput struct {
	GrossAmount     valueobject.Money
	LegalEntity     bool        // supplier/customer is a legal entity (CNPJ)
	SimplesNacional bool        // simplified tax regime
	ServiceType     ServiceType
	ISSRetained     bool            // cross-municipality retention flagged by the caller
	ISSRate         decimal.Decimal // percent, 0-5
	INSSRetained    bool
	INSSRate        *decimal.Decimal // override, e.g. 15 for cooperative labor
}

// Detail records a single tax line. The computed amount is always present so
// the what-if value is visible even when the tax was not withheld; the
// withheld amount differs from it only for INSS above the ceiling.
type Detail struct {
	Code           TaxCode         `json:"code"`
	Rate           decimal.Decimal `json:"rate"`
	Base           decimal.Decimal `json:"base"`
	ComputedAmount decimal.Decimal `json:"computed_amount"`
	WithheldAmount decimal.Decimal `json:"withheld_amount"`
	Applied        bool            `json:"applied"`
	LegalBasis     string          `json:"legal_basis"`
	Reason         string          `json:"reason,omitempty"` // why not applied
}

// Outcome is the full withholding breakdown for one gross amount
type Outcome struct {
	GrossAmount      valueobject.Money `json:"gross_amount"`
	IRRF             decimal.Decimal   `json:"irrf"`
	PIS              decimal.Decimal   `json:"pis"`
	COFINS           decimal.Decimal   `json:"cofins"`
	CSLL             decimal.Decimal   `json:"csll"`
	ISS              decimal.Decimal   `json:"iss"`
	INSS             decimal.Decimal   `json:"inss"`
	TotalWithholding valueobject.Money `json:"total_withholding"`
	NetAmount        valueobject.Money `json:"net_amount"`
	Details          []Detail          `json:"details"`
}

// Calculate computes the withholding breakdown for a billed service.
// Each tax line is rounded half-up to two decimals independently before
// summation, so totals are sums of already-rounded components.
func Calculate(input CalculationInput) (*Outcome, error) {
	gross := input.GrossAmount
	if !gross.IsPositive() {
		return nil, shared.NewValidationError("INVALID_GROSS_AMOUNT", "Gross amount must be positive")
	}
	if input.ISSRate.IsNegative() || input.ISSRate.GreaterThan(issMaxRate) {
		return nil, shared.NewValidationError("INVALID_ISS_RATE",
			fmt.Sprintf("ISS rate must be between 0 and %s%%", issMaxRate))
	}
	if input.INSSRate != nil && !input.INSSRate.IsPositive() {
		return nil, shared.NewValidationError("INVALID_INSS_RATE", "INSS rate override must be positive")
	}

	base := gross.Amount()
	outcome := &Outcome{
		GrossAmount: gross,
		Details:     make([]Detail, 0, 6),
	}

	outcome.IRRF = outcome.addDetail(calculateIRRF(gross, input))
	outcome.PIS = outcome.addDetail(calculateCombined(gross, input, TaxPIS, pisRate))
	outcome.COFINS = outcome.addDetail(calculateCombined(gross, input, TaxCOFINS, cofinsRate))
	outcome.CSLL = outcome.addDetail(calculateCombined(gross, input, TaxCSLL, csllRate))
	outcome.ISS = outcome.addDetail(calculateISS(gross, input))
	outcome.INSS = outcome.addDetail(calculateINSS(gross, input))

	total := outcome.IRRF.Add(outcome.PIS).Add(outcome.COFINS).Add(outcome.CSLL).Add(outcome.ISS).Add(outcome.INSS)
	outcome.TotalWithholding = valueobject.NewMoneyBRL(total)
	outcome.NetAmount = valueobject.NewMoneyBRL(base.Sub(total))

	return outcome, nil
}

// addDetail appends the detail and returns the amount actually withheld
func (o *Outcome) addDetail(d Detail) decimal.Decimal {
	o.Details = append(o.Details, d)
	if !d.Applied {
		return decimal.Zero
	}
	return d.WithheldAmount
}

func calculateIRRF(gross valueobject.Money, input CalculationInput) Detail {
	amount := gross.Percentage(irrfRate).Amount()
	d := Detail{
		Code:           TaxIRRF,
		Rate:           irrfRate,
		Base:           gross.Amount(),
		ComputedAmount: amount,
		WithheldAmount: amount,
		LegalBasis:     "RIR/2018, art. 714",
	}
	switch {
	case !input.LegalEntity:
		d.Reason = "supplier is not a legal entity"
	case amount.LessThan(irrfMinimum):
		d.Reason = fmt.Sprintf("computed amount below the R$ %s minimum", irrfMinimum.StringFixed(2))
	default:
		d.Applied = true
	}
	if !d.Applied {
		d.WithheldAmount = decimal.Zero
	}
	return d
}

// calculateCombined handles PIS, COFINS and CSLL, which are withheld together
// or not at all
func calculateCombined(gross valueobject.Money, input CalculationInput, code TaxCode, rate decimal.Decimal) Detail {
	amount := gross.Percentage(rate).Amount()
	d := Detail{
		Code:           code,
		Rate:           rate,
		Base:           gross.Amount(),
		ComputedAmount: amount,
		WithheldAmount: amount,
		LegalBasis:     "Lei 10.833/2003, art. 30",
	}
	switch {
	case !input.LegalEntity:
		d.Reason = "supplier is not a legal entity"
	case input.SimplesNacional:
		d.Reason = "supplier is under the Simples Nacional regime"
	case !gross.Amount().GreaterThan(combinedBaseThreshold):
		d.Reason = fmt.Sprintf("gross amount does not exceed the R$ %s combined base", combinedBaseThreshold.StringFixed(2))
	default:
		d.Applied = true
	}
	if !d.Applied {
		d.WithheldAmount = decimal.Zero
	}
	return d
}

func calculateISS(gross valueobject.Money, input CalculationInput) Detail {
	amount := gross.Percentage(input.ISSRate).Amount()
	d := Detail{
		Code:           TaxISS,
		Rate:           input.ISSRate,
		Base:           gross.Amount(),
		ComputedAmount: amount,
		WithheldAmount: amount,
		LegalBasis:     "LC 116/2003, art. 6º",
	}
	switch {
	case !input.ISSRetained:
		d.Reason = "municipal retention not flagged"
	case !input.ISSRate.IsPositive():
		d.Reason = "no ISS rate supplied"
	default:
		d.Applied = true
	}
	if !d.Applied {
		d.WithheldAmount = decimal.Zero
	}
	return d
}

func calculateINSS(gross valueobject.Money, input CalculationInput) Detail {
	rate := INSSDefaultRate
	if input.INSSRate != nil {
		rate = *input.INSSRate
	}
	amount := gross.Percentage(rate).Amount()
	d := Detail{
		Code:           TaxINSS,
		Rate:           rate,
		Base:           gross.Amount(),
		ComputedAmount: amount, // informational value is never capped
		WithheldAmount: amount,
		LegalBasis:     "Lei 8.212/1991, art. 31",
	}
	switch {
	case !input.INSSRetained:
		d.Reason = "INSS retention not flagged"
	case !input.LegalEntity:
		d.Reason = "supplier is not a legal entity"
	default:
		d.Applied = true
	}
	if !d.Applied {
		d.WithheldAmount = decimal.Zero
	} else if d.WithheldAmount.GreaterThan(inssWithholdingCeiling) {
		d.WithheldAmount = inssWithholdingCeiling
	}
	return d
}
