package handler

import (
	appfinance "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/freteflow/backend/internal/domain/tax"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxHandler serves the withholding simulation and billing finalization
// endpoints
type TaxHandler struct {
	BaseHandler
	service *appfinance.LedgerService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(service *appfinance.LedgerService, logger *zap.Logger) *TaxHandler {
	return &TaxHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers tax and billing routes on the given router group
func (h *TaxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tax/withholding/simulate", h.SimulateWithholding)
	rg.POST("/billing/finalize", h.FinalizeBilling)
}

// SimulateWithholdingRequest carries a what-if withholding calculation.
// Rates are percentages.
type SimulateWithholdingRequest struct {
	GrossAmount     decimal.Decimal  `json:"gross_amount" binding:"required"`
	LegalEntity     bool             `json:"legal_entity"`
	SimplesNacional bool             `json:"simples_nacional"`
	ServiceType     tax.ServiceType  `json:"service_type"`
	ISSRetained     bool             `json:"iss_retained"`
	ISSRate         decimal.Decimal  `json:"iss_rate"`
	INSSRetained    bool             `json:"inss_retained"`
	INSSRate        *decimal.Decimal `json:"inss_rate"`
}

// SimulateWithholding handles POST /tax/withholding/simulate. It runs the
// withholding calculator without creating any title.
func (h *TaxHandler) SimulateWithholding(c *gin.Context) {
	var req SimulateWithholdingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = tax.ServiceTypeFreight
	}

	outcome, err := h.service.SimulateWithholding(c.Request.Context(), tax.CalculationInput{
		GrossAmount:     valueobject.NewMoneyBRL(req.GrossAmount),
		LegalEntity:     req.LegalEntity,
		SimplesNacional: req.SimplesNacional,
		ServiceType:     serviceType,
		ISSRetained:     req.ISSRetained,
		ISSRate:         req.ISSRate,
		INSSRetained:    req.INSSRetained,
		INSSRate:        req.INSSRate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// FinalizeBilling handles POST /billing/finalize. It computes withholding
// over the gross amount and opens a receivable for the net value.
func (h *TaxHandler) FinalizeBilling(c *gin.Context) {
	var req appfinance.FinalizeBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.FinalizeBilling(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
