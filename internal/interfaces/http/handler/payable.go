package handler

import (
	"time"

	appfinance "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PayableHandler serves the account payable endpoints
type PayableHandler struct {
	BaseHandler
	service *appfinance.LedgerService
}

// NewPayableHandler creates a new PayableHandler
func NewPayableHandler(service *appfinance.LedgerService, logger *zap.Logger) *PayableHandler {
	return &PayableHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers payable routes on the given router group
func (h *PayableHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payables := rg.Group("/payables")
	{
		payables.POST("", h.Create)
		payables.GET("", h.List)
		payables.GET("/:id", h.Get)
		payables.POST("/:id/payments", h.RegisterPayment)
		payables.POST("/:id/payments/:payment_id/confirm", h.ConfirmPayment)
		payables.POST("/:id/payments/:payment_id/cancel", h.CancelPayment)
		payables.POST("/:id/cancel", h.Cancel)
		payables.POST("/:id/reschedule", h.Reschedule)
		payables.POST("/:id/split", h.Split)
		payables.POST("/:id/processing", h.MarkProcessing)
		payables.POST("/:id/processing/complete", h.CompleteProcessing)
	}
}

// ListPayablesRequest holds the payable list query parameters. Dates use the
// 2006-01-02 layout, amounts are decimal strings.
type ListPayablesRequest struct {
	dto.ListRequest
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	MinAmount  string `form:"min_amount"`
	MaxAmount  string `form:"max_amount"`
}

func (r ListPayablesRequest) toFilter() (finance.AccountPayableFilter, error) {
	filter := finance.AccountPayableFilter{
		Filter: finance.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			Order:    r.Order,
		},
	}
	if r.SupplierID != "" {
		id, err := uuid.Parse(r.SupplierID)
		if err != nil {
			return filter, err
		}
		filter.SupplierID = &id
	}
	if r.Status != "" {
		status := finance.PayableStatus(r.Status)
		if !status.IsValid() {
			return filter, errInvalidParam("status")
		}
		filter.Status = &status
	}
	var err error
	if filter.DueFrom, err = parseDateParam(r.DueFrom, "due_from"); err != nil {
		return filter, err
	}
	if filter.DueTo, err = parseDateParam(r.DueTo, "due_to"); err != nil {
		return filter, err
	}
	if filter.MinAmount, err = parseDecimalParam(r.MinAmount, "min_amount"); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseDecimalParam(r.MaxAmount, "max_amount"); err != nil {
		return filter, err
	}
	return filter, nil
}

// Create handles POST /payables
func (h *PayableHandler) Create(c *gin.Context) {
	var req appfinance.CreatePayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreatePayable(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /payables/:id
func (h *PayableHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}

	resp, err := h.service.GetPayableByID(c.Request.Context(), h.scope(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /payables
func (h *PayableHandler) List(c *gin.Context) {
	var req ListPayablesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payables, total, err := h.service.ListPayables(c.Request.Context(), h.scope(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payables, dto.NewMeta(filter.Page, filter.PageSize, total))
}

// RegisterPayment handles POST /payables/:id/payments
func (h *PayableHandler) RegisterPayment(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}
	var req appfinance.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RegisterPayment(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// paymentURI binds the payable and payment ID path parameters
type paymentURI struct {
	ID        uuid.UUID `uri:"id" binding:"required"`
	PaymentID uuid.UUID `uri:"payment_id" binding:"required"`
}

// ConfirmPayment handles POST /payables/:id/payments/:payment_id/confirm
func (h *PayableHandler) ConfirmPayment(c *gin.Context) {
	var uri paymentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable or payment ID")
		return
	}

	resp, err := h.service.ConfirmPayment(c.Request.Context(), h.scope(c), uri.ID, uri.PaymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CancelPayment handles POST /payables/:id/payments/:payment_id/cancel
func (h *PayableHandler) CancelPayment(c *gin.Context) {
	var uri paymentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable or payment ID")
		return
	}

	resp, err := h.service.CancelPayment(c.Request.Context(), h.scope(c), uri.ID, uri.PaymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /payables/:id/cancel
func (h *PayableHandler) Cancel(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}
	var req appfinance.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CancelPayable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reschedule handles POST /payables/:id/reschedule
func (h *PayableHandler) Reschedule(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}
	var req appfinance.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.ReschedulePayable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Split handles POST /payables/:id/split
func (h *PayableHandler) Split(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}
	var req appfinance.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	children, err := h.service.SplitPayable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, children)
}

// MarkProcessing handles POST /payables/:id/processing
func (h *PayableHandler) MarkProcessing(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}

	resp, err := h.service.MarkPayableProcessing(c.Request.Context(), h.scope(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompleteProcessing handles POST /payables/:id/processing/complete
func (h *PayableHandler) CompleteProcessing(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payable ID")
		return
	}

	resp, err := h.service.CompletePayableProcessing(c.Request.Context(), h.scope(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ===================== query parameter helpers =====================

type paramError struct {
	name string
}

func (e paramError) Error() string {
	return "Invalid " + e.name + " parameter"
}

func errInvalidParam(name string) error {
	return paramError{name: name}
}

func parseDateParam(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errInvalidParam(name)
	}
	return &t, nil
}

func parseDecimalParam(value, name string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errInvalidParam(name)
	}
	return &d, nil
}
