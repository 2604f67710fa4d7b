package handler

import (
	"time"

	appfinance "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceivableHandler serves the account receivable endpoints
type ReceivableHandler struct {
	BaseHandler
	service *appfinance.LedgerService
}

// NewReceivableHandler creates a new ReceivableHandler
func NewReceivableHandler(service *appfinance.LedgerService, logger *zap.Logger) *ReceivableHandler {
	return &ReceivableHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes registers receivable routes on the given router group
func (h *ReceivableHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receivables := rg.Group("/receivables")
	{
		receivables.POST("", h.Create)
		receivables.GET("", h.List)
		receivables.GET("/:id", h.Get)
		receivables.PUT("/:id", h.Update)
		receivables.POST("/:id/receive", h.Receive)
		receivables.POST("/:id/cancel", h.Cancel)
		receivables.POST("/:id/reschedule", h.Reschedule)
		receivables.POST("/sweep-overdue", h.SweepOverdue)
	}
}

// ListReceivablesRequest holds the receivable list query parameters
type ListReceivablesRequest struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Origin     string `form:"origin"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	MinAmount  string `form:"min_amount"`
	MaxAmount  string `form:"max_amount"`
}

func (r ListReceivablesRequest) toFilter() (finance.AccountReceivableFilter, error) {
	filter := finance.AccountReceivableFilter{
		Filter: finance.Filter{
			Page:     r.Page,
			PageSize: r.PageSize,
			OrderBy:  r.OrderBy,
			Order:    r.Order,
		},
	}
	if r.CustomerID != "" {
		id, err := uuid.Parse(r.CustomerID)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}
	if r.Status != "" {
		status := finance.ReceivableStatus(r.Status)
		if !status.IsValid() {
			return filter, errInvalidParam("status")
		}
		filter.Status = &status
	}
	if r.Origin != "" {
		origin := finance.ReceivableOrigin(r.Origin)
		if !origin.IsValid() {
			return filter, errInvalidParam("origin")
		}
		filter.Origin = &origin
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

// Create handles POST /receivables
func (h *ReceivableHandler) Create(c *gin.Context) {
	var req appfinance.CreateReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreateReceivable(c.Request.Context(), h.scope(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /receivables/:id
func (h *ReceivableHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}

	resp, err := h.service.GetReceivableByID(c.Request.Context(), h.scope(c), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /receivables
func (h *ReceivableHandler) List(c *gin.Context) {
	var req ListReceivablesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receivables, total, err := h.service.ListReceivables(c.Request.Context(), h.scope(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, receivables, dto.NewMeta(filter.Page, filter.PageSize, total))
}

// Update handles PUT /receivables/:id
func (h *ReceivableHandler) Update(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}
	var req appfinance.UpdateReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.UpdateReceivable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Receive handles POST /receivables/:id/receive
func (h *ReceivableHandler) Receive(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}
	var req appfinance.ReceivePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.ReceiveReceivablePayment(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /receivables/:id/cancel
func (h *ReceivableHandler) Cancel(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}
	var req appfinance.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CancelReceivable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reschedule handles POST /receivables/:id/reschedule
func (h *ReceivableHandler) Reschedule(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}
	var req appfinance.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RescheduleReceivable(c.Request.Context(), h.scope(c), uri.ID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SweepOverdueResponse reports how many titles a sweep flagged
type SweepOverdueResponse struct {
	Marked    int       `json:"marked"`
	Reference time.Time `json:"reference"`
}

// SweepOverdue handles POST /receivables/sweep-overdue. It flags every
// collectible past-due title in the request scope.
func (h *ReceivableHandler) SweepOverdue(c *gin.Context) {
	reference := time.Now()
	marked, err := h.service.SweepOverdueReceivables(c.Request.Context(), h.scope(c), reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SweepOverdueResponse{Marked: marked, Reference: reference})
}
