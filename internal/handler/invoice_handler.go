package handler

import (
	"net/http"

	"saleshub/internal/middleware"
	"saleshub/internal/service"
	"saleshub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequirePermission("invoices.create"), h.CreateInvoice)
		invoices.POST("/from-request", middleware.RequirePermission("invoices.create"), h.CreateInvoiceFromRequest)
		invoices.GET("", middleware.RequirePermission("invoices.view"), h.ListInvoices)
		invoices.GET("/:id", middleware.RequirePermission("invoices.view"), h.GetInvoice)
		invoices.POST("/:id/payments", middleware.RequirePermission("invoices.payments"), h.RecordPayment)
	}
}

// CreateInvoice issues a walk-in sale invoice
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.invoiceService.CreateInvoice(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

// CreateInvoiceFromRequest derives an invoice from a fulfilled product request
func (h *InvoiceHandler) CreateInvoiceFromRequest(c *gin.Context) {
	var req service.CreateFromRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.invoiceService.CreateInvoiceFromRequest(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

// ListInvoices returns invoices filtered by payment status or customer
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.InvoiceListFilterDTO{
		PaymentStatus: c.Query("payment_status"),
		CustomerID:    c.Query("customer_id"),
		Page:          params.Page,
		Limit:         params.Limit,
	}
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(invoices, total, params))
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	result, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// RecordPayment applies a payment against an invoice balance
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.invoiceService.RecordPayment(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}
