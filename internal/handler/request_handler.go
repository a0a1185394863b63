package handler

import (
	"net/http"

	"saleshub/internal/middleware"
	"saleshub/internal/service"
	"saleshub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService     service.RequestService
	fulfillmentService service.FulfillmentService
}

func NewRequestHandler(requestService service.RequestService, fulfillmentService service.FulfillmentService) *RequestHandler {
	return &RequestHandler{requestService: requestService, fulfillmentService: fulfillmentService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.POST("", middleware.RequirePermission("requests.create"), h.CreateRequest)
		requests.GET("", middleware.RequirePermission("requests.view"), h.ListRequests)
		requests.GET("/:id", middleware.RequirePermission("requests.view"), h.GetRequest)
		requests.PUT("/:id/approve", middleware.RequirePermission("requests.approve"), h.ApproveRequest)
		requests.PUT("/:id/reject", middleware.RequirePermission("requests.approve"), h.RejectRequest)
		requests.POST("/:id/fulfill", middleware.RequirePermission("requests.fulfill"), h.FulfillRequest)
	}
}

// CreateRequest raises a new product request on behalf of the caller
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	result, err := h.requestService.CreateRequest(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

// ListRequests returns requests, optionally filtered by status. Requester
// roles only ever see their own.
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.RequestFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), currentActor(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(requests, total, params))
}

// GetRequest returns one request with its line items
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// ApproveRequest approves a pending request
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	var req service.ApproveRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Allow empty body — notes are optional
		req.Notes = ""
	}

	result, err := h.requestService.ApproveRequest(c.Request.Context(), currentActor(c), c.Param("id"), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// RejectRequest rejects a pending request. A reason is mandatory.
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var req service.RejectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "reason is required"})
		return
	}

	result, err := h.requestService.RejectRequest(c.Request.Context(), currentActor(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// FulfillRequest transfers an approved request's quantities into inventory
func (h *RequestHandler) FulfillRequest(c *gin.Context) {
	var req service.FulfillRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Location = ""
	}

	result, err := h.fulfillmentService.Fulfill(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}
