package handler

import (
	"net/http"

	"saleshub/internal/middleware"
	"saleshub/internal/service"
	"saleshub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.POST("", middleware.RequirePermission("catalog.manage"), h.CreateProduct)
		products.GET("", middleware.RequireAuth(), h.ListProducts)
		products.GET("/:id", middleware.RequireAuth(), h.GetProduct)
		products.GET("/:id/availability", middleware.RequirePermission("inventory.view"), h.GetAvailability)
		products.PUT("/:id", middleware.RequirePermission("catalog.manage"), h.UpdateProduct)
		products.DELETE("/:id", middleware.RequirePermission("catalog.manage"), h.DeleteProduct)
	}

	inventory := router.Group("/api/inventory")
	{
		inventory.GET("", middleware.RequirePermission("inventory.view"), h.ListInventory)
		inventory.POST("/adjust", middleware.RequirePermission("inventory.adjust"), h.AdjustStock)
		inventory.GET("/movements", middleware.RequirePermission("inventory.view"), h.ListMovements)
	}
}

// --- Products ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.catalogService.CreateProduct(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	params := pagination.Parse(c)
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), service.ProductListQuery{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(products, total, params))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	result, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// GetAvailability reports quantity-on-hand for a product at one location
// plus the total across all locations
func (h *CatalogHandler) GetAvailability(c *gin.Context) {
	result, err := h.catalogService.GetAvailability(c.Request.Context(), c.Param("id"), c.Query("location"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.catalogService.UpdateProduct(c.Request.Context(), currentActor(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// --- Inventory ---

func (h *CatalogHandler) ListInventory(c *gin.Context) {
	params := pagination.Parse(c)
	records, total, err := h.catalogService.ListInventory(c.Request.Context(), c.Query("location"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(records, total, params))
}

// AdjustStock applies a signed manual correction to quantity-on-hand
func (h *CatalogHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	result, err := h.catalogService.AdjustStock(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// ListMovements returns the stock movement ledger, optionally per product
func (h *CatalogHandler) ListMovements(c *gin.Context) {
	params := pagination.Parse(c)
	movements, total, err := h.catalogService.ListMovements(c.Request.Context(), c.Query("product_id"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(movements, total, params))
}
