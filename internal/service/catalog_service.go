package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saleshub/internal/apperr"
	"saleshub/internal/authz"
	"saleshub/internal/model"
	"saleshub/internal/repository"
	ws "saleshub/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductDTO struct {
	SKU       string `json:"sku" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Unit      string `json:"unit"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type UpdateProductDTO struct {
	Name      *string `json:"name"`
	Unit      *string `json:"unit"`
	UnitPrice *string `json:"unit_price"`
	Active    *bool   `json:"active"`
}

// ProductListQuery filters the catalog listing.
type ProductListQuery struct {
	Search     string
	ActiveOnly bool
	Page       int
	Limit      int
}

type AdjustStockDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Location  string `json:"location"`
	Delta     int    `json:"delta" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type ProductResponse struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	UnitPrice string `json:"unit_price"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type AvailabilityResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Location    string `json:"location"`
	Available   int    `json:"available"`
	TotalUnits  int    `json:"total_units"`
}

type InventoryRecordResponse struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Location     string `json:"location"`
	UnitsInStock int    `json:"units_in_stock"`
	LowStock     bool   `json:"low_stock"`
	BatchNumber  string `json:"batch_number,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

type StockMovementResponse struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	Location     string  `json:"location"`
	MovementType string  `json:"movement_type"`
	Quantity     int     `json:"quantity"`
	StockAfter   int     `json:"stock_after"`
	RequestID    *string `json:"request_id"`
	InvoiceID    *string `json:"invoice_id"`
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type CatalogService interface {
	CreateProduct(ctx context.Context, actor Actor, req CreateProductDTO) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductDTO) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actor Actor, id string) error
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, query ProductListQuery) ([]ProductResponse, int64, error)

	GetAvailability(ctx context.Context, productID, location string) (AvailabilityResponse, error)
	ListInventory(ctx context.Context, location string, page, limit int) ([]InventoryRecordResponse, int64, error)
	AdjustStock(ctx context.Context, actor Actor, req AdjustStockDTO) (InventoryRecordResponse, error)
	ListMovements(ctx context.Context, productID string, page, limit int) ([]StockMovementResponse, int64, error)
}

type catalogService struct {
	txManager     repository.TransactionManager
	productRepo   repository.ProductRepository
	inventoryRepo repository.InventoryRepository
	activityRepo  repository.ActivityRepository
	ledger        stockLedger
	hub           *ws.Hub
	log           *zap.Logger
}

func NewCatalogService(
	txManager repository.TransactionManager,
	productRepo repository.ProductRepository,
	inventoryRepo repository.InventoryRepository,
	activityRepo repository.ActivityRepository,
	hub *ws.Hub,
	log *zap.Logger,
) CatalogService {
	return &catalogService{
		txManager:     txManager,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		activityRepo:  activityRepo,
		ledger:        stockLedger{inventoryRepo: inventoryRepo},
		hub:           hub,
		log:           log,
	}
}

// --- Products ---

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, req CreateProductDTO) (ProductResponse, error) {
	if !authz.CanManageCatalog(actor.Role) {
		return ProductResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "manage the catalog"}
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		return ProductResponse{}, apperr.Validation("unit_price", "must be a non-negative decimal")
	}
	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, apperr.Validation("sku", "already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductResponse{}, fmt.Errorf("failed to check sku: %w", err)
	}

	unit := req.Unit
	if unit == "" {
		unit = "units"
	}
	product := model.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Unit:      unit,
		UnitPrice: price,
		Active:    true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.logCatalogActivity(txCtx, actor, model.ActivityProductCreated, &product, map[string]interface{}{
			"sku":        product.SKU,
			"unit_price": price.StringFixed(2),
		})
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.log.Info("product created", zap.String("sku", product.SKU), zap.String("name", product.Name))
	return toProductResponse(&product), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductDTO) (ProductResponse, error) {
	if !authz.CanManageCatalog(actor.Role) {
		return ProductResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "manage the catalog"}
	}
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validation("id", "invalid uuid")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		product.Name = *req.Name
		changes["name"] = *req.Name
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
		changes["unit"] = *req.Unit
	}
	if req.UnitPrice != nil {
		price, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil || price.IsNegative() {
			return ProductResponse{}, apperr.Validation("unit_price", "must be a non-negative decimal")
		}
		product.UnitPrice = price
		changes["unit_price"] = price.StringFixed(2)
	}
	if req.Active != nil {
		product.Active = *req.Active
		changes["active"] = *req.Active
	}
	if len(changes) == 0 {
		return toProductResponse(product), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return s.logCatalogActivity(txCtx, actor, model.ActivityProductUpdated, product, changes)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if !authz.CanManageCatalog(actor.Role) {
		return &apperr.ForbiddenError{Role: actor.Role, Action: "manage the catalog"}
	}
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validation("id", "invalid uuid")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.logCatalogActivity(txCtx, actor, model.ActivityProductDeleted, product, nil)
	})
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validation("id", "invalid uuid")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, repository.ProductListFilter{
		Search:     query.Search,
		ActiveOnly: query.ActiveOnly,
		Page:       query.Page,
		Limit:      query.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, toProductResponse(&products[i]))
	}
	return responses, total, nil
}

// --- Inventory ---

func (s *catalogService) GetAvailability(ctx context.Context, productID, location string) (AvailabilityResponse, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return AvailabilityResponse{}, apperr.Validation("product_id", "invalid uuid")
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AvailabilityResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return AvailabilityResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	if location == "" {
		location = model.DefaultLocation
	}

	available, err := s.inventoryRepo.AvailableUnits(ctx, id, location)
	if err != nil {
		return AvailabilityResponse{}, fmt.Errorf("failed to read stock: %w", err)
	}
	total, err := s.inventoryRepo.TotalUnits(ctx, id)
	if err != nil {
		return AvailabilityResponse{}, fmt.Errorf("failed to sum stock: %w", err)
	}
	return AvailabilityResponse{
		ProductID:   product.ID.String(),
		ProductName: product.Name,
		Location:    location,
		Available:   available,
		TotalUnits:  total,
	}, nil
}

func (s *catalogService) ListInventory(ctx context.Context, location string, page, limit int) ([]InventoryRecordResponse, int64, error) {
	records, total, err := s.inventoryRepo.List(ctx, location, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}
	responses := make([]InventoryRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, InventoryRecordResponse{
			ID:           rec.ID.String(),
			ProductID:    rec.ProductID.String(),
			ProductName:  rec.ProductName,
			Location:     rec.Location,
			UnitsInStock: rec.UnitsInStock,
			LowStock:     rec.LowStock(),
			BatchNumber:  rec.BatchNumber,
			UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
		})
	}
	return responses, total, nil
}

func (s *catalogService) AdjustStock(ctx context.Context, actor Actor, req AdjustStockDTO) (InventoryRecordResponse, error) {
	if !authz.CanManageCatalog(actor.Role) {
		return InventoryRecordResponse{}, &apperr.ForbiddenError{Role: actor.Role, Action: "adjust stock"}
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return InventoryRecordResponse{}, apperr.Validation("product_id", "invalid uuid")
	}
	if req.Delta == 0 {
		return InventoryRecordResponse{}, apperr.Validation("delta", "must be non-zero")
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InventoryRecordResponse{}, apperr.ErrNotFound
	} else if err != nil {
		return InventoryRecordResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	location := req.Location
	if location == "" {
		location = model.DefaultLocation
	}

	var rec *model.InventoryRecord
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rec, err = s.ledger.applyDelta(txCtx, productID, product.Name, location, req.Delta, model.MovementAdjustment, nil, nil)
		if err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{
			"location":    location,
			"delta":       req.Delta,
			"stock_after": rec.UnitsInStock,
			"reason":      req.Reason,
		})
		entry := model.ActivityLog{
			Type:       model.ActivityStockAdjusted,
			ActorID:    &actor.ID,
			ActorName:  actor.DisplayName,
			ActorRole:  actor.Role,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write activity log: %w", err)
		}
		return nil
	})
	if err != nil {
		return InventoryRecordResponse{}, err
	}

	s.log.Info("stock adjusted",
		zap.String("product", product.Name),
		zap.String("location", location),
		zap.Int("delta", req.Delta),
		zap.Int("stock_after", rec.UnitsInStock))

	s.hub.Publish(ws.EventStockChanged, map[string]interface{}{
		"product_id":  product.ID.String(),
		"location":    location,
		"stock_after": rec.UnitsInStock,
	})

	return InventoryRecordResponse{
		ID:           rec.ID.String(),
		ProductID:    rec.ProductID.String(),
		ProductName:  rec.ProductName,
		Location:     rec.Location,
		UnitsInStock: rec.UnitsInStock,
		LowStock:     rec.LowStock(),
		BatchNumber:  rec.BatchNumber,
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *catalogService) ListMovements(ctx context.Context, productID string, page, limit int) ([]StockMovementResponse, int64, error) {
	var filter *uuid.UUID
	if productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			return nil, 0, apperr.Validation("product_id", "invalid uuid")
		}
		filter = &id
	}
	movements, total, err := s.inventoryRepo.ListMovements(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}
	responses := make([]StockMovementResponse, 0, len(movements))
	for _, mv := range movements {
		responses = append(responses, StockMovementResponse{
			ID:           mv.ID.String(),
			ProductID:    mv.ProductID.String(),
			Location:     mv.Location,
			MovementType: mv.MovementType,
			Quantity:     mv.Quantity,
			StockAfter:   mv.StockAfter,
			RequestID:    uuidPtrString(mv.RequestID),
			InvoiceID:    uuidPtrString(mv.InvoiceID),
			CreatedAt:    mv.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses, total, nil
}

func (s *catalogService) logCatalogActivity(txCtx context.Context, actor Actor, activityType string, product *model.Product, extra map[string]interface{}) error {
	details, _ := json.Marshal(extra)
	entry := model.ActivityLog{
		Type:       activityType,
		ActorID:    &actor.ID,
		ActorName:  actor.DisplayName,
		ActorRole:  actor.Role,
		EntityID:   product.ID.String(),
		EntityName: product.Name,
		Details:    string(details),
	}
	if err := s.activityRepo.Log(txCtx, &entry); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID.String(),
		SKU:       p.SKU,
		Name:      p.Name,
		Unit:      p.Unit,
		UnitPrice: p.UnitPrice.StringFixed(2),
		Active:    p.Active,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
