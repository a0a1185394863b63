package repository

import (
	"context"
	"errors"

	"saleshub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryRepository interface {
	Create(ctx context.Context, rec *model.InventoryRecord) error
	Update(ctx context.Context, rec *model.InventoryRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryRecord, error)
	// FindForUpdate locks the (product, location) row for the duration of the
	// surrounding transaction. Returns gorm.ErrRecordNotFound when no stock
	// record exists yet.
	FindForUpdate(ctx context.Context, productID uuid.UUID, location string) (*model.InventoryRecord, error)
	List(ctx context.Context, location string, page, limit int) ([]model.InventoryRecord, int64, error)
	// AvailableUnits reads the current quantity at one location; zero when
	// no record exists.
	AvailableUnits(ctx context.Context, productID uuid.UUID, location string) (int, error)
	// TotalUnits sums quantity-on-hand across all locations.
	TotalUnits(ctx context.Context, productID uuid.UUID) (int, error)
	CreateMovement(ctx context.Context, mv *model.StockMovement) error
	FindTransferMovement(ctx context.Context, requestID, productID uuid.UUID) (*model.StockMovement, error)
	ListMovements(ctx context.Context, productID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, rec *model.InventoryRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *inventoryRepository) Update(ctx context.Context, rec *model.InventoryRecord) error {
	return GetDB(ctx, r.db).Save(rec).Error
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) FindForUpdate(ctx context.Context, productID uuid.UUID, location string) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	if err := forUpdate(GetDB(ctx, r.db)).
		Where("product_id = ? AND location = ?", productID, location).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) List(ctx context.Context, location string, page, limit int) ([]model.InventoryRecord, int64, error) {
	var records []model.InventoryRecord
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryRecord{})
	if location != "" {
		db = db.Where("location = ?", location)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("product_name asc").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *inventoryRepository) AvailableUnits(ctx context.Context, productID uuid.UUID, location string) (int, error) {
	var rec model.InventoryRecord
	err := GetDB(ctx, r.db).
		Where("product_id = ? AND location = ?", productID, location).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.UnitsInStock, nil
}

func (r *inventoryRepository) TotalUnits(ctx context.Context, productID uuid.UUID) (int, error) {
	var sum struct{ Total *int }
	err := GetDB(ctx, r.db).Model(&model.InventoryRecord{}).
		Select("SUM(units_in_stock) as total").
		Where("product_id = ?", productID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum.Total == nil {
		return 0, nil
	}
	return *sum.Total, nil
}

func (r *inventoryRepository) CreateMovement(ctx context.Context, mv *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(mv).Error
}

func (r *inventoryRepository) FindTransferMovement(ctx context.Context, requestID, productID uuid.UUID) (*model.StockMovement, error) {
	var mv model.StockMovement
	if err := GetDB(ctx, r.db).
		Where("request_id = ? AND product_id = ? AND movement_type = ?", requestID, productID, model.MovementTransferIn).
		First(&mv).Error; err != nil {
		return nil, err
	}
	return &mv, nil
}

func (r *inventoryRepository) ListMovements(ctx context.Context, productID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if productID != nil {
		db = db.Where("product_id = ?", *productID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}
