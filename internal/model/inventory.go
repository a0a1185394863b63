package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLocation is where fulfilled requests land unless the caller says otherwise.
const DefaultLocation = "SHOWROOM-MAIN"

// DefaultLowStockThreshold flags records for restocking when no per-record
// threshold has been set.
const DefaultLowStockThreshold = 5

// MovementType constants
const (
	MovementTransferIn = "TRANSFER_IN" // request fulfillment crediting stock
	MovementSaleOut    = "SALE_OUT"    // invoice line deduction
	MovementAdjustment = "ADJUSTMENT"  // manual correction
)

// InventoryRecord is the quantity-on-hand for a product at one location.
// UnitsInStock is never allowed to go negative; every mutation routes
// through the catalog service's AdjustStock choke point.
type InventoryRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_product_location_batch" json:"product_id"`
	Product      Product    `gorm:"foreignKey:ProductID" json:"-"`
	ProductName  string     `gorm:"type:varchar(255);not null" json:"product_name"`
	Location     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_location_batch;index" json:"location"`
	UnitsInStock int        `gorm:"type:int;not null;default:0" json:"units_in_stock"`
	LowStockAt   int        `gorm:"type:int;not null;default:0" json:"low_stock_at"`
	BatchNumber  string     `gorm:"type:varchar(100);uniqueIndex:idx_product_location_batch" json:"batch_number"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// LowStock reports whether the record is at or below its restock threshold.
// Records that never had a threshold set fall back to the default.
func (r *InventoryRecord) LowStock() bool {
	threshold := r.LowStockAt
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return r.UnitsInStock <= threshold
}

func (r *InventoryRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// StockMovement is the append-only ledger of stock changes. TRANSFER_IN rows
// carry a unique (request, product) index; that index is what makes request
// fulfillment idempotent under retry. Rows without a request id never collide.
type StockMovement struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_movement_request_product" json:"product_id"`
	Location     string     `gorm:"type:varchar(100);not null" json:"location"`
	MovementType string     `gorm:"type:varchar(20);not null" json:"movement_type"`
	Quantity     int        `gorm:"type:int;not null" json:"quantity"` // signed delta
	StockAfter   int        `gorm:"type:int;not null" json:"stock_after"`
	RequestID    *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_movement_request_product" json:"request_id"`
	InvoiceID    *uuid.UUID `gorm:"type:uuid;index" json:"invoice_id"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
