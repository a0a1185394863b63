package service

import (
	"context"
	"errors"
	"fmt"

	"saleshub/internal/apperr"
	"saleshub/internal/model"
	"saleshub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// stockLedger is the single choke point for quantity-on-hand mutations.
// Fulfillment credits, invoice deductions and manual adjustments all go
// through applyDelta, which locks the (product, location) row, validates the
// resulting quantity and appends the ledger movement in one step. It must be
// called inside a transaction.
type stockLedger struct {
	inventoryRepo repository.InventoryRepository
}

// applyDelta mutates stock by delta and records the movement. Returns
// NegativeStockError when the result would drop below zero. requestID and
// invoiceID tie the movement to its origin; TRANSFER_IN rows are additionally
// protected by the unique (request, product) ledger index.
func (l *stockLedger) applyDelta(
	txCtx context.Context,
	productID uuid.UUID,
	productName string,
	location string,
	delta int,
	movementType string,
	requestID, invoiceID *uuid.UUID,
) (*model.InventoryRecord, error) {
	rec, err := l.inventoryRepo.FindForUpdate(txCtx, productID, location)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if delta < 0 {
			return nil, &apperr.NegativeStockError{ProductID: productID, Current: 0, Delta: delta}
		}
		rec = &model.InventoryRecord{
			ProductID:    productID,
			ProductName:  productName,
			Location:     location,
			UnitsInStock: 0,
		}
		if err := l.inventoryRepo.Create(txCtx, rec); err != nil {
			return nil, fmt.Errorf("failed to create inventory record: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock inventory record: %w", err)
	}

	newQty := rec.UnitsInStock + delta
	if newQty < 0 {
		return nil, &apperr.NegativeStockError{ProductID: productID, Current: rec.UnitsInStock, Delta: delta}
	}

	rec.UnitsInStock = newQty
	if err := l.inventoryRepo.Update(txCtx, rec); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	mv := &model.StockMovement{
		ProductID:    productID,
		Location:     location,
		MovementType: movementType,
		Quantity:     delta,
		StockAfter:   newQty,
		RequestID:    requestID,
		InvoiceID:    invoiceID,
	}
	if err := l.inventoryRepo.CreateMovement(txCtx, mv); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	return rec, nil
}
