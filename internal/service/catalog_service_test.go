package service

import (
	"context"
	"testing"

	"saleshub/internal/apperr"
	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manager := actorWithRole(model.RoleShowroomManager)

	created, err := env.catalog.CreateProduct(ctx, manager, CreateProductDTO{
		SKU: "SKU-100", Name: "Display Stand", Unit: "pcs", UnitPrice: "149.50",
	})
	require.NoError(t, err)
	assert.Equal(t, "149.50", created.UnitPrice)
	assert.True(t, created.Active)

	t.Run("duplicate sku rejected", func(t *testing.T) {
		_, err := env.catalog.CreateProduct(ctx, manager, CreateProductDTO{
			SKU: "SKU-100", Name: "Other", UnitPrice: "1.00",
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("staff cannot manage catalog", func(t *testing.T) {
		_, err := env.catalog.CreateProduct(ctx, actorWithRole(model.RoleShowroomStaff), CreateProductDTO{
			SKU: "SKU-101", Name: "X", UnitPrice: "1.00",
		})
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})

	newName := "Premium Display Stand"
	inactive := false
	updated, err := env.catalog.UpdateProduct(ctx, manager, created.ID, UpdateProductDTO{
		Name: &newName, Active: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.False(t, updated.Active)

	require.NoError(t, env.catalog.DeleteProduct(ctx, manager, created.ID))
	_, err = env.catalog.GetProduct(ctx, created.ID)
	assert.Equal(t, "NOT_FOUND", apperr.Code(err))
}

func TestAdjustStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	up, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
		ProductID: widget.ID.String(), Delta: 15, Reason: "initial intake",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, up.UnitsInStock)
	assert.Equal(t, model.DefaultLocation, up.Location)
	assert.False(t, up.LowStock)

	down, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
		ProductID: widget.ID.String(), Delta: -5, Reason: "damaged in transit",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, down.UnitsInStock)

	t.Run("low stock flagged at threshold", func(t *testing.T) {
		low, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
			ProductID: widget.ID.String(), Delta: -6, Reason: "clearance sale",
		})
		require.NoError(t, err)
		assert.Equal(t, 4, low.UnitsInStock)
		assert.True(t, low.LowStock)

		restocked, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
			ProductID: widget.ID.String(), Delta: 6, Reason: "restock",
		})
		require.NoError(t, err)
		assert.Equal(t, 10, restocked.UnitsInStock)
		assert.False(t, restocked.LowStock)
	})

	t.Run("below zero rejected", func(t *testing.T) {
		_, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
			ProductID: widget.ID.String(), Delta: -11, Reason: "oops",
		})
		assert.Equal(t, "NEGATIVE_STOCK", apperr.Code(err))
		assert.Equal(t, 10, env.stockAt(t, widget, model.DefaultLocation))
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		_, err := env.catalog.AdjustStock(ctx, manager, AdjustStockDTO{
			ProductID: widget.ID.String(), Delta: 0, Reason: "noop",
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("staff cannot adjust", func(t *testing.T) {
		_, err := env.catalog.AdjustStock(ctx, actorWithRole(model.RoleShowroomStaff), AdjustStockDTO{
			ProductID: widget.ID.String(), Delta: 1, Reason: "x",
		})
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})

	// Four ADJUSTMENT ledger rows, each with the running balance.
	var movements []model.StockMovement
	require.NoError(t, env.db.Where("movement_type = ?", model.MovementAdjustment).Order("created_at asc").Find(&movements).Error)
	require.Len(t, movements, 4)
	assert.Equal(t, 15, movements[0].StockAfter)
	assert.Equal(t, 10, movements[1].StockAfter)
	assert.Equal(t, 4, movements[2].StockAfter)
	assert.Equal(t, 10, movements[3].StockAfter)
	assert.EqualValues(t, 4, env.activityCount(t, model.ActivityStockAdjusted))
}

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")
	env.seedStock(t, widget, model.DefaultLocation, 8)
	env.seedStock(t, widget, "WAREHOUSE-EAST", 20)

	resp, err := env.catalog.GetAvailability(ctx, widget.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultLocation, resp.Location)
	assert.Equal(t, 8, resp.Available)
	assert.Equal(t, 28, resp.TotalUnits)

	east, err := env.catalog.GetAvailability(ctx, widget.ID.String(), "WAREHOUSE-EAST")
	require.NoError(t, err)
	assert.Equal(t, 20, east.Available)

	t.Run("no record means zero", func(t *testing.T) {
		other := env.seedProduct(t, "SKU-002", "Gadget", "1.00")
		resp, err := env.catalog.GetAvailability(ctx, other.ID.String(), "")
		require.NoError(t, err)
		assert.Zero(t, resp.Available)
		assert.Zero(t, resp.TotalUnits)
	})
}

func TestListMovementsFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")
	gadget := env.seedProduct(t, "SKU-002", "Gadget", "1.00")

	for _, adj := range []AdjustStockDTO{
		{ProductID: widget.ID.String(), Delta: 5, Reason: "intake"},
		{ProductID: widget.ID.String(), Delta: 3, Reason: "intake"},
		{ProductID: gadget.ID.String(), Delta: 9, Reason: "intake"},
	} {
		_, err := env.catalog.AdjustStock(ctx, manager, adj)
		require.NoError(t, err)
	}

	all, total, err := env.catalog.ListMovements(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	widgetOnly, total, err := env.catalog.ListMovements(ctx, widget.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, widgetOnly, 2)
}
