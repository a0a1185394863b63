package service

import (
	"context"
	"testing"

	"saleshub/internal/apperr"
	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) approvedRequest(t *testing.T, requester Actor, items ...RequestItemDTO) RequestResponse {
	t.Helper()
	ctx := context.Background()
	created, err := e.requests.CreateRequest(ctx, requester, CreateRequestDTO{Items: items})
	require.NoError(t, err)
	approved, err := e.requests.ApproveRequest(ctx, actorWithRole(model.RoleHeadOffice), created.ID, "")
	require.NoError(t, err)
	return approved
}

func TestFulfillCreditsStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")
	gadget := env.seedProduct(t, "SKU-002", "Gadget", "40.00")
	env.seedStock(t, widget, model.DefaultLocation, 3)

	approved := env.approvedRequest(t, rep,
		RequestItemDTO{ProductID: widget.ID.String(), Quantity: 10},
		RequestItemDTO{ProductID: gadget.ID.String(), Quantity: 4},
	)

	resp, err := env.fulfillment.Fulfill(ctx, manager, approved.ID, FulfillRequestDTO{})
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusCompleted, resp.Status)
	assert.False(t, resp.AlreadyFulfilled)
	assert.Len(t, resp.Credited, 2)
	// Existing stock is added to, a missing record is created at zero first.
	assert.Equal(t, 13, env.stockAt(t, widget, model.DefaultLocation))
	assert.Equal(t, 4, env.stockAt(t, gadget, model.DefaultLocation))

	var movements []model.StockMovement
	require.NoError(t, env.db.Where("movement_type = ?", model.MovementTransferIn).Find(&movements).Error)
	assert.Len(t, movements, 2)
	for _, mv := range movements {
		require.NotNil(t, mv.RequestID)
		assert.Equal(t, approved.ID, mv.RequestID.String())
	}
	assert.EqualValues(t, 1, env.activityCount(t, model.ActivityRequestFulfilled))
}

func TestFulfillIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	approved := env.approvedRequest(t, rep, RequestItemDTO{ProductID: widget.ID.String(), Quantity: 10})

	first, err := env.fulfillment.Fulfill(ctx, manager, approved.ID, FulfillRequestDTO{})
	require.NoError(t, err)
	require.False(t, first.AlreadyFulfilled)

	second, err := env.fulfillment.Fulfill(ctx, manager, approved.ID, FulfillRequestDTO{})
	require.NoError(t, err)
	assert.True(t, second.AlreadyFulfilled)
	assert.Empty(t, second.Credited)

	// No double credit, no extra ledger rows, no extra audit entries.
	assert.Equal(t, 10, env.stockAt(t, widget, model.DefaultLocation))
	var count int64
	require.NoError(t, env.db.Model(&model.StockMovement{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1, env.activityCount(t, model.ActivityRequestFulfilled))
}

func TestFulfillGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: widget.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	t.Run("pending request cannot be fulfilled", func(t *testing.T) {
		_, err := env.fulfillment.Fulfill(ctx, manager, created.ID, FulfillRequestDTO{})
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
		assert.Equal(t, 0, env.stockAt(t, widget, model.DefaultLocation))
	})

	t.Run("seller role cannot fulfill", func(t *testing.T) {
		_, err := env.fulfillment.Fulfill(ctx, actorWithRole(model.RoleShowroomStaff), created.ID, FulfillRequestDTO{})
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := env.fulfillment.Fulfill(ctx, manager, "9d4e6a64-52f0-44b5-97e8-dfc41b3a8f11", FulfillRequestDTO{})
		assert.Equal(t, "NOT_FOUND", apperr.Code(err))
	})

	t.Run("rejected request cannot be fulfilled", func(t *testing.T) {
		other, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: widget.ID.String(), Quantity: 1}},
		})
		require.NoError(t, err)
		_, err = env.requests.RejectRequest(ctx, manager, other.ID, "no budget")
		require.NoError(t, err)

		_, err = env.fulfillment.Fulfill(ctx, manager, other.ID, FulfillRequestDTO{})
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})
}

func TestFulfillCustomLocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	approved := env.approvedRequest(t, rep, RequestItemDTO{ProductID: widget.ID.String(), Quantity: 7})

	resp, err := env.fulfillment.Fulfill(ctx, manager, approved.ID, FulfillRequestDTO{Location: "WAREHOUSE-EAST"})
	require.NoError(t, err)
	assert.Equal(t, "WAREHOUSE-EAST", resp.Location)
	assert.Equal(t, 7, env.stockAt(t, widget, "WAREHOUSE-EAST"))
	assert.Equal(t, 0, env.stockAt(t, widget, model.DefaultLocation))
}
