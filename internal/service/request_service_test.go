package service

import (
	"context"
	"strings"
	"testing"

	"saleshub/internal/apperr"
	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	resp, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{
			{ProductID: product.ID.String(), Quantity: 10, Urgency: model.PriorityHigh},
		},
		Priority: model.PriorityHigh,
		Notes:    "restock for weekend",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, resp.Status)
	assert.True(t, strings.HasPrefix(resp.RequestCode, "REQ-"), "code %q should carry the REQ prefix", resp.RequestCode)
	assert.Equal(t, rep.ID.String(), resp.RequestedBy)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Widget", resp.Items[0].ProductName)
	assert.Equal(t, "units", resp.Items[0].Unit)

	assert.EqualValues(t, 1, env.activityCount(t, model.ActivityRequestCreated))
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	t.Run("no items", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 0}},
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: "2f8c32a1-30a4-4cf0-b522-9ea35e0e3f33", Quantity: 1}},
		})
		assert.Equal(t, "NOT_FOUND", apperr.Code(err))
	})

	t.Run("inactive product", func(t *testing.T) {
		inactive := env.seedProduct(t, "SKU-002", "Retired", "5.00")
		require.NoError(t, env.db.Model(inactive).Update("active", false).Error)
		_, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: inactive.ID.String(), Quantity: 1}},
		})
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("role without create capability", func(t *testing.T) {
		_, err := env.requests.CreateRequest(ctx, actorWithRole(model.RoleHeadOffice), CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 1}},
		})
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})
}

func TestApproveRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 5}},
	})
	require.NoError(t, err)

	resp, err := env.requests.ApproveRequest(ctx, manager, created.ID, "go ahead")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, resp.Status)
	require.NotNil(t, resp.ApprovedBy)
	assert.Equal(t, manager.ID.String(), *resp.ApprovedBy)
	assert.NotNil(t, resp.ApprovedAt)
	assert.Equal(t, "go ahead", resp.ApprovalNotes)
	assert.Nil(t, resp.RejectedBy)
	assert.EqualValues(t, 1, env.activityCount(t, model.ActivityRequestApproved))
}

func TestRejectRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 5}},
	})
	require.NoError(t, err)

	t.Run("reason required", func(t *testing.T) {
		_, err := env.requests.RejectRequest(ctx, manager, created.ID, "")
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	resp, err := env.requests.RejectRequest(ctx, manager, created.ID, "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, resp.Status)
	assert.Equal(t, "budget freeze", resp.RejectionReason)
	assert.Nil(t, resp.ApprovedBy)

	t.Run("rejected request cannot be approved", func(t *testing.T) {
		_, err := env.requests.ApproveRequest(ctx, manager, created.ID, "")
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})
}

func TestTransitionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// Manager can raise requests too, which is what makes self-approval reachable.
	manager := actorWithRole(model.RoleShowroomManager)
	other := actorWithRole(model.RoleHeadOffice)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, manager, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	t.Run("self approval blocked", func(t *testing.T) {
		_, err := env.requests.ApproveRequest(ctx, manager, created.ID, "")
		assert.Equal(t, "VALIDATION", apperr.Code(err))
	})

	t.Run("requester role cannot decide", func(t *testing.T) {
		_, err := env.requests.ApproveRequest(ctx, actorWithRole(model.RoleRepresentative), created.ID, "")
		assert.Equal(t, "FORBIDDEN", apperr.Code(err))
	})

	t.Run("double decision conflicts", func(t *testing.T) {
		_, err := env.requests.ApproveRequest(ctx, other, created.ID, "")
		require.NoError(t, err)
		_, err = env.requests.RejectRequest(ctx, other, created.ID, "changed my mind")
		assert.Equal(t, "INVALID_STATE", apperr.Code(err))
	})
}

func TestListRequestsScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := actorWithRole(model.RoleRepresentative)
	bob := actorWithRole(model.RoleShowroomStaff)
	manager := actorWithRole(model.RoleShowroomManager)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	for _, actor := range []Actor{alice, alice, bob} {
		_, err := env.requests.CreateRequest(ctx, actor, CreateRequestDTO{
			Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 1}},
		})
		require.NoError(t, err)
	}

	own, total, err := env.requests.ListRequests(ctx, alice, RequestFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, own, 2)

	all, total, err := env.requests.ListRequests(ctx, manager, RequestFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	pending, _, err := env.requests.ListRequests(ctx, manager, RequestFilter{Status: model.RequestStatusPending, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestGetRequestVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := actorWithRole(model.RoleRepresentative)
	bob := actorWithRole(model.RoleShowroomStaff)
	product := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, alice, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: product.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.requests.GetRequest(ctx, alice, created.ID)
	assert.NoError(t, err)

	_, err = env.requests.GetRequest(ctx, bob, created.ID)
	assert.Equal(t, "FORBIDDEN", apperr.Code(err))

	_, err = env.requests.GetRequest(ctx, actorWithRole(model.RoleHeadOffice), created.ID)
	assert.NoError(t, err)
}
