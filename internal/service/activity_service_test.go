package service

import (
	"context"
	"testing"

	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rep := actorWithRole(model.RoleRepresentative)
	manager := actorWithRole(model.RoleShowroomManager)
	widget := env.seedProduct(t, "SKU-001", "Widget", "25.00")

	created, err := env.requests.CreateRequest(ctx, rep, CreateRequestDTO{
		Items: []RequestItemDTO{{ProductID: widget.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = env.requests.ApproveRequest(ctx, manager, created.ID, "ok")
	require.NoError(t, err)
	_, err = env.fulfillment.Fulfill(ctx, manager, created.ID, FulfillRequestDTO{})
	require.NoError(t, err)

	all, total, err := env.activities.ListActivities(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, model.ActivityRequestFulfilled, all[0].Type)
	assert.Equal(t, model.ActivityRequestCreated, all[2].Type)
	for _, entry := range all {
		assert.Equal(t, created.ID, entry.EntityID)
		assert.Equal(t, created.RequestCode, entry.EntityName)
		assert.NotEmpty(t, entry.ActorName)
	}

	approvals, total, err := env.activities.ListActivities(ctx, model.ActivityRequestApproved, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, approvals, 1)
	assert.Equal(t, manager.ID.String(), approvals[0].ActorID)
}
