package authz

import (
	"testing"

	"saleshub/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityMatrix(t *testing.T) {
	cases := []struct {
		role    string
		approve bool
		sell    bool
		fulfill bool
		request bool
		catalog bool
	}{
		{model.RoleAdmin, true, true, true, true, true},
		{model.RoleHeadOffice, true, false, true, false, true},
		{model.RoleShowroomManager, true, true, true, true, true},
		{model.RoleShowroomStaff, false, true, false, true, false},
		{model.RoleRepresentative, false, true, false, true, false},
		{model.RoleDistributor, false, false, false, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			assert.Equal(t, tc.approve, CanApprove(tc.role))
			assert.Equal(t, tc.sell, CanSell(tc.role))
			assert.Equal(t, tc.fulfill, CanFulfill(tc.role))
			assert.Equal(t, tc.request, CanRequest(tc.role))
			assert.Equal(t, tc.catalog, CanManageCatalog(tc.role))
		})
	}
}

func TestUnknownRoleHasNothing(t *testing.T) {
	for _, cap := range []Capability{CapApprove, CapSell, CapFulfill, CapRequest, CapManageCatalog} {
		assert.False(t, Can("intern", cap))
		assert.False(t, Can("", cap))
	}
}
