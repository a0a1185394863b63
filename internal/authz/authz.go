// Package authz centralises role capability checks so that services never
// branch on raw role strings themselves.
package authz

import "saleshub/internal/model"

// Capability is a named, role-gated action within the workflow.
type Capability string

const (
	CapApprove       Capability = "approve_requests"
	CapSell          Capability = "create_invoices"
	CapFulfill       Capability = "fulfill_requests"
	CapRequest       Capability = "create_requests"
	CapManageCatalog Capability = "manage_catalog"
)

var roleCaps = map[string]map[Capability]bool{
	model.RoleAdmin: {
		CapApprove: true, CapSell: true, CapFulfill: true, CapRequest: true, CapManageCatalog: true,
	},
	model.RoleHeadOffice: {
		CapApprove: true, CapFulfill: true, CapManageCatalog: true,
	},
	model.RoleShowroomManager: {
		CapApprove: true, CapSell: true, CapFulfill: true, CapRequest: true, CapManageCatalog: true,
	},
	model.RoleShowroomStaff: {
		CapSell: true, CapRequest: true,
	},
	model.RoleRepresentative: {
		CapSell: true, CapRequest: true,
	},
	model.RoleDistributor: {
		CapRequest: true,
	},
}

// Can reports whether the role holds the capability. Unknown roles hold nothing.
func Can(role string, cap Capability) bool {
	return roleCaps[role][cap]
}

// CanApprove reports whether the role may approve or reject product requests.
func CanApprove(role string) bool { return Can(role, CapApprove) }

// CanSell reports whether the role may issue customer invoices.
func CanSell(role string) bool { return Can(role, CapSell) }

// CanFulfill reports whether the role may transfer approved requests into inventory.
func CanFulfill(role string) bool { return Can(role, CapFulfill) }

// CanRequest reports whether the role may raise product requests.
func CanRequest(role string) bool { return Can(role, CapRequest) }

// CanManageCatalog reports whether the role may create or edit catalog products.
func CanManageCatalog(role string) bool { return Can(role, CapManageCatalog) }
