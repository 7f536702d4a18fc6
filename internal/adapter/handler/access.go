package handler

import "github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"

// Capability names one gated action. Both transports check the same table.
type Capability string

const (
	CapManageCatalog        Capability = "catalog.manage"
	CapPlaceOrder           Capability = "order.place"
	CapDecideOrder          Capability = "order.decide"
	CapDeleteOrder          Capability = "order.delete"
	CapRequestReplenishment Capability = "replenishment.request"
	CapApproveReplenishment Capability = "replenishment.approve"
	CapMarkPaid             Capability = "replenishment.mark_paid"
	CapVerifyPayment        Capability = "payment.verify"
	CapViewRecords          Capability = "records.view"
	CapManageUsers          Capability = "users.manage"
)

var grants = map[domain.Role]map[Capability]bool{
	domain.RoleEmployee: {
		CapPlaceOrder:    true,
		CapVerifyPayment: true,
		CapViewRecords:   true,
	},
	domain.RoleManager: {
		CapManageCatalog:        true,
		CapPlaceOrder:           true,
		CapDecideOrder:          true,
		CapDeleteOrder:          true,
		CapRequestReplenishment: true,
		CapApproveReplenishment: true,
		CapMarkPaid:             true,
		CapVerifyPayment:        true,
		CapViewRecords:          true,
	},
	domain.RoleAdmin: {
		CapManageCatalog:        true,
		CapPlaceOrder:           true,
		CapDecideOrder:          true,
		CapDeleteOrder:          true,
		CapRequestReplenishment: true,
		CapApproveReplenishment: true,
		CapMarkPaid:             true,
		CapVerifyPayment:        true,
		CapViewRecords:          true,
		CapManageUsers:          true,
	},
}

func Allowed(role domain.Role, c Capability) bool {
	return grants[role][c]
}
