package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity types for the append-only audit trail
const (
	ActivityRequestCreated   = "REQUEST_CREATED"
	ActivityRequestApproved  = "REQUEST_APPROVED"
	ActivityRequestRejected  = "REQUEST_REJECTED"
	ActivityRequestFulfilled = "REQUEST_FULFILLED"
	ActivityInvoiceCreated   = "INVOICE_CREATED"
	ActivityPaymentRecorded  = "PAYMENT_RECORDED"
	ActivityStockAdjusted    = "STOCK_ADJUSTED"
	ActivityProductCreated   = "PRODUCT_CREATED"
	ActivityProductUpdated   = "PRODUCT_UPDATED"
	ActivityProductDeleted   = "PRODUCT_DELETED"
	ActivityCustomerCreated  = "CUSTOMER_CREATED"
	ActivityCustomerUpdated  = "CUSTOMER_UPDATED"
	ActivityCustomerDeleted  = "CUSTOMER_DELETED"
)

// ActivityLog tracks who did what and when for every state-changing action.
// Rows are written in the same transaction as the mutation they describe and
// are never updated afterwards.
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Type       string     `gorm:"type:varchar(50);not null;index" json:"type"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for automated actions
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorName  string     `gorm:"type:varchar(255)" json:"actor_name"`
	ActorRole  string     `gorm:"type:varchar(50)" json:"actor_role"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
