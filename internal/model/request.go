package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus constants. Transitions are one-directional:
// PENDING -> APPROVED -> COMPLETED, or PENDING -> REJECTED. Nothing else.
const (
	RequestStatusPending   = "PENDING"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCompleted = "COMPLETED"
)

// Priority / urgency levels shared by requests and their line items
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// ProductRequest is a demand for product quantities raised by a requester
// role (representative, showroom staff, distributor) for approval by a
// manager or head-office role.
type ProductRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestCode string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_code"`

	RequestedBy     uuid.UUID `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester       *User     `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequestedByName string    `gorm:"type:varchar(255);not null" json:"requested_by_name"`
	RequestedByRole string    `gorm:"type:varchar(50);not null" json:"requested_by_role"`

	Items    []RequestItem `gorm:"foreignKey:RequestID" json:"items"`
	Status   string        `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Priority string        `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"priority"`
	Notes    string        `gorm:"type:text" json:"notes"`

	// Approver fields are written exactly once, at the PENDING -> APPROVED
	// transition. Rejected requests use the rejection fields instead; the two
	// sets are mutually exclusive.
	ApprovedBy    *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver      *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at"`
	ApprovalNotes string     `gorm:"type:text" json:"approval_notes"`

	RejectedBy      *uuid.UUID `gorm:"type:uuid" json:"rejected_by"`
	Rejecter        *User      `gorm:"foreignKey:RejectedBy" json:"rejecter,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`

	// Consumed marker: set when the approved request has been transferred
	// into inventory. A request with FulfilledAt set can never be fulfilled
	// again.
	FulfilledBy *uuid.UUID `gorm:"type:uuid" json:"fulfilled_by"`
	FulfilledAt *time.Time `json:"fulfilled_at"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ProductRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RequestItem is one line of a ProductRequest. ProductName and Unit are
// snapshots taken at creation time so history stays readable even if the
// catalog entry changes later.
type RequestItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     Product   `gorm:"foreignKey:ProductID" json:"-"`
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int       `gorm:"type:int;not null" json:"quantity"`
	Unit        string    `gorm:"type:varchar(30);not null" json:"unit"`
	Urgency     string    `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"urgency"`
}

func (i *RequestItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
