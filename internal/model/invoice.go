package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus constants
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusCompleted = "COMPLETED"
)

// PaymentStatus constants
const (
	PaymentPending = "PENDING"
	PaymentPartial = "PARTIAL"
	PaymentPaid    = "PAID"
)

// PaymentMethod constants
const (
	PayCash   = "CASH"
	PayCard   = "CARD"
	PayCredit = "CREDIT"
)

// DueDateGraceDays is added to the creation time to derive DueDate.
const DueDateGraceDays = 30

// Invoice is a priced, itemized customer bill issued against available stock.
// All monetary columns are derived from the line items at creation time and
// never edited afterwards; only the payment fields move.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`

	CreatedBy     uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator       *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedByName string    `gorm:"type:varchar(255);not null" json:"created_by_name"`
	CreatedByRole string    `gorm:"type:varchar(50);not null" json:"created_by_role"`

	// Customer snapshot. CustomerID is set when the sale is tied to a managed
	// customer record; walk-in sales carry only the snapshot fields.
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Customer        *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName    string     `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string     `gorm:"type:varchar(30)" json:"customer_phone"`
	CustomerAddress string     `gorm:"type:varchar(500)" json:"customer_address"`
	CustomerEmail   string     `gorm:"type:varchar(255)" json:"customer_email"`

	// Set when the sale was drawn from a fulfilled product request; walk-in
	// sales leave it nil. The two creation paths are separate operations.
	SourceRequestID *uuid.UUID      `gorm:"type:uuid;index" json:"source_request_id"`
	SourceRequest   *ProductRequest `gorm:"foreignKey:SourceRequestID" json:"-"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	DiscountPct    decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"discount_pct"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`

	Status          string          `gorm:"type:varchar(20);not null;default:'COMPLETED';index" json:"status"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null;default:'CASH'" json:"payment_method"`
	TotalPaid       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_paid"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"remaining_amount"`
	DueDate         time.Time       `json:"due_date"`

	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceItem is one priced line. LineTotal = Quantity x UnitPrice, rounded
// to 2dp, and is fixed at creation.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductID" json:"-"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	Unit        string          `gorm:"type:varchar(30);not null" json:"unit"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoicePayment records one payment received against an invoice.
type InvoicePayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method     string          `gorm:"type:varchar(20);not null;default:'CASH'" json:"method"`
	ReceivedBy uuid.UUID       `gorm:"type:uuid;not null" json:"received_by"`
	Note       string          `gorm:"type:text" json:"note"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (p *InvoicePayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
