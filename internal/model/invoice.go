package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enum constants
const (
	InvoiceDraft           = "DRAFT"
	InvoicePendingApproval = "PENDING_APPROVAL"
	InvoiceApproved        = "APPROVED"
	InvoiceFinalized       = "FINALIZED"
)

// PaymentStatus enum constants
const (
	PaymentPending       = "PENDING"
	PaymentPartiallyPaid = "PARTIALLY_PAID"
	PaymentPaid          = "PAID"
)

// Invoice represents a sales invoice issued to a customer, optionally tied to one vehicle.
// Revenue is always derived from its Charges; TaxRate applies only when TaxEnabled.
// A FINALIZED invoice is locked and immutable until an admin unlocks it.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	VehicleID     *uuid.UUID      `gorm:"type:uuid;index" json:"vehicle_id"`
	Vehicle       *Vehicle        `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Currency      string          `gorm:"type:varchar(10);not null;default:'JPY'" json:"currency"`
	TaxEnabled    bool            `gorm:"default:false" json:"tax_enabled"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_rate"` // percentage, e.g. 10 = 10%
	Status        string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	Locked        bool            `gorm:"default:false" json:"locked"`
	ShareToken    *string         `gorm:"type:varchar(64);uniqueIndex" json:"share_token,omitempty"`
	PaidAt        *time.Time      `json:"paid_at"`
	ApprovedBy    *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver      *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Note          string          `gorm:"type:text" json:"note"`
	Charges       []Charge        `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"charges"`
	CostInvoice   *CostInvoice    `gorm:"foreignKey:InvoiceID" json:"cost_invoice,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Charge is a named revenue line owned by exactly one invoice
type Charge struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	SortOrder int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
