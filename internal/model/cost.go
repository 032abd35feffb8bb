package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostCategory enum constants
const (
	CostCategoryAuction   = "AUCTION"
	CostCategoryTransport = "TRANSPORT"
	CostCategoryRepair    = "REPAIR"
	CostCategoryFreight   = "FREIGHT"
	CostCategoryOther     = "OTHER"
)

// CostInvoice caches the derived cost/profit aggregates for one invoice.
// It is created lazily and always recomputable from its CostItems plus the
// shared-invoice allocations of the invoice's vehicle.
type CostInvoice struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"invoice_id"`
	TotalRevenue decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_revenue"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_cost"`
	Profit       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"profit"`
	Margin       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"margin"` // percent of revenue
	ROI          decimal.Decimal `gorm:"column:roi;type:decimal(10,4);not null;default:0" json:"roi"`
	CostItems    []CostItem      `gorm:"foreignKey:CostInvoiceID;constraint:OnDelete:CASCADE" json:"cost_items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CostItem is a vendor-billed expense line owned by one CostInvoice
type CostItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CostInvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"cost_invoice_id"`
	VendorName      string          `gorm:"type:varchar(255);not null" json:"vendor_name"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Category        string          `gorm:"type:varchar(30)" json:"category"` // AUCTION, TRANSPORT, REPAIR, FREIGHT, OTHER
	PaymentDeadline time.Time       `gorm:"not null" json:"payment_deadline"`
	PaidAt          *time.Time      `json:"paid_at"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
