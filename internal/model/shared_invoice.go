package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SharedInvoiceType enum constants
const (
	SharedTypeForwarder = "FORWARDER"
	SharedTypeContainer = "CONTAINER"
)

// SharedInvoice is a forwarder- or container-level bill not tied to a single
// vehicle. Its total is split evenly across the attached vehicles; the
// allocation rows are rewritten on every membership change.
type SharedInvoice struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type        string                 `gorm:"type:varchar(20);not null;index" json:"type"` // FORWARDER, CONTAINER
	VendorName  string                 `gorm:"type:varchar(255);not null" json:"vendor_name"`
	TotalAmount decimal.Decimal        `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	Currency    string                 `gorm:"type:varchar(10);not null;default:'JPY'" json:"currency"`
	BilledAt    *time.Time             `json:"billed_at"`
	Description string                 `gorm:"type:text" json:"description"`
	Vehicles    []SharedInvoiceVehicle `gorm:"foreignKey:SharedInvoiceID;constraint:OnDelete:CASCADE" json:"vehicles"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// SharedInvoiceVehicle is the join row carrying the amount allocated to one vehicle
type SharedInvoiceVehicle struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SharedInvoiceID uuid.UUID       `gorm:"type:uuid;not null;index:idx_shared_vehicle,unique" json:"shared_invoice_id"`
	VehicleID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_shared_vehicle,unique" json:"vehicle_id"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"allocated_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ContainerInvoice is a downstream bill issued against a shared container
// invoice. While one exists the parent SharedInvoice cannot be deleted.
type ContainerInvoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SharedInvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"shared_invoice_id"`
	ContainerNo     string          `gorm:"type:varchar(50);not null" json:"container_no"`
	VesselName      string          `gorm:"type:varchar(100)" json:"vessel_name"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
