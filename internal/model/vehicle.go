package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShippingStage enum constants
const (
	StagePurchased       = "PURCHASED"
	StageInlandTransport = "INLAND_TRANSPORT"
	StageAtPort          = "AT_PORT"
	StageShipped         = "SHIPPED"
	StageDelivered       = "DELIVERED"
)

// Vehicle represents a single unit in the export pipeline, identified by chassis number
type Vehicle struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChassisNo     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"chassis_no"`
	Make          string          `gorm:"type:varchar(100);not null" json:"make"`
	Model         string          `gorm:"type:varchar(100);not null" json:"model"`
	Year          int             `json:"year"`
	Mileage       int             `json:"mileage"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price"`
	ShippingStage string          `gorm:"type:varchar(30);not null;default:'PURCHASED';index" json:"shipping_stage"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"` // buyer, once a sale is attached
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
